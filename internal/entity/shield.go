package entity

import (
	"time"

	"github.com/Nootest/3DShooting/internal/util"
)

// Shield - энергетический щит игрока.
// Поглощает урон, пока поднят; после пробития уходит на перезарядку и
// затем восстанавливается полностью.
type Shield struct {
	Charge float64
	Max    float64
	Raised bool

	cooldown     util.Countdown
	cooldownTime time.Duration
	rate         util.Rate
}

// NewShield создаёт заряженный щит
func NewShield(max float64, cooldown time.Duration, rate util.Rate) Shield {
	return Shield{Charge: max, Max: max, cooldownTime: cooldown, rate: rate}
}

// Active - щит сейчас поглощает урон
func (s *Shield) Active() bool {
	return s.Raised && !s.cooldown.Active() && s.Charge > 0
}

// OnCooldown - щит перезаряжается после пробития
func (s *Shield) OnCooldown() bool {
	return s.cooldown.Active()
}

// CooldownRemaining возвращает оставшееся время перезарядки
func (s *Shield) CooldownRemaining() time.Duration {
	return s.rate.Duration(s.cooldown.Remaining())
}

// Absorb забирает часть урона в щит. Возвращает поглощённое и признак пробития.
func (s *Shield) Absorb(amount float64) (absorbed float64, broken bool) {
	if !s.Active() || amount <= 0 {
		return 0, false
	}
	absorbed = amount
	if s.Charge < absorbed {
		absorbed = s.Charge
	}
	s.Charge -= absorbed
	if s.Charge <= 0 {
		s.Charge = 0
		s.cooldown.Start(s.cooldownTime, s.rate)
		broken = true
	}
	return absorbed, broken
}

// Tick отсчитывает перезарядку; возвращает true в тик восстановления
func (s *Shield) Tick() bool {
	if s.cooldown.Tick() {
		s.Charge = s.Max
		return true
	}
	return false
}

// Reset возвращает щит в исходное состояние
func (s *Shield) Reset() {
	s.Charge = s.Max
	s.Raised = false
	s.cooldown.Stop()
}
