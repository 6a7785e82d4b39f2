package util

import (
	"math"
	"time"
)

// Rate - частота логического тика, тиков в секунду.
// Нулевое или отрицательное значение означает DefaultRate.
type Rate int

// DefaultRate - частота тика по умолчанию
const DefaultRate Rate = 60

func (r Rate) hz() float64 {
	if r <= 0 {
		return float64(DefaultRate)
	}
	return float64(r)
}

// Interval - длительность одного тика
func (r Rate) Interval() time.Duration {
	return time.Duration(float64(time.Second) / r.hz())
}

// Ticks переводит длительность в число тиков (с округлением вверх, минимум 1 для d > 0)
func (r Rate) Ticks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(math.Ceil(d.Seconds()*r.hz() - 1e-9))
}

// Duration переводит число тиков обратно в длительность
func (r Rate) Duration(ticks uint64) time.Duration {
	return time.Duration(float64(ticks) / r.hz() * float64(time.Second))
}

// Countdown - таймер, отсчитываемый в тиках.
// Нулевое значение - неактивный таймер.
type Countdown struct {
	remaining uint64
}

// Start запускает таймер на d при частоте тика r
func (c *Countdown) Start(d time.Duration, r Rate) {
	c.remaining = r.Ticks(d)
}

// StartTicks запускает таймер на n тиков
func (c *Countdown) StartTicks(n uint64) {
	c.remaining = n
}

// Active - таймер ещё не истёк
func (c *Countdown) Active() bool {
	return c.remaining > 0
}

// Remaining возвращает оставшиеся тики
func (c *Countdown) Remaining() uint64 {
	return c.remaining
}

// Stop сбрасывает таймер без срабатывания
func (c *Countdown) Stop() {
	c.remaining = 0
}

// Tick продвигает таймер на один тик и возвращает true ровно в тот тик, когда он истёк
func (c *Countdown) Tick() bool {
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	return c.remaining == 0
}
