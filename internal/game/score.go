package game

import (
	"math"
	"time"

	"github.com/Nootest/3DShooting/internal/util"
)

// ScoreConfig - стоимость действий в очках
type ScoreConfig struct {
	EnemyKill       int
	HeadshotBonus   int
	WaveComplete    int
	HealthPickup    int
	ComboMultiplier float64
	ComboWindow     time.Duration // Сколько живёт серия после последнего убийства
	TickRate        util.Rate
}

// DefaultScoreConfig возвращает стандартную таблицу очков
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		EnemyKill:       100,
		HeadshotBonus:   50,
		WaveComplete:    500,
		HealthPickup:    25,
		ComboMultiplier: 1.5,
		ComboWindow:     3 * time.Second,
		TickRate:        util.DefaultRate,
	}
}

// Award - результат начисления очков
type Award struct {
	Points       int
	ComboBonus   int
	Total        int
	NewHighScore bool
}

// Score - счёт партии, серия убийств и рекорд
type Score struct {
	cfg       ScoreConfig
	points    int
	high      int
	combo     int
	kills     int
	headshots int
	comboLeft util.Countdown
}

// NewScore создаёт счёт с известным рекордом
func NewScore(cfg ScoreConfig, highScore int) *Score {
	return &Score{cfg: cfg, high: highScore}
}

// Add начисляет очки с бонусом серии: при серии больше одного
// бонус равен floor(points * (multiplier-1) * combo)
func (s *Score) Add(points int) Award {
	var bonus int
	if s.combo > 1 {
		bonus = int(math.Floor(float64(points) * (s.cfg.ComboMultiplier - 1) * float64(s.combo)))
	}
	a := Award{Points: points, ComboBonus: bonus, Total: points + bonus}
	s.points += a.Total
	if s.points > s.high {
		a.NewHighScore = true
		s.high = s.points
	}
	return a
}

// EnemyKilled увеличивает серию, продлевает её окно и начисляет очки за убийство
func (s *Score) EnemyKilled(headshot bool) Award {
	points := s.cfg.EnemyKill
	s.kills++
	if headshot {
		points += s.cfg.HeadshotBonus
		s.headshots++
	}
	s.combo++
	s.comboLeft.Start(s.cfg.ComboWindow, s.cfg.TickRate)
	return s.Add(points)
}

// WaveCompleted начисляет бонус за волну
func (s *Score) WaveCompleted() Award {
	return s.Add(s.cfg.WaveComplete)
}

// HealthPickedUp начисляет очки за аптечку
func (s *Score) HealthPickedUp() Award {
	return s.Add(s.cfg.HealthPickup)
}

// Tick отсчитывает окно серии; по истечении серия сбрасывается
func (s *Score) Tick() {
	if s.comboLeft.Tick() {
		s.combo = 0
	}
}

// Reset обнуляет счёт партии; рекорд сохраняется
func (s *Score) Reset() {
	s.points = 0
	s.combo = 0
	s.kills = 0
	s.headshots = 0
	s.comboLeft.Stop()
}

// Points возвращает текущий счёт
func (s *Score) Points() int { return s.points }

// HighScore возвращает рекорд
func (s *Score) HighScore() int { return s.high }

// SetHighScore задаёт рекорд, загруженный из хранилища
func (s *Score) SetHighScore(v int) {
	if v > s.high {
		s.high = v
	}
}

// Combo возвращает длину текущей серии
func (s *Score) Combo() int { return s.combo }

// Kills возвращает число убийств за партию
func (s *Score) Kills() int { return s.kills }

// Headshots возвращает число хедшотов за партию
func (s *Score) Headshots() int { return s.headshots }
