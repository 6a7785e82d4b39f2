package game

import (
	"math"
	"time"

	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

// WaveConfig - параметры волн и масштабирования сложности
type WaveConfig struct {
	TotalWaves          int
	BaseEnemies         int // Врагов в первой волне
	EnemiesPerWave      int // Прибавка за каждую следующую волну
	BaseHealth          float64
	BaseProjectileSpeed float64 // Скорость снаряда растёт от ×0.5 до ×1.5
	FireIntervalStart   time.Duration
	FireIntervalEnd     time.Duration
	BaseSpeed           float64 // Скорость врага растёт от ×0.75 до ×2
	MeleeSpeedFactor    float64
	MeleeRatios         map[int]float64
	DefaultMeleeRatio   float64
	WaveDelay           time.Duration // Пауза между волнами
	SpawnMinDistance    float64       // Минимальная дистанция появления от игрока
}

// DefaultWaveConfig возвращает стандартную прогрессию из пяти волн
func DefaultWaveConfig() WaveConfig {
	return WaveConfig{
		TotalWaves:          5,
		BaseEnemies:         10,
		EnemiesPerWave:      3,
		BaseHealth:          3,
		BaseProjectileSpeed: 50,
		FireIntervalStart:   2000 * time.Millisecond,
		FireIntervalEnd:     500 * time.Millisecond,
		BaseSpeed:           2,
		MeleeSpeedFactor:    1.5,
		MeleeRatios:         map[int]float64{2: 0.4, 3: 0.6, 4: 0.3, 5: 0.5},
		DefaultMeleeRatio:   0.5,
		WaveDelay:           3 * time.Second,
		SpawnMinDistance:    20,
	}
}

// EnemyCount возвращает число врагов волны
func (c WaveConfig) EnemyCount(wave int) int {
	if wave < 1 {
		return 0
	}
	return c.BaseEnemies + (wave-1)*c.EnemiesPerWave
}

// Progress возвращает долю пройденной прогрессии: 0 на первой волне, 1 на последней
func (c WaveConfig) Progress(wave int) float64 {
	if c.TotalWaves <= 1 {
		return 1
	}
	p := float64(wave-1) / float64(c.TotalWaves-1)
	return math.Max(0, math.Min(1, p))
}

// MeleeRatio возвращает долю бойцов ближнего боя в волне
func (c WaveConfig) MeleeRatio(wave int) float64 {
	if r, ok := c.MeleeRatios[wave]; ok {
		return r
	}
	return c.DefaultMeleeRatio
}

// RoleFor выбирает роль i-го врага волны: первые count*ratio - ближний бой
func (c WaveConfig) RoleFor(wave, index, count int) enemy.Role {
	if float64(index) < float64(count)*c.MeleeRatio(wave) {
		return enemy.RoleMelee
	}
	return enemy.RoleRanged
}

// SpawnStats возвращает характеристики врага для волны и роли
func (c WaveConfig) SpawnStats(wave int, role enemy.Role) enemy.SpawnStats {
	p := c.Progress(wave)
	hp := math.Max(1, math.Round(c.BaseHealth+p*float64(c.TotalWaves-1)))
	speed := lerp(c.BaseSpeed*0.75, c.BaseSpeed*2, p)

	if role == enemy.RoleMelee {
		return enemy.SpawnStats{
			Role:   role,
			Health: hp,
			Speed:  speed * c.MeleeSpeedFactor,
		}
	}
	interval := float64(c.FireIntervalStart) - float64(c.FireIntervalStart-c.FireIntervalEnd)*p
	return enemy.SpawnStats{
		Role:            role,
		Health:          hp,
		Speed:           speed,
		FireInterval:    time.Duration(interval),
		ProjectileSpeed: lerp(c.BaseProjectileSpeed*0.5, c.BaseProjectileSpeed*1.5, p),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// WavePhase - состояние оркестратора волн
type WavePhase uint8

const (
	WavePhaseIdle     WavePhase = iota // Волна не идёт, ждём задержку
	WavePhaseActive                    // Враги на карте
	WavePhaseVictory                   // Все волны пройдены
	WavePhaseGameOver                  // Игрок погиб
)

func (p WavePhase) String() string {
	switch p {
	case WavePhaseIdle:
		return "idle"
	case WavePhaseActive:
		return "active"
	case WavePhaseVictory:
		return "victory"
	case WavePhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Terminal - партия закончена
func (p WavePhase) Terminal() bool {
	return p == WavePhaseVictory || p == WavePhaseGameOver
}
