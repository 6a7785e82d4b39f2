package combat

import (
	"math/rand"
	"time"

	"github.com/Nootest/3DShooting/internal/pool"
	"github.com/Nootest/3DShooting/internal/vec"
)

// EffectKind - вид частицы; внешний рендер выбирает по нему цвет
type EffectKind uint8

const (
	EffectImpact EffectKind = iota // Попадание в мир
	EffectPlayerHit
	EffectEnemyHit
	EffectDeath
	EffectHeadshot
)

func (k EffectKind) String() string {
	switch k {
	case EffectImpact:
		return "impact"
	case EffectPlayerHit:
		return "player_hit"
	case EffectEnemyHit:
		return "enemy_hit"
	case EffectDeath:
		return "death"
	case EffectHeadshot:
		return "headshot"
	default:
		return "unknown"
	}
}

// Число частиц во вспышке
const (
	EnemyImpactParticles  = 5
	PlayerImpactParticles = 10
	EnemyHitParticles     = 10
	DeathParticles        = 20
	HeadshotParticles     = 30

	// HeadshotLift - высота вспышки хедшота над позицией врага
	HeadshotLift = 1.5

	EffectLifetime = 800 * time.Millisecond

	// effectGravityScale - частицы падают вдвое медленнее игрока
	effectGravityScale = 0.5
	burstSpread        = 6.0
	burstLift          = 3.0
)

// Effect - частица в пуле
type Effect struct {
	Position  vec.Vec3Float
	Velocity  vec.Vec3Float
	Kind      EffectKind
	Scale     float64
	SpawnTick uint64
	Lifetime  uint64
}

// burstVelocity - случайная скорость разлёта с подъёмом вверх
func burstVelocity(rng *rand.Rand) vec.Vec3Float {
	return vec.V3(
		(rng.Float64()-0.5)*burstSpread,
		(rng.Float64()-0.5)*burstSpread+burstLift,
		(rng.Float64()-0.5)*burstSpread,
	)
}

// Burst выпускает count частиц из точки pos
func (m *Manager) Burst(pos vec.Vec3Float, count int, kind EffectKind) {
	for i := 0; i < count; i++ {
		_, e := m.effects.Acquire()
		e.Position = pos
		e.Velocity = burstVelocity(m.rng)
		e.Kind = kind
		e.Scale = 1
		e.SpawnTick = m.tick
		e.Lifetime = m.effectLifetime
	}
	m.stats.Particles += uint64(count)
}

// updateEffects старит частицы: гравитация, сдвиг, уменьшение масштаба
func (m *Manager) updateEffects(dt float64) {
	m.effects.ForEach(func(h pool.Handle, e *Effect) bool {
		age := m.tick - e.SpawnTick
		if age > e.Lifetime {
			m.effects.Release(h)
			return true
		}
		e.Velocity.Y += m.cfg.Gravity * dt * effectGravityScale
		e.Position = e.Position.Add(e.Velocity.Mul(dt))
		if e.Lifetime > 0 {
			e.Scale = 1 - float64(age)/float64(e.Lifetime)
		}
		return true
	})
}
