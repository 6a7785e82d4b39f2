package combat

import (
	"math"
	"math/rand"
	"time"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/pool"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

// Geometry - статическая геометрия, в которую врезаются снаряды
type Geometry interface {
	Raycast(origin, dir vec.Vec3Float, maxDist float64) (world.RayHit, bool)
}

// Config - параметры пулов и снарядов
type Config struct {
	PlayerPoolSize int
	EnemyPoolSize  int
	EffectPoolSize int
	PlayerLifetime time.Duration
	EnemyLifetime  time.Duration
	EffectLifetime time.Duration
	EnemyDamage    float64
	Gravity        float64
	TickRate       util.Rate // Сроки жизни переводятся в тики по этой частоте
}

// DefaultConfig возвращает стандартные размеры пулов и сроки жизни
func DefaultConfig() Config {
	return Config{
		PlayerPoolSize: 100,
		EnemyPoolSize:  100,
		EffectPoolSize: 200,
		PlayerLifetime: PlayerProjectileLifetime,
		EnemyLifetime:  EnemyProjectileLifetime,
		EffectLifetime: EffectLifetime,
		EnemyDamage:    EnemyProjectileDamage,
		Gravity:        -35,
		TickRate:       util.DefaultRate,
	}
}

// PlayerHit - попадание вражеского снаряда в игрока
type PlayerHit struct {
	Shooter   enemy.Handle
	Position  vec.Vec3Float
	Direction vec.Vec3Float // Направление полёта снаряда
	Result    entity.DamageResult
}

// Report - итог тика снарядов
type Report struct {
	PlayerHits []PlayerHit
	EnemyHits  []enemy.HitOutcome
	WorldHits  int
	Expired    int
}

// Stats - счётчики боевой подсистемы
type Stats struct {
	PlayerFired uint64
	EnemyFired  uint64
	PlayerHits  uint64
	EnemyHits   uint64
	Headshots   uint64
	WorldHits   uint64
	Expired     uint64
	Particles   uint64
	PlayerPool  pool.Stats
	EnemyPool   pool.Stats
	EffectPool  pool.Stats
}

// Manager владеет пулами снарядов и частиц.
// Время считается тиками; один вызов Update - один тик.
type Manager struct {
	cfg     Config
	players *pool.Pool[Projectile]
	enemies *pool.Pool[Projectile]
	effects *pool.Pool[Effect]

	playerLifetime uint64
	enemyLifetime  uint64
	effectLifetime uint64

	rng    *rand.Rand
	tick   uint64
	parts  []enemy.HitPart
	logger *logging.Logger

	stats Stats
}

// NewManager создаёт пулы заданной ёмкости
func NewManager(cfg Config, rng *rand.Rand) *Manager {
	return &Manager{
		cfg:            cfg,
		players:        pool.New[Projectile]("player_projectiles", cfg.PlayerPoolSize, 0),
		enemies:        pool.New[Projectile]("enemy_projectiles", cfg.EnemyPoolSize, 0),
		effects:        pool.New[Effect]("effects", cfg.EffectPoolSize, 0),
		playerLifetime: cfg.TickRate.Ticks(cfg.PlayerLifetime),
		enemyLifetime:  cfg.TickRate.Ticks(cfg.EnemyLifetime),
		effectLifetime: cfg.TickRate.Ticks(cfg.EffectLifetime),
		rng:            rng,
		logger:         logging.GetComponentLogger("combat"),
	}
}

// FirePlayer выпускает снаряды выстрела игрока из точки глаз
func (m *Manager) FirePlayer(shot entity.Shot, eye vec.Vec3Float) []pool.Handle {
	handles := make([]pool.Handle, 0, len(shot.Directions))
	for _, dir := range shot.Directions {
		dir = dir.Normalized()
		if dir.IsZero() {
			continue
		}
		h, p := m.players.Acquire()
		p.Position = eye.Add(dir.Mul(MuzzleOffset))
		p.Velocity = dir.Mul(shot.Weapon.ProjectileSpeed)
		p.Owner = OwnerPlayer
		p.Damage = shot.Weapon.Damage
		p.Headshots = true
		p.SpawnTick = m.tick
		p.Lifetime = m.playerLifetime
		handles = append(handles, h)
		m.stats.PlayerFired++
	}
	return handles
}

// FireEnemy выпускает снаряд врага; точка вылета уже вынесена вперёд
func (m *Manager) FireEnemy(req enemy.ShotRequest) pool.Handle {
	dir := req.Direction.Normalized()
	if dir.IsZero() {
		return pool.NilHandle
	}
	h, p := m.enemies.Acquire()
	p.Position = req.Origin
	p.Velocity = dir.Mul(req.Speed)
	p.Owner = OwnerEnemy
	p.Shooter = req.Owner
	p.Damage = m.cfg.EnemyDamage
	p.SpawnTick = m.tick
	p.Lifetime = m.enemyLifetime
	m.stats.EnemyFired++
	return h
}

// Update продвигает снаряды и частицы на один тик.
// Порядок для снаряда: срок жизни, заметание, цели, мир; ближайшее попадание побеждает.
func (m *Manager) Update(dt float64, geometry Geometry, player *entity.Player, enemies *enemy.Manager) Report {
	var report Report
	m.tick++

	m.updateEnemyProjectiles(dt, geometry, player, &report)
	m.updatePlayerProjectiles(dt, geometry, enemies, &report)
	m.updateEffects(dt)
	return report
}

func (m *Manager) updateEnemyProjectiles(dt float64, geometry Geometry, player *entity.Player, report *Report) {
	var target physics.AABB
	hasTarget := player != nil && !player.IsDead()
	if hasTarget {
		cfg := player.Config()
		target = physics.NewAABB(player.Position, vec.V3(cfg.Width*2, cfg.Height*2, cfg.Width*2))
	}

	m.enemies.ForEach(func(h pool.Handle, p *Projectile) bool {
		if p.Expired(m.tick) {
			m.enemies.Release(h)
			report.Expired++
			m.stats.Expired++
			return true
		}

		move := p.Velocity.Mul(dt)
		moveLen := move.Length()
		dir := p.Velocity.Normalized()

		targetDist := math.Inf(1)
		if hasTarget && physics.SweptAABB(p.Box(), move).Intersects(target) {
			targetDist = 0
			if d, ok := physics.RayIntersect(p.Position, dir, target.Expand(ProjectileSize/2)); ok {
				targetDist = d
			}
		}

		worldHit, worldOK := m.raycast(geometry, p.Position, dir, moveLen)
		switch {
		case worldOK && worldHit.Distance < targetDist:
			m.Burst(worldHit.Point, EnemyImpactParticles, EffectImpact)
			m.enemies.Release(h)
			report.WorldHits++
			m.stats.WorldHits++
		case !math.IsInf(targetDist, 1):
			point := p.Position.Add(dir.Mul(math.Min(targetDist, moveLen)))
			res := player.TakeDamage(p.Damage)
			m.Burst(point, EnemyImpactParticles, EffectPlayerHit)
			m.enemies.Release(h)
			report.PlayerHits = append(report.PlayerHits, PlayerHit{Shooter: p.Shooter, Position: point, Direction: dir, Result: res})
			m.stats.PlayerHits++
			if res.Killed {
				// Дальнейшие снаряды летят мимо мёртвого игрока
				hasTarget = false
			}
		default:
			p.Position = p.Position.Add(move)
		}
		return true
	})
}

func (m *Manager) updatePlayerProjectiles(dt float64, geometry Geometry, enemies *enemy.Manager, report *Report) {
	m.players.ForEach(func(h pool.Handle, p *Projectile) bool {
		if p.Expired(m.tick) {
			m.players.Release(h)
			report.Expired++
			m.stats.Expired++
			return true
		}

		move := p.Velocity.Mul(dt)
		moveLen := move.Length()
		dir := p.Velocity.Normalized()

		// Части тела пересобираются на каждый снаряд: предыдущий мог убить врага
		m.parts = m.parts[:0]
		if enemies != nil {
			m.parts = enemies.HitParts(m.parts)
		}

		best := -1
		bestDist := math.Inf(1)
		for i := range m.parts {
			d, ok := physics.RayIntersect(p.Position, dir, m.parts[i].Box)
			if ok && d <= moveLen && d < bestDist {
				best, bestDist = i, d
			}
		}

		reach := moveLen
		if best >= 0 {
			reach = bestDist
		}
		if worldHit, ok := m.raycast(geometry, p.Position, dir, reach); ok && worldHit.Distance < bestDist {
			m.Burst(worldHit.Point, PlayerImpactParticles, EffectImpact)
			m.players.Release(h)
			report.WorldHits++
			m.stats.WorldHits++
			return true
		}

		if best >= 0 {
			part := m.parts[best]
			point := p.Position.Add(dir.Mul(bestDist))
			headshot := p.Headshots && part.Kind.IsHead()
			m.players.Release(h)
			m.Burst(point, EnemyHitParticles, EffectEnemyHit)

			outcome, ok := enemies.ApplyHit(part.Owner, p.Damage, headshot)
			if !ok {
				return true
			}
			m.stats.EnemyHits++
			if outcome.Headshot {
				m.stats.Headshots++
				m.Burst(outcome.Position.Add(vec.V3(0, HeadshotLift, 0)), HeadshotParticles, EffectHeadshot)
			}
			if outcome.Killed {
				m.Burst(outcome.Position, DeathParticles, EffectDeath)
				m.logger.Debug("💀 Враг %d убит (хедшот: %v)", part.Owner.Slot(), outcome.Headshot)
			}
			report.EnemyHits = append(report.EnemyHits, outcome)
			return true
		}

		p.Position = p.Position.Add(move)
		return true
	})
}

func (m *Manager) raycast(geometry Geometry, origin, dir vec.Vec3Float, maxDist float64) (world.RayHit, bool) {
	if geometry == nil || maxDist <= 0 {
		return world.RayHit{}, false
	}
	return geometry.Raycast(origin, dir, maxDist)
}

// ForEachProjectile обходит активные снаряды обеих сторон
func (m *Manager) ForEachProjectile(fn func(p *Projectile)) {
	visit := func(_ pool.Handle, p *Projectile) bool {
		fn(p)
		return true
	}
	m.players.ForEach(visit)
	m.enemies.ForEach(visit)
}

// ForEachEffect обходит активные частицы
func (m *Manager) ForEachEffect(fn func(e *Effect)) {
	m.effects.ForEach(func(_ pool.Handle, e *Effect) bool {
		fn(e)
		return true
	})
}

// ProjectileCount возвращает число активных снарядов стороны
func (m *Manager) ProjectileCount(owner Owner) int {
	if owner == OwnerEnemy {
		return m.enemies.ActiveCount()
	}
	return m.players.ActiveCount()
}

// EffectCount возвращает число активных частиц
func (m *Manager) EffectCount() int {
	return m.effects.ActiveCount()
}

// Projectile возвращает активный снаряд по хендлу
func (m *Manager) Projectile(owner Owner, h pool.Handle) (*Projectile, bool) {
	if owner == OwnerEnemy {
		return m.enemies.Get(h)
	}
	return m.players.Get(h)
}

// Clear возвращает в пулы все снаряды и частицы
func (m *Manager) Clear() {
	m.players.ReleaseAll()
	m.enemies.ReleaseAll()
	m.effects.ReleaseAll()
}

// GetStats возвращает снимок счётчиков вместе со статистикой пулов
func (m *Manager) GetStats() Stats {
	s := m.stats
	s.PlayerPool = m.players.GetStats()
	s.EnemyPool = m.enemies.GetStats()
	s.EffectPool = m.effects.GetStats()
	return s
}
