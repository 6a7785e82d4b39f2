package entity

import (
	"math"
	"math/rand"

	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// Environment - то, что ИИ читает из мира за тик
type Environment interface {
	// PlayerPosition возвращает точку глаз игрока
	PlayerPosition() vec.Vec3Float

	// LineOfSight проверяет прямую видимость между точками
	LineOfSight(from, to vec.Vec3Float) bool

	// FindPath возвращает сглаженный путь или nil
	FindPath(from, to vec.Vec3Float) []vec.Vec3Float

	// Obstacles возвращает коробки вокселей в области
	Obstacles(area physics.AABB) []physics.AABB
}

// ShotRequest - выстрел врага, который пул снарядов должен создать
type ShotRequest struct {
	Owner     Handle
	Origin    vec.Vec3Float
	Direction vec.Vec3Float
	Speed     float64
}

// TickOutput - результат тика ИИ
type TickOutput struct {
	MeleeDamage float64 // Суммарный урон ближнего боя за тик
	Shots       []ShotRequest
	Replans     int
}

// HitOutcome - результат попадания во врага
type HitOutcome struct {
	Handle   Handle
	Role     Role
	Damage   float64
	Headshot bool
	Killed   bool
	Position vec.Vec3Float
}

// Stats - счётчики менеджера врагов
type Stats struct {
	Alive        int
	Spawned      uint64
	Killed       uint64
	Shots        uint64
	Replans      uint64
	PathFailures uint64
	StuckEscapes uint64
}

// Manager хранит врагов в непрерывном срезе и адресует их хендлами.
// Владеет им поток симуляции; блокировок нет.
type Manager struct {
	enemies     []Enemy
	generations []uint32
	free        []uint32
	alive       int

	behaviors map[Role]RoleBehavior
	rng       *rand.Rand
	rate      util.Rate
	snapshot  []vec.Vec3Float
	logger    *logging.Logger

	stats Stats
}

// NewManager создаёт менеджер с поведениями по умолчанию.
// rate переводит интервалы стрельбы и пересчёта пути в тики.
func NewManager(rng *rand.Rand, rate util.Rate) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Manager{
		behaviors: DefaultBehaviors(),
		rng:       rng,
		rate:      rate,
		logger:    logging.GetAILogger(),
	}
}

// RegisterBehavior регистрирует поведение для роли
func (m *Manager) RegisterBehavior(role Role, behavior RoleBehavior) {
	m.behaviors[role] = behavior
}

// Spawn создаёт врага в позиции pos
func (m *Manager) Spawn(pos vec.Vec3Float, stats SpawnStats) Handle {
	var slot uint32
	if n := len(m.free); n > 0 {
		slot = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		slot = uint32(len(m.enemies))
		m.enemies = append(m.enemies, Enemy{})
		m.generations = append(m.generations, 1)
	}

	h := newHandle(slot, m.generations[slot])
	m.enemies[slot] = Enemy{
		Handle:          h,
		Role:            stats.Role,
		Position:        pos,
		Health:          stats.Health,
		MaxHealth:       stats.Health,
		Speed:           stats.Speed,
		FireInterval:    stats.FireInterval,
		ProjectileSpeed: stats.ProjectileSpeed,
		LastPosition:    pos,
		AnimPhase:       m.rng.Float64() * math.Pi * 2,
		alive:           true,
	}
	m.alive++
	m.stats.Spawned++
	m.logger.Debug("👾 Враг %d (%s) появился в (%.1f, %.1f, %.1f)", slot, stats.Role, pos.X, pos.Y, pos.Z)
	return h
}

// Get возвращает живого врага по хендлу
func (m *Manager) Get(h Handle) (*Enemy, bool) {
	slot := h.Slot()
	if h == NilHandle || int(slot) >= len(m.enemies) {
		return nil, false
	}
	e := &m.enemies[slot]
	if !e.alive || m.generations[slot] != h.Generation() {
		return nil, false
	}
	return e, true
}

// Despawn удаляет врага; устаревший хендл игнорируется
func (m *Manager) Despawn(h Handle) bool {
	e, ok := m.Get(h)
	if !ok {
		return false
	}
	slot := h.Slot()
	e.alive = false
	e.Path = nil
	m.generations[slot]++
	if m.generations[slot] == 0 {
		m.generations[slot] = 1
	}
	m.free = append(m.free, slot)
	m.alive--
	return true
}

// Clear удаляет всех врагов (сброс игры)
func (m *Manager) Clear() {
	for i := range m.enemies {
		if m.enemies[i].alive {
			m.Despawn(m.enemies[i].Handle)
		}
	}
}

// Count возвращает число живых врагов
func (m *Manager) Count() int {
	return m.alive
}

// ForEach обходит живых врагов в порядке слотов
func (m *Manager) ForEach(fn func(e *Enemy) bool) {
	for i := range m.enemies {
		if !m.enemies[i].alive {
			continue
		}
		if !fn(&m.enemies[i]) {
			return
		}
	}
}

// HitParts собирает попадаемые части всех живых врагов
func (m *Manager) HitParts(dst []HitPart) []HitPart {
	for i := range m.enemies {
		if m.enemies[i].alive {
			dst = m.enemies[i].HitParts(dst)
		}
	}
	return dst
}

// ApplyHit наносит урон. Попадание в голову убивает всегда: урон равен текущему здоровью.
func (m *Manager) ApplyHit(h Handle, damage float64, headshot bool) (HitOutcome, bool) {
	e, ok := m.Get(h)
	if !ok {
		return HitOutcome{}, false
	}
	if headshot {
		damage = e.Health
	}
	e.Health -= damage
	e.hitFlash.Start(HitFlashTime, m.rate)

	out := HitOutcome{
		Handle:   h,
		Role:     e.Role,
		Damage:   damage,
		Headshot: headshot,
		Position: e.Position,
	}
	if e.Health <= 0 {
		e.Health = 0
		out.Killed = true
		m.stats.Killed++
		m.Despawn(h)
	}
	return out, true
}

// GetStats возвращает снимок счётчиков
func (m *Manager) GetStats() Stats {
	s := m.stats
	s.Alive = m.alive
	return s
}

// Update продвигает ИИ всех врагов на тик.
// Разделение читает позиции из снимка на начало тика.
func (m *Manager) Update(env Environment, dt float64) TickOutput {
	var out TickOutput
	if m.alive == 0 || dt <= 0 {
		return out
	}
	player := env.PlayerPosition()

	m.snapshot = m.snapshot[:0]
	for i := range m.enemies {
		m.snapshot = append(m.snapshot, m.enemies[i].Position)
	}

	for i := range m.enemies {
		e := &m.enemies[i]
		if !e.alive {
			continue
		}
		m.updateEnemy(i, e, env, player, dt, &out)
	}

	m.stats.Shots += uint64(len(out.Shots))
	m.stats.Replans += uint64(out.Replans)
	return out
}

func (m *Manager) updateEnemy(slot int, e *Enemy, env Environment, player vec.Vec3Float, dt float64, out *TickOutput) {
	e.AnimPhase += dt * 3
	e.hitFlash.Tick()
	e.cooldown.Tick()
	e.replan.Tick()

	toPlayer := player.Sub(e.Position)
	distance := toPlayer.Length()
	if flat := toPlayer.FlatXZ(); !flat.IsZero() {
		e.Yaw = math.Atan2(flat.X, flat.Z)
	}

	behavior, ok := m.behaviors[e.Role]
	if !ok {
		return
	}
	torso := player.Add(vec.V3(0, TorsoOffset, 0))
	intent := behavior.Decide(e, distance, func() bool {
		return env.LineOfSight(e.EyePosition(), torso)
	})

	if intent.MeleeDPS > 0 {
		out.MeleeDamage += intent.MeleeDPS * dt
	}
	if intent.Fire {
		dir := torso.Sub(e.Position).Normalized()
		out.Shots = append(out.Shots, ShotRequest{
			Owner:     e.Handle,
			Origin:    e.Position.Add(dir.Mul(1.5)),
			Direction: dir,
			Speed:     e.ProjectileSpeed,
		})
		e.cooldown.Start(e.FireInterval, m.rate)
	}

	var move vec.Vec3Float
	if intent.Move {
		if intent.Retreat {
			move = e.Position.Sub(player).FlatXZ().Normalized()
		} else {
			move = m.steerAlongPath(e, env, behavior, player, out)
		}
	}
	move = move.Add(m.separation(slot))

	e.Moving = !move.IsZero()
	if !e.Moving {
		return
	}
	e.Position = e.Position.Add(move.Normalized().Mul(e.Speed * dt))
	res := physics.ResolveGroundBox(e.Box(), env.Obstacles)
	e.Position = e.Position.Add(res.Offset)
}
