package game

import (
	"github.com/Nootest/3DShooting/internal/combat"
	"github.com/Nootest/3DShooting/internal/vec"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

// PlayerView - состояние игрока для внешнего рендера
type PlayerView struct {
	Position       vec.Vec3Float `msgpack:"position" json:"position"`
	Velocity       vec.Vec3Float `msgpack:"velocity" json:"velocity"`
	Yaw            float64       `msgpack:"yaw" json:"yaw"`
	Pitch          float64       `msgpack:"pitch" json:"pitch"`
	Stance         string        `msgpack:"stance" json:"stance"`
	Health         float64       `msgpack:"health" json:"health"`
	Shield         float64       `msgpack:"shield" json:"shield"`
	ShieldRaised   bool          `msgpack:"shield_raised" json:"shield_raised"`
	ShieldCooldown bool          `msgpack:"shield_cooldown" json:"shield_cooldown"`
	Weapon         string        `msgpack:"weapon" json:"weapon"`
	Ammo           int           `msgpack:"ammo" json:"ammo"`
	Reloading      bool          `msgpack:"reloading" json:"reloading"`
	Dead           bool          `msgpack:"dead" json:"dead"`
}

// EnemyView - состояние врага для рендера
type EnemyView struct {
	Slot      uint32        `msgpack:"slot" json:"slot"`
	Role      string        `msgpack:"role" json:"role"`
	Position  vec.Vec3Float `msgpack:"position" json:"position"`
	Yaw       float64       `msgpack:"yaw" json:"yaw"`
	Health    float64       `msgpack:"health" json:"health"`
	MaxHealth float64       `msgpack:"max_health" json:"max_health"`
	AnimPhase float64       `msgpack:"anim_phase" json:"anim_phase"`
	Moving    bool          `msgpack:"moving" json:"moving"`
	Flashing  bool          `msgpack:"flashing" json:"flashing"`
}

// ProjectileView - снаряд для рендера
type ProjectileView struct {
	Owner    string        `msgpack:"owner" json:"owner"`
	Position vec.Vec3Float `msgpack:"position" json:"position"`
	Velocity vec.Vec3Float `msgpack:"velocity" json:"velocity"`
}

// EffectView - частица для рендера
type EffectView struct {
	Kind     string        `msgpack:"kind" json:"kind"`
	Position vec.Vec3Float `msgpack:"position" json:"position"`
	Scale    float64       `msgpack:"scale" json:"scale"`
}

// Snapshot - копия состояния партии только для чтения
type Snapshot struct {
	Tick        uint64           `msgpack:"tick" json:"tick"`
	Wave        int              `msgpack:"wave" json:"wave"`
	TotalWaves  int              `msgpack:"total_waves" json:"total_waves"`
	Phase       string           `msgpack:"phase" json:"phase"`
	Paused      bool             `msgpack:"paused" json:"paused"`
	Score       int              `msgpack:"score" json:"score"`
	HighScore   int              `msgpack:"high_score" json:"high_score"`
	Combo       int              `msgpack:"combo" json:"combo"`
	WorldSeed   int64            `msgpack:"world_seed" json:"world_seed"`
	Voxels      int              `msgpack:"voxels" json:"voxels"`
	Player      PlayerView       `msgpack:"player" json:"player"`
	Enemies     []EnemyView      `msgpack:"enemies" json:"enemies"`
	Projectiles []ProjectileView `msgpack:"projectiles" json:"projectiles"`
	Effects     []EffectView     `msgpack:"effects" json:"effects"`
	Pickups     []HealthPickup   `msgpack:"pickups" json:"pickups"`
}

// Snapshot собирает копию состояния; изменять контекст через неё нельзя
func (c *Context) Snapshot() Snapshot {
	p := c.player
	s := Snapshot{
		Tick:       c.stats.Ticks,
		Wave:       c.wave,
		TotalWaves: c.cfg.Waves.TotalWaves,
		Phase:      c.phase.String(),
		Paused:     c.paused,
		Score:      c.score.Points(),
		HighScore:  c.score.HighScore(),
		Combo:      c.score.Combo(),
		WorldSeed:  c.world.Seed(),
		Voxels:     c.world.Grid().Len(),
		Player: PlayerView{
			Position:       p.Position,
			Velocity:       p.Velocity,
			Yaw:            p.Yaw,
			Pitch:          p.Pitch,
			Stance:         p.Stance().String(),
			Health:         p.Health,
			Shield:         p.Shield.Charge,
			ShieldRaised:   p.Shield.Raised,
			ShieldCooldown: p.Shield.OnCooldown(),
			Weapon:         p.Arsenal.Current().Name,
			Ammo:           p.Arsenal.Ammo(),
			Reloading:      p.Arsenal.Reloading(),
			Dead:           p.IsDead(),
		},
		Enemies:     make([]EnemyView, 0, c.enemies.Count()),
		Projectiles: make([]ProjectileView, 0, c.combat.ProjectileCount(combat.OwnerPlayer)+c.combat.ProjectileCount(combat.OwnerEnemy)),
		Effects:     make([]EffectView, 0, c.combat.EffectCount()),
		Pickups:     c.Pickups(),
	}

	c.enemies.ForEach(func(e *enemy.Enemy) bool {
		s.Enemies = append(s.Enemies, EnemyView{
			Slot:      e.Handle.Slot(),
			Role:      e.Role.String(),
			Position:  e.Position,
			Yaw:       e.Yaw,
			Health:    e.Health,
			MaxHealth: e.MaxHealth,
			AnimPhase: e.AnimPhase,
			Moving:    e.Moving,
			Flashing:  e.Flashing(),
		})
		return true
	})
	c.combat.ForEachProjectile(func(pr *combat.Projectile) {
		s.Projectiles = append(s.Projectiles, ProjectileView{
			Owner:    pr.Owner.String(),
			Position: pr.Position,
			Velocity: pr.Velocity,
		})
	})
	c.combat.ForEachEffect(func(e *combat.Effect) {
		s.Effects = append(s.Effects, EffectView{
			Kind:     e.Kind.String(),
			Position: e.Position,
			Scale:    e.Scale,
		})
	})
	return s
}
