package game

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nootest/3DShooting/internal/combat"
	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/navigation"
	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/pool"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

// Config - все стартовые константы партии
type Config struct {
	Seed         int64
	World        world.Config
	Player       entity.PlayerConfig
	Combat       combat.Config
	Waves        WaveConfig
	Score        ScoreConfig
	Pickup       PickupConfig
	NavCellSize  float64
	NavClearance float64
	MaxDelta     float64   // Верхний предел dt одного тика, секунды
	Knockback    float64   // Толчок игрока от вражеского снаряда
	TickRate     util.Rate // Частота тика; New раздаёт её игроку, ИИ, снарядам и счёту
}

// DefaultConfig возвращает стандартные параметры игры
func DefaultConfig() Config {
	wc := world.DefaultConfig()
	pc := entity.DefaultPlayerConfig()
	pc.Boundary = wc.MapSize/2 - wc.VoxelSize
	return Config{
		Seed:         time.Now().UnixNano(),
		World:        wc,
		Player:       pc,
		Combat:       combat.DefaultConfig(),
		Waves:        DefaultWaveConfig(),
		Score:        DefaultScoreConfig(),
		Pickup:       DefaultPickupConfig(),
		NavCellSize:  navigation.DefaultCellSize,
		NavClearance: navigation.DefaultClearance,
		MaxDelta:     0.05,
		Knockback:    2,
		TickRate:     util.DefaultRate,
	}
}

// Stats - сводные счётчики партии
type Stats struct {
	Ticks        uint64
	PausedTicks  uint64
	LastTickTime time.Duration
	Wave         int
	Phase        WavePhase
	Score        int
	HighScore    int
	Voxels       int
	Enemies      enemy.Stats
	Navigation   navigation.Stats
	Combat       combat.Stats
	World        world.GridStats
}

// Context - явный контекст симуляции: владеет миром, навигацией, игроком,
// врагами, пулами, волнами, счётом и ГСЧ. Не потокобезопасен: тик - единственный писатель.
type Context struct {
	cfg     Config
	rng     *rand.Rand
	world   *world.WorldManager
	nav     *navigation.Grid
	player  *entity.Player
	enemies *enemy.Manager
	combat  *combat.Manager
	score   *Score
	pickups pickups
	sink    EventSink
	env     aiEnvironment

	wave      int
	phase     WavePhase
	waveDelay util.Countdown
	paused    bool

	tracer   trace.Tracer
	waveSpan trace.Span
	logger   *logging.Logger

	stats Stats
}

// New создаёт контекст, генерирует мир и ставит игрока. Первая волна стартует после задержки.
// sink может быть nil.
func New(cfg Config, sink EventSink) *Context {
	cfg.Player.TickRate = cfg.TickRate
	cfg.Combat.TickRate = cfg.TickRate
	cfg.Score.TickRate = cfg.TickRate
	rng := rand.New(rand.NewSource(cfg.Seed))
	c := &Context{
		cfg:     cfg,
		rng:     rng,
		world:   world.NewWorldManager(cfg.World),
		enemies: enemy.NewManager(rng, cfg.TickRate),
		combat:  combat.NewManager(cfg.Combat, rng),
		score:   NewScore(cfg.Score, 0),
		pickups: pickups{cfg: cfg.Pickup},
		sink:    sink,
		tracer:  otel.Tracer("github.com/Nootest/3DShooting/internal/game"),
		logger:  logging.GetGameLogger(),
	}
	c.env = aiEnvironment{c: c}
	c.player = entity.NewPlayer(cfg.Player, vec.Vec3Float{})
	c.setup(cfg.Seed)
	return c
}

// setup строит мир и навигацию и возвращает партию в начальное состояние
func (c *Context) setup(seed int64) {
	c.world.Generate(seed)
	grid := c.world.Grid()
	c.nav = navigation.BuildGrid(grid, c.cfg.World.MapSize, c.cfg.NavCellSize, c.cfg.NavClearance)

	spawn, ok := grid.FindSafeSpawn(c.rng, world.PlayerSpawnConstraints(c.cfg.World.VoxelSize))
	if !ok {
		c.logger.Warn("⚠️ Свободная точка для игрока не найдена, используется запасная (%.0f, %.0f)", spawn.X, spawn.Z)
	}
	spawn.Y = c.cfg.Player.Height
	c.player.Reset(spawn)

	c.enemies.Clear()
	c.combat.Clear()
	c.pickups.clear()
	c.score.Reset()
	c.endWaveSpan()

	c.wave = 0
	c.phase = WavePhaseIdle
	c.paused = false
	c.waveDelay.Start(c.cfg.Waves.WaveDelay, c.cfg.TickRate)

	c.logger.Info("🎮 Партия готова: сид=%d, вокселей=%d, заблокировано клеток=%d, игрок в (%.1f, %.1f)",
		seed, grid.Len(), c.nav.BlockedCount(), spawn.X, spawn.Z)
}

// Reset начинает новую партию на новом мире. Рекорд сохраняется.
func (c *Context) Reset() {
	c.setup(c.rng.Int63())
}

// ResetWithSeed начинает новую партию на мире с заданным сидом
func (c *Context) ResetWithSeed(seed int64) {
	c.setup(seed)
}

// SetPaused ставит или снимает паузу
func (c *Context) SetPaused(paused bool) {
	if c.paused != paused {
		c.logger.Info("⏸️ Пауза: %v", paused)
	}
	c.paused = paused
}

// Paused - симуляция на паузе
func (c *Context) Paused() bool { return c.paused }

// SetSink заменяет приёмник событий
func (c *Context) SetSink(sink EventSink) { c.sink = sink }

// SetHighScore задаёт рекорд, загруженный из хранилища
func (c *Context) SetHighScore(v int) { c.score.SetHighScore(v) }

// Player возвращает игрока
func (c *Context) Player() *entity.Player { return c.player }

// Enemies возвращает менеджер врагов
func (c *Context) Enemies() *enemy.Manager { return c.enemies }

// Combat возвращает пулы снарядов и частиц
func (c *Context) Combat() *combat.Manager { return c.combat }

// World возвращает менеджер мира
func (c *Context) World() *world.WorldManager { return c.world }

// Navigation возвращает сетку проходимости
func (c *Context) Navigation() *navigation.Grid { return c.nav }

// Score возвращает счёт
func (c *Context) Score() *Score { return c.score }

// Wave возвращает номер текущей волны (0 - ещё не началась)
func (c *Context) Wave() int { return c.wave }

// Ticks возвращает число тиков симуляции без учёта пауз
func (c *Context) Ticks() uint64 { return c.stats.Ticks }

// Phase возвращает состояние партии
func (c *Context) Phase() WavePhase { return c.phase }

// Pickups возвращает аптечки на карте
func (c *Context) Pickups() []HealthPickup {
	out := make([]HealthPickup, len(c.pickups.items))
	copy(out, c.pickups.items)
	return out
}

// Tick продвигает симуляцию на dt секунд (dt прижимается к MaxDelta).
// Порядок фаз: мир и волны, ИИ, игрок, снаряды и частицы.
// На паузе и после конца партии идёт только перезарядка щита.
func (c *Context) Tick(in entity.Input, dt float64) {
	if dt <= 0 {
		return
	}
	if dt > c.cfg.MaxDelta {
		dt = c.cfg.MaxDelta
	}
	start := time.Now()
	defer func() { c.stats.LastTickTime = time.Since(start) }()

	if c.player.Tick() {
		c.emit(ShieldEvent{Broken: false, Charge: c.player.Shield.Charge})
	}
	if c.paused || c.phase.Terminal() {
		c.stats.PausedTicks++
		return
	}
	c.stats.Ticks++

	c.updateWaves()
	c.updateAI(dt)
	c.updatePlayer(in, dt)
	c.updateCombat(dt)

	c.score.Tick()
	c.collectPickups()
	c.checkOutcome()
}

// updateWaves отсчитывает паузу между волнами и запускает следующую
func (c *Context) updateWaves() {
	if c.phase != WavePhaseIdle {
		return
	}
	if c.waveDelay.Tick() {
		c.startWave()
	}
}

// startWave спавнит всех врагов следующей волны и при необходимости аптечку
func (c *Context) startWave() {
	c.wave++
	wc := c.cfg.Waves
	count := wc.EnemyCount(c.wave)
	grid := c.world.Grid()

	_, c.waveSpan = c.tracer.Start(context.Background(), "game.wave",
		trace.WithAttributes(attribute.Int("wave", c.wave), attribute.Int("enemies", count)))

	melee := 0
	for i := 0; i < count; i++ {
		role := wc.RoleFor(c.wave, i, count)
		if role == enemy.RoleMelee {
			melee++
		}
		pos, _ := grid.FindSafeSpawn(c.rng, world.EnemySpawnConstraints(c.cfg.World.MapSize, c.player.Position, wc.SpawnMinDistance))
		pos.Y += c.cfg.World.VoxelSize
		c.enemies.Spawn(pos, wc.SpawnStats(c.wave, role))
	}
	c.phase = WavePhaseActive

	c.logger.Info("🌊 Волна %d/%d: врагов %d (ближний бой %d)", c.wave, wc.TotalWaves, count, melee)
	c.emit(WaveStartedEvent{Wave: c.wave, TotalWaves: wc.TotalWaves, Enemies: count, Melee: melee})

	for _, spec := range c.player.Arsenal.UnlockForWave(c.wave) {
		c.emit(WeaponUnlockedEvent{Weapon: spec.Name, Wave: c.wave})
	}

	if c.wave >= c.cfg.Pickup.FromWave {
		if item, ok := c.pickups.spawn(grid, c.rng, c.cfg.World.MapSize, c.player.Position); ok {
			c.logger.Debug("➕ Аптечка #%d в (%.1f, %.1f)", item.ID, item.Position.X, item.Position.Z)
		}
	}
}

// updateAI продвигает врагов и применяет их атаки
func (c *Context) updateAI(dt float64) {
	out := c.enemies.Update(c.env, dt)
	if out.MeleeDamage > 0 {
		res := c.player.TakeDamage(out.MeleeDamage)
		c.reportPlayerDamage(res, c.player.Position, true)
	}
	for _, shot := range out.Shots {
		if c.combat.FireEnemy(shot) == pool.NilHandle {
			continue
		}
		c.emit(ProjectileFiredEvent{
			Owner:       combat.OwnerEnemy.String(),
			Projectiles: 1,
			Origin:      shot.Origin,
			Direction:   shot.Direction,
		})
	}
}

// updatePlayer применяет ввод: оружие, физику и стрельбу
func (c *Context) updatePlayer(in entity.Input, dt float64) {
	arsenal := c.player.Arsenal
	if in.Weapon > 0 {
		arsenal.Switch(in.Weapon - 1)
	}
	if in.Reload {
		arsenal.StartReload()
	}

	c.player.Step(in, dt, c.obstacles)
	arsenal.Tick()

	if c.player.IsDead() {
		return
	}
	eye := c.player.Position
	if shot, ok := arsenal.TryFire(in.Fire, c.player.LookDirection(), c.rng); ok {
		handles := c.combat.FirePlayer(shot, eye)
		if len(handles) > 0 {
			c.emit(ProjectileFiredEvent{
				Owner:       combat.OwnerPlayer.String(),
				Weapon:      shot.Weapon.Name,
				Projectiles: len(handles),
				Origin:      eye,
				Direction:   shot.Directions[0],
			})
		}
		if arsenal.Ammo() == 0 {
			arsenal.StartReload()
		}
	}
}

// updateCombat продвигает снаряды и разбирает попадания
func (c *Context) updateCombat(dt float64) {
	report := c.combat.Update(dt, c.world.Grid(), c.player, c.enemies)

	for _, hit := range report.PlayerHits {
		c.reportPlayerDamage(hit.Result, hit.Position, false)
		if c.cfg.Knockback > 0 {
			c.player.ApplyImpulse(hit.Direction.FlatXZ().Normalized().Mul(c.cfg.Knockback))
		}
	}

	for _, hit := range report.EnemyHits {
		c.emit(DamageEvent{
			Target:     TargetEnemy,
			EnemySlot:  hit.Handle.Slot(),
			Amount:     hit.Damage,
			IsHeadshot: hit.Headshot,
			Position:   hit.Position,
		})
		if !hit.Killed {
			continue
		}
		award := c.score.EnemyKilled(hit.Headshot)
		c.emit(EnemyDefeatedEvent{
			EnemySlot:  hit.Handle.Slot(),
			Role:       hit.Role.String(),
			IsHeadshot: hit.Headshot,
			Position:   hit.Position,
			Points:     award.Total,
			Remaining:  c.enemies.Count(),
		})
		c.emitScore("enemy_kill", award)
	}
}

func (c *Context) reportPlayerDamage(res entity.DamageResult, pos vec.Vec3Float, melee bool) {
	if res.Absorbed <= 0 && res.Taken <= 0 {
		return
	}
	c.emit(DamageEvent{
		Target:   TargetPlayer,
		Amount:   res.Taken,
		Absorbed: res.Absorbed,
		Melee:    melee,
		Position: pos,
	})
	if res.ShieldBroken {
		c.logger.Debug("🛡️ Щит пробит")
		c.emit(ShieldEvent{Broken: true})
	}
}

// collectPickups лечит игрока аптечками в радиусе подбора
func (c *Context) collectPickups() {
	if c.player.IsDead() {
		return
	}
	c.pickups.collect(c.player.Position, func(item HealthPickup) {
		healed := c.player.Heal(c.cfg.Pickup.Heal)
		award := c.score.HealthPickedUp()
		c.emit(HealthPickedUpEvent{
			Healed:   healed,
			Health:   c.player.Health,
			Position: item.Position,
			Points:   award.Total,
		})
		c.emitScore("health_pickup", award)
	})
}

// checkOutcome завершает волну, партию победой или поражением
func (c *Context) checkOutcome() {
	if c.player.IsDead() {
		c.phase = WavePhaseGameOver
		c.endWaveSpan()
		c.logger.Info("💀 Игра окончена: волна %d, счёт %d", c.wave, c.score.Points())
		c.emit(GameOverEvent{Wave: c.wave, Score: c.score.Points(), Kills: c.score.Kills()})
		return
	}
	if c.phase != WavePhaseActive || c.enemies.Count() > 0 {
		return
	}

	award := c.score.WaveCompleted()
	c.endWaveSpan()
	c.logger.Info("✅ Волна %d зачищена, +%d очков", c.wave, award.Total)
	c.emit(WaveCompletedEvent{Wave: c.wave, Points: award.Total})
	c.emitScore("wave_complete", award)

	if c.wave >= c.cfg.Waves.TotalWaves {
		c.phase = WavePhaseVictory
		c.logger.Info("🏆 Победа! Счёт %d", c.score.Points())
		c.emit(VictoryEvent{Score: c.score.Points(), Kills: c.score.Kills()})
		return
	}
	c.phase = WavePhaseIdle
	c.waveDelay.Start(c.cfg.Waves.WaveDelay, c.cfg.TickRate)
}

func (c *Context) endWaveSpan() {
	if c.waveSpan != nil {
		c.waveSpan.End()
		c.waveSpan = nil
	}
}

func (c *Context) emitScore(reason string, a Award) {
	c.emit(ScoreChangedEvent{
		Reason:       reason,
		Points:       a.Points,
		ComboBonus:   a.ComboBonus,
		Combo:        c.score.Combo(),
		Score:        c.score.Points(),
		NewHighScore: a.NewHighScore,
	})
}

func (c *Context) emit(ev Event) {
	if c.sink != nil {
		c.sink.Emit(ev)
	}
}

func (c *Context) obstacles(area physics.AABB) []physics.AABB {
	return c.world.Grid().Obstacles(area)
}

// GetStats возвращает сводку по всем подсистемам
func (c *Context) GetStats() Stats {
	s := c.stats
	s.Wave = c.wave
	s.Phase = c.phase
	s.Score = c.score.Points()
	s.HighScore = c.score.HighScore()
	s.Voxels = c.world.Grid().Len()
	s.Enemies = c.enemies.GetStats()
	s.Navigation = c.nav.GetStats()
	s.Combat = c.combat.GetStats()
	s.World = c.world.Grid().GetStats()
	return s
}

// aiEnvironment - то, что ИИ врагов видит из контекста
type aiEnvironment struct {
	c *Context
}

func (e aiEnvironment) PlayerPosition() vec.Vec3Float {
	return e.c.player.Position
}

func (e aiEnvironment) LineOfSight(from, to vec.Vec3Float) bool {
	return e.c.world.Grid().LineOfSight(from, to)
}

// FindPath ищет путь по сетке проходимости и сглаживает его по прямой видимости
func (e aiEnvironment) FindPath(from, to vec.Vec3Float) []vec.Vec3Float {
	start, ok := e.c.nav.WorldToCell(from)
	if !ok {
		return nil
	}
	goal, ok := e.c.nav.WorldToCell(to)
	if !ok {
		return nil
	}
	path := e.c.nav.FindPath(start, goal)
	if path == nil {
		return nil
	}
	return navigation.Smooth(path, e.c.world.Grid().LineOfSight)
}

func (e aiEnvironment) Obstacles(area physics.AABB) []physics.AABB {
	return e.c.obstacles(area)
}
