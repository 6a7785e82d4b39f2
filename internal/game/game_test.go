package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

const dt = 1.0 / 60.0

// recorder запоминает все события
type recorder struct {
	events []Event
}

func (r *recorder) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(t EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.GetType() == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t EventType) Event {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].GetType() == t {
			return r.events[i]
		}
	}
	return nil
}

// testConfig - пустой мир и безвредные враги, чтобы тесты не зависели от случайных попаданий
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.World.StructureCount = 0
	cfg.Combat.EnemyDamage = 0
	return cfg
}

func newTestContext(t *testing.T) (*Context, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(testConfig(), rec), rec
}

func TestContext_TickRate(t *testing.T) {
	cfg := testConfig()
	cfg.TickRate = 30
	c := New(cfg, nil)
	assert.Equal(t, util.Rate(30), c.player.Config().TickRate, "частота дошла до игрока")

	ticks := 0
	for c.Wave() == 0 && ticks < 1000 {
		c.Tick(entity.Input{}, 1.0/30)
		ticks++
	}
	assert.Equal(t, 90, ticks, "пауза 3 с перед волной при 30 Гц - 90 тиков")
}

// waitForWave крутит тики до начала следующей волны
func waitForWave(t *testing.T, c *Context) {
	t.Helper()
	want := c.Wave() + 1
	for i := 0; i < int(c.cfg.TickRate.Ticks(c.cfg.Waves.WaveDelay))+1; i++ {
		c.Tick(entity.Input{}, dt)
		if c.Wave() == want {
			return
		}
	}
	t.Fatalf("волна %d так и не началась", want)
}

func killAll(c *Context) {
	var handles []enemy.Handle
	c.Enemies().ForEach(func(e *enemy.Enemy) bool {
		handles = append(handles, e.Handle)
		return true
	})
	for _, h := range handles {
		c.Enemies().ApplyHit(h, 0, true)
	}
}

func TestWaveConfig(t *testing.T) {
	wc := DefaultWaveConfig()

	t.Run("число врагов", func(t *testing.T) {
		assert.Equal(t, 10, wc.EnemyCount(1))
		assert.Equal(t, 16, wc.EnemyCount(3))
		assert.Equal(t, 22, wc.EnemyCount(5))
		assert.Equal(t, 0, wc.EnemyCount(0))
	})

	t.Run("масштабирование первой и последней волны", func(t *testing.T) {
		first := wc.SpawnStats(1, enemy.RoleRanged)
		assert.InDelta(t, 3.0, first.Health, 1e-9)
		assert.InDelta(t, 1.5, first.Speed, 1e-9)
		assert.InDelta(t, 25.0, first.ProjectileSpeed, 1e-9)
		assert.Equal(t, 2000*time.Millisecond, first.FireInterval)

		last := wc.SpawnStats(5, enemy.RoleRanged)
		assert.InDelta(t, 7.0, last.Health, 1e-9)
		assert.InDelta(t, 4.0, last.Speed, 1e-9)
		assert.InDelta(t, 75.0, last.ProjectileSpeed, 1e-9)
		assert.Equal(t, 500*time.Millisecond, last.FireInterval)
	})

	t.Run("ближний бой быстрее и не стреляет", func(t *testing.T) {
		melee := wc.SpawnStats(1, enemy.RoleMelee)
		assert.InDelta(t, 2.25, melee.Speed, 1e-9)
		assert.Zero(t, melee.ProjectileSpeed)
		assert.Zero(t, melee.FireInterval)
	})

	t.Run("доля ближнего боя", func(t *testing.T) {
		cases := map[int]int{1: 5, 2: 6, 3: 10, 4: 6, 5: 11}
		for wave, want := range cases {
			count := wc.EnemyCount(wave)
			melee := 0
			for i := 0; i < count; i++ {
				if wc.RoleFor(wave, i, count) == enemy.RoleMelee {
					melee++
				}
			}
			assert.Equal(t, want, melee, "волна %d", wave)
		}
	})

	t.Run("одна волна - сразу максимум", func(t *testing.T) {
		single := wc
		single.TotalWaves = 1
		assert.Equal(t, 1.0, single.Progress(1))
	})
}

func TestScore(t *testing.T) {
	t.Run("серия убийств", func(t *testing.T) {
		s := NewScore(DefaultScoreConfig(), 0)
		assert.Equal(t, 100, s.EnemyKilled(false).Total)
		assert.Equal(t, 200, s.EnemyKilled(false).Total, "серия 2: бонус floor(100*0.5*2)")
		a := s.EnemyKilled(true)
		assert.Equal(t, 150, a.Points)
		assert.Equal(t, 225, a.ComboBonus)
		assert.Equal(t, 675, s.Points())
		assert.Equal(t, 3, s.Combo())
	})

	t.Run("серия сгорает через 3 секунды", func(t *testing.T) {
		s := NewScore(DefaultScoreConfig(), 0)
		s.EnemyKilled(false)
		for i := 0; i < 179; i++ {
			s.Tick()
		}
		assert.Equal(t, 1, s.Combo())
		s.Tick()
		assert.Equal(t, 0, s.Combo())
		assert.Equal(t, 100, s.EnemyKilled(false).Total)
	})

	t.Run("рекорд", func(t *testing.T) {
		s := NewScore(DefaultScoreConfig(), 510)
		assert.False(t, s.WaveCompleted().NewHighScore)
		a := s.HealthPickedUp()
		assert.True(t, a.NewHighScore)
		assert.Equal(t, 525, s.HighScore())

		s.Reset()
		assert.Equal(t, 0, s.Points())
		assert.Equal(t, 525, s.HighScore(), "сброс партии не трогает рекорд")
	})
}

func TestWaveFlow(t *testing.T) {
	t.Run("первая волна после задержки", func(t *testing.T) {
		c, rec := newTestContext(t)
		assert.Equal(t, 0, c.Wave())
		assert.Equal(t, WavePhaseIdle, c.Phase())

		for i := 0; i < 179; i++ {
			c.Tick(entity.Input{}, dt)
		}
		assert.Equal(t, 0, c.Wave())
		c.Tick(entity.Input{}, dt)
		assert.Equal(t, 1, c.Wave())
		assert.Equal(t, WavePhaseActive, c.Phase())
		assert.Equal(t, 10, c.Enemies().Count())

		started, ok := rec.last(EventTypeWaveStarted).(WaveStartedEvent)
		require.True(t, ok)
		assert.Equal(t, 10, started.Enemies)
		assert.Equal(t, 5, started.Melee)
		assert.Empty(t, c.Pickups(), "на первой волне аптечки нет")
	})

	t.Run("враги появляются далеко от игрока", func(t *testing.T) {
		c, _ := newTestContext(t)
		waitForWave(t, c)
		player := c.Player().Position
		c.Enemies().ForEach(func(e *enemy.Enemy) bool {
			assert.GreaterOrEqual(t, e.Position.DistanceXZ(player), 20.0)
			assert.InDelta(t, 2.5, e.Position.Y, 1e-9)
			return true
		})
	})

	t.Run("пять волн и победа", func(t *testing.T) {
		c, rec := newTestContext(t)
		for wave := 1; wave <= 5; wave++ {
			waitForWave(t, c)
			assert.Equal(t, DefaultWaveConfig().EnemyCount(wave), c.Enemies().Count(), "волна %d", wave)
			killAll(c)
			c.Tick(entity.Input{}, dt)
		}
		assert.Equal(t, WavePhaseVictory, c.Phase())
		assert.Equal(t, 5, rec.count(EventTypeWaveCompleted))
		assert.Equal(t, 1, rec.count(EventTypeVictory))
		assert.Equal(t, 5*500, c.Score().Points())
		assert.Equal(t, 2, rec.count(EventTypeWeaponUnlocked))

		ticks := c.GetStats().Ticks
		c.Tick(entity.Input{}, dt)
		assert.Equal(t, ticks, c.GetStats().Ticks, "после победы симуляция стоит")
	})

	t.Run("аптечка со второй волны", func(t *testing.T) {
		c, rec := newTestContext(t)
		waitForWave(t, c)
		killAll(c)
		c.Tick(entity.Input{}, dt)
		waitForWave(t, c)

		pickups := c.Pickups()
		require.Len(t, pickups, 1)
		assert.InDelta(t, 0.75, pickups[0].Position.Y, 1e-9)
		assert.GreaterOrEqual(t, pickups[0].Position.DistanceXZ(c.Player().Position), 10.0)

		c.Player().TakeDamage(100)
		c.pickups.items[0].Position = c.Player().Position
		score := c.Score().Points()
		c.Tick(entity.Input{}, dt)

		ev, ok := rec.last(EventTypeHealthPickedUp).(HealthPickedUpEvent)
		require.True(t, ok)
		assert.InDelta(t, 50.0, ev.Healed, 1e-9)
		assert.InDelta(t, 150.0, c.Player().Health, 1e-9)
		assert.Equal(t, score+25, c.Score().Points())
		assert.Empty(t, c.Pickups())
	})

	t.Run("смерть игрока завершает партию", func(t *testing.T) {
		c, rec := newTestContext(t)
		waitForWave(t, c)
		c.Player().TakeDamage(1000)
		c.Tick(entity.Input{}, dt)

		assert.Equal(t, WavePhaseGameOver, c.Phase())
		assert.Equal(t, 1, rec.count(EventTypeGameOver))
		c.Tick(entity.Input{}, dt)
		assert.Equal(t, 1, rec.count(EventTypeGameOver), "конец партии терминален")
	})

	t.Run("сброс начинает заново", func(t *testing.T) {
		c, _ := newTestContext(t)
		waitForWave(t, c)
		c.Player().TakeDamage(30)
		c.Reset()

		assert.Equal(t, 0, c.Wave())
		assert.Equal(t, 0, c.Enemies().Count())
		assert.InDelta(t, 200.0, c.Player().Health, 1e-9)
		assert.InDelta(t, 50.0, c.Player().Shield.Charge, 1e-9)
		assert.Equal(t, 30, c.Player().Arsenal.Ammo())
		assert.Equal(t, WavePhaseIdle, c.Phase())
	})
}

func TestTick(t *testing.T) {
	t.Run("dt прижимается к 0.05", func(t *testing.T) {
		c, _ := newTestContext(t)
		start := c.Player().Position
		c.Tick(entity.Input{Forward: true}, 1.0)
		assert.InDelta(t, start.Z-0.15, c.Player().Position.Z, 1e-9)
		assert.InDelta(t, start.X, c.Player().Position.X, 1e-9)
	})

	t.Run("пауза останавливает всё, кроме щита", func(t *testing.T) {
		c, rec := newTestContext(t)
		p := c.Player()
		p.Shield.Raised = true
		res := p.TakeDamage(60)
		require.True(t, res.ShieldBroken)

		c.SetPaused(true)
		start := p.Position
		for i := 0; i < 900; i++ {
			c.Tick(entity.Input{Forward: true}, dt)
		}
		assert.Equal(t, 0, c.Wave(), "на паузе волны не идут")
		assert.Equal(t, start, p.Position)
		assert.InDelta(t, 50.0, p.Shield.Charge, 1e-9, "перезарядка щита идёт и на паузе")
		assert.Equal(t, 1, rec.count(EventTypeShieldRecharged))
		assert.Equal(t, uint64(900), c.GetStats().PausedTicks)
	})

	t.Run("выстрел игрока убивает врага", func(t *testing.T) {
		c, rec := newTestContext(t)
		waitForWave(t, c)
		c.Enemies().Clear()

		target := c.Player().Position.Add(vec.V3(0, 0, -8))
		c.Enemies().Spawn(target, enemy.SpawnStats{Role: enemy.RoleRanged, Health: 1, FireInterval: time.Second, ProjectileSpeed: 10})

		c.Tick(entity.Input{Fire: true}, dt)
		assert.Equal(t, 1, countShots(rec, "player"))
		for i := 0; i < 30 && c.Enemies().Count() > 0; i++ {
			c.Tick(entity.Input{}, dt)
		}

		assert.Equal(t, 0, c.Enemies().Count())
		defeated, ok := rec.last(EventTypeEnemyDefeated).(EnemyDefeatedEvent)
		require.True(t, ok)
		assert.False(t, defeated.IsHeadshot)
		assert.Equal(t, 100, defeated.Points)
		assert.Equal(t, 29, c.Player().Arsenal.Ammo())
		assert.Equal(t, 1, rec.count(EventTypeWaveCompleted))
		assert.Equal(t, 600, c.Score().Points())
	})
}

func countShots(rec *recorder, owner string) int {
	n := 0
	for _, ev := range rec.events {
		if fired, ok := ev.(ProjectileFiredEvent); ok && fired.Owner == owner {
			n++
		}
	}
	return n
}

func TestEnvironment(t *testing.T) {
	c, _ := newTestContext(t)
	env := c.env

	t.Run("путь в открытом мире сглаживается до двух точек", func(t *testing.T) {
		path := env.FindPath(vec.V3(0, 2.5, 0), vec.V3(10, 1.8, 0))
		require.Len(t, path, 2)
		goal, ok := c.Navigation().WorldToCell(vec.V3(10, 1.8, 0))
		require.True(t, ok)
		assert.Equal(t, c.Navigation().CellToWorld(goal), path[1])
	})

	t.Run("пустой мир ничего не загораживает", func(t *testing.T) {
		assert.True(t, env.LineOfSight(vec.V3(-10, 2, 0), vec.V3(10, 2, 0)))
		assert.Empty(t, env.Obstacles(c.Player().Box(0)))
	})
}

func TestSnapshot(t *testing.T) {
	c, _ := newTestContext(t)
	waitForWave(t, c)

	s := c.Snapshot()
	assert.Equal(t, 1, s.Wave)
	assert.Equal(t, 5, s.TotalWaves)
	assert.Equal(t, "active", s.Phase)
	assert.Len(t, s.Enemies, 10)
	assert.Equal(t, "standing", s.Player.Stance)
	assert.Equal(t, "Carbine", s.Player.Weapon)

	s.Enemies[0].Health = -1
	c.Enemies().ForEach(func(e *enemy.Enemy) bool {
		assert.Greater(t, e.Health, 0.0, "снимок не меняет состояние")
		return true
	})
}
