package entity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
)

const dt = 1.0 / 60.0

func newTestPlayer(pos vec.Vec3Float) *Player {
	return NewPlayer(DefaultPlayerConfig(), pos)
}

func emptyObstacles() physics.ObstacleFunc {
	return world.NewVoxelGrid(1).Obstacles
}

func TestPlayer_FloorAndJump(t *testing.T) {
	p := newTestPlayer(vec.V3(0, 3, 0))
	obstacles := emptyObstacles()

	for i := 0; i < 60; i++ {
		p.Step(Input{}, dt, obstacles)
	}
	assert.Equal(t, 1.8, p.Position.Y, "игрок стоит на полу на высоте роста")
	assert.Equal(t, 0.0, p.Velocity.Y)
	assert.True(t, p.CanJump)

	p.Step(Input{Jump: true}, dt, obstacles)
	assert.Greater(t, p.Position.Y, 1.8, "прыжок отрывает от пола")
	assert.False(t, p.CanJump, "в воздухе прыгать нельзя")
}

func TestPlayer_MovementIsCameraRelative(t *testing.T) {
	obstacles := emptyObstacles()

	p := newTestPlayer(vec.V3(0, 1.8, 0))
	p.Step(Input{Forward: true}, dt, obstacles)
	assert.InDelta(t, -3*dt, p.Position.Z, 1e-9, "вперёд при yaw=0 - это -Z")
	assert.InDelta(t, 0, p.Position.X, 1e-9)

	p = newTestPlayer(vec.V3(0, 1.8, 0))
	p.Step(Input{Forward: true, Yaw: math.Pi / 2}, dt, obstacles)
	assert.InDelta(t, -3*dt, p.Position.X, 1e-9, "поворот на 90° уводит вперёд по -X")

	p = newTestPlayer(vec.V3(0, 1.8, 0))
	p.Step(Input{Right: true, Sprint: true}, dt, obstacles)
	assert.InDelta(t, 6*dt, p.Position.X, 1e-9, "спринт удваивает скорость")
}

func TestPlayer_SlidesAlongWall(t *testing.T) {
	voxels := world.NewVoxelGrid(1)
	for z := -5; z <= 5; z++ {
		for y := 0; y < 4; y++ {
			voxels.Insert(vec.V3(2, float64(y)+0.5, float64(z)), world.MaterialStone)
		}
	}

	p := newTestPlayer(vec.V3(0, 1.8, 0))
	in := Input{Forward: true, Right: true}
	for i := 0; i < 60; i++ {
		p.Step(in, dt, voxels.Obstacles)
	}

	assert.LessOrEqual(t, p.Position.X, 1.1, "стена не пускает дальше")
	assert.Greater(t, p.Position.X, 1.0, "игрок дошёл до стены")
	assert.Less(t, p.Position.Z, -2.0, "движение вдоль стены продолжается")
	assert.False(t, physics.CollidesAt(p.Box(p.Config().ResolveBuffer), voxels.Obstacles), "игрок не застрял в стене")
}

func TestPlayer_SlideStance(t *testing.T) {
	obstacles := emptyObstacles()
	p := newTestPlayer(vec.V3(0, 1.8, 0))
	p.Step(Input{}, dt, obstacles)
	require.True(t, p.CanJump)

	p.Step(Input{Slide: true}, dt, obstacles)
	assert.Equal(t, StanceStanding, p.Stance(), "подкат без движения не начинается")
	p.Step(Input{}, dt, obstacles)

	z := p.Position.Z
	p.Step(Input{Forward: true, Slide: true}, dt, obstacles)
	require.Equal(t, StanceSliding, p.Stance())
	assert.Equal(t, 0.9, p.CurrentHeight())
	assert.False(t, p.CanJump)
	assert.InDelta(t, z-15*dt, p.Position.Z, 1e-9, "подкат идёт на скорости 15")

	// Направление зафиксировано: поворот камеры и отпущенные клавиши не влияют
	x := p.Position.X
	p.Step(Input{Yaw: math.Pi / 2}, dt, obstacles)
	assert.InDelta(t, x, p.Position.X, 1e-9)
	assert.Equal(t, StanceSliding, p.Stance())

	for i := 0; i < 30; i++ {
		p.Step(Input{}, dt, obstacles)
	}
	assert.Equal(t, StanceStanding, p.Stance(), "подкат завершается по таймеру")
	assert.Equal(t, 1.8, p.Position.Y)
}

func TestPlayer_PressEdges(t *testing.T) {
	t.Run("удержанный подкат срабатывает один раз", func(t *testing.T) {
		obstacles := emptyObstacles()
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Step(Input{}, dt, obstacles)

		held := Input{Forward: true, Slide: true}
		slides := 0
		prev := p.Stance()
		for i := 0; i < 180; i++ {
			p.Step(held, dt, obstacles)
			if p.Stance() == StanceSliding && prev != StanceSliding {
				slides++
			}
			prev = p.Stance()
		}
		assert.Equal(t, 1, slides, "новый подкат только после отпускания")
		assert.Equal(t, StanceStanding, p.Stance())

		p.Step(Input{Forward: true}, dt, obstacles)
		p.Step(held, dt, obstacles)
		assert.Equal(t, StanceSliding, p.Stance(), "повторное нажатие снова даёт подкат")
	})

	t.Run("удержанный прыжок не повторяется при приземлении", func(t *testing.T) {
		obstacles := emptyObstacles()
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Step(Input{}, dt, obstacles)
		require.True(t, p.CanJump)

		jumps := 0
		for i := 0; i < 180; i++ {
			wasGrounded := p.CanJump
			p.Step(Input{Jump: true}, dt, obstacles)
			if wasGrounded && p.Velocity.Y > 0 {
				jumps++
			}
		}
		assert.Equal(t, 1, jumps)
		assert.True(t, p.CanJump, "игрок приземлился и стоит")
	})

	t.Run("Reset забывает удержание", func(t *testing.T) {
		obstacles := emptyObstacles()
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Step(Input{Jump: true, Slide: true}, dt, obstacles)
		require.True(t, p.jumpHeld)

		p.Reset(vec.V3(0, 1.8, 0))
		assert.False(t, p.jumpHeld)
		assert.False(t, p.slideHeld)
	})
}

func TestPlayer_TickRate(t *testing.T) {
	const dt30 = 1.0 / 30
	cfg := DefaultPlayerConfig()
	cfg.TickRate = 30
	obstacles := emptyObstacles()

	t.Run("подкат длится 400 мс", func(t *testing.T) {
		p := NewPlayer(cfg, vec.V3(0, 1.8, 0))
		p.Step(Input{}, dt30, obstacles)
		p.Step(Input{Forward: true, Slide: true}, dt30, obstacles)
		require.Equal(t, StanceSliding, p.Stance())

		ticks := 0
		for p.Stance() == StanceSliding && ticks < 100 {
			p.Step(Input{}, dt30, obstacles)
			ticks++
		}
		assert.Equal(t, 12, ticks, "400 мс при 30 Гц - 12 тиков до выхода из подката")
	})

	t.Run("перезарядка щита 15 с", func(t *testing.T) {
		p := NewPlayer(cfg, vec.V3(0, 1.8, 0))
		p.Shield.Raised = true
		p.Shield.Charge = 1
		p.TakeDamage(1)
		assert.Equal(t, 15*time.Second, p.Shield.CooldownRemaining())

		for i := 0; i < 449; i++ {
			require.False(t, p.Tick())
		}
		assert.True(t, p.Tick(), "450 тиков при 30 Гц")
	})
}

func TestPlayer_ForcedCrouch(t *testing.T) {
	voxels := world.NewVoxelGrid(1)
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			voxels.Insert(vec.V3(float64(x), 2.5, float64(z)), world.MaterialStone)
		}
	}

	p := newTestPlayer(vec.V3(0, 0.9, 0))
	p.Step(Input{}, dt, voxels.Obstacles)
	require.Equal(t, StanceCrouched, p.Stance(), "низкий потолок заставляет присесть")
	assert.Equal(t, 0.9, p.Position.Y)
	assert.False(t, p.CanJump, "из приседа прыгать нельзя")

	p.Step(Input{Right: true}, dt, voxels.Obstacles)
	assert.InDelta(t, 1.5*dt, p.Position.X, 1e-9, "в приседе скорость вдвое ниже")

	p.Position.X = 10
	p.Step(Input{}, dt, voxels.Obstacles)
	assert.Equal(t, StanceStanding, p.Stance(), "вне потолка игрок встаёт")
	assert.Equal(t, 1.8, p.Position.Y)
	assert.True(t, p.CanJump)
}

func TestPlayer_Boundary(t *testing.T) {
	p := newTestPlayer(vec.V3(48.99, 1.8, 0))
	for i := 0; i < 10; i++ {
		p.Step(Input{Right: true}, dt, emptyObstacles())
	}
	assert.Equal(t, 49.0, p.Position.X, "игрок не выходит за границу карты")
}

func TestPlayer_Shield(t *testing.T) {
	t.Run("щит поглощает урон целиком", func(t *testing.T) {
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Shield.Raised = true

		res := p.TakeDamage(10)
		assert.Equal(t, 40.0, p.Shield.Charge)
		assert.Equal(t, 200.0, p.Health, "здоровье не меняется")
		assert.Equal(t, 10.0, res.Absorbed)
		assert.False(t, res.ShieldBroken)
	})

	t.Run("пробитие щита", func(t *testing.T) {
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Shield.Raised = true
		p.Shield.Charge = 5

		res := p.TakeDamage(10)
		assert.Equal(t, 0.0, p.Shield.Charge)
		assert.True(t, p.Shield.OnCooldown(), "перезарядка щита началась")
		assert.True(t, res.ShieldBroken)
		assert.Equal(t, 195.0, p.Health, "остаток урона уходит в здоровье")

		p.TakeDamage(10)
		assert.Equal(t, 185.0, p.Health, "на перезарядке щит не работает")
	})

	t.Run("перезарядка в тиках", func(t *testing.T) {
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.Shield.Raised = true
		p.Shield.Charge = 1
		p.TakeDamage(1)
		require.True(t, p.Shield.OnCooldown())

		for i := 0; i < 899; i++ {
			require.False(t, p.Tick())
		}
		assert.True(t, p.Tick(), "через 15 секунд щит восстановлен")
		assert.Equal(t, 50.0, p.Shield.Charge)
		assert.False(t, p.Shield.OnCooldown())
	})

	t.Run("опущенный щит не поглощает", func(t *testing.T) {
		p := newTestPlayer(vec.V3(0, 1.8, 0))
		p.TakeDamage(10)
		assert.Equal(t, 50.0, p.Shield.Charge)
		assert.Equal(t, 190.0, p.Health)
	})
}

func TestPlayer_DeathIsTerminal(t *testing.T) {
	p := newTestPlayer(vec.V3(0, 1.8, 0))

	res := p.TakeDamage(500)
	assert.True(t, res.Killed)
	assert.Equal(t, 0.0, p.Health, "здоровье не уходит ниже нуля")
	assert.True(t, p.IsDead())

	assert.Equal(t, DamageResult{}, p.TakeDamage(10), "мёртвый игрок урон не получает")
	assert.Equal(t, 0.0, p.Heal(50))

	pos := p.Position
	p.Step(Input{Forward: true}, dt, emptyObstacles())
	assert.Equal(t, pos, p.Position, "мёртвый игрок не двигается")

	p.Reset(vec.V3(1, 1.8, 1))
	assert.False(t, p.IsDead())
	assert.Equal(t, 200.0, p.Health)
}

func TestPlayer_Heal(t *testing.T) {
	p := newTestPlayer(vec.V3(0, 1.8, 0))
	p.TakeDamage(30)
	assert.Equal(t, 30.0, p.Heal(50), "лечение не выше максимума")
	assert.Equal(t, 200.0, p.Health)
}
