package entity

import (
	"math"
	"time"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// PlayerConfig - физические константы игрока
type PlayerConfig struct {
	Height           float64
	SlideHeight      float64
	Width            float64
	MoveSpeed        float64
	SprintMultiplier float64
	CrouchMultiplier float64
	SlideSpeed       float64
	SlideDuration    time.Duration
	JumpForce        float64
	Gravity          float64
	Friction         float64
	CollisionBuffer  float64 // Запас при проверке позиции до перемещения
	ResolveBuffer    float64 // Запас при выталкивании из стен
	Epsilon          float64
	MaxHealth        float64
	MaxShield        float64
	ShieldCooldown   time.Duration
	Boundary         float64   // Предел |X| и |Z|
	TickRate         util.Rate // Частота тика для таймеров подката, щита и оружия
}

// DefaultPlayerConfig возвращает стандартные константы игрока
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Height:           1.8,
		SlideHeight:      0.9,
		Width:            0.5,
		MoveSpeed:        3,
		SprintMultiplier: 2,
		CrouchMultiplier: 0.5,
		SlideSpeed:       15,
		SlideDuration:    400 * time.Millisecond,
		JumpForce:        10,
		Gravity:          -35,
		Friction:         10,
		CollisionBuffer:  0.15,
		ResolveBuffer:    0.1,
		Epsilon:          0.01,
		MaxHealth:        200,
		MaxShield:        50,
		ShieldCooldown:   15 * time.Second,
		Boundary:         49,
		TickRate:         util.DefaultRate,
	}
}

// DamageResult описывает применённый к игроку урон
type DamageResult struct {
	Absorbed     float64 // Поглощено щитом
	Taken        float64 // Снято со здоровья
	ShieldBroken bool
	Killed       bool
}

// Player - единственный игрок. Не удаляется: при нулевом здоровье становится мёртвым.
// Позиция - точка глаз; коробка коллизии центрирована на ней.
type Player struct {
	Position  vec.Vec3Float
	Velocity  vec.Vec3Float
	Yaw       float64
	Pitch     float64
	Health    float64
	CanJump   bool
	Sprinting bool
	Shield    Shield
	Arsenal   *Arsenal

	cfg    PlayerConfig
	stance StanceState
	dead   bool

	// Кнопки, удержанные в прошлом тике: прыжок и подкат срабатывают по фронту
	jumpHeld  bool
	slideHeld bool
}

// NewPlayer создаёт игрока в точке spawn
func NewPlayer(cfg PlayerConfig, spawn vec.Vec3Float) *Player {
	p := &Player{
		cfg:     cfg,
		Shield:  NewShield(cfg.MaxShield, cfg.ShieldCooldown, cfg.TickRate),
		Arsenal: NewArsenal(cfg.TickRate),
	}
	p.Reset(spawn)
	return p
}

// Reset возвращает игрока в начальное состояние
func (p *Player) Reset(spawn vec.Vec3Float) {
	p.Position = spawn
	p.Velocity = vec.Vec3Float{}
	p.Yaw, p.Pitch = 0, 0
	p.Health = p.cfg.MaxHealth
	p.CanJump = false
	p.Sprinting = false
	p.dead = false
	p.jumpHeld, p.slideHeld = false, false
	p.Shield.Reset()
	p.Arsenal.Reset()
	p.stance = nil
	p.setStance(&standingState{})
}

// Config возвращает константы игрока
func (p *Player) Config() PlayerConfig {
	return p.cfg
}

// Stance возвращает текущую стойку
func (p *Player) Stance() Stance {
	return p.stance.Stance()
}

// IsDead - здоровье упало до нуля
func (p *Player) IsDead() bool {
	return p.dead
}

// CurrentHeight - высота коллизии для текущей стойки
func (p *Player) CurrentHeight() float64 {
	if p.stance != nil && p.stance.Stance() != StanceStanding {
		return p.cfg.SlideHeight
	}
	return p.cfg.Height
}

// Box возвращает коробку игрока с запасом по XZ
func (p *Player) Box(buffer float64) physics.AABB {
	return p.boxAt(p.Position, p.CurrentHeight(), buffer)
}

func (p *Player) boxAt(pos vec.Vec3Float, height, buffer float64) physics.AABB {
	half := p.cfg.Width/2 + buffer
	return physics.AABB{
		Min: vec.V3(pos.X-half, pos.Y-height/2, pos.Z-half),
		Max: vec.V3(pos.X+half, pos.Y+height/2, pos.Z+half),
	}
}

// LookDirection - направление взгляда
func (p *Player) LookDirection() vec.Vec3Float {
	return LookVector(p.Yaw, p.Pitch)
}

// CanStandUp проверяет, помещается ли над игроком стоячая коробка
func (p *Player) CanStandUp(obstacles physics.ObstacleFunc) bool {
	center := p.Position
	center.Y += (p.cfg.Height - p.cfg.SlideHeight) / 2
	box := physics.NewAABB(center, vec.V3(p.cfg.Width, p.cfg.Height, p.cfg.Width))
	return !physics.CollidesAt(box, obstacles)
}

// pressed оставляет в Jump и Slide только нажатия, которых не было в прошлом тике
func (p *Player) pressed(in Input) Input {
	jump, slide := in.Jump, in.Slide
	in.Jump = jump && !p.jumpHeld
	in.Slide = slide && !p.slideHeld
	p.jumpHeld, p.slideHeld = jump, slide
	return in
}

// Step продвигает физику игрока на dt секунд.
// Порядок: трение, стойка, желаемое движение, гравитация, вертикаль с полом,
// затем X (проверка до перемещения и MTV) и Z отдельно, граница карты.
func (p *Player) Step(in Input, dt float64, obstacles physics.ObstacleFunc) {
	if p.dead || dt <= 0 {
		return
	}
	in = p.pressed(in)
	p.Yaw, p.Pitch = in.Yaw, in.Pitch
	p.Sprinting = in.Sprint
	p.Shield.Raised = in.Shield

	if in.Jump && p.CanJump {
		p.Velocity.Y += p.cfg.JumpForce
		p.CanJump = false
	}

	p.Velocity.X -= p.Velocity.X * p.cfg.Friction * dt
	p.Velocity.Z -= p.Velocity.Z * p.cfg.Friction * dt

	p.updateStance(in, obstacles)
	height := p.CurrentHeight()

	var dir vec.Vec3Float
	var speed float64
	if slide, ok := p.stance.(*slidingState); ok {
		dir = slide.direction
		speed = p.cfg.SlideSpeed
	} else {
		dir = in.WorldDirection()
		speed = p.cfg.MoveSpeed
		if in.Sprint {
			speed *= p.cfg.SprintMultiplier
		}
		if height == p.cfg.SlideHeight {
			speed *= p.cfg.CrouchMultiplier
		}
	}
	move := dir.Mul(speed * dt).Add(p.Velocity.FlatXZ().Mul(dt))

	// Вертикаль: гравитация и пол
	p.Velocity.Y += p.cfg.Gravity * dt
	p.Position.Y += p.Velocity.Y * dt
	if p.Position.Y < height {
		p.Position.Y = height
		p.Velocity.Y = 0
		p.CanJump = height == p.cfg.Height
	}

	// X: проверяем до перемещения, затем выталкиваем
	test := p.Position
	test.X += move.X
	if !physics.CollidesAt(p.boxAt(test, height, p.cfg.CollisionBuffer), obstacles) {
		p.Position.X = test.X
	}
	p.resolveCollisions(height, obstacles)

	// Z: то же отдельно
	test = p.Position
	test.Z += move.Z
	if !physics.CollidesAt(p.boxAt(test, height, p.cfg.CollisionBuffer), obstacles) {
		p.Position.Z = test.Z
	}
	p.resolveCollisions(height, obstacles)

	b := p.cfg.Boundary
	p.Position.X = math.Max(-b, math.Min(b, p.Position.X))
	p.Position.Z = math.Max(-b, math.Min(b, p.Position.Z))
}

// resolveCollisions выталкивает игрока из вокселей по оси наименьшего проникновения
func (p *Player) resolveCollisions(height float64, obstacles physics.ObstacleFunc) {
	res := physics.ResolveBox(p.boxAt(p.Position, height, p.cfg.ResolveBuffer), obstacles, p.cfg.Epsilon)
	if res.Pushes == 0 {
		return
	}
	p.Position = p.Position.Add(res.Offset)
	if res.Ceiling && p.Velocity.Y > 0 {
		p.Velocity.Y = 0
	}
	if res.Landed {
		if p.Velocity.Y < 0 {
			p.Velocity.Y = 0
		}
		p.CanJump = height == p.cfg.Height
	}
}

// ApplyImpulse добавляет горизонтальный толчок, гасимый трением
func (p *Player) ApplyImpulse(impulse vec.Vec3Float) {
	p.Velocity.X += impulse.X
	p.Velocity.Z += impulse.Z
}

// TakeDamage применяет урон: сначала щит, остаток - здоровью.
// Мёртвый игрок урон не получает.
func (p *Player) TakeDamage(raw float64) DamageResult {
	var res DamageResult
	if p.dead || raw <= 0 {
		return res
	}
	res.Absorbed, res.ShieldBroken = p.Shield.Absorb(raw)
	remainder := raw - res.Absorbed
	if remainder > 0 {
		res.Taken = math.Min(remainder, p.Health)
		p.Health -= remainder
		if p.Health <= 0 {
			p.Health = 0
			p.dead = true
			res.Killed = true
		}
	}
	return res
}

// Heal восстанавливает здоровье, не превышая максимум; возвращает прибавку
func (p *Player) Heal(amount float64) float64 {
	if p.dead || amount <= 0 {
		return 0
	}
	before := p.Health
	p.Health = math.Min(p.cfg.MaxHealth, p.Health+amount)
	return p.Health - before
}

// Tick отсчитывает таймеры игрока; выполняется и на паузе
func (p *Player) Tick() (shieldRecharged bool) {
	return p.Shield.Tick()
}
