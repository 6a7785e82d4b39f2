package entity

import (
	"time"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// Role - закрытый набор боевых ролей врага; задаётся при появлении и не меняется
type Role uint8

const (
	RoleMelee Role = iota
	RoleRanged
)

func (r Role) String() string {
	switch r {
	case RoleMelee:
		return "melee"
	case RoleRanged:
		return "ranged"
	default:
		return "unknown"
	}
}

// Размеры коробки коллизии врага
const (
	EnemyWidth  = 1.2
	EnemyHeight = 1.2
)

// Handle адресует врага: младшие 32 бита - слот, старшие - поколение
type Handle uint64

// NilHandle никогда не выдаётся менеджером
const NilHandle Handle = 0

func newHandle(slot, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(slot))
}

// Slot возвращает индекс слота
func (h Handle) Slot() uint32 { return uint32(h) }

// Generation возвращает поколение слота
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// SpawnStats - параметры врага, вычисленные волной в момент появления
type SpawnStats struct {
	Role            Role
	Health          float64
	Speed           float64
	FireInterval    time.Duration
	ProjectileSpeed float64
}

// Enemy - запись врага в непрерывном хранилище менеджера
type Enemy struct {
	Handle          Handle
	Role            Role
	Position        vec.Vec3Float
	Yaw             float64
	Health          float64
	MaxHealth       float64
	Speed           float64
	FireInterval    time.Duration
	ProjectileSpeed float64

	// Путь принадлежит врагу и заменяется целиком
	Path       []vec.Vec3Float
	PathCursor int

	StuckTicks   int
	LastPosition vec.Vec3Float
	AnimPhase    float64
	Moving       bool

	replan   util.Countdown
	cooldown util.Countdown
	hitFlash util.Countdown
	alive    bool
}

// Alive - слот занят живым врагом
func (e *Enemy) Alive() bool {
	return e.alive
}

// Box возвращает коробку коллизии врага
func (e *Enemy) Box() physics.AABB {
	return physics.NewAABB(e.Position, vec.V3(EnemyWidth, EnemyHeight, EnemyWidth))
}

// EyePosition - точка, из которой враг смотрит и стреляет
func (e *Enemy) EyePosition() vec.Vec3Float {
	return e.Position.Add(vec.V3(0, 0.5, 0))
}

// Flashing - враг подсвечен после попадания
func (e *Enemy) Flashing() bool {
	return e.hitFlash.Active()
}

// CanFire - перезарядка выстрела истекла
func (e *Enemy) CanFire() bool {
	return !e.cooldown.Active()
}

// PathExhausted - путь был, но курсор ушёл за конец
func (e *Enemy) PathExhausted() bool {
	return len(e.Path) > 0 && e.PathCursor >= len(e.Path)
}
