package entity

import "time"

// Дистанции и силы ИИ
const (
	MeleeRange       = 2.5 // Дистанция ближнего удара
	MeleeDPS         = 8.0 // Урон в секунду, пока враг в радиусе удара
	TooCloseRange    = 15.0
	OptimalRangeMax  = 30.0
	ShootRange       = 40.0
	ArrivalRadius    = 0.5 // Радиус достижения точки пути (по XZ)
	SeparationRadius = 3.0
	SeparationForce  = 1.5
	StuckThreshold   = 0.05 // Смещение, ниже которого тик считается «застрявшим»
	StuckTicks       = 20
	StuckEscapeForce = 1.5
	StuckPushForce   = 2.0
	StuckPushRadius  = 3.0
	EyeOffset        = 0.5  // Глаза выше центра врага
	TorsoOffset      = -0.5 // Торс игрока ниже точки глаз
	HitFlashTime     = 150 * time.Millisecond
)

// Intent - решение роли на текущий тик
type Intent struct {
	Move     bool    // Следовать пути / отступать
	Retreat  bool    // Двигаться прямо от игрока
	Fire     bool    // Выстрелить в этот тик
	MeleeDPS float64 // Урон в секунду по игроку
}

// RoleBehavior определяет поведение роли.
// Таблица поведений индексируется ролью; строковых сравнений в горячем цикле нет.
type RoleBehavior interface {
	// Decide выбирает действие по дистанции до игрока; sight вызывается лениво
	Decide(e *Enemy, distance float64, sight func() bool) Intent

	// PathWeight - вес направления на точку пути
	PathWeight() float64

	// ReplanInterval - как часто пересчитывать путь
	ReplanInterval() time.Duration

	// DirectFallback - вес прямого движения к игроку без пути (0 - нет)
	DirectFallback() float64
}

// MeleeBehavior - всегда сближается; в радиусе удара стоит и наносит урон каждый тик
type MeleeBehavior struct{}

func (MeleeBehavior) Decide(e *Enemy, distance float64, sight func() bool) Intent {
	if distance <= MeleeRange {
		return Intent{MeleeDPS: MeleeDPS}
	}
	return Intent{Move: true}
}

func (MeleeBehavior) PathWeight() float64           { return 1.2 }
func (MeleeBehavior) ReplanInterval() time.Duration { return 500 * time.Millisecond }
func (MeleeBehavior) DirectFallback() float64       { return 1.5 }

// RangedBehavior - держит дистанцию: слишком близко - отступает и стреляет,
// в оптимальной полосе стоит и стреляет при видимости, дальше - сближается
type RangedBehavior struct{}

func (RangedBehavior) Decide(e *Enemy, distance float64, sight func() bool) Intent {
	switch {
	case distance < TooCloseRange:
		return Intent{Move: true, Retreat: true, Fire: e.CanFire() && sight()}
	case distance <= OptimalRangeMax:
		if sight() {
			return Intent{Fire: e.CanFire() && distance <= ShootRange}
		}
		return Intent{Move: true}
	default:
		return Intent{Move: true}
	}
}

func (RangedBehavior) PathWeight() float64           { return 1.0 }
func (RangedBehavior) ReplanInterval() time.Duration { return 2000 * time.Millisecond }
func (RangedBehavior) DirectFallback() float64       { return 0 }

// DefaultBehaviors возвращает таблицу поведений по ролям
func DefaultBehaviors() map[Role]RoleBehavior {
	return map[Role]RoleBehavior{
		RoleMelee:  MeleeBehavior{},
		RoleRanged: RangedBehavior{},
	}
}
