package game

import (
	"github.com/Nootest/3DShooting/internal/vec"
)

// EventType определяет тип игрового события
type EventType uint8

const (
	EventTypeDamage          EventType = iota // Урон игроку или врагу
	EventTypeEnemyDefeated                    // Враг убит
	EventTypeWaveStarted                      // Началась волна
	EventTypeWaveCompleted                    // Волна зачищена
	EventTypeHealthPickedUp                   // Подобрана аптечка
	EventTypeProjectileFired                  // Выстрел
	EventTypeWeaponUnlocked                   // Открыто оружие
	EventTypeShieldBroken                     // Щит пробит
	EventTypeShieldRecharged                  // Щит восстановлен
	EventTypeScoreChanged                     // Изменился счёт
	EventTypeGameOver                         // Игрок погиб
	EventTypeVictory                          // Пройдены все волны
)

var eventTypeNames = [...]string{
	EventTypeDamage:          "damage",
	EventTypeEnemyDefeated:   "enemy_defeated",
	EventTypeWaveStarted:     "wave_started",
	EventTypeWaveCompleted:   "wave_completed",
	EventTypeHealthPickedUp:  "health_picked_up",
	EventTypeProjectileFired: "projectile_fired",
	EventTypeWeaponUnlocked:  "weapon_unlocked",
	EventTypeShieldBroken:    "shield_broken",
	EventTypeShieldRecharged: "shield_recharged",
	EventTypeScoreChanged:    "score_changed",
	EventTypeGameOver:        "game_over",
	EventTypeVictory:         "victory",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Event - интерфейс всех игровых событий
type Event interface {
	GetType() EventType
}

// EventSink принимает события симуляции. Вызывается из потока тика и не должен блокировать.
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc позволяет использовать функцию как EventSink
type SinkFunc func(ev Event)

// Emit вызывает функцию
func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink рассылает событие нескольким приёмникам по порядку
type MultiSink []EventSink

// Emit рассылает событие
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// Target - кто получил урон
type Target uint8

const (
	TargetPlayer Target = iota
	TargetEnemy
)

func (t Target) String() string {
	if t == TargetEnemy {
		return "enemy"
	}
	return "player"
}

// DamageEvent - урон игроку или врагу
type DamageEvent struct {
	Target     Target        `msgpack:"target" json:"target"`
	EnemySlot  uint32        `msgpack:"enemy_slot,omitempty" json:"enemy_slot,omitempty"`
	Amount     float64       `msgpack:"amount" json:"amount"`
	Absorbed   float64       `msgpack:"absorbed,omitempty" json:"absorbed,omitempty"` // Поглощено щитом
	IsHeadshot bool          `msgpack:"headshot" json:"headshot"`
	Melee      bool          `msgpack:"melee,omitempty" json:"melee,omitempty"`
	Position   vec.Vec3Float `msgpack:"position" json:"position"`
}

// GetType возвращает тип события
func (e DamageEvent) GetType() EventType { return EventTypeDamage }

// EnemyDefeatedEvent - враг убит
type EnemyDefeatedEvent struct {
	EnemySlot  uint32        `msgpack:"enemy_slot" json:"enemy_slot"`
	Role       string        `msgpack:"role" json:"role"`
	IsHeadshot bool          `msgpack:"headshot" json:"headshot"`
	Position   vec.Vec3Float `msgpack:"position" json:"position"`
	Points     int           `msgpack:"points" json:"points"`
	Remaining  int           `msgpack:"remaining" json:"remaining"`
}

// GetType возвращает тип события
func (e EnemyDefeatedEvent) GetType() EventType { return EventTypeEnemyDefeated }

// WaveStartedEvent - началась волна
type WaveStartedEvent struct {
	Wave       int `msgpack:"wave" json:"wave"`
	TotalWaves int `msgpack:"total_waves" json:"total_waves"`
	Enemies    int `msgpack:"enemies" json:"enemies"`
	Melee      int `msgpack:"melee" json:"melee"`
}

// GetType возвращает тип события
func (e WaveStartedEvent) GetType() EventType { return EventTypeWaveStarted }

// WaveCompletedEvent - волна зачищена
type WaveCompletedEvent struct {
	Wave   int `msgpack:"wave" json:"wave"`
	Points int `msgpack:"points" json:"points"`
}

// GetType возвращает тип события
func (e WaveCompletedEvent) GetType() EventType { return EventTypeWaveCompleted }

// HealthPickedUpEvent - подобрана аптечка
type HealthPickedUpEvent struct {
	Healed   float64       `msgpack:"healed" json:"healed"`
	Health   float64       `msgpack:"health" json:"health"`
	Position vec.Vec3Float `msgpack:"position" json:"position"`
	Points   int           `msgpack:"points" json:"points"`
}

// GetType возвращает тип события
func (e HealthPickedUpEvent) GetType() EventType { return EventTypeHealthPickedUp }

// ProjectileFiredEvent - выстрел игрока или врага
type ProjectileFiredEvent struct {
	Owner       string        `msgpack:"owner" json:"owner"`
	Weapon      string        `msgpack:"weapon,omitempty" json:"weapon,omitempty"`
	Projectiles int           `msgpack:"projectiles" json:"projectiles"`
	Origin      vec.Vec3Float `msgpack:"origin" json:"origin"`
	Direction   vec.Vec3Float `msgpack:"direction" json:"direction"`
}

// GetType возвращает тип события
func (e ProjectileFiredEvent) GetType() EventType { return EventTypeProjectileFired }

// WeaponUnlockedEvent - открыто новое оружие
type WeaponUnlockedEvent struct {
	Weapon string `msgpack:"weapon" json:"weapon"`
	Wave   int    `msgpack:"wave" json:"wave"`
}

// GetType возвращает тип события
func (e WeaponUnlockedEvent) GetType() EventType { return EventTypeWeaponUnlocked }

// ShieldEvent - щит пробит или восстановлен
type ShieldEvent struct {
	Broken bool    `msgpack:"broken" json:"broken"`
	Charge float64 `msgpack:"charge" json:"charge"`
}

// GetType возвращает тип события
func (e ShieldEvent) GetType() EventType {
	if e.Broken {
		return EventTypeShieldBroken
	}
	return EventTypeShieldRecharged
}

// ScoreChangedEvent - начислены очки
type ScoreChangedEvent struct {
	Reason       string `msgpack:"reason" json:"reason"`
	Points       int    `msgpack:"points" json:"points"`
	ComboBonus   int    `msgpack:"combo_bonus" json:"combo_bonus"`
	Combo        int    `msgpack:"combo" json:"combo"`
	Score        int    `msgpack:"score" json:"score"`
	NewHighScore bool   `msgpack:"new_high_score" json:"new_high_score"`
}

// GetType возвращает тип события
func (e ScoreChangedEvent) GetType() EventType { return EventTypeScoreChanged }

// GameOverEvent - игрок погиб
type GameOverEvent struct {
	Wave  int `msgpack:"wave" json:"wave"`
	Score int `msgpack:"score" json:"score"`
	Kills int `msgpack:"kills" json:"kills"`
}

// GetType возвращает тип события
func (e GameOverEvent) GetType() EventType { return EventTypeGameOver }

// VictoryEvent - все волны пройдены
type VictoryEvent struct {
	Score int `msgpack:"score" json:"score"`
	Kills int `msgpack:"kills" json:"kills"`
}

// GetType возвращает тип события
func (e VictoryEvent) GetType() EventType { return EventTypeVictory }
