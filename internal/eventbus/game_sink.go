package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/logging"
)

// PayloadVersion - версия схемы msgpack-полезной нагрузки игровых событий
const PayloadVersion = 1

// eventPriority - приоритет для back-pressure по типу события
var eventPriority = map[game.EventType]int{
	game.EventTypeGameOver:        9,
	game.EventTypeVictory:         9,
	game.EventTypeWaveStarted:     7,
	game.EventTypeWaveCompleted:   7,
	game.EventTypeEnemyDefeated:   6,
	game.EventTypeWeaponUnlocked:  5,
	game.EventTypeShieldBroken:    5,
	game.EventTypeShieldRecharged: 5,
	game.EventTypeHealthPickedUp:  5,
	game.EventTypeScoreChanged:    3,
	game.EventTypeDamage:          3,
	game.EventTypeProjectileFired: 1,
}

// Priority возвращает приоритет типа события
func Priority(t game.EventType) int {
	return eventPriority[t]
}

// Sink публикует события симуляции в шину. Реализует game.EventSink.
// Высокоприоритетные события ждут места в шине не дольше Timeout.
type Sink struct {
	bus     EventBus
	source  string
	Timeout time.Duration

	mu      sync.Mutex
	session string
	clock   func() uint64

	logger *logging.Logger
}

// NewSink создаёт приёмник для шины bus; source попадает в Envelope.Source
func NewSink(bus EventBus, source string) *Sink {
	return &Sink{
		bus:     bus,
		source:  source,
		Timeout: 50 * time.Millisecond,
		session: uuid.NewString(),
		logger:  logging.GetComponentLogger("eventbus"),
	}
}

// SetClock задаёт источник номера тика для Envelope.Tick
func (s *Sink) SetClock(clock func() uint64) {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

// NewSession начинает новую партию: последующие события получат новый SessionID
func (s *Sink) NewSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = uuid.NewString()
	return s.session
}

// Session возвращает идентификатор текущей партии
func (s *Sink) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Emit упаковывает событие в Envelope и публикует его
func (s *Sink) Emit(ev game.Event) {
	env, err := s.Envelope(ev)
	if err != nil {
		s.logger.Warn("⚠️ Событие %s не закодировано: %v", ev.GetType(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if err := s.bus.Publish(ctx, env); err != nil {
		s.logger.Warn("⚠️ Событие %s не опубликовано: %v", env.EventType, err)
	}
}

// Envelope строит контейнер для события
func (s *Sink) Envelope(ev game.Event) (*Envelope, error) {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	session := s.session
	var tick uint64
	if s.clock != nil {
		tick = s.clock()
	}
	s.mu.Unlock()

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    s.source,
		EventType: ev.GetType().String(),
		Version:   PayloadVersion,
		SessionID: session,
		Tick:      tick,
		Priority:  Priority(ev.GetType()),
		Payload:   payload,
	}, nil
}

// Decode восстанавливает игровое событие из Envelope
func Decode(env *Envelope) (game.Event, error) {
	switch env.EventType {
	case game.EventTypeDamage.String():
		return decodeAs[game.DamageEvent](env)
	case game.EventTypeEnemyDefeated.String():
		return decodeAs[game.EnemyDefeatedEvent](env)
	case game.EventTypeWaveStarted.String():
		return decodeAs[game.WaveStartedEvent](env)
	case game.EventTypeWaveCompleted.String():
		return decodeAs[game.WaveCompletedEvent](env)
	case game.EventTypeHealthPickedUp.String():
		return decodeAs[game.HealthPickedUpEvent](env)
	case game.EventTypeProjectileFired.String():
		return decodeAs[game.ProjectileFiredEvent](env)
	case game.EventTypeWeaponUnlocked.String():
		return decodeAs[game.WeaponUnlockedEvent](env)
	case game.EventTypeShieldBroken.String(), game.EventTypeShieldRecharged.String():
		return decodeAs[game.ShieldEvent](env)
	case game.EventTypeScoreChanged.String():
		return decodeAs[game.ScoreChangedEvent](env)
	case game.EventTypeGameOver.String():
		return decodeAs[game.GameOverEvent](env)
	case game.EventTypeVictory.String():
		return decodeAs[game.VictoryEvent](env)
	}
	return nil, fmt.Errorf("неизвестный тип события %q", env.EventType)
}

func decodeAs[T game.Event](env *Envelope) (game.Event, error) {
	var ev T
	if err := msgpack.Unmarshal(env.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
	}
	return ev, nil
}
