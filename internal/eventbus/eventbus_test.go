package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/vec"
)

// collector собирает доставленные события
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMemoryBus(t *testing.T) {
	t.Run("фильтр по типу", func(t *testing.T) {
		bus := NewMemoryBus(16)
		var all, waves collector
		_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
		require.NoError(t, err)
		_, err = bus.Subscribe(context.Background(), Filter{Types: []string{"wave_started"}}, waves.handle)
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "damage"}))
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "wave_started"}))
		require.NoError(t, bus.Close())

		assert.Equal(t, 2, all.len())
		assert.Equal(t, 1, waves.len())
		assert.Equal(t, uint64(3), bus.Metrics().Consumed)
	})

	t.Run("отписка", func(t *testing.T) {
		bus := NewMemoryBus(16)
		var c collector
		sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
		require.NoError(t, err)
		sub.Unsubscribe()

		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "damage"}))
		require.NoError(t, bus.Close())
		assert.Zero(t, c.len())
	})

	t.Run("при переполнении низкий приоритет отбрасывается", func(t *testing.T) {
		bus := NewMemoryBus(1)
		release := make(chan struct{})
		started := make(chan struct{}, 1)
		_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		})
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "a", Priority: 1}))
		<-started // диспетчер занят первым событием
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "b", Priority: 1}))
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "c", Priority: 1}))

		stats := bus.Metrics()
		assert.Equal(t, uint64(2), stats.Published)
		assert.Equal(t, uint64(1), stats.Dropped)

		timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err = bus.Publish(timeout, &Envelope{EventType: "d", Priority: 9})
		assert.ErrorIs(t, err, context.DeadlineExceeded, "высокий приоритет ждёт места до отмены")

		close(release)
		require.NoError(t, bus.Close())
	})

	t.Run("после закрытия", func(t *testing.T) {
		bus := NewMemoryBus(4)
		require.NoError(t, bus.Close())
		assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrClosed)
		_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
		assert.ErrorIs(t, err, ErrClosed)
		assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
	})
}

func TestSink(t *testing.T) {
	t.Run("событие доходит и декодируется", func(t *testing.T) {
		bus := NewMemoryBus(16)
		var c collector
		_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
		require.NoError(t, err)

		sink := NewSink(bus, "test")
		sink.SetClock(func() uint64 { return 42 })
		sent := game.EnemyDefeatedEvent{
			EnemySlot:  3,
			Role:       "melee",
			IsHeadshot: true,
			Position:   vec.V3(1, 2.5, -4),
			Points:     150,
			Remaining:  7,
		}
		sink.Emit(sent)
		require.NoError(t, bus.Close())

		require.Equal(t, 1, c.len())
		env := c.events[0]
		assert.Equal(t, "enemy_defeated", env.EventType)
		assert.Equal(t, "test", env.Source)
		assert.Equal(t, uint64(42), env.Tick)
		assert.Equal(t, 6, env.Priority)
		assert.Equal(t, sink.Session(), env.SessionID)
		assert.NotEmpty(t, env.ID)

		got, err := Decode(env)
		require.NoError(t, err)
		assert.Equal(t, sent, got)
	})

	t.Run("щит различается по флагу", func(t *testing.T) {
		sink := NewSink(NewMemoryBus(1), "test")
		env, err := sink.Envelope(game.ShieldEvent{Broken: true})
		require.NoError(t, err)
		assert.Equal(t, "shield_broken", env.EventType)

		got, err := Decode(env)
		require.NoError(t, err)
		assert.Equal(t, game.EventTypeShieldBroken, got.GetType())
	})

	t.Run("новая партия - новый идентификатор", func(t *testing.T) {
		sink := NewSink(NewMemoryBus(1), "test")
		before := sink.Session()
		assert.NotEqual(t, before, sink.NewSession())
	})

	t.Run("неизвестный тип", func(t *testing.T) {
		_, err := Decode(&Envelope{EventType: "teleport"})
		assert.Error(t, err)
	})

	t.Run("игра публикует события волн", func(t *testing.T) {
		bus := NewMemoryBus(4096)
		var c collector
		_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"wave_started"}}, c.handle)
		require.NoError(t, err)

		cfg := game.DefaultConfig()
		cfg.Seed = 3
		cfg.World.StructureCount = 0
		sink := NewSink(bus, "test")
		g := game.New(cfg, sink)
		sink.SetClock(g.Ticks)
		for i := 0; i < 180; i++ {
			g.Tick(entity.Input{}, 1.0/60)
		}
		require.NoError(t, bus.Close())

		require.Equal(t, 1, c.len())
		assert.Equal(t, uint64(180), c.events[0].Tick)
		ev, err := Decode(c.events[0])
		require.NoError(t, err)
		assert.Equal(t, 1, ev.(game.WaveStartedEvent).Wave)
	})
}
