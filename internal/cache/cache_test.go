package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/storage"
)

// fakeBus - шина инвалидации в памяти, общая для нескольких узлов
type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]InvalidationHandler
}

type fakeInvalidator struct {
	bus       *fakeBus
	node      string
	published []string
	closed    bool
}

func newFakeBus() *fakeBus { return &fakeBus{handlers: make(map[string]InvalidationHandler)} }

func (b *fakeBus) node(id string) *fakeInvalidator { return &fakeInvalidator{bus: b, node: id} }

func (f *fakeInvalidator) PublishInvalidation(_ context.Context, key string) error {
	f.published = append(f.published, key)
	f.bus.mu.Lock()
	defer f.bus.mu.Unlock()
	for id, h := range f.bus.handlers {
		if id == f.node {
			continue
		}
		if err := h(key); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeInvalidator) SubscribeInvalidations(_ context.Context, h InvalidationHandler) error {
	f.bus.mu.Lock()
	f.bus.handlers[f.node] = h
	f.bus.mu.Unlock()
	return nil
}

func (f *fakeInvalidator) Close() error {
	f.closed = true
	return nil
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "истёкший ключ - промах")
	_, err = s.Get(ctx, "b")
	assert.NoError(t, err, "ttl 0 не истекает")

	require.NoError(t, s.Delete(ctx, "b", "missing"))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, s.Len())
}

func TestScoreCache(t *testing.T) {
	ctx := context.Background()

	t.Run("read-through и попадания", func(t *testing.T) {
		repo := storage.NewMemoryScoreRepo()
		_, err := repo.Submit(ctx, storage.ScoreRecord{Profile: "alice", Score: 900})
		require.NoError(t, err)

		c, err := NewScoreCache(ctx, repo, NewMemoryStore(), nil, time.Minute)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			rec, err := c.Best(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 900, rec.Score)
		}
		m := c.GetMetrics()
		assert.Equal(t, int64(3), m.Requests)
		assert.Equal(t, int64(2), m.Hits)
		assert.Equal(t, int64(1), m.Misses)
		assert.InDelta(t, 2.0/3.0, m.HitRatio, 1e-9)

		_, err = c.Best(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Submit сбрасывает кеш", func(t *testing.T) {
		repo := storage.NewMemoryScoreRepo()
		c, err := NewScoreCache(ctx, repo, NewMemoryStore(), nil, time.Minute)
		require.NoError(t, err)

		_, err = c.Submit(ctx, storage.ScoreRecord{Profile: "alice", Score: 500})
		require.NoError(t, err)
		top, err := c.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 1)

		newBest, err := c.Submit(ctx, storage.ScoreRecord{Profile: "bob", Score: 800})
		require.NoError(t, err)
		assert.True(t, newBest)

		top, err = c.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 2, "таблица перечитана после рекорда")
		assert.Equal(t, "bob", top[0].Profile)

		top, err = c.Top(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, top, 1)

		newBest, err = c.Submit(ctx, storage.ScoreRecord{Profile: "bob", Score: 100})
		require.NoError(t, err)
		assert.False(t, newBest, "худший результат не рекорд")
	})

	t.Run("инвалидация между узлами", func(t *testing.T) {
		repo := storage.NewMemoryScoreRepo()
		bus := newFakeBus()
		invA, invB := bus.node("a"), bus.node("b")

		storeB := NewMemoryStore()
		nodeA, err := NewScoreCache(ctx, repo, NewMemoryStore(), invA, time.Minute)
		require.NoError(t, err)
		nodeB, err := NewScoreCache(ctx, repo, storeB, invB, time.Minute)
		require.NoError(t, err)

		_, err = nodeA.Submit(ctx, storage.ScoreRecord{Profile: "alice", Score: 300})
		require.NoError(t, err)
		rec, err := nodeB.Best(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 300, rec.Score)
		assert.Equal(t, 1, storeB.Len())

		invA.published = nil
		_, err = nodeA.Submit(ctx, storage.ScoreRecord{Profile: "alice", Score: 700})
		require.NoError(t, err)
		assert.Equal(t, []string{"best:alice", "top"}, invA.published)

		rec, err = nodeB.Best(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 700, rec.Score, "узел b не отдаёт устаревший рекорд")
		assert.Positive(t, nodeB.GetMetrics().Invalidations)
	})

	t.Run("Close закрывает всё", func(t *testing.T) {
		inv := newFakeBus().node("a")
		c, err := NewScoreCache(ctx, storage.NewMemoryScoreRepo(), NewMemoryStore(), inv, 0)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, c.ttl)
		require.NoError(t, c.Close())
		assert.True(t, inv.closed)
	})
}

func TestNATSInvalidatorHandleMessage(t *testing.T) {
	var got []string
	n := &NATSInvalidator{
		config:     InvalidatorConfig{DedupeWindow: time.Minute},
		nodeID:     "a",
		recentKeys: make(map[string]time.Time),
		handler: func(key string) error {
			got = append(got, key)
			return nil
		},
		logger: logging.GetComponentLogger("cache"),
	}
	msg := func(node, key string, ts time.Time) *nats.Msg {
		data, err := json.Marshal(InvalidationMessage{Key: key, Timestamp: ts, NodeID: node})
		require.NoError(t, err)
		return &nats.Msg{Data: data}
	}
	ts := time.Unix(100, 0).UTC()

	n.handleMessage(msg("a", "top", ts))
	assert.Empty(t, got, "свои сообщения пропускаются")

	n.handleMessage(msg("b", "top", ts))
	n.handleMessage(msg("b", "top", ts))
	assert.Equal(t, []string{"top"}, got, "повторная доставка отброшена")

	n.handleMessage(msg("b", "top", ts.Add(time.Millisecond)))
	assert.Equal(t, []string{"top", "top"}, got, "новая инвалидация того же ключа проходит")

	n.handleMessage(&nats.Msg{Data: []byte("{")})
	assert.Equal(t, int64(1), n.errorsCount.Load())
	assert.Equal(t, int64(5), n.receivedCount.Load())
}
