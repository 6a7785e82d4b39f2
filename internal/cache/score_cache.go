package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/storage"
)

const (
	topKey        = "top"
	topCacheLimit = 100
)

func bestKey(profile string) string { return "best:" + profile }

// ScoreCache - read-through кеш над таблицей рекордов.
// Submit пишет в основное хранилище и инвалидирует затронутые ключи,
// в том числе на других узлах через Invalidator.
type ScoreCache struct {
	repo        storage.HighScoreRepo
	store       Store
	invalidator Invalidator
	ttl         time.Duration

	requests      atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
	errors        atomic.Int64

	logger *logging.Logger
}

var _ storage.HighScoreRepo = (*ScoreCache)(nil)

// NewScoreCache оборачивает repo. invalidator может быть nil (один узел или общий Redis).
func NewScoreCache(ctx context.Context, repo storage.HighScoreRepo, store Store, invalidator Invalidator, ttl time.Duration) (*ScoreCache, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	c := &ScoreCache{
		repo:        repo,
		store:       store,
		invalidator: invalidator,
		ttl:         ttl,
		logger:      logging.GetComponentLogger("cache"),
	}
	if invalidator != nil {
		if err := invalidator.SubscribeInvalidations(ctx, c.dropLocal); err != nil {
			return nil, fmt.Errorf("подписка на инвалидацию: %w", err)
		}
	}
	return c, nil
}

// Submit сохраняет итог партии и сбрасывает кеш профиля и таблицы
func (c *ScoreCache) Submit(ctx context.Context, rec storage.ScoreRecord) (bool, error) {
	newBest, err := c.repo.Submit(ctx, rec)
	if err != nil {
		return false, err
	}
	if !newBest {
		return false, nil
	}

	keys := []string{bestKey(rec.Profile), topKey}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.errors.Add(1)
		c.logger.Warn("⚠️ Не удалось сбросить кеш рекордов: %v", err)
	}
	c.invalidations.Add(int64(len(keys)))
	if c.invalidator != nil {
		for _, key := range keys {
			if err := c.invalidator.PublishInvalidation(ctx, key); err != nil {
				c.errors.Add(1)
				c.logger.Warn("⚠️ Не удалось разослать инвалидацию %s: %v", key, err)
			}
		}
	}
	return true, nil
}

// Best возвращает рекорд профиля; ErrNotFound не кешируется
func (c *ScoreCache) Best(ctx context.Context, profile string) (storage.ScoreRecord, error) {
	var rec storage.ScoreRecord
	if c.load(ctx, bestKey(profile), &rec) {
		return rec, nil
	}
	rec, err := c.repo.Best(ctx, profile)
	if err != nil {
		return rec, err
	}
	c.save(ctx, bestKey(profile), rec)
	return rec, nil
}

// Top кеширует первые topCacheLimit записей и режет их под limit
func (c *ScoreCache) Top(ctx context.Context, limit int) ([]storage.ScoreRecord, error) {
	if limit > topCacheLimit {
		return c.repo.Top(ctx, limit)
	}
	var top []storage.ScoreRecord
	if !c.load(ctx, topKey, &top) {
		var err error
		top, err = c.repo.Top(ctx, topCacheLimit)
		if err != nil {
			return nil, err
		}
		c.save(ctx, topKey, top)
	}
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// Close закрывает invalidator, кеш и основное хранилище
func (c *ScoreCache) Close() error {
	var errs []error
	if c.invalidator != nil {
		errs = append(errs, c.invalidator.Close())
	}
	errs = append(errs, c.store.Close(), c.repo.Close())
	return errors.Join(errs...)
}

// GetMetrics возвращает счётчики кеша
func (c *ScoreCache) GetMetrics() Metrics {
	m := Metrics{
		Requests:      c.requests.Load(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Errors:        c.errors.Load(),
	}
	if m.Requests > 0 {
		m.HitRatio = float64(m.Hits) / float64(m.Requests)
	}
	return m
}

func (c *ScoreCache) load(ctx context.Context, key string, v interface{}) bool {
	c.requests.Add(1)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.errors.Add(1)
			c.logger.Warn("⚠️ Ошибка чтения кеша %s: %v", key, err)
		}
		c.misses.Add(1)
		return false
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		c.logger.Warn("⚠️ Битое значение в кеше %s: %v", key, err)
		return false
	}
	c.hits.Add(1)
	return true
}

func (c *ScoreCache) save(ctx context.Context, key string, v interface{}) {
	data, err := msgpack.Marshal(v)
	if err == nil {
		err = c.store.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("⚠️ Не удалось записать кеш %s: %v", key, err)
	}
}

// dropLocal обрабатывает инвалидацию от другого узла
func (c *ScoreCache) dropLocal(key string) error {
	c.invalidations.Add(1)
	return c.store.Delete(context.Background(), key)
}
