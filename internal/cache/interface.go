package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss - ключа нет в кеше или он истёк
var ErrCacheMiss = errors.New("cache miss")

// Store - кеш байтовых значений с TTL.
//
// Использование:
//
//	store := NewRedisStore(config)
//	data, err := store.Get(ctx, "key")
//	err = store.Set(ctx, "key", data, 30*time.Second)
//	err = store.Delete(ctx, "key")
type Store interface {
	// Get возвращает значение или ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение; ttl = 0 - без истечения
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключи; отсутствие ключа не ошибка
	Delete(ctx context.Context, keys ...string) error

	// Close закрывает соединение с кешем
	Close() error
}

// Invalidator рассылает инвалидацию ключей между узлами
type Invalidator interface {
	// PublishInvalidation отправляет уведомление об инвалидации
	PublishInvalidation(ctx context.Context, key string) error

	// SubscribeInvalidations подписывается на уведомления других узлов
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error

	// Close закрывает соединение
	Close() error
}

// InvalidationHandler обрабатывает уведомления об инвалидации кеша
type InvalidationHandler func(key string) error

// Metrics содержит счётчики кеша
type Metrics struct {
	Requests      int64   `json:"requests"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRatio      float64 `json:"hit_ratio"`
	Invalidations int64   `json:"invalidations"`
	Errors        int64   `json:"errors"`
}
