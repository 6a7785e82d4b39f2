package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Nootest/3DShooting/internal/logging"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr         string // Адрес Redis сервера
	Password     string // Пароль (пустой, если не требуется)
	DB           int    // Номер базы данных
	KeyPrefix    string // Префикс ключей
	HistoryLimit int64  // Сколько последних партий хранить
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "shooter:",
		HistoryLimit: 1000,
	}
}

// RedisScoreRepo хранит рекорды в Redis: сортированное множество профилей по
// лучшему счёту, хеш с записями рекордов и ограниченный список истории.
type RedisScoreRepo struct {
	client       *redis.Client
	bestKey      string // zset профиль -> счёт
	recordsKey   string // hash профиль -> msgpack(ScoreRecord)
	historyKey   string // list msgpack(ScoreRecord)
	historyLimit int64
}

// NewRedisScoreRepo подключается к Redis
func NewRedisScoreRepo(ctx context.Context, cfg RedisConfig) (*RedisScoreRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logging.GetStorageLogger().Info("🔴 Подключено к Redis %s", cfg.Addr)
	return newRedisScoreRepo(client, cfg), nil
}

func newRedisScoreRepo(client *redis.Client, cfg RedisConfig) *RedisScoreRepo {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultRedisConfig().HistoryLimit
	}
	return &RedisScoreRepo{
		client:       client,
		bestKey:      cfg.KeyPrefix + "best",
		recordsKey:   cfg.KeyPrefix + "best:records",
		historyKey:   cfg.KeyPrefix + "runs",
		historyLimit: cfg.HistoryLimit,
	}
}

// Submit сохраняет партию. Сравнение с рекордом идёт под WATCH ключа рекордов.
func (r *RedisScoreRepo) Submit(ctx context.Context, rec ScoreRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	var newBest bool
	txf := func(tx *redis.Tx) error {
		cur, err := tx.ZScore(ctx, r.bestKey, rec.Profile).Result()
		switch {
		case errors.Is(err, redis.Nil):
			newBest = true
		case err != nil:
			return err
		default:
			newBest = float64(rec.Score) > cur
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LPush(ctx, r.historyKey, data)
			pipe.LTrim(ctx, r.historyKey, 0, r.historyLimit-1)
			if newBest {
				pipe.ZAdd(ctx, r.bestKey, &redis.Z{Score: float64(rec.Score), Member: rec.Profile})
				pipe.HSet(ctx, r.recordsKey, rec.Profile, data)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err = r.client.Watch(ctx, txf, r.bestKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения партии в Redis: %w", err)
	}
	return newBest, nil
}

// Best возвращает рекорд профиля
func (r *RedisScoreRepo) Best(ctx context.Context, profile string) (ScoreRecord, error) {
	data, err := r.client.HGet(ctx, r.recordsKey, profile).Bytes()
	if errors.Is(err, redis.Nil) {
		return ScoreRecord{}, ErrNotFound
	}
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("ошибка чтения рекорда %s: %w", profile, err)
	}
	var rec ScoreRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return ScoreRecord{}, fmt.Errorf("битая запись рекорда %s: %w", profile, err)
	}
	return rec, nil
}

// Top возвращает рекорды профилей по убыванию счёта
func (r *RedisScoreRepo) Top(ctx context.Context, limit int) ([]ScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	profiles, err := r.client.ZRevRange(ctx, r.bestKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы рекордов: %w", err)
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	values, err := r.client.HMGet(ctx, r.recordsKey, profiles...).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записей рекордов: %w", err)
	}
	out := make([]ScoreRecord, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec ScoreRecord
		if err := msgpack.Unmarshal([]byte(s), &rec); err != nil {
			logging.GetStorageLogger().Warn("⚠️ Битая запись рекорда %s: %v", profiles[i], err)
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// Close закрывает клиент
func (r *RedisScoreRepo) Close() error {
	return r.client.Close()
}
