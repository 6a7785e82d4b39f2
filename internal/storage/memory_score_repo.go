package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryScoreRepo реализует HighScoreRepo в памяти.
// Используется, когда внешнее хранилище не настроено, и в тестах.
// Данные теряются при перезапуске.
type MemoryScoreRepo struct {
	mu      sync.RWMutex
	best    map[string]ScoreRecord // профиль -> рекорд
	history []ScoreRecord
}

// NewMemoryScoreRepo создаёт пустой репозиторий
func NewMemoryScoreRepo() *MemoryScoreRepo {
	return &MemoryScoreRepo{
		best: make(map[string]ScoreRecord),
	}
}

// Submit сохраняет итог партии
func (r *MemoryScoreRepo) Submit(ctx context.Context, rec ScoreRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, rec)
	cur, ok := r.best[rec.Profile]
	if ok && !better(rec, cur) {
		return false, nil
	}
	r.best[rec.Profile] = rec
	return true, nil
}

// Best возвращает рекорд профиля
func (r *MemoryScoreRepo) Best(ctx context.Context, profile string) (ScoreRecord, error) {
	if err := checkContext(ctx); err != nil {
		return ScoreRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.best[profile]
	if !ok {
		return ScoreRecord{}, ErrNotFound
	}
	return rec, nil
}

// Top возвращает рекорды профилей по убыванию
func (r *MemoryScoreRepo) Top(ctx context.Context, limit int) ([]ScoreRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]ScoreRecord, 0, len(r.best))
	for _, rec := range r.best {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sortRecords(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// History возвращает все сохранённые партии в порядке поступления
func (r *MemoryScoreRepo) History() []ScoreRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScoreRecord, len(r.history))
	copy(out, r.history)
	return out
}

// Close ничего не делает
func (r *MemoryScoreRepo) Close() error { return nil }
