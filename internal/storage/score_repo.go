package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNotFound возвращается, когда записи для профиля нет
var ErrNotFound = errors.New("storage: запись не найдена")

// DefaultProfile - профиль, под которым сохраняется одиночная игра
const DefaultProfile = "local"

// ScoreRecord - итог одной партии
type ScoreRecord struct {
	Profile    string    `msgpack:"profile" json:"profile"`
	SessionID  string    `msgpack:"session_id" json:"session_id"`
	Score      int       `msgpack:"score" json:"score"`
	Wave       int       `msgpack:"wave" json:"wave"`
	Kills      int       `msgpack:"kills" json:"kills"`
	Headshots  int       `msgpack:"headshots" json:"headshots"`
	Victory    bool      `msgpack:"victory" json:"victory"`
	Seed       int64     `msgpack:"seed" json:"seed"`
	RecordedAt time.Time `msgpack:"recorded_at" json:"recorded_at"`
}

// Validate проверяет запись перед сохранением
func (r ScoreRecord) Validate() error {
	if r.Profile == "" {
		return fmt.Errorf("пустой профиль")
	}
	if r.Score < 0 {
		return fmt.Errorf("отрицательный счёт: %d", r.Score)
	}
	return nil
}

// HighScoreRepo хранит итоги партий и лучший результат профиля.
// Рекорд не уменьшается: запись с меньшим счётом попадает только в историю.
type HighScoreRepo interface {
	// Submit сохраняет итог партии; newBest - запись стала рекордом профиля
	Submit(ctx context.Context, rec ScoreRecord) (newBest bool, err error)

	// Best возвращает рекорд профиля или ErrNotFound
	Best(ctx context.Context, profile string) (ScoreRecord, error)

	// Top возвращает лучшие результаты профилей по убыванию счёта
	Top(ctx context.Context, limit int) ([]ScoreRecord, error)

	// Close освобождает ресурсы хранилища
	Close() error
}

// LoadHighScore возвращает рекорд профиля; отсутствие записи - это 0
func LoadHighScore(ctx context.Context, repo HighScoreRepo, profile string) (int, error) {
	rec, err := repo.Best(ctx, profile)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Score, nil
}

// better - a лучше b: больше очков, при равенстве - раньше
func better(a, b ScoreRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.RecordedAt.Before(b.RecordedAt)
}

func sortRecords(recs []ScoreRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return better(recs[i], recs[j]) })
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
