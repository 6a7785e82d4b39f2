package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MariaScoreRepo реализует HighScoreRepo для MariaDB/MySQL.
// Все партии пишутся в shooter_runs; рекорд - лучшая строка профиля.
type MariaScoreRepo struct {
	db *sql.DB
}

// NewMariaScoreRepo подключается к базе и создаёт таблицу при необходимости.
// dsn: user:pass@tcp(host:port)/dbname?parseTime=true
func NewMariaScoreRepo(ctx context.Context, dsn string) (*MariaScoreRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaScoreRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaScoreRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS shooter_runs (
			id          BIGINT       AUTO_INCREMENT PRIMARY KEY,
			profile     VARCHAR(64)  NOT NULL,
			session_id  CHAR(36)     NOT NULL,
			score       INT          NOT NULL,
			wave        SMALLINT     NOT NULL,
			kills       INT          NOT NULL,
			headshots   INT          NOT NULL,
			victory     BOOLEAN      NOT NULL DEFAULT FALSE,
			seed        BIGINT       NOT NULL,
			recorded_at DATETIME(3)  NOT NULL,
			INDEX idx_profile_score (profile, score DESC, recorded_at)
		) ENGINE=InnoDB
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы shooter_runs: %w", err)
	}
	return nil
}

// Submit записывает партию и сообщает, стала ли она рекордом.
// Сравнение и вставка идут в одной транзакции.
func (r *MariaScoreRepo) Submit(ctx context.Context, rec ScoreRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var best sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(score) FROM shooter_runs WHERE profile = ? FOR UPDATE`, rec.Profile).Scan(&best)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения рекорда %s: %w", rec.Profile, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shooter_runs (profile, session_id, score, wave, kills, headshots, victory, seed, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Profile, rec.SessionID, rec.Score, rec.Wave, rec.Kills, rec.Headshots, rec.Victory, rec.Seed, rec.RecordedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения партии %s: %w", rec.SessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return !best.Valid || int64(rec.Score) > best.Int64, nil
}

const selectRun = `SELECT profile, session_id, score, wave, kills, headshots, victory, seed, recorded_at FROM shooter_runs`

// Best возвращает лучшую партию профиля
func (r *MariaScoreRepo) Best(ctx context.Context, profile string) (ScoreRecord, error) {
	row := r.db.QueryRowContext(ctx,
		selectRun+` WHERE profile = ? ORDER BY score DESC, recorded_at ASC LIMIT 1`, profile)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScoreRecord{}, ErrNotFound
	}
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("ошибка загрузки рекорда %s: %w", profile, err)
	}
	return rec, nil
}

// Top возвращает лучшие партии по одной на профиль
func (r *MariaScoreRepo) Top(ctx context.Context, limit int) ([]ScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectRun+` r
		WHERE r.id = (
			SELECT b.id FROM shooter_runs b WHERE b.profile = r.profile
			ORDER BY b.score DESC, b.recorded_at ASC LIMIT 1)
		ORDER BY r.score DESC, r.recorded_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы рекордов: %w", err)
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ScoreRecord, error) {
	var rec ScoreRecord
	err := row.Scan(&rec.Profile, &rec.SessionID, &rec.Score, &rec.Wave, &rec.Kills,
		&rec.Headshots, &rec.Victory, &rec.Seed, &rec.RecordedAt)
	return rec, err
}

// Close закрывает соединение с базой
func (r *MariaScoreRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
