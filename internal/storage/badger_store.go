package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	bestPrefix    = "best:"
	runPrefix     = "run:"
	archivePrefix = "archive:"
)

// BadgerStore - встроенное хранилище рекордов и архива партий.
// Реализует HighScoreRepo; дополнительно хранит сжатые снимки концов партий.
type BadgerStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStore открывает (или создаёт) базу в dataPath/scores
func NewBadgerStore(dataPath string) (*BadgerStore, error) {
	dbPath := filepath.Join(dataPath, "scores")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, dbPath: dbPath, isReady: true}, nil
}

// Close закрывает базу
func (bs *BadgerStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}
	bs.isReady = false
	return bs.db.Close()
}

func (bs *BadgerStore) ready() error {
	if !bs.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return nil
}

// runKey упорядочивает историю по времени
func runKey(rec ScoreRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runPrefix, rec.RecordedAt.UnixNano(), rec.SessionID))
}

// Submit сохраняет партию в историю и, если она лучше, в рекорд профиля
func (bs *BadgerStore) Submit(ctx context.Context, rec ScoreRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if err := bs.ready(); err != nil {
		return false, err
	}

	var newBest bool
	err = bs.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(rec), data); err != nil {
			return err
		}
		cur, err := getRecord(txn, []byte(bestPrefix+rec.Profile))
		switch {
		case errors.Is(err, ErrNotFound):
			newBest = true
		case err != nil:
			return err
		default:
			newBest = better(rec, cur)
		}
		if !newBest {
			return nil
		}
		return txn.Set([]byte(bestPrefix+rec.Profile), data)
	})
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return newBest, nil
}

// Best возвращает рекорд профиля
func (bs *BadgerStore) Best(ctx context.Context, profile string) (ScoreRecord, error) {
	if err := checkContext(ctx); err != nil {
		return ScoreRecord{}, err
	}
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if err := bs.ready(); err != nil {
		return ScoreRecord{}, err
	}

	var rec ScoreRecord
	err := bs.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, []byte(bestPrefix+profile))
		return err
	})
	return rec, err
}

// Top возвращает рекорды профилей по убыванию счёта
func (bs *BadgerStore) Top(ctx context.Context, limit int) ([]ScoreRecord, error) {
	recs, err := bs.scan(ctx, []byte(bestPrefix), false, 0)
	if err != nil {
		return nil, err
	}
	sortRecords(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Runs возвращает последние партии, новые первыми
func (bs *BadgerStore) Runs(ctx context.Context, limit int) ([]ScoreRecord, error) {
	return bs.scan(ctx, []byte(runPrefix), true, limit)
}

func (bs *BadgerStore) scan(ctx context.Context, prefix []byte, reverse bool, limit int) ([]ScoreRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if err := bs.ready(); err != nil {
		return nil, err
	}

	var out []ScoreRecord
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			seek = append(append([]byte{}, prefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var rec ScoreRecord
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("битая запись %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Archive сохраняет кадр снимка конца партии
func (bs *BadgerStore) Archive(ctx context.Context, sessionID string, frame []byte) error {
	if sessionID == "" {
		return fmt.Errorf("пустой идентификатор партии")
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if err := bs.ready(); err != nil {
		return err
	}
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(archivePrefix+sessionID), frame)
	})
}

// LoadArchive возвращает кадр снимка партии или ErrNotFound
func (bs *BadgerStore) LoadArchive(ctx context.Context, sessionID string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if err := bs.ready(); err != nil {
		return nil, err
	}

	var frame []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(archivePrefix + sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		frame, err = item.ValueCopy(nil)
		return err
	})
	return frame, err
}

func getRecord(txn *badger.Txn, key []byte) (ScoreRecord, error) {
	var rec ScoreRecord
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &rec)
	})
	return rec, err
}
