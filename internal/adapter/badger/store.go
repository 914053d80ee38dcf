package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"ragseed/internal/seed"
)

const (
	recordPrefix  = "rec:"
	maxTxnRetries = 5
)

// Store is an embedded content store keyed by chunk hash. It serves single
// node deployments and tests where running Weaviate is not wanted.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the database under path. An empty path gives an in-memory store.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	logger := slog.Default().With("component", "badger-store")
	opts.Logger = &loggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(hash string) []byte {
	return []byte(recordPrefix + hash)
}

// Upsert writes the record only when no record with the same hash exists.
// Concurrent writers for one hash race on the transaction; the loser sees a
// conflict, retries, and then finds the winner's record.
func (s *Store) Upsert(ctx context.Context, hash, content string, vector []float32, source string) error {
	rec := seed.Record{
		Hash:      hash,
		Text:      content,
		Vector:    vector,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(recordKey(hash))
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(recordKey(hash), val)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.DebugContext(ctx, "upsert conflict, retrying", "hash", hash, "attempt", attempt+1)
	}
	return err
}

func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Get returns nil, nil when the hash is unknown.
func (s *Store) Get(ctx context.Context, hash string) (*seed.Record, error) {
	var rec *seed.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &seed.Record{}
			return json.Unmarshal(val, rec)
		})
	})
	return rec, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
