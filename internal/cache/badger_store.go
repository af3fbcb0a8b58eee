package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onu-map/internal/domain"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps entries in an in-memory badger instance and relies on
// badger's native entry TTL for expiry.
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger routes badger's internal logging through domain.Logger
type badgerLogger struct {
	domain.Logger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

// NewBadgerStore opens an in-memory badger database
func NewBadgerStore(logger domain.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger{logger.WithField("component", "badger")}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	return value, nil
}

// Set stores value for ttl. Badger expires entries on whole unix seconds,
// so ttl is rounded up to keep a fresh entry readable right away.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl%time.Second != 0 {
		ttl = ttl.Truncate(time.Second) + time.Second
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Flush(_ context.Context) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("dropping badger entries: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
