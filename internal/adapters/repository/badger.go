package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db         *badger.DB
	path       string
	syncWrites bool
	closed     atomic.Bool
}

// Open creates a BadgerStore. Without WithPath (or with an empty path) the
// database lives in memory and is lost on Close.
func Open(_ context.Context, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{}
	for _, opt := range opts {
		opt(s)
	}

	var bopts badger.Options
	if s.path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(s.path).WithSyncWrites(s.syncWrites)
	}
	// Badger logs through its own logger; the service logs store errors itself.
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", s.path, err)
	}
	s.db = db
	return s, nil
}

// InMemory reports whether the store has no backing directory.
func (s *BadgerStore) InMemory() bool { return s.path == "" }

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := s.check(key); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.check(key); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), value); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	})
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
		return nil
	})
}

// Close releases the database. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) check(key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
