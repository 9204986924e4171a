package state

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger"
	"github.com/rs/zerolog/log"
)

// BadgerStore is the embedded single-node backend.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// OpenBadger opens (or creates) a badger database under dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("Opened badger ledger store")
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Begin(_ context.Context) (Tx, error) {
	return &kvTx{kv: &badgerTxn{txn: s.db.NewTransaction(true)}}, nil
}

// Ping reports whether the database is still open.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.closed.Load() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

type badgerTxn struct {
	txn *badger.Txn
}

func (b *badgerTxn) get(key string) ([]byte, bool, error) {
	item, err := b.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("badger read %s: %w", key, err)
	}
	return val, true, nil
}

func (b *badgerTxn) set(key string, val []byte) error {
	if err := b.txn.Set([]byte(key), val); err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (b *badgerTxn) scan(prefix string, reverse bool, fn func(key string, val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.Reverse = reverse
	it := b.txn.NewIterator(opts)
	defer it.Close()

	seek := []byte(prefix)
	if reverse {
		seek = append(seek, 0xFF)
	}
	for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("badger read %s: %w", item.Key(), err)
		}
		more, err := fn(string(item.KeyCopy(nil)), val)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (b *badgerTxn) commit() error {
	return b.txn.Commit()
}

func (b *badgerTxn) rollback() error {
	b.txn.Discard()
	return nil
}
