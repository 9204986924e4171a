package state

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var errTxDone = errors.New("transaction already finished")

type memoryVersion struct {
	seq uint64
	val []byte
}

// MemoryStore keeps the ledger in a map of versioned values. It backs tests and the throwaway
// "memory" backend. Transactions read the versions committed when they began and buffer their
// own writes; Commit publishes the buffer as the next version. Callers must serialise writers
// (the ledger does).
type MemoryStore struct {
	mu     sync.RWMutex
	seq    uint64                     // Last committed version
	data   map[string][]memoryVersion // Oldest first
	active map[uint64]int             // Open transactions per snapshot version
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]memoryVersion),
		active: make(map[uint64]int),
	}
}

// Begin pins the current version for reads. Nothing is copied.
func (s *MemoryStore) Begin(_ context.Context) (Tx, error) {
	s.mu.Lock()
	snap := s.seq
	s.active[snap]++
	s.mu.Unlock()
	return &kvTx{kv: &memoryTxn{store: s, snap: snap, writes: make(map[string][]byte)}}, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// visible returns the newest version of key at or before snap. Callers hold mu.
func (s *MemoryStore) visible(key string, snap uint64) ([]byte, bool) {
	versions := s.data[key]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].seq <= snap {
			return versions[i].val, true
		}
	}
	return nil, false
}

// release unpins snap. Callers hold mu for writing.
func (s *MemoryStore) release(snap uint64) {
	if s.active[snap]--; s.active[snap] <= 0 {
		delete(s.active, snap)
	}
}

// pinned reports whether an open transaction reads versions in [from, to). Callers hold mu.
func (s *MemoryStore) pinned(from, to uint64) bool {
	for snap := range s.active {
		if snap >= from && snap < to {
			return true
		}
	}
	return false
}

type memoryTxn struct {
	store  *MemoryStore
	snap   uint64
	writes map[string][]byte
	done   bool
}

func (m *memoryTxn) get(key string) ([]byte, bool, error) {
	if m.done {
		return nil, false, errTxDone
	}
	if v, ok := m.writes[key]; ok {
		return v, true, nil
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	v, ok := m.store.visible(key, m.snap)
	return v, ok, nil
}

func (m *memoryTxn) set(key string, val []byte) error {
	if m.done {
		return errTxDone
	}
	m.writes[key] = append([]byte(nil), val...)
	return nil
}

func (m *memoryTxn) scan(prefix string, reverse bool, fn func(key string, val []byte) (bool, error)) error {
	if m.done {
		return errTxDone
	}
	entries := make(map[string][]byte)
	m.store.mu.RLock()
	for k := range m.store.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if v, ok := m.store.visible(k, m.snap); ok {
			entries[k] = v
		}
	}
	m.store.mu.RUnlock()
	for k, v := range m.writes {
		if strings.HasPrefix(k, prefix) {
			entries[k] = v
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}
	for _, k := range keys {
		more, err := fn(k, entries[k])
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (m *memoryTxn) commit() error {
	if m.done {
		return errTxDone
	}
	m.done = true

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(m.snap)
	if len(m.writes) == 0 {
		return nil
	}
	s.seq++
	for k, v := range m.writes {
		versions := append(s.data[k], memoryVersion{seq: s.seq, val: v})
		// Keep the newest version and any version an open transaction still reads.
		kept := versions[:0]
		for i, ver := range versions {
			if i == len(versions)-1 || s.pinned(ver.seq, versions[i+1].seq) {
				kept = append(kept, ver)
			}
		}
		s.data[k] = kept
	}
	return nil
}

func (m *memoryTxn) rollback() error {
	if m.done {
		return nil
	}
	m.done = true
	m.store.mu.Lock()
	m.store.release(m.snap)
	m.store.mu.Unlock()
	return nil
}
