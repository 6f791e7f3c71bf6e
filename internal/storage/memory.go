package storage

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/dreamware/rawkv/internal/kv"
)

const btreeDegree = 32

type item struct {
	key   kv.Key
	value kv.Value
}

func itemLess(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemoryStore implements Store with one in-memory B-tree per column family.
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	mu     sync.RWMutex
	trees  map[kv.ColumnFamily]*btree.BTreeG[item]
	closed bool
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	trees := make(map[kv.ColumnFamily]*btree.BTreeG[item], len(kv.ColumnFamilies))
	for _, cf := range kv.ColumnFamilies {
		trees[cf] = btree.NewG[item](btreeDegree, itemLess)
	}
	return &MemoryStore{trees: trees}
}

func (m *MemoryStore) tree(cf kv.ColumnFamily) (*btree.BTreeG[item], error) {
	if m.closed {
		return nil, ErrClosed
	}
	t, ok := m.trees[cf]
	if !ok {
		return nil, errUnknownCF(cf)
	}
	return t, nil
}

// Get returns a copy of the value to prevent external modification
func (m *MemoryStore) Get(cf kv.ColumnFamily, key kv.Key) (kv.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.tree(cf)
	if err != nil {
		return nil, err
	}
	it, ok := t.Get(item{key: key})
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyValue(it.value), nil
}

// Put makes a copy of the key and value to prevent external modification
func (m *MemoryStore) Put(cf kv.ColumnFamily, key kv.Key, value kv.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.tree(cf)
	if err != nil {
		return err
	}
	t.ReplaceOrInsert(item{key: key.Clone(), value: copyValue(value)})
	return nil
}

// Delete is idempotent
func (m *MemoryStore) Delete(cf kv.ColumnFamily, key kv.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.tree(cf)
	if err != nil {
		return err
	}
	t.Delete(item{key: key})
	return nil
}

func (m *MemoryStore) Write(cf kv.ColumnFamily, mutations []Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.tree(cf)
	if err != nil {
		return err
	}
	for _, mut := range mutations {
		if mut.Delete {
			t.Delete(item{key: mut.Key})
			continue
		}
		t.ReplaceOrInsert(item{key: mut.Key.Clone(), value: copyValue(mut.Value)})
	}
	return nil
}

func (m *MemoryStore) Scan(cf kv.ColumnFamily, start, end kv.Key, limit int, keyOnly bool) ([]kv.KvPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.tree(cf)
	if err != nil {
		return nil, err
	}
	out := []kv.KvPair{}
	if limit == 0 {
		return out, nil
	}
	t.AscendGreaterOrEqual(item{key: start}, func(it item) bool {
		if !inRange(it.key, start, end) {
			return false
		}
		p := kv.KvPair{Key: it.key.Clone()}
		if !keyOnly {
			p.Value = copyValue(it.value)
		}
		out = append(out, p)
		return limit < 0 || len(out) < limit
	})
	return out, nil
}

func (m *MemoryStore) DeleteRange(cf kv.ColumnFamily, start, end kv.Key) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.tree(cf)
	if err != nil {
		return 0, err
	}
	var doomed []item
	t.AscendGreaterOrEqual(item{key: start}, func(it item) bool {
		if !inRange(it.key, start, end) {
			return false
		}
		doomed = append(doomed, it)
		return true
	})
	for _, it := range doomed {
		t.Delete(it)
	}
	return len(doomed), nil
}

func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats StoreStats
	for _, t := range m.trees {
		stats.Keys += t.Len()
		t.Ascend(func(it item) bool {
			stats.Bytes += len(it.value)
			return true
		})
	}
	return stats
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// copyValue never returns nil so that an empty value stays distinguishable
// from an absent one.
func copyValue(v kv.Value) kv.Value {
	out := make(kv.Value, len(v))
	copy(out, v)
	return out
}
