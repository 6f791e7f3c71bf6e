package storage

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/dreamware/rawkv/internal/kv"
)

// PebbleStore implements Store on a pebble LSM. Column families share one
// database; every key is stored behind a one-byte family prefix.
type PebbleStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

// NewPebbleStore opens (or creates) a pebble database under path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	return openPebble(path, &pebble.Options{
		Cache:        pebble.NewCache(64 * 1024 * 1024), // 64MB
		MemTableSize: 32 * 1024 * 1024,                  // 32MB
	})
}

// NewInMemoryPebbleStore opens a pebble database on an in-memory filesystem.
func NewInMemoryPebbleStore() (*PebbleStore, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble at %q", path)
	}
	return &PebbleStore{db: db}, nil
}

func encodeKey(cf kv.ColumnFamily, key kv.Key) []byte {
	out := make([]byte, len(key)+1)
	out[0] = byte(cf)
	copy(out[1:], key)
	return out
}

// encodeBounds maps [start, end) inside cf to raw pebble bounds. An empty end
// becomes the first key of the next family.
func encodeBounds(cf kv.ColumnFamily, start, end kv.Key) (lower, upper []byte) {
	lower = encodeKey(cf, start)
	if len(end) == 0 {
		return lower, []byte{byte(cf) + 1}
	}
	return lower, encodeKey(cf, end)
}

func (p *PebbleStore) Get(cf kv.ColumnFamily, key kv.Key) (kv.Value, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.check(cf); err != nil {
		return nil, err
	}
	value, closer, err := p.db.Get(encodeKey(cf, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get")
	}
	defer closer.Close()

	return copyValue(value), nil
}

func (p *PebbleStore) Put(cf kv.ColumnFamily, key kv.Key, value kv.Value) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.check(cf); err != nil {
		return err
	}
	return errors.Wrap(p.db.Set(encodeKey(cf, key), value, pebble.Sync), "pebble set")
}

func (p *PebbleStore) Delete(cf kv.ColumnFamily, key kv.Key) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.check(cf); err != nil {
		return err
	}
	return errors.Wrap(p.db.Delete(encodeKey(cf, key), pebble.Sync), "pebble delete")
}

func (p *PebbleStore) Write(cf kv.ColumnFamily, mutations []Mutation) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.check(cf); err != nil {
		return err
	}
	b := p.db.NewBatch()
	defer b.Close()

	for _, m := range mutations {
		var err error
		if m.Delete {
			err = b.Delete(encodeKey(cf, m.Key), nil)
		} else {
			err = b.Set(encodeKey(cf, m.Key), m.Value, nil)
		}
		if err != nil {
			return errors.Wrap(err, "pebble batch")
		}
	}
	return errors.Wrap(b.Commit(pebble.Sync), "pebble commit")
}

func (p *PebbleStore) Scan(cf kv.ColumnFamily, start, end kv.Key, limit int, keyOnly bool) ([]kv.KvPair, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.check(cf); err != nil {
		return nil, err
	}
	out := []kv.KvPair{}
	if limit == 0 {
		return out, nil
	}
	if len(end) > 0 && start.Compare(end) >= 0 {
		return out, nil
	}

	lower, upper := encodeBounds(cf, start, end)
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, errors.Wrap(err, "pebble iterator")
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		pair := kv.KvPair{Key: kv.Key(iter.Key()[1:]).Clone()}
		if !keyOnly {
			v, err := iter.ValueAndErr()
			if err != nil {
				_ = iter.Close()
				return nil, errors.Wrap(err, "pebble iterator value")
			}
			pair.Value = copyValue(v)
		}
		out = append(out, pair)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "pebble iterator")
	}
	return out, nil
}

func (p *PebbleStore) DeleteRange(cf kv.ColumnFamily, start, end kv.Key) (int, error) {
	keys, err := p.Scan(cf, start, end, -1, true)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(cf); err != nil {
		return 0, err
	}
	lower, upper := encodeBounds(cf, start, end)
	if err := p.db.DeleteRange(lower, upper, pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "pebble delete range")
	}
	return len(keys), nil
}

// Stats walks the whole database; it is meant for diagnostics only.
func (p *PebbleStore) Stats() StoreStats {
	var stats StoreStats
	for _, cf := range kv.ColumnFamilies {
		pairs, err := p.Scan(cf, kv.Key{}, nil, -1, false)
		if err != nil {
			return stats
		}
		stats.Keys += len(pairs)
		for _, pair := range pairs {
			stats.Bytes += len(pair.Value)
		}
	}
	return stats
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

func (p *PebbleStore) check(cf kv.ColumnFamily) error {
	if p.closed {
		return ErrClosed
	}
	if !cf.Valid() {
		return errUnknownCF(cf)
	}
	return nil
}

func errUnknownCF(cf kv.ColumnFamily) error {
	return errors.Newf("unknown column family %d", uint8(cf))
}
