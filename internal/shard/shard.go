package shard

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/storage"
)

// ShardState represents the current state of a region replica
type ShardState string

const (
	// ShardStateActive means the replica is serving requests
	ShardStateActive ShardState = "active"
	// ShardStateMigrating means the region is being moved to another node
	ShardStateMigrating ShardState = "migrating"
	// ShardStateDeleted means the replica no longer serves requests
	ShardStateDeleted ShardState = "deleted"
)

// ErrKeyNotInRegion is returned when a request touches keys outside the
// replica's bounds. Callers treat it as a sign of stale topology.
var ErrKeyNotInRegion = errors.New("key not in region")

// ErrRegionNotServing is returned when the replica is not active.
var ErrRegionNotServing = errors.New("region not serving")

// Shard is the replica of one region hosted on a node. It owns the
// half-open key range [StartKey, EndKey) of every column family in the
// node's shared store.
type Shard struct {
	ID       uint64        // Region identifier
	StartKey kv.Key        // Inclusive lower bound
	EndKey   kv.Key        // Exclusive upper bound, empty = +inf
	Store    storage.Store // The storage backend, shared with the node's other regions
	State    ShardState    // Current replica state
	Stats    *ShardStats   // Operation statistics
	mu       sync.RWMutex  // Protects State and bounds
}

// ShardStats tracks operational statistics for a replica
type ShardStats struct {
	Ops OperationStats // Operation counts
}

// OperationStats tracks operation counts. Batch operations count every key.
type OperationStats struct {
	Gets    uint64 `json:"gets"`
	Puts    uint64 `json:"puts"`
	Deletes uint64 `json:"deletes"`
	Scans   uint64 `json:"scans"`
}

// ShardInfo contains metadata about a replica
type ShardInfo struct {
	ID       uint64     `json:"id"`
	StartKey kv.Key     `json:"start_key"`
	EndKey   kv.Key     `json:"end_key,omitempty"`
	State    ShardState `json:"state"`
	KeyCount int        `json:"keys"`
	ByteSize int        `json:"bytes"`
}

// NewShard creates an active replica of region id over [start, end).
func NewShard(id uint64, start, end kv.Key, store storage.Store) *Shard {
	return &Shard{
		ID:       id,
		StartKey: start.Clone(),
		EndKey:   end.Clone(),
		Store:    store,
		State:    ShardStateActive,
		Stats:    &ShardStats{},
	}
}

// Bounds returns the replica's current key range.
func (s *Shard) Bounds() (kv.Key, kv.Key) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StartKey, s.EndKey
}

// SetBounds moves the replica's key range after a topology change.
func (s *Shard) SetBounds(start, end kv.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartKey = start.Clone()
	s.EndKey = end.Clone()
}

// OwnsKey reports whether key falls inside the region.
func (s *Shard) OwnsKey(key kv.Key) bool {
	start, end := s.Bounds()
	if key.Less(start) {
		return false
	}
	return len(end) == 0 || key.Less(end)
}

// OwnsRange reports whether the half-open [start, end) interval lies
// entirely inside the region. An empty interval is always owned.
func (s *Shard) OwnsRange(start, end kv.Key) bool {
	if len(end) > 0 && start.Compare(end) >= 0 {
		return true
	}
	lo, hi := s.Bounds()
	if start.Less(lo) {
		return false
	}
	if len(hi) == 0 {
		return true
	}
	return len(end) > 0 && end.Compare(hi) <= 0
}

func (s *Shard) checkServing() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State != ShardStateActive {
		return errors.Wrapf(ErrRegionNotServing, "region %d is %s", s.ID, s.State)
	}
	return nil
}

func (s *Shard) checkKeys(keys ...kv.Key) error {
	if err := s.checkServing(); err != nil {
		return err
	}
	for _, k := range keys {
		if !s.OwnsKey(k) {
			return errors.Wrapf(ErrKeyNotInRegion, "key %s, region %d", k, s.ID)
		}
	}
	return nil
}

func (s *Shard) checkRange(start, end kv.Key) error {
	if err := s.checkServing(); err != nil {
		return err
	}
	if !s.OwnsRange(start, end) {
		return errors.Wrapf(ErrKeyNotInRegion, "range [%s, %s), region %d", start, end, s.ID)
	}
	return nil
}

// Get retrieves a value from the replica. found is false for absent keys.
func (s *Shard) Get(cf kv.ColumnFamily, key kv.Key) (kv.Value, bool, error) {
	if err := s.checkKeys(key); err != nil {
		return nil, false, err
	}
	atomic.AddUint64(&s.Stats.Ops.Gets, 1)
	v, err := s.Store.Get(cf, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// BatchGet returns the present keys among keys, each at most once.
func (s *Shard) BatchGet(cf kv.ColumnFamily, keys []kv.Key) ([]kv.KvPair, error) {
	if err := s.checkKeys(keys...); err != nil {
		return nil, err
	}
	atomic.AddUint64(&s.Stats.Ops.Gets, uint64(len(keys)))
	out := make([]kv.KvPair, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[string(k)]; dup {
			continue
		}
		seen[string(k)] = struct{}{}
		v, err := s.Store.Get(cf, k)
		if errors.Is(err, storage.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, kv.NewKvPair(k, v))
	}
	return out, nil
}

// Put stores a value in the replica
func (s *Shard) Put(cf kv.ColumnFamily, key kv.Key, value kv.Value) error {
	if err := s.checkKeys(key); err != nil {
		return err
	}
	atomic.AddUint64(&s.Stats.Ops.Puts, 1)
	return s.Store.Put(cf, key, value)
}

// BatchPut stores every pair in order; a repeated key keeps its last value.
func (s *Shard) BatchPut(cf kv.ColumnFamily, pairs []kv.KvPair) error {
	keys := make([]kv.Key, 0, len(pairs))
	muts := make([]storage.Mutation, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.Key)
		muts = append(muts, storage.PutMutation(p.Key, p.Value))
	}
	if err := s.checkKeys(keys...); err != nil {
		return err
	}
	atomic.AddUint64(&s.Stats.Ops.Puts, uint64(len(pairs)))
	return s.Store.Write(cf, muts)
}

// Delete removes a key from the replica; absent keys are not an error.
func (s *Shard) Delete(cf kv.ColumnFamily, key kv.Key) error {
	if err := s.checkKeys(key); err != nil {
		return err
	}
	atomic.AddUint64(&s.Stats.Ops.Deletes, 1)
	return s.Store.Delete(cf, key)
}

// BatchDelete removes every key, skipping those already absent.
func (s *Shard) BatchDelete(cf kv.ColumnFamily, keys []kv.Key) error {
	if err := s.checkKeys(keys...); err != nil {
		return err
	}
	muts := make([]storage.Mutation, 0, len(keys))
	for _, k := range keys {
		muts = append(muts, storage.DeleteMutation(k))
	}
	atomic.AddUint64(&s.Stats.Ops.Deletes, uint64(len(keys)))
	return s.Store.Write(cf, muts)
}

// Scan returns up to limit pairs of [start, end) in ascending key order.
func (s *Shard) Scan(cf kv.ColumnFamily, start, end kv.Key, limit uint32, keyOnly bool) ([]kv.KvPair, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	atomic.AddUint64(&s.Stats.Ops.Scans, 1)
	return s.Store.Scan(cf, start, end, int(limit), keyOnly)
}

// DeleteRange deletes all keys in [start, end) and returns how many went.
func (s *Shard) DeleteRange(cf kv.ColumnFamily, start, end kv.Key) (int, error) {
	if err := s.checkRange(start, end); err != nil {
		return 0, err
	}
	n, err := s.Store.DeleteRange(cf, start, end)
	atomic.AddUint64(&s.Stats.Ops.Deletes, uint64(n))
	return n, err
}

// GetStats returns current operation counters
func (s *Shard) GetStats() ShardStats {
	return ShardStats{
		Ops: OperationStats{
			Gets:    atomic.LoadUint64(&s.Stats.Ops.Gets),
			Puts:    atomic.LoadUint64(&s.Stats.Ops.Puts),
			Deletes: atomic.LoadUint64(&s.Stats.Ops.Deletes),
			Scans:   atomic.LoadUint64(&s.Stats.Ops.Scans),
		},
	}
}

// Info returns metadata about the replica. Key and byte counts walk the
// region in every column family.
func (s *Shard) Info() ShardInfo {
	s.mu.RLock()
	state := s.State
	start, end := s.StartKey, s.EndKey
	s.mu.RUnlock()

	info := ShardInfo{ID: s.ID, StartKey: start, EndKey: end, State: state}
	for _, cf := range kv.ColumnFamilies {
		pairs, err := s.Store.Scan(cf, start, end, -1, false)
		if err != nil {
			continue
		}
		info.KeyCount += len(pairs)
		for _, p := range pairs {
			info.ByteSize += len(p.Value)
		}
	}
	return info
}

// SetState updates the replica state
func (s *Shard) SetState(state ShardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}
