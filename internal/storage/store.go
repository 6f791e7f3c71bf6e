package storage

import (
	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
)

var (
	// ErrKeyNotFound is returned when a key doesn't exist in the store
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("store is closed")
)

// Mutation is one step of a Write batch.
type Mutation struct {
	Key    kv.Key
	Value  kv.Value
	Delete bool
}

// PutMutation returns a mutation that sets key to value.
func PutMutation(key kv.Key, value kv.Value) Mutation {
	return Mutation{Key: key, Value: value}
}

// DeleteMutation returns a mutation that removes key.
func DeleteMutation(key kv.Key) Mutation {
	return Mutation{Key: key, Delete: true}
}

// Store defines the interface for ordered, column-family aware key-value
// storage. All implementations must be thread-safe for concurrent access.
//
// Column families are isolated keyspaces: the same key under two families
// names two independent entries.
type Store interface {
	// Get retrieves a value by key
	// Returns ErrKeyNotFound if the key doesn't exist
	Get(cf kv.ColumnFamily, key kv.Key) (kv.Value, error)

	// Put stores a value with the given key
	// Overwrites any existing value for the key
	Put(cf kv.ColumnFamily, key kv.Key, value kv.Value) error

	// Delete removes a key-value pair
	// No error if key doesn't exist
	Delete(cf kv.ColumnFamily, key kv.Key) error

	// Write applies mutations atomically and in order, so a key written
	// twice keeps the later value
	Write(cf kv.ColumnFamily, mutations []Mutation) error

	// Scan returns up to limit pairs in [start, end) in ascending key order.
	// An empty end means no upper bound; a negative limit means no limit.
	// keyOnly leaves values nil.
	Scan(cf kv.ColumnFamily, start, end kv.Key, limit int, keyOnly bool) ([]kv.KvPair, error)

	// DeleteRange removes every key in [start, end) and returns how many
	// were removed
	DeleteRange(cf kv.ColumnFamily, start, end kv.Key) (int, error)

	// Stats returns storage statistics
	Stats() StoreStats

	// Close releases the engine; later calls fail with ErrClosed
	Close() error
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Keys  int `json:"keys"`  // Number of keys across all column families
	Bytes int `json:"bytes"` // Total size of all values in bytes
}

func inRange(key, start, end kv.Key) bool {
	if key.Less(start) {
		return false
	}
	return len(end) == 0 || key.Less(end)
}
