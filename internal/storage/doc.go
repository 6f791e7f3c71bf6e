// Package storage provides the ordered, column-family aware key-value
// engines that back every region replica on a node.
//
// # Overview
//
// A node keeps one Store and lets all of its region replicas share it; the
// replicas only ever touch the slice of the keyspace they own. The Store
// interface is deliberately small: point reads and writes, an ordered batch
// write, bounded range scans and range deletion.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│      Region replicas (shard)        │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│          Store interface            │
//	│  Get Put Delete Write Scan          │
//	│  DeleteRange Stats Close            │
//	└─────────────────────────────────────┘
//	         │                  │
//	         ▼                  ▼
//	┌────────────────┐  ┌────────────────┐
//	│  MemoryStore   │  │  PebbleStore   │
//	│  B-tree per CF │  │  LSM, CF byte  │
//	│                │  │  key prefix    │
//	└────────────────┘  └────────────────┘
//
// # Ordering
//
// Keys are ordered byte-lexicographically in both engines. Scan takes a
// half-open [start, end) interval where an empty end means "to the end of
// the column family", and always returns pairs in ascending key order.
//
// # Column Families
//
// MemoryStore keeps a separate B-tree per family. PebbleStore prefixes
// every key with the family byte, so the families occupy disjoint,
// contiguous spans of one database and a scan's upper bound never crosses
// into the next family.
//
// # Concurrency and Thread Safety
//
// Both engines are safe for concurrent use. MemoryStore serialises writers
// with a sync.RWMutex; PebbleStore relies on pebble's own concurrency and
// only guards against use after Close.
//
// # Values
//
// Values are copied on the way in and on the way out. An empty value is
// stored and returned as a zero-length, non-nil slice so that it stays
// distinguishable from an absent key.
//
// # Error Handling
//
//   - ErrKeyNotFound: Get on an absent key
//   - ErrClosed: any call after Close
//
// Delete and DeleteRange on absent keys succeed.
package storage
