// Package shard implements the region replica: the unit of data a node
// serves on behalf of the coordinator's topology.
//
// # Overview
//
// The keyspace is split into contiguous regions by an ordered list of split
// keys. Each region owns the half-open interval [StartKey, EndKey), where an
// empty EndKey means the region extends to the end of the keyspace. A node
// hosts one Shard per region it has been assigned, and every Shard on the
// node shares the node's storage.Store. Bounds are enforced per request, so
// regions never see each other's keys even though they live in one engine.
//
//	┌──────────────────────── node ────────────────────────┐
//	│                                                      │
//	│  Shard 1 [""  , "g")   Shard 2 ["g", "n")   ...      │
//	│        │                    │                        │
//	│        └───────────┬────────┘                        │
//	│                    ▼                                 │
//	│          storage.Store (pebble or memory)            │
//	│          default / lock / write column families      │
//	└──────────────────────────────────────────────────────┘
//
// # Operations
//
// Shard exposes typed operations (Get, BatchGet, Put, BatchPut, Delete,
// BatchDelete, Scan, DeleteRange) plus Execute, which dispatches a decoded
// request.Request to the matching operation and builds the response.
//
// Every operation first checks that the replica is active and that all of
// its keys fall inside the region. A key outside the region yields
// ErrKeyNotInRegion; the node reports that to clients as a region error so
// they refresh their topology and retry.
//
// # Concurrency
//
// Bounds and state are guarded by an RWMutex and may be changed by the node
// while requests are in flight. Operation counters use atomics. The store
// provides its own synchronization.
package shard
