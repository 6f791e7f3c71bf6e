// Package kv defines the value types shared by every layer of the raw
// key-value client and the store behind it.
//
// # Types
//
//   - Key: ordered byte string, compared byte-lexicographically
//   - Value: opaque byte string
//   - KvPair: (Key, Value), decomposes back into its Key with IntoKey
//   - Bound / BoundRange: an interval whose ends are Included, Excluded
//     or Unbounded
//   - ColumnFamily: closed enumeration of keyspace partitions
//
// # Ranges
//
// Every layer below the client works with half-open [start, end) key pairs.
// BoundRange.IntoKeys performs the conversion:
//
//	[a, b]   → [a, b\x00)
//	(a, b)   → [a\x00, b)
//	(-inf, b] → ["", b\x00)
//	[a, +inf) → [a, "")
//
// An empty end key always means "no upper bound". Inverted ranges are not
// rejected here; they match nothing.
//
// # Column families
//
// A client handle may be scoped to one column family. Requests carry a
// *ColumnFamily; nil resolves to CFDefault. Storage engines keep the
// families isolated, so a write under CFWrite is invisible to a read under
// CFDefault.
package kv
