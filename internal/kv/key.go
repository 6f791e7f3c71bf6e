package kv

import (
	"bytes"
	"fmt"
	"strconv"
)

// Key is an opaque, ordered byte sequence.
//
// Keys are compared byte-lexicographically, which gives a strict total order
// over the keyspace. An empty Key is the smallest possible key; when used as
// the end of a half-open interval it means "no upper bound".
type Key []byte

// Value is an opaque byte sequence stored under a Key.
type Value []byte

// Compare returns -1, 0 or +1 depending on whether k sorts before, equal to,
// or after other.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool {
	return bytes.Compare(k, other) < 0
}

// Equal reports whether k and other hold the same bytes.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Clone returns a copy of k that shares no memory with it.
// A nil key stays nil.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// Next returns the smallest key strictly greater than k, which is k with a
// zero byte appended.
func (k Key) Next() Key {
	out := make(Key, len(k)+1)
	copy(out, k)
	return out
}

// String renders printable keys as-is and everything else quoted.
func (k Key) String() string {
	for _, b := range k {
		if b < 0x20 || b > 0x7e {
			return strconv.Quote(string(k))
		}
	}
	return string(k)
}

// Clone returns a copy of v that shares no memory with it.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	copy(out, v)
	return out
}

// KvPair is an owned key-value tuple.
type KvPair struct {
	Key   Key   `json:"key"`
	Value Value `json:"value,omitempty"`
}

// NewKvPair builds a pair from anything convertible to bytes.
func NewKvPair(key Key, value Value) KvPair {
	return KvPair{Key: key, Value: value}
}

// IntoKey drops the value and returns the pair's key.
func (p KvPair) IntoKey() Key {
	return p.Key
}

func (p KvPair) String() string {
	return fmt.Sprintf("%s=%q", p.Key, []byte(p.Value))
}

// Keys projects pairs down to their keys, preserving order.
func Keys(pairs []KvPair) []Key {
	keys := make([]Key, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.IntoKey())
	}
	return keys
}
