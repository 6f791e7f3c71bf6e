package kv

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ColumnFamily names a logical partition of the keyspace. The set is closed.
type ColumnFamily uint8

const (
	// CFDefault is the partition used when a client carries no scope.
	CFDefault ColumnFamily = iota
	// CFLock holds lock records.
	CFLock
	// CFWrite holds write records.
	CFWrite
)

// ColumnFamilies lists every valid column family in prefix order.
var ColumnFamilies = []ColumnFamily{CFDefault, CFLock, CFWrite}

func (cf ColumnFamily) String() string {
	switch cf {
	case CFDefault:
		return "default"
	case CFLock:
		return "lock"
	case CFWrite:
		return "write"
	}
	return "unknown"
}

// Valid reports whether cf is one of the known column families.
func (cf ColumnFamily) Valid() bool {
	return cf <= CFWrite
}

// ParseColumnFamily maps a name back to its column family.
func ParseColumnFamily(s string) (ColumnFamily, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return CFDefault, nil
	case "lock":
		return CFLock, nil
	case "write":
		return CFWrite, nil
	}
	return 0, errors.Newf("unknown column family %q", s)
}

// ResolveCF returns the column family a scoped request targets; nil means
// the default partition.
func ResolveCF(cf *ColumnFamily) ColumnFamily {
	if cf == nil {
		return CFDefault
	}
	return *cf
}

// MarshalJSON encodes the column family by name.
func (cf ColumnFamily) MarshalJSON() ([]byte, error) {
	if !cf.Valid() {
		return nil, errors.Newf("invalid column family %d", uint8(cf))
	}
	return json.Marshal(cf.String())
}

// UnmarshalJSON decodes a column family name.
func (cf *ColumnFamily) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "decoding column family")
	}
	parsed, err := ParseColumnFamily(s)
	if err != nil {
		return err
	}
	*cf = parsed
	return nil
}
