package request

import (
	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
)

// Kind identifies which raw operation a Request describes.
type Kind uint8

// Request kinds, one per raw operation.
const (
	KindGet Kind = iota + 1
	KindBatchGet
	KindPut
	KindBatchPut
	KindUpdate
	KindBatchUpdate
	KindDelete
	KindBatchDelete
	KindDeleteRange
	KindScan
	KindBatchScan
)

var kindNames = map[Kind]string{
	KindGet:         "raw_get",
	KindBatchGet:    "raw_batch_get",
	KindPut:         "raw_put",
	KindBatchPut:    "raw_batch_put",
	KindUpdate:      "raw_update",
	KindBatchUpdate: "raw_batch_update",
	KindDelete:      "raw_delete",
	KindBatchDelete: "raw_batch_delete",
	KindDeleteRange: "raw_delete_range",
	KindScan:        "raw_scan",
	KindBatchScan:   "raw_batch_scan",
}

// String returns the wire name of the kind, e.g. "raw_get".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "raw_unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Newf("unknown request kind %q", s)
}

// IsWrite reports whether the kind mutates the store.
func (k Kind) IsWrite() bool {
	switch k {
	case KindPut, KindBatchPut, KindUpdate, KindBatchUpdate,
		KindDelete, KindBatchDelete, KindDeleteRange:
		return true
	}
	return false
}

// Request is a fully built raw operation. The set of implementations is
// closed: one struct per Kind.
type Request interface {
	Kind() Kind
	// ColumnFamily returns the scope of the request; nil means the default
	// partition.
	ColumnFamily() *kv.ColumnFamily
	isRequest()
}

// Scope carries the optional column family every request is pinned to.
type Scope struct {
	CF *kv.ColumnFamily `json:"cf,omitempty"`
}

// ColumnFamily returns the scope's column family, or nil.
func (s Scope) ColumnFamily() *kv.ColumnFamily { return s.CF }
func (Scope) isRequest()                       {}

func scopeOf(cf *kv.ColumnFamily) Scope {
	if cf == nil {
		return Scope{}
	}
	c := *cf
	return Scope{CF: &c}
}

// RawGet reads a single key.
type RawGet struct {
	Scope
	Key kv.Key `json:"key"`
}

// RawBatchGet reads several keys; absent keys are left out of the answer.
type RawBatchGet struct {
	Scope
	Keys []kv.Key `json:"keys"`
}

// RawPut writes one pair.
type RawPut struct {
	Scope
	Key   kv.Key   `json:"key"`
	Value kv.Value `json:"value"`
}

// RawBatchPut writes several pairs.
type RawBatchPut struct {
	Scope
	Pairs []kv.KvPair `json:"pairs"`
}

// RawUpdate is an unconditional upsert like RawPut. Its distinct Kind is the
// intent flag handed to the store.
type RawUpdate struct {
	Scope
	Key   kv.Key   `json:"key"`
	Value kv.Value `json:"value"`
}

// RawBatchUpdate is the batch form of RawUpdate.
type RawBatchUpdate struct {
	Scope
	Pairs []kv.KvPair `json:"pairs"`
}

// RawDelete removes one key. Deleting an absent key succeeds.
type RawDelete struct {
	Scope
	Key kv.Key `json:"key"`
}

// RawBatchDelete removes several keys.
type RawBatchDelete struct {
	Scope
	Keys []kv.Key `json:"keys"`
}

// RawDeleteRange removes every key in Range.
type RawDeleteRange struct {
	Scope
	Range kv.BoundRange `json:"range"`
}

// RawScan returns up to Limit pairs of Range in ascending key order. With
// KeyOnly set the values are left empty.
type RawScan struct {
	Scope
	Range   kv.BoundRange `json:"range"`
	Limit   uint32        `json:"limit"`
	KeyOnly bool          `json:"key_only,omitempty"`
}

// RawBatchScan scans each range independently. EachLimit is applied by the
// store per region touched, not per range.
type RawBatchScan struct {
	Scope
	Ranges    []kv.BoundRange `json:"ranges"`
	EachLimit uint32          `json:"each_limit"`
	KeyOnly   bool            `json:"key_only,omitempty"`
}

// Kind implementations, one per request type.
func (*RawGet) Kind() Kind         { return KindGet }
func (*RawBatchGet) Kind() Kind    { return KindBatchGet }
func (*RawPut) Kind() Kind         { return KindPut }
func (*RawBatchPut) Kind() Kind    { return KindBatchPut }
func (*RawUpdate) Kind() Kind      { return KindUpdate }
func (*RawBatchUpdate) Kind() Kind { return KindBatchUpdate }
func (*RawDelete) Kind() Kind      { return KindDelete }
func (*RawBatchDelete) Kind() Kind { return KindBatchDelete }
func (*RawDeleteRange) Kind() Kind { return KindDeleteRange }
func (*RawScan) Kind() Kind        { return KindScan }
func (*RawBatchScan) Kind() Kind   { return KindBatchScan }

// New returns an empty request of the given kind, ready to be decoded into.
func New(kind Kind) (Request, error) {
	switch kind {
	case KindGet:
		return &RawGet{}, nil
	case KindBatchGet:
		return &RawBatchGet{}, nil
	case KindPut:
		return &RawPut{}, nil
	case KindBatchPut:
		return &RawBatchPut{}, nil
	case KindUpdate:
		return &RawUpdate{}, nil
	case KindBatchUpdate:
		return &RawBatchUpdate{}, nil
	case KindDelete:
		return &RawDelete{}, nil
	case KindBatchDelete:
		return &RawBatchDelete{}, nil
	case KindDeleteRange:
		return &RawDeleteRange{}, nil
	case KindScan:
		return &RawScan{}, nil
	case KindBatchScan:
		return &RawBatchScan{}, nil
	}
	return nil, errors.Newf("unhandled request kind %s", kind)
}
