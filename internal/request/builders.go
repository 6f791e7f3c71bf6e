package request

import (
	"github.com/dreamware/rawkv/internal/kv"
)

// MaxRawKVScanLimit caps the limit of a single scan or the per-range limit of
// a batch scan.
const MaxRawKVScanLimit uint32 = 10240

// CheckScanLimit returns a *MaxScanLimitExceededError when limit is above
// MaxRawKVScanLimit.
func CheckScanLimit(limit uint32) error {
	if limit > MaxRawKVScanLimit {
		return &MaxScanLimitExceededError{Limit: limit, MaxLimit: MaxRawKVScanLimit}
	}
	return nil
}

// NewRawGetRequest reads key in cf, or in the default partition when cf is
// nil. The builders copy cf so later changes to it do not leak in.
func NewRawGetRequest(key kv.Key, cf *kv.ColumnFamily) *RawGet {
	return &RawGet{Scope: scopeOf(cf), Key: key}
}

// NewRawBatchGetRequest keeps duplicates; the store answers each present key
// once.
func NewRawBatchGetRequest(keys []kv.Key, cf *kv.ColumnFamily) *RawBatchGet {
	return &RawBatchGet{Scope: scopeOf(cf), Keys: append([]kv.Key{}, keys...)}
}

// NewRawPutRequest writes value under key.
func NewRawPutRequest(key kv.Key, value kv.Value, cf *kv.ColumnFamily) *RawPut {
	return &RawPut{Scope: scopeOf(cf), Key: key, Value: value}
}

// NewRawBatchPutRequest keeps pair order, so a key repeated in the batch ends
// up holding its last value.
func NewRawBatchPutRequest(pairs []kv.KvPair, cf *kv.ColumnFamily) *RawBatchPut {
	return &RawBatchPut{Scope: scopeOf(cf), Pairs: append([]kv.KvPair{}, pairs...)}
}

// NewRawUpdateRequest upserts value under key.
func NewRawUpdateRequest(key kv.Key, value kv.Value, cf *kv.ColumnFamily) *RawUpdate {
	return &RawUpdate{Scope: scopeOf(cf), Key: key, Value: value}
}

// NewRawBatchUpdateRequest copies pairs and keeps their order.
func NewRawBatchUpdateRequest(pairs []kv.KvPair, cf *kv.ColumnFamily) *RawBatchUpdate {
	return &RawBatchUpdate{Scope: scopeOf(cf), Pairs: append([]kv.KvPair{}, pairs...)}
}

// NewRawDeleteRequest removes key.
func NewRawDeleteRequest(key kv.Key, cf *kv.ColumnFamily) *RawDelete {
	return &RawDelete{Scope: scopeOf(cf), Key: key}
}

// NewRawBatchDeleteRequest copies keys.
func NewRawBatchDeleteRequest(keys []kv.Key, cf *kv.ColumnFamily) *RawBatchDelete {
	return &RawBatchDelete{Scope: scopeOf(cf), Keys: append([]kv.Key{}, keys...)}
}

// NewRawDeleteRangeRequest removes every key in r.
func NewRawDeleteRangeRequest(r kv.BoundRange, cf *kv.ColumnFamily) *RawDeleteRange {
	return &RawDeleteRange{Scope: scopeOf(cf), Range: r}
}

// NewRawScanRequest fails before anything is built when limit exceeds
// MaxRawKVScanLimit.
func NewRawScanRequest(r kv.BoundRange, limit uint32, keyOnly bool, cf *kv.ColumnFamily) (*RawScan, error) {
	if err := CheckScanLimit(limit); err != nil {
		return nil, err
	}
	return &RawScan{Scope: scopeOf(cf), Range: r, Limit: limit, KeyOnly: keyOnly}, nil
}

// NewRawBatchScanRequest validates eachLimit the same way as a single scan.
func NewRawBatchScanRequest(ranges []kv.BoundRange, eachLimit uint32, keyOnly bool, cf *kv.ColumnFamily) (*RawBatchScan, error) {
	if err := CheckScanLimit(eachLimit); err != nil {
		return nil, err
	}
	return &RawBatchScan{
		Scope:     scopeOf(cf),
		Ranges:    append([]kv.BoundRange{}, ranges...),
		EachLimit: eachLimit,
		KeyOnly:   keyOnly,
	}, nil
}
