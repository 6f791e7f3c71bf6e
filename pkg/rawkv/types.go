package rawkv

import (
	"github.com/dreamware/rawkv/internal/exec"
	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/request"
)

type (
	Key          = kv.Key
	Value        = kv.Value
	KvPair       = kv.KvPair
	BoundRange   = kv.BoundRange
	ColumnFamily = kv.ColumnFamily

	MaxScanLimitExceededError = request.MaxScanLimitExceededError
	RegionError               = exec.RegionError
	RejectedError             = exec.RejectedError
	TransportError            = exec.TransportError
	ConnectError              = exec.ConnectError
)

const (
	CFDefault = kv.CFDefault
	CFLock    = kv.CFLock
	CFWrite   = kv.CFWrite

	MaxRawKVScanLimit = request.MaxRawKVScanLimit
)

// Range constructors.
var (
	NewRange            = kv.NewRange
	RangeInclusive      = kv.RangeInclusive
	RangeExclusiveStart = kv.RangeExclusiveStart
	RangeFrom           = kv.RangeFrom
	RangeTo             = kv.RangeTo
	RangeToInclusive    = kv.RangeToInclusive
	FullRange           = kv.FullRange
)

// IsRetryable reports whether err was a region or transport failure that
// outlasted the client's retries.
func IsRetryable(err error) bool {
	return exec.IsRetryable(err)
}
