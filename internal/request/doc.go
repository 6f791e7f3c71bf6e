// Package request turns raw key-value operations into dispatchable
// descriptors and turns the executor's raw completions into caller-visible
// results.
//
// # Descriptors
//
// Request is a closed set of structs, one per Kind:
//
//	raw_get          RawGet          → GetResponse
//	raw_batch_get    RawBatchGet     → PairsResponse
//	raw_put          RawPut          → EmptyResponse
//	raw_batch_put    RawBatchPut     → EmptyResponse
//	raw_update       RawUpdate       → EmptyResponse
//	raw_batch_update RawBatchUpdate  → EmptyResponse
//	raw_delete       RawDelete       → EmptyResponse
//	raw_batch_delete RawBatchDelete  → EmptyResponse
//	raw_delete_range RawDeleteRange  → EmptyResponse
//	raw_scan         RawScan         → PairsResponse
//	raw_batch_scan   RawBatchScan    → RangesResponse
//
// Key-only scans are RawScan/RawBatchScan with KeyOnly set. Every
// descriptor carries the column family of the handle that built it.
//
// # Builders
//
// The NewRaw*Request constructors are pure. The two scan builders validate
// their limit against MaxRawKVScanLimit and return a
// *MaxScanLimitExceededError instead of a descriptor when it is exceeded,
// so an oversized scan never reaches the executor.
//
// # Retry policy
//
// RetryOptions pairs a region backoff with a lock backoff. Raw operations
// are always dispatched with DefaultOptimistic(). How a policy is applied is
// up to the executor; Backoff.Start hands it a Retrier to walk.
//
// # Shaping
//
// ShapeScan truncates to the requested limit, ShapeBatchScan flattens the
// per-range buckets in range order, and kv.Keys projects to keys for the
// key-only variants after truncation. Batch gets pass through in executor
// order, which is not the caller's key order.
package request
