package request

import (
	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
)

// TruncatePairs trims pairs to at most limit entries. It runs unconditionally
// after every scan; pairs already within the limit come back untouched.
func TruncatePairs(pairs []kv.KvPair, limit uint32) []kv.KvPair {
	if uint64(len(pairs)) > uint64(limit) {
		return pairs[:limit]
	}
	return pairs
}

// FlattenRanges concatenates per-range batch scan results in range order.
func FlattenRanges(ranges [][]kv.KvPair) []kv.KvPair {
	n := 0
	for _, r := range ranges {
		n += len(r)
	}
	out := make([]kv.KvPair, 0, n)
	for _, r := range ranges {
		out = append(out, r...)
	}
	return out
}

// ShapeGet unpacks a RawGet completion. Absence is (nil, false, nil).
func ShapeGet(resp Response) (kv.Value, bool, error) {
	r, ok := resp.(*GetResponse)
	if !ok {
		return nil, false, unexpected(KindGet, resp)
	}
	if !r.Found {
		return nil, false, nil
	}
	return r.Value, true, nil
}

// ShapeBatchGet passes the delegate's pairs through in the order it produced
// them.
func ShapeBatchGet(resp Response) ([]kv.KvPair, error) {
	r, ok := resp.(*PairsResponse)
	if !ok {
		return nil, unexpected(KindBatchGet, resp)
	}
	return nonNil(r.Pairs), nil
}

// ShapeScan truncates a scan completion to limit.
func ShapeScan(resp Response, limit uint32) ([]kv.KvPair, error) {
	r, ok := resp.(*PairsResponse)
	if !ok {
		return nil, unexpected(KindScan, resp)
	}
	return TruncatePairs(nonNil(r.Pairs), limit), nil
}

// ShapeBatchScan flattens a batch scan completion. The per-range totals are
// left as the store produced them, which may exceed the requested each-limit
// when a range spans several regions.
func ShapeBatchScan(resp Response) ([]kv.KvPair, error) {
	r, ok := resp.(*RangesResponse)
	if !ok {
		return nil, unexpected(KindBatchScan, resp)
	}
	return FlattenRanges(r.Ranges), nil
}

// ShapeWrite checks that a write completed with an empty response.
func ShapeWrite(kind Kind, resp Response) error {
	if _, ok := resp.(*EmptyResponse); !ok {
		return unexpected(kind, resp)
	}
	return nil
}

func nonNil(pairs []kv.KvPair) []kv.KvPair {
	if pairs == nil {
		return []kv.KvPair{}
	}
	return pairs
}

func unexpected(kind Kind, resp Response) error {
	return errors.AssertionFailedf("unexpected response %T for %s", resp, kind)
}
