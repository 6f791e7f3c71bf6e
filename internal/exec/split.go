package exec

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/request"
)

// subRequest is the part of a request bound for one region.
type subRequest struct {
	req    request.Request
	region cluster.RegionInfo
	// buckets maps each range of a batch scan sub-request back to the
	// caller's range index.
	buckets []int
}

// keyGroups collects per-region items, remembering regions in the order
// they were first seen.
type keyGroups[T any] struct {
	index   map[uint64]int
	regions []cluster.RegionInfo
	items   [][]T
}

func newKeyGroups[T any]() *keyGroups[T] {
	return &keyGroups[T]{index: make(map[uint64]int)}
}

func (g *keyGroups[T]) add(region cluster.RegionInfo, item T) {
	i, ok := g.index[region.ID]
	if !ok {
		i = len(g.regions)
		g.index[region.ID] = i
		g.regions = append(g.regions, region)
		g.items = append(g.items, nil)
	}
	g.items[i] = append(g.items[i], item)
}

func groupKeys(cache *RegionCache, keys []kv.Key) (*keyGroups[kv.Key], error) {
	g := newKeyGroups[kv.Key]()
	for _, k := range keys {
		r, err := cache.Locate(k)
		if err != nil {
			return nil, err
		}
		g.add(r, k)
	}
	return g, nil
}

func groupPairs(cache *RegionCache, pairs []kv.KvPair) (*keyGroups[kv.KvPair], error) {
	g := newKeyGroups[kv.KvPair]()
	for _, p := range pairs {
		r, err := cache.Locate(p.Key)
		if err != nil {
			return nil, err
		}
		g.add(r, p)
	}
	return g, nil
}

func single(cache *RegionCache, key kv.Key, req request.Request) ([]subRequest, error) {
	r, err := cache.Locate(key)
	if err != nil {
		return nil, err
	}
	return []subRequest{{region: r, req: req}}, nil
}

// rangeSplit clamps r to every region it overlaps and builds one
// sub-request per region with build.
func rangeSplit(cache *RegionCache, r kv.BoundRange, build func(kv.BoundRange) request.Request) ([]subRequest, error) {
	start, end := r.IntoKeys()
	regions, err := cache.RegionsInRange(start, end)
	if err != nil {
		return nil, err
	}
	subs := make([]subRequest, 0, len(regions))
	for _, region := range regions {
		s, e, ok := kv.ClampKeys(start, end, region.StartKey, region.EndKey)
		if !ok {
			continue
		}
		subs = append(subs, subRequest{region: region, req: build(kv.RangeFromKeys(s, e))})
	}
	return subs, nil
}

// split breaks req into single-region sub-requests ordered by region start
// key. Within a region, keys keep the caller's order.
func split(cache *RegionCache, req request.Request) ([]subRequest, error) {
	var subs []subRequest
	var err error

	switch r := req.(type) {
	case *request.RawGet:
		return single(cache, r.Key, r)
	case *request.RawPut:
		return single(cache, r.Key, r)
	case *request.RawUpdate:
		return single(cache, r.Key, r)
	case *request.RawDelete:
		return single(cache, r.Key, r)

	case *request.RawBatchGet:
		g, err := groupKeys(cache, r.Keys)
		if err != nil {
			return nil, err
		}
		for i, region := range g.regions {
			subs = append(subs, subRequest{region: region, req: &request.RawBatchGet{Scope: r.Scope, Keys: g.items[i]}})
		}

	case *request.RawBatchDelete:
		g, err := groupKeys(cache, r.Keys)
		if err != nil {
			return nil, err
		}
		for i, region := range g.regions {
			subs = append(subs, subRequest{region: region, req: &request.RawBatchDelete{Scope: r.Scope, Keys: g.items[i]}})
		}

	case *request.RawBatchPut:
		g, err := groupPairs(cache, r.Pairs)
		if err != nil {
			return nil, err
		}
		for i, region := range g.regions {
			subs = append(subs, subRequest{region: region, req: &request.RawBatchPut{Scope: r.Scope, Pairs: g.items[i]}})
		}

	case *request.RawBatchUpdate:
		g, err := groupPairs(cache, r.Pairs)
		if err != nil {
			return nil, err
		}
		for i, region := range g.regions {
			subs = append(subs, subRequest{region: region, req: &request.RawBatchUpdate{Scope: r.Scope, Pairs: g.items[i]}})
		}

	case *request.RawDeleteRange:
		subs, err = rangeSplit(cache, r.Range, func(br kv.BoundRange) request.Request {
			return &request.RawDeleteRange{Scope: r.Scope, Range: br}
		})

	case *request.RawScan:
		// Every region gets the full limit; the caller truncates.
		subs, err = rangeSplit(cache, r.Range, func(br kv.BoundRange) request.Request {
			return &request.RawScan{Scope: r.Scope, Range: br, Limit: r.Limit, KeyOnly: r.KeyOnly}
		})

	case *request.RawBatchScan:
		subs, err = splitBatchScan(cache, r)

	default:
		return nil, errors.AssertionFailedf("unhandled request %T", req)
	}
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(subs, func(a, b subRequest) int {
		return a.region.StartKey.Compare(b.region.StartKey)
	})
	return subs, nil
}

// splitBatchScan sends each region the pieces of every caller range that
// fall inside it. EachLimit applies per region, so one caller range can
// collect more than EachLimit pairs in total.
func splitBatchScan(cache *RegionCache, r *request.RawBatchScan) ([]subRequest, error) {
	byRegion := map[uint64]*subRequest{}
	var order []uint64

	for idx, br := range r.Ranges {
		start, end := br.IntoKeys()
		regions, err := cache.RegionsInRange(start, end)
		if err != nil {
			return nil, err
		}
		for _, region := range regions {
			s, e, ok := kv.ClampKeys(start, end, region.StartKey, region.EndKey)
			if !ok {
				continue
			}
			sub, exists := byRegion[region.ID]
			if !exists {
				sub = &subRequest{
					region: region,
					req:    &request.RawBatchScan{Scope: r.Scope, EachLimit: r.EachLimit, KeyOnly: r.KeyOnly},
				}
				byRegion[region.ID] = sub
				order = append(order, region.ID)
			}
			bs := sub.req.(*request.RawBatchScan)
			bs.Ranges = append(bs.Ranges, kv.RangeFromKeys(s, e))
			sub.buckets = append(sub.buckets, idx)
		}
	}

	subs := make([]subRequest, 0, len(order))
	for _, id := range order {
		subs = append(subs, *byRegion[id])
	}
	return subs, nil
}

// merge combines per-region responses, given in sub-request order, into
// the response for the original request.
func merge(req request.Request, subs []subRequest, resps []request.Response) (request.Response, error) {
	switch r := req.(type) {
	case *request.RawGet:
		if len(resps) == 0 {
			return &request.GetResponse{}, nil
		}
		return resps[0], nil

	case *request.RawBatchGet, *request.RawScan:
		out := &request.PairsResponse{Pairs: []kv.KvPair{}}
		for _, resp := range resps {
			pr, ok := resp.(*request.PairsResponse)
			if !ok {
				return nil, errors.AssertionFailedf("unexpected response %T for %s", resp, req.Kind())
			}
			out.Pairs = append(out.Pairs, pr.Pairs...)
		}
		return out, nil

	case *request.RawBatchScan:
		out := &request.RangesResponse{Ranges: make([][]kv.KvPair, len(r.Ranges))}
		for i := range out.Ranges {
			out.Ranges[i] = []kv.KvPair{}
		}
		for i, resp := range resps {
			rr, ok := resp.(*request.RangesResponse)
			if !ok || len(rr.Ranges) != len(subs[i].buckets) {
				return nil, errors.AssertionFailedf("unexpected response %T for %s", resp, req.Kind())
			}
			for j, pairs := range rr.Ranges {
				b := subs[i].buckets[j]
				out.Ranges[b] = append(out.Ranges[b], pairs...)
			}
		}
		return out, nil
	}

	if req.Kind().IsWrite() {
		return &request.EmptyResponse{}, nil
	}
	return nil, errors.AssertionFailedf("unhandled request %T", req)
}
