package exec

import (
	"sync"

	"github.com/google/btree"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/kv"
)

// RegionCache is the client's copy of the region map, ordered by start key.
type RegionCache struct {
	tree    *btree.BTreeG[cluster.RegionInfo]
	mu      sync.RWMutex
	version uint64
}

func regionLess(a, b cluster.RegionInfo) bool {
	return a.StartKey.Less(b.StartKey)
}

func NewRegionCache() *RegionCache {
	return &RegionCache{tree: btree.NewG(8, regionLess)}
}

// Update replaces the cached map with topo.
func (c *RegionCache) Update(topo cluster.TopologyResponse) {
	tree := btree.NewG(8, regionLess)
	for _, r := range topo.Regions {
		if r.Version == 0 {
			r.Version = topo.Version
		}
		tree.ReplaceOrInsert(r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree = tree
	c.version = topo.Version
}

// Version returns the version of the cached map.
func (c *RegionCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Regions returns every cached region in key order.
func (c *RegionCache) Regions() []cluster.RegionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]cluster.RegionInfo, 0, c.tree.Len())
	c.tree.Ascend(func(r cluster.RegionInfo) bool {
		out = append(out, r)
		return true
	})
	return out
}

func (c *RegionCache) floor(key kv.Key) (cluster.RegionInfo, bool) {
	var found cluster.RegionInfo
	ok := false
	c.tree.DescendLessOrEqual(cluster.RegionInfo{StartKey: key}, func(r cluster.RegionInfo) bool {
		found, ok = r, true
		return false
	})
	return found, ok
}

// Locate returns the region serving key.
func (c *RegionCache) Locate(key kv.Key) (cluster.RegionInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.floor(key)
	if !ok || !r.Contains(key) {
		return cluster.RegionInfo{}, &RegionError{Reason: "no region for key " + key.String()}
	}
	if r.NodeAddr == "" {
		return cluster.RegionInfo{}, &RegionError{RegionID: r.ID, Reason: "region is unassigned"}
	}
	return r, nil
}

// RegionsInRange returns the regions overlapping [start, end) in key
// order. An empty end means +inf; an empty or inverted range overlaps
// nothing.
func (c *RegionCache) RegionsInRange(start, end kv.Key) ([]cluster.RegionInfo, error) {
	if len(end) > 0 && start.Compare(end) >= 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	first, ok := c.floor(start)
	if !ok {
		return nil, &RegionError{Reason: "no region for key " + start.String()}
	}

	var out []cluster.RegionInfo
	var err error
	c.tree.AscendGreaterOrEqual(first, func(r cluster.RegionInfo) bool {
		if len(end) > 0 && r.StartKey.Compare(end) >= 0 {
			return false
		}
		if r.NodeAddr == "" {
			err = &RegionError{RegionID: r.ID, Reason: "region is unassigned"}
			return false
		}
		out = append(out, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
