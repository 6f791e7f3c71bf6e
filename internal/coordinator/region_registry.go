package coordinator

import (
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/kv"
)

// ErrRegionUnassigned is returned when a key falls in a region no node serves.
var ErrRegionUnassigned = errors.New("region is not assigned to any node")

// RegionAssignment represents the placement of one region on a node.
type RegionAssignment struct {
	StartKey kv.Key `json:"start_key"`         // Inclusive lower bound
	EndKey   kv.Key `json:"end_key,omitempty"` // Exclusive upper bound, empty = +inf
	NodeID   string `json:"node_id"`           // Owning node, empty when unassigned
	RegionID uint64 `json:"region_id"`
}

func (a *RegionAssignment) clone() *RegionAssignment {
	c := *a
	return &c
}

func (a *RegionAssignment) contains(key kv.Key) bool {
	if key.Less(a.StartKey) {
		return false
	}
	return len(a.EndKey) == 0 || key.Less(a.EndKey)
}

// RegionRegistry manages the region map of the cluster.
//
// The keyspace is cut by an ordered list of split keys into len(splits)+1
// contiguous regions with IDs starting at 1. Region i covers
// [splits[i-2], splits[i-1]), the first region starts at the empty key and
// the last one is unbounded. Every change to an assignment bumps Version so
// clients can tell their cached topology is stale.
type RegionRegistry struct {
	regions  []*RegionAssignment // ordered by StartKey
	onChange func(version uint64)
	mu       sync.RWMutex
	version  uint64
}

// NewRegionRegistry creates the region map for the given split keys, which
// must be strictly ascending. All regions start unassigned.
func NewRegionRegistry(splitKeys []kv.Key) *RegionRegistry {
	regions := make([]*RegionAssignment, 0, len(splitKeys)+1)
	start := kv.Key{}
	for i, split := range splitKeys {
		regions = append(regions, &RegionAssignment{
			RegionID: uint64(i + 1),
			StartKey: start,
			EndKey:   split.Clone(),
		})
		start = split.Clone()
	}
	regions = append(regions, &RegionAssignment{
		RegionID: uint64(len(splitKeys) + 1),
		StartKey: start,
	})
	return &RegionRegistry{regions: regions, version: 1}
}

// SetOnChange registers fn to run after every version bump. fn is called
// without the registry lock held.
func (r *RegionRegistry) SetOnChange(fn func(version uint64)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// update runs fn under the write lock and bumps the version when fn
// reports a change.
func (r *RegionRegistry) update(fn func() (bool, error)) error {
	r.mu.Lock()
	changed, err := fn()
	if changed {
		r.version++
	}
	version, hook := r.version, r.onChange
	r.mu.Unlock()

	if changed && hook != nil {
		hook(version)
	}
	return err
}

func (r *RegionRegistry) find(regionID uint64) (*RegionAssignment, error) {
	if regionID == 0 || regionID > uint64(len(r.regions)) {
		return nil, errors.Newf("invalid region ID %d, must be in range [1, %d]", regionID, len(r.regions))
	}
	return r.regions[regionID-1], nil
}

// AssignRegion places a region on a node.
func (r *RegionRegistry) AssignRegion(regionID uint64, nodeID string) error {
	if nodeID == "" {
		return errors.New("node ID cannot be empty")
	}

	return r.update(func() (bool, error) {
		a, err := r.find(regionID)
		if err != nil || a.NodeID == nodeID {
			return false, err
		}
		a.NodeID = nodeID
		return true, nil
	})
}

// RemoveRegion clears the node assignment of a region.
func (r *RegionRegistry) RemoveRegion(regionID uint64) error {
	return r.update(func() (bool, error) {
		a, err := r.find(regionID)
		if err != nil || a.NodeID == "" {
			return false, err
		}
		a.NodeID = ""
		return true, nil
	})
}

// GetAssignment returns a copy of the region's assignment, or nil if the
// region does not exist.
func (r *RegionRegistry) GetAssignment(regionID uint64) *RegionAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, err := r.find(regionID)
	if err != nil {
		return nil
	}
	return a.clone()
}

// LocateKey returns the region containing key.
func (r *RegionRegistry) LocateKey(key kv.Key) (*RegionAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Last region whose StartKey <= key.
	idx, found := slices.BinarySearchFunc(r.regions, key, func(a *RegionAssignment, k kv.Key) int {
		return a.StartKey.Compare(k)
	})
	if !found {
		idx--
	}
	a := r.regions[idx]
	if a.NodeID == "" {
		return a.clone(), errors.Wrapf(ErrRegionUnassigned, "region %d", a.RegionID)
	}
	return a.clone(), nil
}

// RegionsInRange returns the regions overlapping [start, end) in key
// order. An empty end means +inf.
func (r *RegionRegistry) RegionsInRange(start, end kv.Key) []*RegionAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*RegionAssignment
	for _, a := range r.regions {
		if _, _, ok := kv.ClampKeys(start, end, a.StartKey, a.EndKey); ok {
			out = append(out, a.clone())
		}
	}
	return out
}

// GetNodeRegions returns the IDs of the regions placed on nodeID.
func (r *RegionRegistry) GetNodeRegions(nodeID string) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []uint64
	for _, a := range r.regions {
		if a.NodeID == nodeID {
			ids = append(ids, a.RegionID)
		}
	}
	return ids
}

// NumRegions returns the number of regions in the keyspace.
func (r *RegionRegistry) NumRegions() int {
	return len(r.regions)
}

// Version returns the current topology version.
func (r *RegionRegistry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Rebalance spreads every region round-robin over nodes.
func (r *RegionRegistry) Rebalance(nodes []string) error {
	if len(nodes) == 0 {
		return errors.New("cannot rebalance with no nodes")
	}

	return r.update(func() (bool, error) {
		changed := false
		for i, a := range r.regions {
			nodeID := nodes[i%len(nodes)]
			if a.NodeID != nodeID {
				a.NodeID = nodeID
				changed = true
			}
		}
		return changed, nil
	})
}

// AssignUnassigned places every unassigned region round-robin over nodes
// and returns how many moved.
func (r *RegionRegistry) AssignUnassigned(nodes []string) int {
	if len(nodes) == 0 {
		return 0
	}

	n := 0
	_ = r.update(func() (bool, error) {
		for _, a := range r.regions {
			if a.NodeID == "" {
				a.NodeID = nodes[n%len(nodes)]
				n++
			}
		}
		return n > 0, nil
	})
	return n
}

// Evacuate moves every region of nodeID onto the remaining nodes and
// returns the IDs that moved. With no remaining nodes the regions are left
// unassigned.
func (r *RegionRegistry) Evacuate(nodeID string, remaining []string) []uint64 {
	var moved []uint64
	_ = r.update(func() (bool, error) {
		for _, a := range r.regions {
			if a.NodeID != nodeID {
				continue
			}
			if len(remaining) == 0 {
				a.NodeID = ""
			} else {
				a.NodeID = remaining[len(moved)%len(remaining)]
			}
			moved = append(moved, a.RegionID)
		}
		return len(moved) > 0, nil
	})
	return moved
}

// Topology returns the region map as served to clients. addrOf resolves a
// node ID to its address; unassigned regions are included with empty node
// fields.
func (r *RegionRegistry) Topology(addrOf func(nodeID string) string) cluster.TopologyResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := cluster.TopologyResponse{
		Version: r.version,
		Regions: make([]cluster.RegionInfo, 0, len(r.regions)),
	}
	for _, a := range r.regions {
		info := cluster.RegionInfo{
			ID:       a.RegionID,
			StartKey: a.StartKey.Clone(),
			EndKey:   a.EndKey.Clone(),
			NodeID:   a.NodeID,
			Version:  r.version,
		}
		if a.NodeID != "" {
			info.NodeAddr = addrOf(a.NodeID)
		}
		out.Regions = append(out.Regions, info)
	}
	return out
}
