package node

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/log"
	"github.com/dreamware/rawkv/internal/request"
	"github.com/dreamware/rawkv/internal/shard"
	"github.com/dreamware/rawkv/internal/storage"
)

// Registration retry policy.
const (
	registerAttempts = 10
	registerDelay    = 400 * time.Millisecond
)

// Node is a storage node. It hosts one shard per region it has been asked
// to serve, all backed by a single store.
//
// Once the coordinator has pushed a topology, the node only serves the
// regions that topology places on it. A request carrying an older
// placement is answered with shard.ErrRegionNotServing so the client
// refreshes; one carrying a newer placement is trusted.
type Node struct {
	store   storage.Store
	shards  map[uint64]*shard.Shard
	owned   map[uint64]cluster.RegionInfo
	logger  zerolog.Logger
	ID      string
	version uint64
	mu      sync.RWMutex
}

// NewNode creates a node with no regions. Regions are created on demand
// the first time a request for them arrives.
func NewNode(id string, store storage.Store) *Node {
	return &Node{
		ID:     id,
		store:  store,
		shards: make(map[uint64]*shard.Shard),
		owned:  make(map[uint64]cluster.RegionInfo),
		logger: log.Node.With().Str("node_id", id).Logger(),
	}
}

// AddShard registers a shard with the node, replacing any shard with the
// same ID.
func (n *Node) AddShard(s *shard.Shard) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shards[s.ID] = s
}

// GetShard returns the shard for a region, or nil.
func (n *Node) GetShard(id uint64) *shard.Shard {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.shards[id]
}

// Shards returns every shard hosted by the node.
func (n *Node) Shards() []*shard.Shard {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*shard.Shard, 0, len(n.shards))
	for _, s := range n.shards {
		out = append(out, s)
	}
	return out
}

// EnsureRegion returns the shard serving region, creating it if needed and
// moving its bounds if the region changed shape.
func (n *Node) EnsureRegion(region cluster.RegionInfo) *shard.Shard {
	if s := n.GetShard(region.ID); s != nil {
		start, end := s.Bounds()
		if !start.Equal(region.StartKey) || !end.Equal(region.EndKey) {
			s.SetBounds(region.StartKey, region.EndKey)
		}
		return s
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.shards[region.ID]; ok {
		return s
	}
	n.logger.Info().Uint64("region_id", region.ID).
		Stringer("start", region.StartKey).Stringer("end", region.EndKey).
		Msg("creating region on demand")
	s := shard.NewShard(region.ID, region.StartKey, region.EndKey, n.store)
	n.shards[region.ID] = s
	return s
}

// ApplyTopology records which regions topo places on this node. Topologies
// not newer than the one already applied are ignored. It reports whether
// topo was applied.
func (n *Node) ApplyTopology(topo cluster.TopologyResponse) bool {
	owned := make(map[uint64]cluster.RegionInfo)
	for _, r := range topo.Regions {
		if r.NodeID == n.ID {
			owned[r.ID] = r
		}
	}

	n.mu.Lock()
	if topo.Version <= n.version {
		n.mu.Unlock()
		return false
	}
	n.owned = owned
	n.version = topo.Version
	n.mu.Unlock()

	n.logger.Info().Uint64("version", topo.Version).Int("regions", len(owned)).Msg("topology applied")
	return true
}

// TopologyVersion returns the version of the last applied topology, or 0.
func (n *Node) TopologyVersion() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// Owned returns the placement of region under the last applied topology.
func (n *Node) Owned(regionID uint64) (cluster.RegionInfo, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.owned[regionID]
	return r, ok
}

// checkPlacement resolves the bounds this node serves region with, or
// fails with shard.ErrRegionNotServing.
func (n *Node) checkPlacement(region cluster.RegionInfo) (cluster.RegionInfo, error) {
	if region.NodeID != "" && region.NodeID != n.ID {
		return region, errors.Wrapf(shard.ErrRegionNotServing, "region %d belongs to %s", region.ID, region.NodeID)
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.version == 0 || region.Version > n.version {
		return region, nil
	}
	own, ok := n.owned[region.ID]
	if !ok {
		return region, errors.Wrapf(shard.ErrRegionNotServing,
			"region %d is not served here at version %d", region.ID, n.version)
	}
	if !own.StartKey.Equal(region.StartKey) || !own.EndKey.Equal(region.EndKey) {
		return region, errors.Wrapf(shard.ErrRegionNotServing,
			"region %d is [%s, %s) at version %d", region.ID, own.StartKey, own.EndKey, n.version)
	}
	return own, nil
}

// Execute runs req against region.
func (n *Node) Execute(region cluster.RegionInfo, req request.Request) (request.Response, error) {
	region, err := n.checkPlacement(region)
	if err != nil {
		n.logger.Debug().Err(err).Uint64("region_id", region.ID).Msg("rejected stale placement")
		return nil, err
	}
	s := n.EnsureRegion(region)
	resp, err := s.Execute(req)
	if err != nil {
		n.logger.Debug().Err(err).Uint64("region_id", region.ID).
			Stringer("kind", req.Kind()).Msg("request failed")
	}
	return resp, err
}

// Close closes the node's store.
func (n *Node) Close() error {
	return n.store.Close()
}

// Register announces the node to the coordinator at coord, retrying a few
// times while the coordinator starts up.
func (n *Node) Register(ctx context.Context, coord, addr string) error {
	body := cluster.RegisterRequest{Node: cluster.NodeInfo{ID: n.ID, Addr: addr}}
	var lastErr error

	for i := 0; i < registerAttempts; i++ {
		lastErr = cluster.PostJSON(ctx, coord+"/register", body, nil)
		if lastErr == nil {
			n.logger.Info().Str("coordinator", coord).Msg("registered with coordinator")
			return nil
		}
		n.logger.Warn().Err(lastErr).Int("attempt", i+1).Msg("register retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(registerDelay):
		}
	}
	return errors.Wrap(lastErr, "failed to register with coordinator")
}
