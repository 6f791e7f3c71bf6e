package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/log"
)

// pushTimeout bounds a single topology push to one node.
const pushTimeout = time.Second

// Server is the coordinator: it tracks registered nodes, owns the region
// map, serves it to clients and pushes it to nodes whenever it changes.
type Server struct {
	registry *RegionRegistry
	monitor  *HealthMonitor
	client   *cluster.Client
	logger   zerolog.Logger
	nodes    []cluster.NodeInfo
	mu       sync.RWMutex
}

// NewServer creates a coordinator whose keyspace is cut at splitKeys. Nodes
// are probed every healthInterval once Start is called.
func NewServer(splitKeys []kv.Key, healthInterval time.Duration) *Server {
	s := &Server{
		registry: NewRegionRegistry(splitKeys),
		monitor:  NewHealthMonitor(healthInterval),
		client:   cluster.NewClient(pushTimeout),
		logger:   log.Coordinator,
	}
	s.monitor.SetOnUnhealthy(s.MarkNodeUnhealthy)
	s.monitor.SetOnRecovered(s.MarkNodeHealthy)
	s.registry.SetOnChange(func(uint64) { s.PushTopology(context.Background()) })
	return s
}

// Handler returns the coordinator's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/nodes", s.handleListNodes)
	mux.HandleFunc("/regions", s.handleRegions)
	mux.HandleFunc("/regions/assign", s.handleRegionAssign)
	mux.HandleFunc("/regions/locate", s.handleRegionLocate)
	mux.HandleFunc("/regions/rebalance", s.handleRebalance)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Start runs the health monitor in the background until ctx is canceled
// or Stop is called.
func (s *Server) Start(ctx context.Context) {
	s.monitor.Start(ctx, s.Nodes)
}

// Stop shuts down the health monitor.
func (s *Server) Stop() {
	s.monitor.Stop()
}

// Registry exposes the region map.
func (s *Server) Registry() *RegionRegistry {
	return s.registry
}

// Monitor exposes the health monitor.
func (s *Server) Monitor() *HealthMonitor {
	return s.monitor
}

// Nodes returns a snapshot of the registered nodes.
func (s *Server) Nodes() []cluster.NodeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cluster.NodeInfo(nil), s.nodes...)
}

// Topology returns the region map with node addresses filled in.
func (s *Server) Topology() cluster.TopologyResponse {
	s.mu.RLock()
	addrs := make(map[string]string, len(s.nodes))
	for _, n := range s.nodes {
		addrs[n.ID] = n.Addr
	}
	s.mu.RUnlock()
	return s.registry.Topology(func(id string) string { return addrs[id] })
}

// RegisterNode adds or refreshes a node. Regions nobody serves are handed
// out to the live nodes.
func (s *Server) RegisterNode(node cluster.NodeInfo) error {
	if node.ID == "" || node.Addr == "" {
		return errors.New("missing id/addr")
	}
	node.HealthStatus = cluster.HealthUnknown

	s.mu.Lock()
	idx := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == node.ID })
	if idx >= 0 {
		s.nodes[idx] = node
	} else {
		s.nodes = append(s.nodes, node)
	}
	live := s.liveNodesLocked()
	s.mu.Unlock()

	s.logger.Info().Str("node_id", node.ID).Str("addr", node.Addr).Msg("node registered")
	if n := s.registry.AssignUnassigned(live); n > 0 {
		s.logger.Info().Str("node_id", node.ID).Int("regions", n).
			Uint64("version", s.registry.Version()).Msg("assigned regions")
	} else {
		s.PushTopology(context.Background())
	}
	return nil
}

// MarkNodeHealthy clears the unhealthy flag of a recovered node and hands
// it any regions nobody serves.
func (s *Server) MarkNodeHealthy(nodeID string) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == nodeID })
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.nodes[idx].HealthStatus = cluster.HealthHealthy
	s.nodes[idx].LastHealthCheck = time.Now()
	live := s.liveNodesLocked()
	s.mu.Unlock()

	n := s.registry.AssignUnassigned(live)
	if n == 0 {
		s.PushTopology(context.Background())
	}
	s.logger.Info().Str("node_id", nodeID).Int("regions", n).
		Uint64("version", s.registry.Version()).Msg("node healthy again")
}

// PushTopology sends the current region map to every node not marked
// unhealthy. Failures are logged; a node that misses a push still learns
// newer placements from the requests it receives.
func (s *Server) PushTopology(ctx context.Context) {
	topo := s.Topology()

	s.mu.RLock()
	targets := make([]cluster.NodeInfo, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.HealthStatus != cluster.HealthUnhealthy {
			targets = append(targets, n)
		}
	}
	s.mu.RUnlock()

	var g errgroup.Group
	for _, n := range targets {
		g.Go(func() error {
			if err := s.client.PostJSON(ctx, cluster.BaseURL(n.Addr)+"/topology", topo, nil); err != nil {
				s.logger.Warn().Err(err).Str("node_id", n.ID).
					Uint64("version", topo.Version).Msg("topology push failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// MarkNodeUnhealthy flags a node and moves its regions to the remaining
// live nodes. Data held by the node is not copied.
func (s *Server) MarkNodeUnhealthy(nodeID string) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == nodeID })
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.nodes[idx].HealthStatus = cluster.HealthUnhealthy
	s.nodes[idx].LastHealthCheck = time.Now()
	live := s.liveNodesLocked()
	s.mu.Unlock()

	moved := s.registry.Evacuate(nodeID, live)
	s.logger.Warn().Str("node_id", nodeID).Uints64("regions", moved).
		Uint64("version", s.registry.Version()).Msg("node unhealthy, regions moved")
}

func (s *Server) liveNodesLocked() []string {
	ids := make([]string, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.HealthStatus != cluster.HealthUnhealthy {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, errors.Wrap(err, "bad json"))
		return
	}
	if err := s.RegisterNode(req.Node); err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.Nodes()
	for i := range nodes {
		nodes[i].Regions = s.registry.GetNodeRegions(nodes[i].ID)
		if h := s.monitor.GetNodeHealth(nodes[i].ID); h != nil {
			nodes[i].HealthStatus = h.Status
			nodes[i].LastHealthCheck = h.LastCheck
		}
	}
	cluster.WriteJSON(w, http.StatusOK, struct {
		Nodes []cluster.NodeInfo `json:"nodes"`
	}{Nodes: nodes})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, s.Topology())
}

func (s *Server) handleRegionAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cluster.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, errors.Wrap(err, "bad json"))
		return
	}

	var err error
	if req.NodeID == "" {
		err = s.registry.RemoveRegion(req.RegionID)
	} else {
		s.mu.RLock()
		known := slices.ContainsFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == req.NodeID })
		s.mu.RUnlock()
		if !known {
			cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, errors.Newf("unknown node %q", req.NodeID))
			return
		}
		err = s.registry.AssignRegion(req.RegionID, req.NodeID)
	}
	if err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, err)
		return
	}
	s.logger.Info().Uint64("region_id", req.RegionID).Str("node_id", req.NodeID).
		Uint64("version", s.registry.Version()).Msg("region assigned")
	cluster.WriteJSON(w, http.StatusOK, s.registry.GetAssignment(req.RegionID))
}

// handleRegionLocate serves GET /regions/locate?key=..., answering with the
// region that holds key.
func (s *Server) handleRegionLocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a, err := s.registry.LocateKey(kv.Key(r.URL.Query().Get("key")))
	if err != nil {
		cluster.WriteJSON(w, http.StatusConflict, cluster.ErrorResponse{
			Code:     cluster.CodeRegion,
			Message:  err.Error(),
			RegionID: a.RegionID,
		})
		return
	}
	cluster.WriteJSON(w, http.StatusOK, s.regionInfo(a))
}

// handleRebalance spreads every region over the live nodes.
func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	live := s.liveNodesLocked()
	s.mu.RUnlock()

	if err := s.registry.Rebalance(live); err != nil {
		cluster.WriteError(w, http.StatusConflict, cluster.CodeRejected, err)
		return
	}
	s.logger.Info().Strs("nodes", live).Uint64("version", s.registry.Version()).Msg("regions rebalanced")
	cluster.WriteJSON(w, http.StatusOK, s.Topology())
}

func (s *Server) regionInfo(a *RegionAssignment) cluster.RegionInfo {
	info := cluster.RegionInfo{
		ID:       a.RegionID,
		StartKey: a.StartKey,
		EndKey:   a.EndKey,
		NodeID:   a.NodeID,
		Version:  s.registry.Version(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == a.NodeID }); idx >= 0 {
		info.NodeAddr = s.nodes[idx].Addr
	}
	return info
}
