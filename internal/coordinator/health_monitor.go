package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/log"
)

const (
	// maxConcurrentChecks bounds how many nodes are probed at once.
	maxConcurrentChecks = 8
	// unhealthyAfter is the number of failed probes in a row that marks a
	// node unhealthy.
	unhealthyAfter = 3
	probeTimeout   = 2 * time.Second
)

// NodeHealth is the monitor's record for one node.
type NodeHealth struct {
	LastCheck        time.Time
	LastHealthy      time.Time
	NodeID           string
	Status           string // cluster.HealthHealthy, HealthUnhealthy or HealthUnknown
	ConsecutiveFails int
}

// HealthMonitor probes every registered node on a fixed interval. A node
// that fails unhealthyAfter probes in a row is reported once through the
// OnUnhealthy callback so its regions can be moved elsewhere. The first
// successful probe after that makes it healthy again and is reported
// through the OnRecovered callback.
type HealthMonitor struct {
	records     map[string]*NodeHealth
	probe       func(addr string) error
	onUnhealthy func(nodeID string)
	onRecovered func(nodeID string)
	client      *cluster.Client
	stopCtx     context.Context
	stop        context.CancelFunc
	logger      zerolog.Logger
	interval    time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
}

// NewHealthMonitor returns a monitor probing each node's /health endpoint
// every interval.
//
//	monitor := NewHealthMonitor(5 * time.Second)
//	monitor.Start(ctx, server.Nodes)
//	defer monitor.Stop()
func NewHealthMonitor(interval time.Duration) *HealthMonitor {
	stopCtx, stop := context.WithCancel(context.Background())
	return &HealthMonitor{
		records:  make(map[string]*NodeHealth),
		client:   cluster.NewClient(probeTimeout),
		stopCtx:  stopCtx,
		stop:     stop,
		logger:   log.Coordinator.With().Str("module", "health").Logger(),
		interval: interval,
	}
}

// SetOnUnhealthy registers fn to run, on its own goroutine, each time a
// node turns unhealthy.
func (h *HealthMonitor) SetOnUnhealthy(fn func(nodeID string)) {
	h.onUnhealthy = fn
}

// SetOnRecovered registers fn to run, on its own goroutine, each time an
// unhealthy node passes a probe again.
func (h *HealthMonitor) SetOnRecovered(fn func(nodeID string)) {
	h.onRecovered = fn
}

// SetCheckFunction replaces the HTTP probe.
func (h *HealthMonitor) SetCheckFunction(fn func(addr string) error) {
	h.probe = fn
}

// Start launches a goroutine that probes the nodes returned by nodes right
// away and then on every tick, until ctx is done or Stop is called.
func (h *HealthMonitor) Start(ctx context.Context, nodes func() []cluster.NodeInfo) {
	if h.probe == nil {
		h.probe = h.httpProbe
	}
	h.wg.Add(1)
	go h.run(ctx, nodes)
}

func (h *HealthMonitor) run(ctx context.Context, nodes func() []cluster.NodeInfo) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info().Dur("interval", h.interval).Msg("health monitor started")
	for {
		h.checkAllNodes(nodes())
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		case <-h.stopCtx.Done():
			return
		}
	}
}

// Stop ends the probe loop and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.stop()
	h.wg.Wait()
	h.logger.Info().Msg("health monitor stopped")
}

// checkAllNodes probes nodes concurrently and drops records of nodes that
// are no longer registered.
func (h *HealthMonitor) checkAllNodes(nodes []cluster.NodeInfo) {
	seen := make(map[string]struct{}, len(nodes))

	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for _, n := range nodes {
		seen[n.ID] = struct{}{}
		g.Go(func() error {
			h.record(n.ID, h.probe(n.Addr))
			return nil
		})
	}
	_ = g.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.records {
		if _, ok := seen[id]; !ok {
			delete(h.records, id)
			h.logger.Info().Str("node_id", id).Msg("stopped monitoring node")
		}
	}
}

// record folds one probe result into the node's record.
func (h *HealthMonitor) record(nodeID string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	rec, ok := h.records[nodeID]
	if !ok {
		rec = &NodeHealth{NodeID: nodeID, Status: cluster.HealthUnknown, LastHealthy: now}
		h.records[nodeID] = rec
	}
	rec.LastCheck = now

	if err == nil {
		if rec.Status == cluster.HealthUnhealthy {
			h.logger.Info().Str("node_id", nodeID).Msg("node recovered")
			if h.onRecovered != nil {
				go h.onRecovered(nodeID)
			}
		}
		rec.Status = cluster.HealthHealthy
		rec.ConsecutiveFails = 0
		rec.LastHealthy = now
		return
	}

	rec.ConsecutiveFails++
	h.logger.Warn().Err(err).Str("node_id", nodeID).
		Int("attempt", rec.ConsecutiveFails).Msg("health check failed")
	if rec.ConsecutiveFails < unhealthyAfter || rec.Status == cluster.HealthUnhealthy {
		return
	}
	rec.Status = cluster.HealthUnhealthy
	h.logger.Error().Str("node_id", nodeID).Int("failures", rec.ConsecutiveFails).Msg("node marked unhealthy")
	if h.onUnhealthy != nil {
		go h.onUnhealthy(nodeID)
	}
}

// httpProbe GETs /health on addr, which may be a URL or host:port.
func (h *HealthMonitor) httpProbe(addr string) error {
	url := cluster.BaseURL(addr)
	if !strings.HasSuffix(url, "/health") {
		url += "/health"
	}
	ctx, cancel := context.WithTimeout(h.stopCtx, probeTimeout)
	defer cancel()
	return h.client.GetJSON(ctx, url, nil)
}

// GetNodeHealth returns a copy of the node's record, or nil when the node
// is not monitored.
func (h *HealthMonitor) GetNodeHealth(nodeID string) *NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[nodeID]
	if !ok {
		return nil
	}
	c := *rec
	return &c
}

// GetAllNodeHealth returns copies of every record keyed by node ID.
func (h *HealthMonitor) GetAllNodeHealth() map[string]*NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]*NodeHealth, len(h.records))
	for id, rec := range h.records {
		c := *rec
		out[id] = &c
	}
	return out
}

// IsHealthy reports whether the node passed its last probe.
func (h *HealthMonitor) IsHealthy(nodeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[nodeID]
	return ok && rec.Status == cluster.HealthHealthy
}
