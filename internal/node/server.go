package node

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/shard"
	"github.com/dreamware/rawkv/internal/storage"
)

// Handler returns the node's HTTP routes.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/raw", n.handleRaw)
	mux.HandleFunc("/topology", n.handleTopology)
	mux.HandleFunc("/info", n.handleInfo)
	mux.HandleFunc("/region/", n.handleRegionStats)
	return mux
}

func (n *Node) handleRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env cluster.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, errors.Wrap(err, "bad json"))
		return
	}
	req, err := env.DecodeRequest()
	if err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, err)
		return
	}

	resp, err := n.Execute(env.Region, req)
	if err != nil {
		status, code := classify(err)
		cluster.WriteJSON(w, status, cluster.ErrorResponse{
			Code:     code,
			Message:  err.Error(),
			RegionID: env.Region.ID,
		})
		return
	}
	cluster.WriteJSON(w, http.StatusOK, resp)
}

// classify maps an execution error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shard.ErrKeyNotInRegion), errors.Is(err, shard.ErrRegionNotServing):
		return http.StatusConflict, cluster.CodeRegion
	case errors.Is(err, storage.ErrClosed):
		return http.StatusServiceUnavailable, cluster.CodeRegion
	}
	return http.StatusInternalServerError, cluster.CodeInternal
}

// handleTopology accepts the region map pushed by the coordinator.
func (n *Node) handleTopology(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var topo cluster.TopologyResponse
	if err := json.NewDecoder(r.Body).Decode(&topo); err != nil {
		cluster.WriteError(w, http.StatusBadRequest, cluster.CodeRejected, errors.Wrap(err, "bad json"))
		return
	}
	n.ApplyTopology(topo)
	cluster.WriteJSON(w, http.StatusOK, struct {
		Version uint64 `json:"version"`
	}{Version: n.TopologyVersion()})
}

func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	shards := n.Shards()
	infos := make([]shard.ShardInfo, 0, len(shards))
	for _, s := range shards {
		infos = append(infos, s.Info())
	}

	cluster.WriteJSON(w, http.StatusOK, struct {
		NodeID  string             `json:"node_id"`
		Regions []shard.ShardInfo  `json:"regions"`
		Count   int                `json:"region_count"`
		Storage storage.StoreStats `json:"storage"`
	}{
		NodeID:  n.ID,
		Regions: infos,
		Count:   len(infos),
		Storage: n.store.Stats(),
	})
}

// handleRegionStats serves GET /region/{id}/stats.
func (n *Node) handleRegionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/region/")
	idStr, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "stats" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid region ID", http.StatusBadRequest)
		return
	}
	s := n.GetShard(id)
	if s == nil {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}

	info := s.Info()
	cluster.WriteJSON(w, http.StatusOK, struct {
		RegionID uint64               `json:"region_id"`
		Ops      shard.OperationStats `json:"operations"`
		Storage  struct {
			Keys  int `json:"keys"`
			Bytes int `json:"bytes"`
		} `json:"storage"`
	}{
		RegionID: s.ID,
		Ops:      s.GetStats().Ops,
		Storage: struct {
			Keys  int `json:"keys"`
			Bytes int `json:"bytes"`
		}{Keys: info.KeyCount, Bytes: info.ByteSize},
	})
}
