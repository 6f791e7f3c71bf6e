package exec

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/node"
	"github.com/dreamware/rawkv/internal/request"
	"github.com/dreamware/rawkv/internal/shard"
)

// Transport delivers a single-region request to the node serving region.
type Transport interface {
	Send(ctx context.Context, region cluster.RegionInfo, req request.Request) (request.Response, error)
}

// HTTPTransport posts envelopes to a node's /raw endpoint.
type HTTPTransport struct {
	client *cluster.Client
}

func NewHTTPTransport(client *cluster.Client) *HTTPTransport {
	if client == nil {
		client = cluster.DefaultClient
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, region cluster.RegionInfo, req request.Request) (request.Response, error) {
	if region.NodeAddr == "" {
		return nil, &RegionError{RegionID: region.ID, Reason: "region is unassigned"}
	}
	env, err := cluster.EncodeRequest(region, req)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := t.client.PostJSON(ctx, cluster.BaseURL(region.NodeAddr)+"/raw", env, &raw); err != nil {
		return nil, classifyHTTP(ctx, region, err)
	}
	return cluster.DecodeResponse(req.Kind(), raw)
}

func classifyHTTP(ctx context.Context, region cluster.RegionInfo, err error) error {
	var httpErr *cluster.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Body.Code == cluster.CodeRegion || httpErr.StatusCode == http.StatusConflict:
			return &RegionError{RegionID: region.ID, Reason: httpErr.Body.Message, Cause: err}
		case httpErr.Body.Code == cluster.CodeInternal:
			// The node executed the request and failed.
			return &RejectedError{RegionID: region.ID, StatusCode: httpErr.StatusCode, Message: httpErr.Body.Message}
		case httpErr.StatusCode >= http.StatusInternalServerError:
			// No error body, so the node never answered itself.
			return &TransportError{Addr: region.NodeAddr, Cause: err}
		default:
			return &RejectedError{RegionID: region.ID, StatusCode: httpErr.StatusCode, Message: httpErr.Body.Message}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TransportError{Addr: region.NodeAddr, Cause: err}
}

// LocalTransport calls nodes in the same process, keyed by node ID.
type LocalTransport struct {
	nodes map[string]*node.Node
}

func NewLocalTransport(nodes ...*node.Node) *LocalTransport {
	t := &LocalTransport{nodes: make(map[string]*node.Node, len(nodes))}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	return t
}

func (t *LocalTransport) Send(ctx context.Context, region cluster.RegionInfo, req request.Request) (request.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := t.nodes[region.NodeID]
	if !ok {
		return nil, &TransportError{Addr: region.NodeID, Cause: errors.New("unknown node")}
	}
	resp, err := n.Execute(region, req)
	if errors.Is(err, shard.ErrKeyNotInRegion) || errors.Is(err, shard.ErrRegionNotServing) {
		return nil, &RegionError{RegionID: region.ID, Reason: err.Error(), Cause: err}
	}
	return resp, err
}
