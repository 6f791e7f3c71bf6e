package exec

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/log"
	"github.com/dreamware/rawkv/internal/request"
)

// Executor dispatches requests to the cluster.
type Executor interface {
	Execute(ctx context.Context, req request.Request, opts request.RetryOptions) (request.Response, error)
	Close() error
}

// TopologySource reports the current region map.
type TopologySource interface {
	Topology(ctx context.Context) (cluster.TopologyResponse, error)
}

// TopologyFunc adapts a function to TopologySource.
type TopologyFunc func(ctx context.Context) (cluster.TopologyResponse, error)

func (f TopologyFunc) Topology(ctx context.Context) (cluster.TopologyResponse, error) {
	return f(ctx)
}

// HTTPDiscovery fetches the region map from the first coordinator that
// answers GET /regions.
type HTTPDiscovery struct {
	client    *cluster.Client
	endpoints []string
}

func NewHTTPDiscovery(endpoints []string, client *cluster.Client) *HTTPDiscovery {
	if client == nil {
		client = cluster.DefaultClient
	}
	eps := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		eps = append(eps, cluster.BaseURL(ep))
	}
	return &HTTPDiscovery{client: client, endpoints: eps}
}

func (d *HTTPDiscovery) Topology(ctx context.Context) (cluster.TopologyResponse, error) {
	connErr := &ConnectError{Endpoints: d.endpoints}
	for _, ep := range d.endpoints {
		var topo cluster.TopologyResponse
		err := d.client.GetJSON(ctx, ep+"/regions", &topo)
		if err == nil {
			return topo, nil
		}
		if ctx.Err() != nil {
			return cluster.TopologyResponse{}, ctx.Err()
		}
		connErr.Causes = append(connErr.Causes, err)
	}
	return cluster.TopologyResponse{}, connErr
}

// Options configures Connect.
type Options struct {
	// Client is used for both discovery and node requests. Nil means
	// cluster.DefaultClient.
	Client *cluster.Client
	// Transport overrides the HTTP transport.
	Transport Transport
	Logger    *zerolog.Logger
}

// ClusterExecutor splits requests by region, sends the pieces in parallel
// and merges the results. Region and transport failures trigger a topology
// refresh and a retry of the whole request, paced by the caller's backoff.
//
// A ClusterExecutor is safe for concurrent use.
type ClusterExecutor struct {
	source    TopologySource
	transport Transport
	cache     *RegionCache
	client    *cluster.Client
	logger    zerolog.Logger
}

// Connect discovers the cluster through endpoints and returns an executor
// ready to serve requests.
func Connect(ctx context.Context, endpoints []string, opts Options) (*ClusterExecutor, error) {
	if len(endpoints) == 0 {
		return nil, &ConnectError{}
	}
	client := opts.Client
	if client == nil {
		client = cluster.DefaultClient
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(client)
	}
	e, err := NewClusterExecutor(ctx, NewHTTPDiscovery(endpoints, client), transport, opts.Logger)
	if err != nil {
		return nil, err
	}
	e.client = client
	return e, nil
}

// NewClusterExecutor loads the initial topology from source.
func NewClusterExecutor(ctx context.Context, source TopologySource, transport Transport, logger *zerolog.Logger) (*ClusterExecutor, error) {
	l := log.Exec
	if logger != nil {
		l = logger.With().Str("component", "exec").Logger()
	}
	e := &ClusterExecutor{
		source:    source,
		transport: transport,
		cache:     NewRegionCache(),
		logger:    l,
	}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Refresh reloads the region map.
func (e *ClusterExecutor) Refresh(ctx context.Context) error {
	topo, err := e.source.Topology(ctx)
	if err != nil {
		return err
	}
	e.cache.Update(topo)
	e.logger.Debug().
		Uint64("version", topo.Version).
		Int("regions", len(topo.Regions)).
		Msg("topology refreshed")
	return nil
}

// Regions returns the cached region map.
func (e *ClusterExecutor) Regions() *RegionCache {
	return e.cache
}

func (e *ClusterExecutor) Execute(ctx context.Context, req request.Request, opts request.RetryOptions) (request.Response, error) {
	retrier := opts.RegionBackoff.Start()
	for {
		resp, err := e.dispatch(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		delay, ok := retrier.Next()
		if !ok {
			return nil, err
		}
		e.logger.Debug().
			Err(err).
			Str("kind", req.Kind().String()).
			Int("attempt", retrier.Attempts()).
			Dur("delay", delay).
			Msg("retrying request")

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		if rerr := e.Refresh(ctx); rerr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn().Err(rerr).Msg("topology refresh failed")
		}
	}
}

func (e *ClusterExecutor) dispatch(ctx context.Context, req request.Request) (request.Response, error) {
	subs, err := split(e.cache, req)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return merge(req, nil, nil)
	}

	resps := make([]request.Response, len(subs))
	if len(subs) == 1 {
		resps[0], err = e.transport.Send(ctx, subs[0].region, subs[0].req)
		if err != nil {
			return nil, err
		}
		return merge(req, subs, resps)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		g.Go(func() error {
			resp, err := e.transport.Send(gctx, sub.region, sub.req)
			if err != nil {
				return errors.WithDetailf(err, "region %d", sub.region.ID)
			}
			resps[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merge(req, subs, resps)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases idle connections held by the executor's HTTP client.
func (e *ClusterExecutor) Close() error {
	if e.client != nil && e.client.HTTP != nil {
		e.client.HTTP.CloseIdleConnections()
	}
	return nil
}
