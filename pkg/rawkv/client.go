package rawkv

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/exec"
	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/log"
	"github.com/dreamware/rawkv/internal/request"
)

// Config tunes how a Client talks to the cluster.
type Config struct {
	// HTTPClient, when set, is used as is and Timeout is ignored.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	// Timeout bounds every HTTP request to a coordinator or node.
	Timeout time.Duration
}

// DefaultConfig returns a Config with a 5 second request timeout.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second}
}

// Client is a handle on a raw key-value cluster. A Client holds no per-call
// state; copies and handles returned by WithCF share one executor and may
// be used concurrently.
type Client struct {
	exec   exec.Executor
	cf     *kv.ColumnFamily
	logger zerolog.Logger
}

// Connect discovers the cluster through the given coordinator endpoints.
// At least one endpoint must answer.
func Connect(ctx context.Context, endpoints []string) (*Client, error) {
	return ConnectWithConfig(ctx, endpoints, DefaultConfig())
}

// ConnectWithConfig is Connect with explicit HTTP and logging settings.
func ConnectWithConfig(ctx context.Context, endpoints []string, cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	e, err := exec.Connect(ctx, endpoints, exec.Options{
		Client: &cluster.Client{HTTP: httpClient},
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	logger := log.Client
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "client").Logger()
	}
	logger.Debug().Strs("endpoints", endpoints).
		Int("regions", len(e.Regions().Regions())).
		Msg("connected")
	return newClient(e, logger), nil
}

func newClient(e exec.Executor, logger zerolog.Logger) *Client {
	return &Client{exec: e, logger: logger}
}

// WithCF returns a handle pinned to cf. The receiver is left unchanged.
func (c *Client) WithCF(cf ColumnFamily) *Client {
	return &Client{exec: c.exec, cf: &cf, logger: c.logger}
}

// ColumnFamily returns the handle's scope and whether one is set.
func (c *Client) ColumnFamily() (ColumnFamily, bool) {
	if c.cf == nil {
		return kv.CFDefault, false
	}
	return *c.cf, true
}

// Close releases the executor's idle connections. Handles sharing the
// executor stay usable.
func (c *Client) Close() error {
	return c.exec.Close()
}

func (c *Client) execute(ctx context.Context, req request.Request) (request.Response, error) {
	c.logger.Debug().Stringer("kind", req.Kind()).Msg("dispatch")
	return c.exec.Execute(ctx, req, request.DefaultOptimistic())
}

func (c *Client) write(ctx context.Context, req request.Request) error {
	resp, err := c.execute(ctx, req)
	if err != nil {
		return err
	}
	return request.ShapeWrite(req.Kind(), resp)
}

// Get returns the value stored under key. A missing key is reported with
// found == false and no error.
func (c *Client) Get(ctx context.Context, key Key) (value Value, found bool, err error) {
	resp, err := c.execute(ctx, request.NewRawGetRequest(key, c.cf))
	if err != nil {
		return nil, false, err
	}
	return request.ShapeGet(resp)
}

// BatchGet returns the pairs for the keys that exist. The order of the
// result is not the order of keys.
func (c *Client) BatchGet(ctx context.Context, keys []Key) ([]KvPair, error) {
	resp, err := c.execute(ctx, request.NewRawBatchGetRequest(keys, c.cf))
	if err != nil {
		return nil, err
	}
	return request.ShapeBatchGet(resp)
}

// Put stores value under key, replacing any previous value.
func (c *Client) Put(ctx context.Context, key Key, value Value) error {
	return c.write(ctx, request.NewRawPutRequest(key, value, c.cf))
}

// BatchPut stores every pair. Pairs in different regions are written in
// parallel and the batch is not atomic across regions.
func (c *Client) BatchPut(ctx context.Context, pairs []KvPair) error {
	return c.write(ctx, request.NewRawBatchPutRequest(pairs, c.cf))
}

// Update stores value under key whether or not the key exists.
func (c *Client) Update(ctx context.Context, key Key, value Value) error {
	return c.write(ctx, request.NewRawUpdateRequest(key, value, c.cf))
}

// BatchUpdate is the batch form of Update, with BatchPut's atomicity.
func (c *Client) BatchUpdate(ctx context.Context, pairs []KvPair) error {
	return c.write(ctx, request.NewRawBatchUpdateRequest(pairs, c.cf))
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, key Key) error {
	return c.write(ctx, request.NewRawDeleteRequest(key, c.cf))
}

// BatchDelete removes every key. Missing keys are ignored.
func (c *Client) BatchDelete(ctx context.Context, keys []Key) error {
	return c.write(ctx, request.NewRawBatchDeleteRequest(keys, c.cf))
}

// DeleteRange removes every key in r.
func (c *Client) DeleteRange(ctx context.Context, r BoundRange) error {
	return c.write(ctx, request.NewRawDeleteRangeRequest(r, c.cf))
}

// Scan returns up to limit pairs from r in ascending key order. A limit
// above MaxRawKVScanLimit fails with *MaxScanLimitExceededError before
// anything is sent.
func (c *Client) Scan(ctx context.Context, r BoundRange, limit uint32) ([]KvPair, error) {
	return c.scan(ctx, r, limit, false)
}

// ScanKeys is Scan without values.
func (c *Client) ScanKeys(ctx context.Context, r BoundRange, limit uint32) ([]Key, error) {
	pairs, err := c.scan(ctx, r, limit, true)
	if err != nil {
		return nil, err
	}
	return kv.Keys(pairs), nil
}

func (c *Client) scan(ctx context.Context, r BoundRange, limit uint32, keyOnly bool) ([]KvPair, error) {
	req, err := request.NewRawScanRequest(r, limit, keyOnly, c.cf)
	if err != nil {
		return nil, err
	}
	resp, err := c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return request.ShapeScan(resp, limit)
}

// BatchScan scans every range and returns the results one range after
// another. eachLimit is applied per region a range touches, so a range
// spanning several regions can contribute more than eachLimit pairs.
func (c *Client) BatchScan(ctx context.Context, ranges []BoundRange, eachLimit uint32) ([]KvPair, error) {
	return c.batchScan(ctx, ranges, eachLimit, false)
}

// BatchScanKeys is BatchScan without values.
func (c *Client) BatchScanKeys(ctx context.Context, ranges []BoundRange, eachLimit uint32) ([]Key, error) {
	pairs, err := c.batchScan(ctx, ranges, eachLimit, true)
	if err != nil {
		return nil, err
	}
	return kv.Keys(pairs), nil
}

func (c *Client) batchScan(ctx context.Context, ranges []BoundRange, eachLimit uint32, keyOnly bool) ([]KvPair, error) {
	req, err := request.NewRawBatchScanRequest(ranges, eachLimit, keyOnly, c.cf)
	if err != nil {
		return nil, err
	}
	resp, err := c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return request.ShapeBatchScan(resp)
}
