package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
)

// NodeInfo describes a storage node known to the coordinator.
type NodeInfo struct {
	LastHealthCheck time.Time `json:"last_health_check"`
	ID              string    `json:"id"`
	Addr            string    `json:"addr"`
	HealthStatus    string    `json:"health_status"`
	Regions         []uint64  `json:"regions,omitempty"`
}

// Health states reported in NodeInfo.HealthStatus.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

type RegisterRequest struct {
	Node NodeInfo `json:"node"`
}

// RegionInfo places one region of the keyspace on a node. EndKey is
// exclusive; an empty EndKey means the region runs to the end of the
// keyspace. Version is the topology version the placement was read from.
type RegionInfo struct {
	ID       uint64 `json:"id"`
	StartKey kv.Key `json:"start_key"`
	EndKey   kv.Key `json:"end_key,omitempty"`
	NodeID   string `json:"node_id"`
	NodeAddr string `json:"node_addr"`
	Version  uint64 `json:"version,omitempty"`
}

// Contains reports whether key falls in [StartKey, EndKey).
func (r RegionInfo) Contains(key kv.Key) bool {
	if key.Less(r.StartKey) {
		return false
	}
	return len(r.EndKey) == 0 || key.Less(r.EndKey)
}

func (r RegionInfo) String() string {
	return fmt.Sprintf("region %d [%s, %s) on %s", r.ID, r.StartKey, r.EndKey, r.NodeID)
}

// TopologyResponse is the coordinator's answer to GET /regions. Version
// changes every time a region moves.
type TopologyResponse struct {
	Version uint64       `json:"version"`
	Regions []RegionInfo `json:"regions"`
}

// AssignRequest moves a region to another node. An empty NodeID leaves the
// region unassigned.
type AssignRequest struct {
	RegionID uint64 `json:"region_id"`
	NodeID   string `json:"node_id"`
}

// Error codes carried by ErrorResponse.
const (
	// CodeRegion means the node does not serve the keys it was sent; the
	// caller should refresh its topology and retry.
	CodeRegion = "region"
	// CodeRejected means the request itself is invalid and will never
	// succeed.
	CodeRejected = "rejected"
	// CodeInternal is any other server-side failure.
	CodeInternal = "internal"
)

// ErrorResponse is the JSON body of every non-2xx answer from a node or the
// coordinator.
type ErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"error"`
	RegionID uint64 `json:"region_id,omitempty"`
}

// HTTPError is returned by PostJSON and GetJSON when the server answers
// with a status of 300 or above.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       ErrorResponse
}

func (e *HTTPError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("http %s: %d: %s", e.URL, e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("http %s: %d", e.URL, e.StatusCode)
}

// Client performs JSON requests against cluster services.
type Client struct {
	HTTP *http.Client
}

// DefaultClient is used by the package-level PostJSON and GetJSON.
var DefaultClient = &Client{HTTP: &http.Client{Timeout: 5 * time.Second}}

// NewClient returns a Client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

func PostJSON(ctx context.Context, url string, body any, out any) error {
	return DefaultClient.PostJSON(ctx, url, body, out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	return DefaultClient.GetJSON(ctx, url, out)
}

func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		httpErr := &HTTPError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &httpErr.Body)
		return httpErr
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}

// BaseURL turns a node or coordinator address, given as host:port or as a
// URL, into a URL without a trailing slash.
func BaseURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, code string, err error) {
	WriteJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}
