package exec

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// RegionError means the request reached the wrong place: the region moved,
// is unassigned, or the node no longer serves it. Refreshing the topology
// and retrying usually succeeds.
type RegionError struct {
	Cause    error
	Reason   string
	RegionID uint64
}

func (e *RegionError) Error() string {
	if e.RegionID == 0 {
		return "region error: " + e.Reason
	}
	return fmt.Sprintf("region %d: %s", e.RegionID, e.Reason)
}

func (e *RegionError) Unwrap() error { return e.Cause }

// RejectedError is a definitive refusal or execution failure reported by a
// node. Retrying the same request will not help.
type RejectedError struct {
	Message    string
	RegionID   uint64
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected by region %d (%d): %s", e.RegionID, e.StatusCode, e.Message)
}

// TransportError wraps a failure to talk to a node at all.
type TransportError struct {
	Cause error
	Addr  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error talking to %s: %v", e.Addr, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ConnectError is returned when no coordinator endpoint could be reached
// for topology discovery.
type ConnectError struct {
	Endpoints []string
	Causes    []error
}

func (e *ConnectError) Error() string {
	if len(e.Endpoints) == 0 {
		return "connect: no endpoints given"
	}
	parts := make([]string, 0, len(e.Endpoints))
	for i, ep := range e.Endpoints {
		if i < len(e.Causes) && e.Causes[i] != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", ep, e.Causes[i]))
		} else {
			parts = append(parts, ep)
		}
	}
	return "connect: no endpoint reachable: " + strings.Join(parts, "; ")
}

// IsRetryable reports whether err is worth retrying after a topology
// refresh.
func IsRetryable(err error) bool {
	var regionErr *RegionError
	var transportErr *TransportError
	return errors.As(err, &regionErr) || errors.As(err, &transportErr)
}
