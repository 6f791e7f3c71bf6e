// Package exec routes raw requests to the regions that own their keys.
//
// A request is split into one sub-request per region using the cached
// region map, the pieces are sent in parallel through a Transport, and the
// responses are merged back in region order. When a node reports a region
// error, or cannot be reached, the executor refreshes the region map and
// retries the whole request under the caller's backoff policy.
package exec
