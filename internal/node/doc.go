// Package node implements the storage node: an HTTP server hosting region
// replicas over a single storage engine.
//
// Every request arrives in a cluster.Envelope that names the region it is
// for, and the node creates the replica the first time it sees a region.
// The coordinator pushes the region map to POST /topology whenever it
// changes; from then on the node refuses regions that map does not place
// on it, unless the envelope carries a newer placement. Each replica also
// rejects keys outside its bounds. Clients read either refusal as a sign
// that their region map is stale.
//
// Routes:
//
//   - POST /raw               execute one single-region request
//   - POST /topology          accept the coordinator's region map
//   - GET  /info              node ID, hosted regions, store totals
//   - GET  /region/{id}/stats per-region operation counters
//   - GET  /health
package node
