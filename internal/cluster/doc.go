// Package cluster holds the wire types shared by the coordinator, the
// storage nodes and the client executor, plus the JSON-over-HTTP helpers
// they use to talk to each other.
//
// # Overview
//
// The cluster is a hub-and-spoke topology. The coordinator owns the region
// map: which node serves which slice of the keyspace. Nodes register with
// the coordinator and serve region requests. Clients fetch the region map
// from the coordinator and then talk to nodes directly. Whenever the map
// changes the coordinator pushes it to every live node, so a node knows
// which regions it owns independently of what a client claims.
//
//	               ┌──────────────┐
//	    GET /regions│ Coordinator  │POST /register
//	   ┌───────────►│ region map   │◄──────────┐
//	   │            └──────────────┘           │
//	┌──┴─────┐                          ┌──────┴────┐
//	│ client │──── POST /raw ──────────►│  Node 1   │
//	│        │──── POST /raw ──────────►│  Node 2   │
//	└────────┘                          └───────────┘
//
// # Communication Protocol
//
// Every exchange is JSON over HTTP:
//
//   - POST /register          RegisterRequest          coordinator
//   - GET  /regions           TopologyResponse         coordinator
//   - GET  /regions/locate    ?key= -> RegionInfo      coordinator
//   - POST /regions/assign    AssignRequest            coordinator
//   - POST /regions/rebalance TopologyResponse         coordinator
//   - GET  /nodes             []NodeInfo               coordinator
//   - POST /raw               Envelope -> Response     node
//   - POST /topology          TopologyResponse         node
//   - GET  /health            200 OK                   both
//
// An Envelope carries the request kind by name, the region the request is
// bound for, and the request body. The receiving node decodes the body with
// Envelope.DecodeRequest and the client decodes the answer with
// DecodeResponse.
//
// # Failure Handling
//
// Non-2xx answers carry an ErrorResponse and surface as *HTTPError. The
// Code field tells the caller what to do next:
//
//   - CodeRegion: the topology the caller used is stale, refresh and retry
//   - CodeRejected: the request is malformed, do not retry
//   - CodeInternal: the server failed executing the request, do not retry
//
// A 5xx answer without an ErrorResponse body is treated as a transport
// failure and retried.
//
// Network failures are returned unwrapped from net/http.
package cluster
