// Package coordinator implements the control plane of the cluster: node
// membership, the region map, and health monitoring.
//
// # Overview
//
// The coordinator is the single source of truth for where data lives. It
// cuts the keyspace into regions at a fixed list of split keys, assigns
// each region to one storage node, and serves the resulting map to clients
// at GET /regions. Clients route requests to nodes themselves; the
// coordinator is never on the data path.
//
//	┌─────────────────────────────────────┐
//	│            COORDINATOR              │
//	├─────────────────────────────────────┤
//	│  RegionRegistry                     │
//	│    split keys  g     n     t        │
//	│    regions   1 │  2  │  3  │  4     │
//	│    region → node, version counter   │
//	├─────────────────────────────────────┤
//	│  HealthMonitor                      │
//	│    GET node/health every interval   │
//	│    3 failures → unhealthy           │
//	└─────────────────────────────────────┘
//
// # Region Map
//
// With split keys s1 < s2 < ... < sn the registry holds n+1 regions:
//
//	region 1:   ["",  s1)
//	region 2:   [s1,  s2)
//	...
//	region n+1: [sn,  +inf)
//
// Every assignment change bumps the topology version and pushes the new
// map to every live node at POST /topology. A node refuses requests routed
// by an older map for regions it no longer owns, so clients learn their
// cached map is stale from the region error that comes back.
//
// # Membership
//
// Nodes POST /register on startup. Regions nobody serves are handed out
// round-robin to live nodes at that point, so the first node to register
// receives every region. Operators can move a region with
// POST /regions/assign, unassign it by sending an empty node ID, or spread
// every region over the live nodes with POST /regions/rebalance.
//
// # Failure Handling
//
// When the health monitor marks a node unhealthy, its regions are moved to
// the remaining live nodes. The data on the failed node is not copied: the
// new owner starts the region empty. With no live nodes left the regions
// become unassigned and requests for them fail until a node registers.
// A node that passes a probe again is marked healthy and picks up any
// unassigned regions.
//
// # Endpoints
//
//   - POST /register           cluster.RegisterRequest
//   - GET  /nodes              registered nodes with health and region IDs
//   - GET  /regions            cluster.TopologyResponse
//   - GET  /regions/locate     ?key=, the region holding key
//   - POST /regions/assign     cluster.AssignRequest
//   - POST /regions/rebalance  spread regions over live nodes
//   - GET  /health
package coordinator
