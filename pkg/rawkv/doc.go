// Package rawkv is a client for raw key-value access to a region-sharded
// store.
//
// Connect discovers the cluster through one or more coordinator endpoints
// and returns a Client. Every operation is sent as a single request; the
// client splits it across the regions that own the keys, retries region
// and transport failures after refreshing its region map, and shapes the
// result.
//
//	c, err := rawkv.Connect(ctx, []string{"localhost:8080"})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Put(ctx, rawkv.Key("k"), rawkv.Value("v")); err != nil {
//		return err
//	}
//	pairs, err := c.Scan(ctx, rawkv.RangeFrom(rawkv.Key("a")), 100)
//
// Handles are cheap. WithCF returns a handle scoped to one column family
// that shares the receiver's connections; the receiver keeps its own scope.
//
// Scans are capped at MaxRawKVScanLimit pairs. A larger limit fails with
// *MaxScanLimitExceededError before anything is sent. For BatchScan the
// limit applies per region a range touches, so a range that spans regions
// can return more than eachLimit pairs.
package rawkv
