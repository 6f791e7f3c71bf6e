package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/cluster"
	"github.com/dreamware/rawkv/internal/kv"
)

// threeRegions splits the keyspace at "g" and "t".
func threeRegions() cluster.TopologyResponse {
	return cluster.TopologyResponse{
		Version: 3,
		Regions: []cluster.RegionInfo{
			{ID: 1, StartKey: kv.Key{}, EndKey: kv.Key("g"), NodeID: "n1", NodeAddr: "local://n1"},
			{ID: 2, StartKey: kv.Key("g"), EndKey: kv.Key("t"), NodeID: "n2", NodeAddr: "local://n2"},
			{ID: 3, StartKey: kv.Key("t"), NodeID: "n1", NodeAddr: "local://n1"},
		},
	}
}

func TestRegionCacheLocate(t *testing.T) {
	c := NewRegionCache()
	_, err := c.Locate(kv.Key("a"))
	var regionErr *RegionError
	require.ErrorAs(t, err, &regionErr, "empty cache")

	c.Update(threeRegions())
	assert.Equal(t, uint64(3), c.Version())
	assert.Len(t, c.Regions(), 3)

	tests := []struct {
		key    string
		region uint64
	}{
		{"", 1},
		{"a", 1},
		{"f\xff", 1},
		{"g", 2},
		{"s", 2},
		{"t", 3},
		{"zzz", 3},
	}
	for _, tt := range tests {
		r, err := c.Locate(kv.Key(tt.key))
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.region, r.ID, "key %q", tt.key)
	}
}

func TestRegionCacheUnassigned(t *testing.T) {
	topo := threeRegions()
	topo.Regions[1].NodeID, topo.Regions[1].NodeAddr = "", ""
	c := NewRegionCache()
	c.Update(topo)

	_, err := c.Locate(kv.Key("h"))
	var regionErr *RegionError
	require.ErrorAs(t, err, &regionErr)
	assert.Equal(t, uint64(2), regionErr.RegionID)
	assert.True(t, IsRetryable(err))

	_, err = c.RegionsInRange(kv.Key("a"), kv.Key{})
	require.ErrorAs(t, err, &regionErr)

	rs, err := c.RegionsInRange(kv.Key("a"), kv.Key("c"))
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestRegionCacheRegionsInRange(t *testing.T) {
	c := NewRegionCache()
	c.Update(threeRegions())

	ids := func(rs []cluster.RegionInfo) []uint64 {
		out := []uint64{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name       string
		start, end string
		want       []uint64
	}{
		{"full", "", "", []uint64{1, 2, 3}},
		{"inside first", "a", "b", []uint64{1}},
		{"end on boundary", "a", "g", []uint64{1}},
		{"span two", "c", "h", []uint64{1, 2}},
		{"from middle", "h", "", []uint64{2, 3}},
		{"inverted", "z", "a", []uint64{}},
		{"empty", "k", "k", []uint64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := c.RegionsInRange(kv.Key(tt.start), kv.Key(tt.end))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rs))
		})
	}
}
