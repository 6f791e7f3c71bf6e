package request

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/kv"
)

func pairs(n int) []kv.KvPair {
	out := make([]kv.KvPair, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, kv.NewKvPair(kv.Key(fmt.Sprintf("k%03d", i)), kv.Value(fmt.Sprintf("v%d", i))))
	}
	return out
}

func TestShapeScanTruncates(t *testing.T) {
	tests := []struct {
		name     string
		returned int
		limit    uint32
		want     int
	}{
		{"over-return is trimmed", 30, 10, 10},
		{"exact is untouched", 10, 10, 10},
		{"under is untouched", 3, 10, 3},
		{"zero limit", 5, 0, 0},
		{"empty", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShapeScan(&PairsResponse{Pairs: pairs(tt.returned)}, tt.limit)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			assert.Equal(t, pairs(tt.returned)[:tt.want], got, "prefix kept in ascending order")
		})
	}
}

func TestShapeScanKeysMatchesScan(t *testing.T) {
	resp := &PairsResponse{Pairs: pairs(12)}
	full, err := ShapeScan(resp, 5)
	require.NoError(t, err)

	keys := kv.Keys(full)
	require.Len(t, keys, 5)
	for i, k := range keys {
		assert.Equal(t, full[i].Key, k)
	}
}

func TestShapeGet(t *testing.T) {
	v, found, err := ShapeGet(&GetResponse{Value: kv.Value("v"), Found: true})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, kv.Value("v"), v)

	v, found, err = ShapeGet(&GetResponse{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)

	_, _, err = ShapeGet(&EmptyResponse{})
	assert.Error(t, err)
}

func TestShapeBatchGetPassesThrough(t *testing.T) {
	in := []kv.KvPair{
		kv.NewKvPair(kv.Key("b"), kv.Value("2")),
		kv.NewKvPair(kv.Key("a"), kv.Value("1")),
	}
	got, err := ShapeBatchGet(&PairsResponse{Pairs: in})
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = ShapeBatchGet(&PairsResponse{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestShapeBatchScanFlattens(t *testing.T) {
	first := pairs(3)
	second := []kv.KvPair{kv.NewKvPair(kv.Key("x"), kv.Value("1"))}

	got, err := ShapeBatchScan(&RangesResponse{Ranges: [][]kv.KvPair{first, nil, second}})
	require.NoError(t, err)
	assert.Equal(t, append(append([]kv.KvPair{}, first...), second...), got)

	_, err = ShapeBatchScan(&PairsResponse{})
	assert.Error(t, err)
}

func TestShapeWrite(t *testing.T) {
	assert.NoError(t, ShapeWrite(KindPut, &EmptyResponse{}))
	assert.Error(t, ShapeWrite(KindPut, &GetResponse{}))
}
