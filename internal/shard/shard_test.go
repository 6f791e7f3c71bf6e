package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/request"
	"github.com/dreamware/rawkv/internal/storage"
)

func newTestShard(t *testing.T, start, end string) *Shard {
	t.Helper()
	var endKey kv.Key
	if end != "" {
		endKey = kv.Key(end)
	}
	return NewShard(7, kv.Key(start), endKey, storage.NewMemoryStore())
}

func TestNewShard(t *testing.T) {
	s := newTestShard(t, "g", "n")

	assert.Equal(t, uint64(7), s.ID)
	assert.Equal(t, ShardStateActive, s.State)
	assert.NotNil(t, s.Store)
	assert.NotNil(t, s.Stats)

	start, end := s.Bounds()
	assert.Equal(t, kv.Key("g"), start)
	assert.Equal(t, kv.Key("n"), end)
}

func TestOwnership(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		key        string
		want       bool
	}{
		{"start is inclusive", "g", "n", "g", true},
		{"end is exclusive", "g", "n", "n", false},
		{"inside", "g", "n", "hello", true},
		{"before", "g", "n", "a", false},
		{"unbounded end", "t", "", "zzz", true},
		{"first region", "", "g", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestShard(t, tt.start, tt.end)
			assert.Equal(t, tt.want, s.OwnsKey(kv.Key(tt.key)))
		})
	}

	s := newTestShard(t, "g", "n")
	assert.True(t, s.OwnsRange(kv.Key("h"), kv.Key("n")))
	assert.False(t, s.OwnsRange(kv.Key("h"), nil), "unbounded range leaves a bounded region")
	assert.False(t, s.OwnsRange(kv.Key("a"), kv.Key("h")))
	assert.True(t, s.OwnsRange(kv.Key("z"), kv.Key("a")), "empty range is always owned")

	last := newTestShard(t, "t", "")
	assert.True(t, last.OwnsRange(kv.Key("u"), nil))
}

func TestShardOperations(t *testing.T) {
	s := newTestShard(t, "g", "n")

	_, found, err := s.Get(kv.CFDefault, kv.Key("h"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(kv.CFDefault, kv.Key("h"), kv.Value("1")))
	v, found, err := s.Get(kv.CFDefault, kv.Key("h"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, kv.Value("1"), v)

	require.NoError(t, s.BatchPut(kv.CFDefault, []kv.KvPair{
		kv.NewKvPair(kv.Key("i"), kv.Value("2")),
		kv.NewKvPair(kv.Key("j"), kv.Value("3")),
		kv.NewKvPair(kv.Key("i"), kv.Value("4")),
	}))

	pairs, err := s.BatchGet(kv.CFDefault, []kv.Key{kv.Key("i"), kv.Key("missing"), kv.Key("i"), kv.Key("j")})
	require.NoError(t, err)
	assert.Equal(t, []kv.KvPair{
		kv.NewKvPair(kv.Key("i"), kv.Value("4")),
		kv.NewKvPair(kv.Key("j"), kv.Value("3")),
	}, pairs)

	pairs, err = s.Scan(kv.CFDefault, kv.Key("g"), kv.Key("n"), 2, false)
	require.NoError(t, err)
	assert.Equal(t, []kv.Key{kv.Key("h"), kv.Key("i")}, kv.Keys(pairs))

	require.NoError(t, s.BatchDelete(kv.CFDefault, []kv.Key{kv.Key("h"), kv.Key("missing")}))
	require.NoError(t, s.Delete(kv.CFDefault, kv.Key("i")))

	n, err := s.DeleteRange(kv.CFDefault, kv.Key("g"), kv.Key("n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := s.GetStats()
	assert.Equal(t, uint64(6), stats.Ops.Gets)
	assert.Equal(t, uint64(4), stats.Ops.Puts)
	assert.Equal(t, uint64(1), stats.Ops.Scans)
	assert.Equal(t, uint64(4), stats.Ops.Deletes)
}

func TestKeyOutsideRegion(t *testing.T) {
	s := newTestShard(t, "g", "n")

	_, _, err := s.Get(kv.CFDefault, kv.Key("a"))
	assert.ErrorIs(t, err, ErrKeyNotInRegion)

	err = s.BatchPut(kv.CFDefault, []kv.KvPair{
		kv.NewKvPair(kv.Key("h"), kv.Value("ok")),
		kv.NewKvPair(kv.Key("z"), kv.Value("bad")),
	})
	assert.ErrorIs(t, err, ErrKeyNotInRegion)

	// Nothing from the rejected batch was written
	_, found, err := s.Get(kv.CFDefault, kv.Key("h"))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Scan(kv.CFDefault, kv.Key("h"), nil, 10, false)
	assert.ErrorIs(t, err, ErrKeyNotInRegion)
}

func TestStateAndBounds(t *testing.T) {
	s := newTestShard(t, "g", "n")

	s.SetState(ShardStateMigrating)
	err := s.Put(kv.CFDefault, kv.Key("h"), kv.Value("v"))
	assert.ErrorIs(t, err, ErrRegionNotServing)

	s.SetState(ShardStateActive)
	s.SetBounds(kv.Key("a"), kv.Key("h"))
	assert.True(t, s.OwnsKey(kv.Key("b")))
	assert.False(t, s.OwnsKey(kv.Key("h")))
}

func TestInfo(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewShard(1, kv.Key("g"), kv.Key("n"), store)
	other := NewShard(2, kv.Key("n"), nil, store)

	require.NoError(t, s.Put(kv.CFDefault, kv.Key("h"), kv.Value("abc")))
	require.NoError(t, s.Put(kv.CFWrite, kv.Key("h"), kv.Value("de")))
	require.NoError(t, other.Put(kv.CFDefault, kv.Key("x"), kv.Value("zzzz")))

	info := s.Info()
	assert.Equal(t, uint64(1), info.ID)
	assert.Equal(t, 2, info.KeyCount)
	assert.Equal(t, 5, info.ByteSize)
	assert.Equal(t, ShardStateActive, info.State)
}

func TestExecute(t *testing.T) {
	s := newTestShard(t, "", "")
	lock := kv.CFLock

	resp, err := s.Execute(&request.RawBatchPut{Pairs: []kv.KvPair{
		kv.NewKvPair(kv.Key("a"), kv.Value("1")),
		kv.NewKvPair(kv.Key("b"), kv.Value("2")),
		kv.NewKvPair(kv.Key("c"), kv.Value("3")),
	}})
	require.NoError(t, err)
	assert.IsType(t, &request.EmptyResponse{}, resp)

	_, err = s.Execute(&request.RawUpdate{Scope: request.Scope{CF: &lock}, Key: kv.Key("a"), Value: kv.Value("L")})
	require.NoError(t, err)

	resp, err = s.Execute(&request.RawGet{Key: kv.Key("a")})
	require.NoError(t, err)
	assert.Equal(t, &request.GetResponse{Value: kv.Value("1"), Found: true}, resp)

	resp, err = s.Execute(&request.RawGet{Scope: request.Scope{CF: &lock}, Key: kv.Key("a")})
	require.NoError(t, err)
	assert.Equal(t, &request.GetResponse{Value: kv.Value("L"), Found: true}, resp)

	resp, err = s.Execute(&request.RawScan{Range: kv.RangeInclusive(kv.Key("a"), kv.Key("b")), Limit: 10, KeyOnly: true})
	require.NoError(t, err)
	pairs := resp.(*request.PairsResponse).Pairs
	assert.Equal(t, []kv.Key{kv.Key("a"), kv.Key("b")}, kv.Keys(pairs))
	assert.Nil(t, pairs[0].Value)

	resp, err = s.Execute(&request.RawBatchScan{
		Ranges:    []kv.BoundRange{kv.RangeFrom(kv.Key("b")), kv.RangeTo(kv.Key("b"))},
		EachLimit: 1,
	})
	require.NoError(t, err)
	ranges := resp.(*request.RangesResponse).Ranges
	require.Len(t, ranges, 2)
	assert.Equal(t, []kv.Key{kv.Key("b")}, kv.Keys(ranges[0]))
	assert.Equal(t, []kv.Key{kv.Key("a")}, kv.Keys(ranges[1]))

	_, err = s.Execute(&request.RawDeleteRange{Range: kv.RangeExclusiveStart(kv.Key("a"), kv.Key("c"))})
	require.NoError(t, err)

	resp, err = s.Execute(&request.RawBatchGet{Keys: []kv.Key{kv.Key("a"), kv.Key("b"), kv.Key("c")}})
	require.NoError(t, err)
	assert.Equal(t, []kv.Key{kv.Key("a")}, kv.Keys(resp.(*request.PairsResponse).Pairs))
}
