package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/kv"
)

// engines runs every test against both implementations.
var engines = []struct {
	name string
	open func(t *testing.T) Store
}{
	{
		name: "memory",
		open: func(t *testing.T) Store { return NewMemoryStore() },
	},
	{
		name: "pebble",
		open: func(t *testing.T) Store {
			s, err := NewInMemoryPebbleStore()
			require.NoError(t, err)
			return s
		},
	},
}

func TestStore(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"new store is empty", testEmpty},
		{"put and get values", testPutGet},
		{"overwrite existing key", testOverwrite},
		{"delete values", testDelete},
		{"empty and nil values", testEmptyValues},
		{"column families are isolated", testColumnFamilies},
		{"write applies in order", testWrite},
		{"scan is ordered and bounded", testScan},
		{"scan key only", testScanKeyOnly},
		{"delete range", testDeleteRange},
		{"stats", testStats},
		{"closed store", testClosed},
		{"concurrent access", testConcurrent},
	}

	for _, engine := range engines {
		for _, tc := range tests {
			t.Run(engine.name+"/"+tc.name, func(t *testing.T) {
				s := engine.open(t)
				defer s.Close() //nolint:errcheck
				tc.fn(t, s)
			})
		}
	}
}

func testEmpty(t *testing.T, s Store) {
	pairs, err := s.Scan(kv.CFDefault, kv.Key{}, nil, -1, false)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	_, err = s.Get(kv.CFDefault, kv.Key("nonexistent"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func testPutGet(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("key1"), kv.Value("value1")))

	value, err := s.Get(kv.CFDefault, kv.Key("key1"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("value1"), value)

	// Returned value is a copy
	value[0] = 'X'
	again, err := s.Get(kv.CFDefault, kv.Key("key1"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("value1"), again)
}

func testOverwrite(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("key1"), kv.Value("value1")))
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("key1"), kv.Value("value2")))

	value, err := s.Get(kv.CFDefault, kv.Key("key1"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("value2"), value)
}

func testDelete(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("key1"), kv.Value("value1")))
	require.NoError(t, s.Delete(kv.CFDefault, kv.Key("key1")))

	_, err := s.Get(kv.CFDefault, kv.Key("key1"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Delete of non-existent key should not error, twice
	assert.NoError(t, s.Delete(kv.CFDefault, kv.Key("key1")))
	assert.NoError(t, s.Delete(kv.CFDefault, kv.Key("never-written")))
}

func testEmptyValues(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("empty"), kv.Value{}))
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("nil"), nil))

	for _, k := range []string{"empty", "nil"} {
		value, err := s.Get(kv.CFDefault, kv.Key(k))
		require.NoError(t, err)
		assert.NotNil(t, value)
		assert.Len(t, value, 0)
	}
}

func testColumnFamilies(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFWrite, kv.Key("k"), kv.Value("w")))

	_, err := s.Get(kv.CFDefault, kv.Key("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Put(kv.CFDefault, kv.Key("k"), kv.Value("d")))
	require.NoError(t, s.Put(kv.CFLock, kv.Key("z"), kv.Value("l")))

	v, err := s.Get(kv.CFWrite, kv.Key("k"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("w"), v)

	pairs, err := s.Scan(kv.CFDefault, kv.Key{}, nil, -1, false)
	require.NoError(t, err)
	assert.Equal(t, []kv.KvPair{kv.NewKvPair(kv.Key("k"), kv.Value("d"))}, pairs)

	_, err = s.Get(kv.ColumnFamily(42), kv.Key("k"))
	assert.Error(t, err)
}

func testWrite(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("gone"), kv.Value("x")))
	err := s.Write(kv.CFDefault, []Mutation{
		PutMutation(kv.Key("a"), kv.Value("1")),
		PutMutation(kv.Key("a"), kv.Value("2")),
		DeleteMutation(kv.Key("gone")),
		DeleteMutation(kv.Key("absent")),
		PutMutation(kv.Key("b"), kv.Value("3")),
	})
	require.NoError(t, err)

	v, err := s.Get(kv.CFDefault, kv.Key("a"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("2"), v, "last write wins")

	_, err = s.Get(kv.CFDefault, kv.Key("gone"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func seed(t *testing.T, s Store, keys ...string) {
	for _, k := range keys {
		require.NoError(t, s.Put(kv.CFDefault, kv.Key(k), kv.Value("v-"+k)))
	}
}

func testScan(t *testing.T, s Store) {
	seed(t, s, "d", "a", "c", "b", "e")

	tests := []struct {
		name       string
		start, end kv.Key
		limit      int
		want       []string
	}{
		{"all", kv.Key{}, nil, -1, []string{"a", "b", "c", "d", "e"}},
		{"half open", kv.Key("b"), kv.Key("d"), -1, []string{"b", "c"}},
		{"limited", kv.Key("b"), nil, 2, []string{"b", "c"}},
		{"zero limit", kv.Key{}, nil, 0, []string{}},
		{"inverted", kv.Key("d"), kv.Key("b"), -1, []string{}},
		{"past the end", kv.Key("f"), nil, -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := s.Scan(kv.CFDefault, tt.start, tt.end, tt.limit, false)
			require.NoError(t, err)
			got := []string{}
			for _, p := range pairs {
				got = append(got, string(p.Key))
				assert.Equal(t, kv.Value("v-"+string(p.Key)), p.Value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func testScanKeyOnly(t *testing.T, s Store) {
	seed(t, s, "a", "b")
	pairs, err := s.Scan(kv.CFDefault, kv.Key{}, nil, -1, true)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.Nil(t, p.Value)
	}
}

func testDeleteRange(t *testing.T, s Store) {
	seed(t, s, "a", "b", "c", "d")

	n, err := s.DeleteRange(kv.CFDefault, kv.Key("b"), kv.Key("d"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pairs, err := s.Scan(kv.CFDefault, kv.Key{}, nil, -1, true)
	require.NoError(t, err)
	assert.Equal(t, []kv.Key{kv.Key("a"), kv.Key("d")}, kv.Keys(pairs))

	n, err = s.DeleteRange(kv.CFDefault, kv.Key("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testStats(t *testing.T, s Store) {
	require.NoError(t, s.Put(kv.CFDefault, kv.Key("a"), kv.Value("12345")))
	require.NoError(t, s.Put(kv.CFWrite, kv.Key("a"), kv.Value("123")))

	stats := s.Stats()
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 8, stats.Bytes)
}

func testClosed(t *testing.T, s Store) {
	require.NoError(t, s.Close())
	_, err := s.Get(kv.CFDefault, kv.Key("a"))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.ErrorIs(t, s.Put(kv.CFDefault, kv.Key("a"), nil), ErrClosed)
}

func testConcurrent(t *testing.T, s Store) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := kv.Key(fmt.Sprintf("g%d-k%02d", g, i))
				assert.NoError(t, s.Put(kv.CFDefault, key, kv.Value("v")))
				_, err := s.Get(kv.CFDefault, key)
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	pairs, err := s.Scan(kv.CFDefault, kv.Key{}, nil, -1, true)
	require.NoError(t, err)
	assert.Len(t, pairs, 400)
}
