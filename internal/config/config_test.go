package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/log"
)

func envOf(m map[string]string) Env {
	return func(k string) string { return m[k] }
}

func TestLoadNode(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadNodeFrom(envOf(map[string]string{
			"NODE_ID":          "n1",
			"COORDINATOR_ADDR": "http://127.0.0.1:8080",
		}))
		require.NoError(t, err)
		assert.Equal(t, "n1", cfg.ID)
		assert.Equal(t, ":8081", cfg.Listen)
		assert.Equal(t, "http://127.0.0.1:8081", cfg.Addr)
		assert.Empty(t, cfg.DataDir)
		assert.Equal(t, zerolog.InfoLevel, cfg.Log.Options.LogLevel)
		assert.Equal(t, log.ConsoleLogger, cfg.Log.Options.Type)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := LoadNodeFrom(envOf(map[string]string{
			"NODE_ID":          "n2",
			"COORDINATOR_ADDR": "http://c:8080",
			"NODE_LISTEN":      ":9000",
			"NODE_ADDR":        "http://n2:9000",
			"NODE_DATA_DIR":    "/var/lib/rawkv",
			"LOG_LEVEL":        "debug",
			"LOG_FORMAT":       "json",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Listen)
		assert.Equal(t, "/var/lib/rawkv", cfg.DataDir)
		assert.Equal(t, zerolog.DebugLevel, cfg.Log.Options.LogLevel)
		assert.Equal(t, log.JSONLogger, cfg.Log.Options.Type)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := LoadNodeFrom(envOf(map[string]string{"NODE_ID": "n1"}))
		assert.ErrorContains(t, err, "COORDINATOR_ADDR")

		_, err = LoadNodeFrom(envOf(map[string]string{"COORDINATOR_ADDR": "x"}))
		assert.ErrorContains(t, err, "NODE_ID")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := LoadNodeFrom(envOf(map[string]string{
			"NODE_ID": "n1", "COORDINATOR_ADDR": "x", "LOG_LEVEL": "loud",
		}))
		assert.ErrorContains(t, err, "LOG_LEVEL")
	})
}

func TestLoadCoordinator(t *testing.T) {
	cfg, err := LoadCoordinatorFrom(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.HealthInterval)
	assert.Equal(t, []kv.Key{kv.Key("g"), kv.Key("n"), kv.Key("t")}, cfg.SplitKeys)

	cfg, err = LoadCoordinatorFrom(envOf(map[string]string{
		"COORDINATOR_SPLIT_KEYS":      "m",
		"COORDINATOR_HEALTH_INTERVAL": "250ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, []kv.Key{kv.Key("m")}, cfg.SplitKeys)
	assert.Equal(t, 250*time.Millisecond, cfg.HealthInterval)

	_, err = LoadCoordinatorFrom(envOf(map[string]string{"COORDINATOR_HEALTH_INTERVAL": "soon"}))
	assert.Error(t, err)
	_, err = LoadCoordinatorFrom(envOf(map[string]string{"COORDINATOR_HEALTH_INTERVAL": "-1s"}))
	assert.Error(t, err)
}

func TestParseSplitKeys(t *testing.T) {
	keys, err := ParseSplitKeys(" b , d ")
	require.NoError(t, err)
	assert.Equal(t, []kv.Key{kv.Key("b"), kv.Key("d")}, keys)

	keys, err = ParseSplitKeys("")
	require.NoError(t, err)
	assert.Nil(t, keys)

	_, err = ParseSplitKeys("d,b")
	assert.Error(t, err)
	_, err = ParseSplitKeys("b,,d")
	assert.Error(t, err)
	_, err = ParseSplitKeys("b,b")
	assert.Error(t, err)
}
