// Package config reads coordinator and node settings from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/kv"
	"github.com/dreamware/rawkv/internal/log"
)

// Env looks up an environment variable. os.Getenv satisfies it.
type Env func(key string) string

// DefaultSplitKeys divides the keyspace into four regions.
const DefaultSplitKeys = "g,n,t"

// Log holds the logging settings shared by both services.
type Log struct {
	Options log.Options
}

// Node is the configuration of a storage node.
type Node struct {
	ID          string
	Listen      string
	Addr        string
	Coordinator string
	// DataDir selects the pebble engine when set; empty keeps data in memory.
	DataDir string
	Log     Log
}

// Coordinator is the configuration of the coordinator.
type Coordinator struct {
	Listen         string
	SplitKeys      []kv.Key
	HealthInterval time.Duration
	Log            Log
}

// LoadNode reads a Node configuration from the process environment.
func LoadNode() (Node, error) {
	return LoadNodeFrom(os.Getenv)
}

// LoadNodeFrom reads a Node configuration through env.
func LoadNodeFrom(env Env) (Node, error) {
	id, err := mustGetenv(env, "NODE_ID")
	if err != nil {
		return Node{}, err
	}
	coord, err := mustGetenv(env, "COORDINATOR_ADDR")
	if err != nil {
		return Node{}, err
	}
	lg, err := loadLog(env)
	if err != nil {
		return Node{}, err
	}
	return Node{
		ID:          id,
		Listen:      getenv(env, "NODE_LISTEN", ":8081"),
		Addr:        getenv(env, "NODE_ADDR", "http://127.0.0.1:8081"),
		Coordinator: coord,
		DataDir:     env("NODE_DATA_DIR"),
		Log:         lg,
	}, nil
}

// LoadCoordinator reads a Coordinator configuration from the process
// environment.
func LoadCoordinator() (Coordinator, error) {
	return LoadCoordinatorFrom(os.Getenv)
}

// LoadCoordinatorFrom reads a Coordinator configuration through env.
func LoadCoordinatorFrom(env Env) (Coordinator, error) {
	interval, err := time.ParseDuration(getenv(env, "COORDINATOR_HEALTH_INTERVAL", "5s"))
	if err != nil {
		return Coordinator{}, errors.Wrap(err, "COORDINATOR_HEALTH_INTERVAL")
	}
	if interval <= 0 {
		return Coordinator{}, errors.Newf("COORDINATOR_HEALTH_INTERVAL must be positive, got %s", interval)
	}
	splits, err := ParseSplitKeys(getenv(env, "COORDINATOR_SPLIT_KEYS", DefaultSplitKeys))
	if err != nil {
		return Coordinator{}, err
	}
	lg, err := loadLog(env)
	if err != nil {
		return Coordinator{}, err
	}
	return Coordinator{
		Listen:         getenv(env, "COORDINATOR_ADDR", ":8080"),
		SplitKeys:      splits,
		HealthInterval: interval,
		Log:            lg,
	}, nil
}

// ParseSplitKeys parses a comma separated, strictly ascending list of
// region split keys. An empty string yields a single region.
func ParseSplitKeys(s string) ([]kv.Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	keys := make([]kv.Key, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errors.Newf("empty split key in %q", s)
		}
		k := kv.Key(p)
		if len(keys) > 0 && !keys[len(keys)-1].Less(k) {
			return nil, errors.Newf("split keys must be strictly ascending: %q after %q", p, keys[len(keys)-1])
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func loadLog(env Env) (Log, error) {
	level, err := log.ParseLogLevel(env("LOG_LEVEL"))
	if err != nil {
		return Log{}, errors.Wrap(err, "LOG_LEVEL")
	}
	typ, err := log.ParseLoggerType(env("LOG_FORMAT"))
	if err != nil {
		return Log{}, errors.Wrap(err, "LOG_FORMAT")
	}
	return Log{Options: log.Options{LogLevel: level, Type: typ}}, nil
}

// getenv returns the variable or def when it is unset or empty.
func getenv(env Env, k, def string) string {
	if v := env(k); v != "" {
		return v
	}
	return def
}

// mustGetenv fails when a required variable is unset or empty.
func mustGetenv(env Env, k string) (string, error) {
	if v := env(k); v != "" {
		return v, nil
	}
	return "", errors.Newf("missing env %s", k)
}
