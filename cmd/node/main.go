// Command node runs a rawkv storage node.
//
// The node serves region replicas over a single storage engine and
// registers itself with the coordinator on startup. Regions are created
// on demand when the first request for them arrives.
//
// Configuration (environment):
//   - NODE_ID: unique node identifier (required)
//   - COORDINATOR_ADDR: coordinator URL (required)
//   - NODE_LISTEN: listen address (default ":8081")
//   - NODE_ADDR: address advertised to the coordinator (default "http://127.0.0.1:8081")
//   - NODE_DATA_DIR: pebble data directory; empty keeps data in memory
//   - LOG_LEVEL, LOG_FORMAT: zerolog level and "console" or "json"
//
// Example:
//
//	NODE_ID=node-1 NODE_LISTEN=:8081 NODE_ADDR=http://localhost:8081 \
//	COORDINATOR_ADDR=http://localhost:8080 NODE_DATA_DIR=/var/lib/rawkv ./node
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dreamware/rawkv/internal/config"
	"github.com/dreamware/rawkv/internal/log"
	"github.com/dreamware/rawkv/internal/node"
	"github.com/dreamware/rawkv/internal/storage"
)

func main() {
	cfg, err := config.LoadNode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "node: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Options)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		log.Node.Fatal().Err(err).Str("node_id", cfg.ID).Msg("node failed")
	}
}

func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewPebbleStore(dir)
}

// run serves the node until ctx is done. The bound address is sent on ready
// once the listener is open. Failing to register with the coordinator is
// fatal.
func run(ctx context.Context, cfg config.Node, ready chan<- string) error {
	store, err := openStore(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	n := node.NewNode(cfg.ID, store)
	defer func() {
		if err := n.Close(); err != nil {
			log.Node.Error().Err(err).Msg("close store")
		}
	}()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	httpSrv := &http.Server{
		Handler:           n.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Node.Info().Str("node_id", cfg.ID).
			Str("addr", lis.Addr().String()).
			Str("public", cfg.Addr).
			Bool("persistent", cfg.DataDir != "").
			Msg("node listening")
		errc <- httpSrv.Serve(lis)
	}()
	if ready != nil {
		ready <- lis.Addr().String()
	}

	if err := n.Register(ctx, cfg.Coordinator, cfg.Addr); err != nil {
		shutdown(httpSrv)
		return errors.Wrap(err, "register with coordinator")
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdown(httpSrv)
	log.Node.Info().Str("node_id", cfg.ID).Msg("node stopped")
	return nil
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Node.Warn().Err(err).Msg("server shutdown")
	}
}
