// Command coordinator serves the region map of a rawkv cluster.
//
// Nodes register with the coordinator, which hands them regions and probes
// their /health endpoint. Clients fetch the region map from GET /regions.
//
// Configuration (environment):
//   - COORDINATOR_ADDR: listen address (default ":8080")
//   - COORDINATOR_SPLIT_KEYS: comma separated region split keys (default "g,n,t")
//   - COORDINATOR_HEALTH_INTERVAL: node probe interval (default "5s")
//   - LOG_LEVEL, LOG_FORMAT: zerolog level and "console" or "json"
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
	"github.com/dreamware/rawkv/internal/coordinator"
	"github.com/dreamware/rawkv/internal/log"
)

func main() {
	cfg, err := config.LoadCoordinator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Options)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		log.Coordinator.Fatal().Err(err).Msg("coordinator failed")
	}
}

// run serves the coordinator until ctx is done. The bound address is sent
// on ready once the listener is open.
func run(ctx context.Context, cfg config.Coordinator, ready chan<- string) error {
	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	srv := coordinator.NewServer(cfg.SplitKeys, cfg.HealthInterval)
	srv.Start(ctx)
	defer srv.Stop()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Coordinator.Info().Str("addr", lis.Addr().String()).
			Int("regions", srv.Registry().NumRegions()).
			Msg("coordinator listening")
		errc <- httpSrv.Serve(lis)
	}()
	if ready != nil {
		ready <- lis.Addr().String()
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	log.Coordinator.Info().Msg("coordinator stopped")
	return nil
}
