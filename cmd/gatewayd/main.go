// Command gatewayd runs the nimbusgw HTTP gateway: the object/MPU API server,
// the optional stale-upload sweeper, and (when enabled) a metrics endpoint.
//
// Grounded on the teacher's cmd/dittofs/main.go runStart path: config load,
// registry construction, signal-driven graceful shutdown with a serverDone
// channel. Generalized from the teacher's multi-adapter (NFS/API) server to a
// single HTTP router, since this gateway exposes one protocol surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/pkg/api"
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/metrics"
	"github.com/nimbusstore/gateway/pkg/mpu"
	"github.com/nimbusstore/gateway/pkg/registry"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	if len(os.Args) >= 2 && os.Args[1] == "version" {
		fmt.Printf("gatewayd %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, err := registry.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build registry: %v\n", err)
		os.Exit(1)
	}
	reg.Start(ctx)

	logger.Info("nimbusgw gateway starting",
		"version", version,
		"metadata_backend", cfg.Metadata.Backend,
		"shark_backend", cfg.SharkClient.Backend,
		"sharks", len(cfg.Sharks))

	router := api.NewRouter(reg)

	g, gctx := errgroup.WithContext(ctx)

	servers := make([]*http.Server, 0, 3)

	mainSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: router}
	servers = append(servers, mainSrv)
	g.Go(func() error {
		logger.Info("listening", "port", cfg.Server.Port, "tls", false)
		if err := mainSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("main listener: %w", err)
		}
		return nil
	})

	if cfg.Server.InsecurePort != 0 {
		insecureSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.InsecurePort), Handler: router}
		servers = append(servers, insecureSrv)
		g.Go(func() error {
			logger.Info("listening", "port", cfg.Server.InsecurePort, "tls", false)
			if err := insecureSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("insecure listener: %w", err)
			}
			return nil
		})
	}

	// The main router already mounts /metrics inline; a distinct metrics.port
	// additionally exposes it on its own listener, for deployments that want to
	// firewall the scrape endpoint away from client traffic.
	if cfg.Metrics.Enabled && cfg.Metrics.Port != 0 && cfg.Metrics.Port != cfg.Server.Port {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: metricsMux}
		servers = append(servers, metricsSrv)
		g.Go(func() error {
			logger.Info("metrics listening", "port", cfg.Metrics.Port)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	if cfg.MultipartUpload.Sweeper.Enabled {
		interval := cfg.MultipartUpload.Sweeper.MaxAge / 4
		sweeper := mpu.NewSweeper(reg.MPU, cfg.MultipartUpload.Sweeper.MaxAge, interval)
		g.Go(func() error {
			logger.Info("upload sweeper running", "max_age", cfg.MultipartUpload.Sweeper.MaxAge, "interval", interval)
			sweeper.Run(gctx)
			return nil
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, draining connections")
	case <-gctx.Done():
		logger.Warn("a server goroutine exited, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("listener shutdown error", logger.Err(err))
		}
	}
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error("server error", logger.Err(err))
		_ = reg.Stop(shutdownCtx)
		os.Exit(1)
	}

	if err := reg.Stop(shutdownCtx); err != nil {
		logger.Error("registry shutdown error", logger.Err(err))
		os.Exit(1)
	}

	logger.Info("nimbusgw gateway stopped")
}
