// Package registry is the composition root: it reads a loaded config.Config,
// constructs every process-wide singleton exactly once (metadata store, shark
// backend, placement view and planner, metrics, auth validator), and wires them
// into the object and mpu request pipelines.
//
// Grounded on the teacher's pkg/registry.Registry "single construction phase"
// idea, generalized from a named multi-store, runtime-registrable registry to a
// fixed set of singletons built once at startup: this gateway has no NFS-style
// share/mount model, so there is nothing left to register after boot.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/auth"
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/metadatastore/badger"
	"github.com/nimbusstore/gateway/pkg/metadatastore/memory"
	metasql "github.com/nimbusstore/gateway/pkg/metadatastore/sql"
	"github.com/nimbusstore/gateway/pkg/metrics"
	_ "github.com/nimbusstore/gateway/pkg/metrics/prometheus" // registers the concrete collectors via init()
	"github.com/nimbusstore/gateway/pkg/mpu"
	"github.com/nimbusstore/gateway/pkg/object"
	"github.com/nimbusstore/gateway/pkg/placement"
	"github.com/nimbusstore/gateway/pkg/sharkclient"
	"github.com/nimbusstore/gateway/pkg/sharkclient/s3"
)

// Registry holds every process-wide singleton and the two request-pipeline
// Applications built from them. Construct with Build, then call Start before
// serving traffic and Stop during shutdown.
type Registry struct {
	Config *config.Config

	Metadata  metadatastore.Store
	View      *placement.View
	Planner   *placement.Planner
	Validator *auth.Validator

	Object *object.Application
	MPU    *mpu.Application

	telemetryShutdown func(context.Context) error
}

// Build wires every singleton described by cfg. It does not start the
// placement view's background poller; call Start for that.
func Build(ctx context.Context, cfg *config.Config) (*Registry, error) {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("registry: init logger: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "nimbusgw",
		ServiceVersion: "dev",
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: init telemetry: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	metaStore, err := BuildMetadataStore(cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("registry: build metadata store: %w", err)
	}

	healthChecker, writer, reader, finalizer, err := buildSharkBackend(ctx, cfg.SharkClient)
	if err != nil {
		return nil, fmt.Errorf("registry: build shark backend: %w", err)
	}

	seed := seedNodes(cfg.Sharks)
	view := placement.NewView(seed, healthChecker, cfg.Placement.RefreshInterval, cfg.Placement.StaleAfter)
	planner := placement.NewPlanner(view, placement.Config{
		MinCopies:                 1,
		MaxCopies:                 cfg.Storage.MaxObjectCopies,
		MaxUtilizationPct:         cfg.Storage.MaxUtilizationPct,
		MaxOperatorUtilizationPct: cfg.Storage.MaxOperatorUtilizationPct,
	})

	// Constructed once and shared: calling NewPlacementMetrics twice would register
	// duplicate Prometheus collectors under the same names against the same
	// registry and panic on the second registration.
	plMetrics := metrics.NewPlacementMetrics()
	view.SetMetrics(plMetrics)
	planner.SetMetrics(plMetrics)

	fanoutMetrics := metrics.NewFanoutMetrics()

	validator, err := auth.NewValidator(auth.ConfigFrom(cfg.Auth))
	if err != nil {
		return nil, fmt.Errorf("registry: build auth validator: %w", err)
	}

	reg := &Registry{
		Config:            cfg,
		Metadata:          metaStore,
		View:              view,
		Planner:           planner,
		Validator:         validator,
		telemetryShutdown: shutdown,
		Object: &object.Application{
			Metadata:      metaStore,
			Planner:       planner,
			View:          view,
			Fanout:        writer,
			Reader:        reader,
			Config:        cfg,
			FanoutMetrics: fanoutMetrics,
		},
		MPU: &mpu.Application{
			Metadata:      metaStore,
			Planner:       planner,
			View:          view,
			Parts:         writer,
			Finalize:      finalizer,
			Config:        cfg,
			FanoutMetrics: fanoutMetrics,
		},
	}

	return reg, nil
}

// Start begins the placement view's background refresh loop. Safe to call
// once per Registry, before serving traffic.
func (r *Registry) Start(ctx context.Context) {
	r.View.Start(ctx)
}

// Stop tears down the background refresh loop and flushes telemetry. It is
// safe to call even if Start was never called.
func (r *Registry) Stop(ctx context.Context) error {
	r.View.Stop()
	if r.telemetryShutdown == nil {
		return nil
	}
	return r.telemetryShutdown(ctx)
}

// BuildMetadataStore opens the metadata backend named by cfg. Exported so operator
// tooling (the admin CLI) can inspect the same store the server would build,
// without standing up a full Registry.
func BuildMetadataStore(cfg config.MetadataConfig) (metadatastore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "badger":
		return badger.Open(cfg.Badger.Dir)
	case "sql":
		driver := metasql.Driver(cfg.SQL.Driver)
		return metasql.Open(driver, cfg.SQL.DSN)
	default:
		return nil, fmt.Errorf("registry: unknown metadata backend %q", cfg.Backend)
	}
}

// buildSharkBackend bundles the four roles a shark backend fills: health
// polling (consumed by placement.View), fan-out writes, ranged reads, and MPU
// finalize. http and s3 each implement all four on a single concrete type.
func buildSharkBackend(ctx context.Context, cfg config.SharkClientConfig) (placement.HealthChecker, fanout.ReplicaWriter, object.ReplicaReader, mpu.FinalizeClient, error) {
	switch cfg.Backend {
	case "http":
		client := sharkclient.NewClient(sharkclient.ConfigFrom(cfg), metrics.NewSharkClientMetrics())
		reader := sharkclient.NewReader(client)
		return client, client, reader, client, nil
	case "s3":
		awsClient, err := s3.NewS3ClientFromConfig(ctx, s3.ConfigFrom(cfg.S3))
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("build s3 client: %w", err)
		}
		shark := s3.NewShark(awsClient, s3.ConfigFrom(cfg.S3))
		reader := s3.NewReader(shark)
		return shark, shark, reader, shark, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("registry: unknown shark backend %q", cfg.Backend)
	}
}

// seedNodes builds the placement view's initial node set from static config.
// Nodes start closed-circuit with a fresh heartbeat so they aren't immediately
// treated as stale by the first Plan call, before the refresh loop has run.
func seedNodes(sharks []config.ShardNodeConfig) []placement.Node {
	now := time.Now()
	nodes := make([]placement.Node, 0, len(sharks))
	for _, s := range sharks {
		nodes = append(nodes, placement.Node{
			ID:            s.ID,
			Datacenter:    s.Datacenter,
			BaseURL:       s.BaseURL,
			Circuit:       placement.CircuitClosed,
			LastHeartbeat: now,
		})
	}
	return nodes
}
