package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusstore/gateway/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Metadata.Backend = "memory"
	cfg.SharkClient.Backend = "http"
	cfg.Auth.JWTSecret = "this-secret-is-at-least-32-characters-long"
	cfg.Sharks = []config.ShardNodeConfig{
		{ID: "shark-1", Datacenter: "dc1", BaseURL: "http://shark-1.internal:9000"},
		{ID: "shark-2", Datacenter: "dc2", BaseURL: "http://shark-2.internal:9000"},
	}
	return cfg
}

func TestBuildWiresSharedSingletonsAcrossBothApplications(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true

	reg, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	require.Same(t, reg.Metadata, reg.Object.Metadata)
	require.Same(t, reg.Metadata, reg.MPU.Metadata)
	require.Same(t, reg.View, reg.Object.View)
	require.Same(t, reg.View, reg.MPU.View)
	require.Same(t, reg.Planner, reg.Object.Planner)
	require.Same(t, reg.Planner, reg.MPU.Planner)
	require.NotNil(t, reg.Object.FanoutMetrics)
	require.Same(t, reg.Object.FanoutMetrics, reg.MPU.FanoutMetrics)

	nodes := reg.View.Snapshot()
	require.Len(t, nodes, 2)
}

func TestBuildRejectsUnknownMetadataBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metadata.Backend = "nonsense"

	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestBuildRejectsUnknownSharkBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.SharkClient.Backend = "nonsense"

	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestBuildRejectsShortAuthSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "too-short"

	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestStartAndStopDoNotPanic(t *testing.T) {
	reg, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg.Start(ctx)
	require.NoError(t, reg.Stop(context.Background()))
}
