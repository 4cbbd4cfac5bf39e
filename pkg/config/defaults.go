package config

import (
	"strings"
	"time"

	"github.com/nimbusstore/gateway/internal/bytesize"
)

// GetDefaultConfig returns a Config populated entirely with defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default strategy: zero values (0, "", false, nil) are replaced with defaults;
// explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyPlacementDefaults(&cfg.Placement)
	applyMetadataDefaults(&cfg.Metadata)
	applyMultipartUploadDefaults(&cfg.MultipartUpload)
	applyMetricsDefaults(&cfg.Metrics)
	applySharkClientDefaults(&cfg.SharkClient)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8443
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.DefaultMaxStreamingSize == 0 {
		cfg.DefaultMaxStreamingSize = 50 * bytesize.GiB
	}
	if cfg.MaxUtilizationPct == 0 {
		cfg.MaxUtilizationPct = 90
	}
	if cfg.MaxOperatorUtilizationPct == 0 {
		cfg.MaxOperatorUtilizationPct = 92
	}
	// Reconcile: operator threshold must never be below the normal threshold.
	if cfg.MaxOperatorUtilizationPct <= cfg.MaxUtilizationPct {
		raised := 92
		if cfg.MaxUtilizationPct > raised {
			raised = cfg.MaxUtilizationPct
		}
		cfg.MaxOperatorUtilizationPct = raised
	}
	if cfg.MaxObjectCopies == 0 {
		cfg.MaxObjectCopies = 9
	}
}

func applyPlacementDefaults(cfg *PlacementConfig) {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 2 * time.Minute
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.Badger.Dir == "" {
		cfg.Badger.Dir = "/var/lib/nimbusgw/metadata"
	}
	if cfg.SQL.Driver == "" && cfg.Backend == "sql" {
		cfg.SQL.Driver = "sqlite"
	}
}

func applyMultipartUploadDefaults(cfg *MultipartUploadConfig) {
	if cfg.PrefixDirLen == 0 {
		cfg.PrefixDirLen = 1
	}
	if cfg.Sweeper.MaxAge == 0 {
		cfg.Sweeper.MaxAge = 24 * time.Hour
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applySharkClientDefaults(cfg *SharkClientConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "http"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	if cfg.S3.BucketPrefix == "" {
		cfg.S3.BucketPrefix = "shark"
	}
	if cfg.S3.PartSize == 0 {
		cfg.S3.PartSize = 8 * bytesize.MiB
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ResponseHeaderTimeout == 0 {
		cfg.ResponseHeaderTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 16
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = 2 * time.Second
	}
	if cfg.CircuitBreaker.MaxFailures == 0 {
		cfg.CircuitBreaker.MaxFailures = 5
	}
	if cfg.CircuitBreaker.OpenTimeout == 0 {
		cfg.CircuitBreaker.OpenTimeout = 30 * time.Second
	}
	if cfg.CircuitBreaker.HalfOpenMaxRequests == 0 {
		cfg.CircuitBreaker.HalfOpenMaxRequests = 1
	}
}
