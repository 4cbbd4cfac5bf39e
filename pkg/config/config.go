// Package config loads nimbusgw's layered configuration: CLI flags, then
// environment variables (NIMBUSGW_*), then a YAML config file, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/nimbusstore/gateway/internal/bytesize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is nimbusgw's top-level configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (NIMBUSGW_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server contains the HTTP API server settings.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Storage controls placement and fan-out sizing limits.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Placement controls the background placement-view refresh poller.
	Placement PlacementConfig `mapstructure:"placement" yaml:"placement"`

	// Metadata selects and configures the metadata-tier backend.
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// MultipartUpload controls MPU id/prefix-directory behavior and the optional sweeper.
	MultipartUpload MultipartUploadConfig `mapstructure:"multipart_upload" yaml:"multipart_upload"`

	// Metrics contains the Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Auth contains JWT authorizer configuration.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// SharkClient configures the pooled HTTP client used to talk to storage nodes.
	SharkClient SharkClientConfig `mapstructure:"shark_client" yaml:"shark_client"`

	// Sharks seeds the placement view at startup. There is no shark registration
	// endpoint (§6 lists no such route); the known fleet is config, refreshed
	// in-process thereafter by the placement view's background poller.
	Sharks []ShardNodeConfig `mapstructure:"sharks" yaml:"sharks"`

	// AccountsSnaplinksDisabled lists accounts for which DELETE bypasses snaplink cleanup.
	AccountsSnaplinksDisabled []string `mapstructure:"accounts_snaplinks_disabled" yaml:"accounts_snaplinks_disabled,omitempty"`
}

// ShardNodeConfig seeds one storage node into the placement view.
type ShardNodeConfig struct {
	// ID uniquely identifies the shark and, for the S3 backend, names the bucket
	// (BucketPrefix + "-" + ID).
	ID string `mapstructure:"id" validate:"required" yaml:"id"`

	// Datacenter groups nodes for placement spread (§4.1).
	Datacenter string `mapstructure:"datacenter" validate:"required" yaml:"datacenter"`

	// BaseURL is the shark's RPC endpoint, used by the plain HTTP backend
	// (pkg/sharkclient). Ignored by the S3 backend, which derives its bucket from ID.
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	// Port is the TLS/primary HTTP listen port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// InsecurePort is an optional plaintext listen port (0 disables it).
	InsecurePort int `mapstructure:"insecure_port" validate:"omitempty,min=1,max=65535" yaml:"insecure_port,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection to the collector.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// StorageConfig controls placement and fan-out sizing limits.
type StorageConfig struct {
	// DefaultMaxStreamingSize is the default cap for streaming PUTs when the client omits
	// Max-Content-Length.
	DefaultMaxStreamingSize bytesize.ByteSize `mapstructure:"default_max_streaming_size" yaml:"default_max_streaming_size"`

	// MaxUtilizationPct excludes storage nodes above this utilization percentage.
	MaxUtilizationPct int `mapstructure:"max_utilization_pct" validate:"min=1,max=100" yaml:"max_utilization_pct"`

	// MaxOperatorUtilizationPct is the operator-request equivalent of MaxUtilizationPct.
	MaxOperatorUtilizationPct int `mapstructure:"max_operator_utilization_pct" validate:"min=1,max=100" yaml:"max_operator_utilization_pct"`

	// MaxObjectCopies is the upper bound on requested replica count.
	MaxObjectCopies int `mapstructure:"max_object_copies" validate:"min=1,max=9" yaml:"max_object_copies"`
}

// PlacementConfig controls the background placement-view refresh poller.
type PlacementConfig struct {
	// RefreshInterval is how often the placement view polls shark health.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`

	// StaleAfter excludes a shark from planning once it hasn't reported within this duration.
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// MetadataConfig selects and configures the metadata-tier backend.
type MetadataConfig struct {
	// Backend selects the metadata store implementation: memory, badger, or sql.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory badger sql" yaml:"backend"`

	// Badger configures the embedded BadgerDB backend (used when Backend == "badger").
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`

	// SQL configures the relational backend (used when Backend == "sql").
	SQL SQLConfig `mapstructure:"sql" yaml:"sql"`
}

// BadgerConfig configures the embedded BadgerDB metadata backend.
type BadgerConfig struct {
	// Dir is the BadgerDB data directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SQLConfig configures the relational metadata backend.
type SQLConfig struct {
	// Driver selects the SQL dialect: postgres or sqlite.
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=postgres sqlite" yaml:"driver"`

	// DSN is the connection string (or file path, for sqlite).
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// MultipartUploadConfig controls MPU id/prefix-directory behavior and the optional sweeper.
type MultipartUploadConfig struct {
	// PrefixDirLen is the default hex-prefix directory length for new upload ids.
	PrefixDirLen int `mapstructure:"prefix_dir_len" validate:"min=1,max=4" yaml:"prefix_dir_len"`

	// Sweeper configures the optional stale-upload sweeper job.
	Sweeper SweeperConfig `mapstructure:"sweeper" yaml:"sweeper"`
}

// SweeperConfig configures the optional stale-upload sweeper job (§4.9).
type SweeperConfig struct {
	// Enabled controls whether the sweeper job runs. Disabled by default.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxAge is how long a CREATED upload may remain un-finalized before the sweeper aborts it.
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// AuthConfig contains JWT authorizer configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC signing secret used to verify bearer tokens.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTIssuer, if set, is required to match the token's iss claim.
	JWTIssuer string `mapstructure:"jwt_issuer" yaml:"jwt_issuer,omitempty"`
}

// SharkClientConfig configures the HTTP client used to talk to storage nodes
// ("sharks"): per-attempt timeouts, the retry policy for transport-level
// failures, and the per-node circuit breaker (§4.8).
type SharkClientConfig struct {
	// Backend selects the shark transport: "http" talks the shark RPC protocol
	// directly (pkg/sharkclient); "s3" treats each shark as an S3 bucket
	// (pkg/sharkclient/s3), for development and integration tests against MinIO
	// or real S3.
	Backend string `mapstructure:"backend" validate:"required,oneof=http s3" yaml:"backend"`

	// S3 configures the S3-compatible backend (used when Backend == "s3").
	S3 SharkS3Config `mapstructure:"s3" yaml:"s3,omitempty"`

	// DialTimeout bounds TCP connection establishment to a shark.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// ResponseHeaderTimeout bounds how long to wait for a shark's response headers.
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout" yaml:"response_header_timeout"`

	// RequestTimeout bounds a single non-streaming RPC (finalize, health, read).
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// MaxIdleConnsPerHost bounds the pooled idle connections kept per shark.
	MaxIdleConnsPerHost int `mapstructure:"max_idle_conns_per_host" validate:"omitempty,min=1" yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long an idle pooled connection is kept before closing.
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`

	// Retry configures bounded jittered backoff for transport-level failures.
	Retry ShardRetryConfig `mapstructure:"retry" yaml:"retry"`

	// CircuitBreaker configures the per-node closed/open/half-open breaker.
	CircuitBreaker ShardCircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
}

// SharkS3Config configures the S3-compatible shark backend (pkg/sharkclient/s3).
type SharkS3Config struct {
	// Endpoint overrides the S3 endpoint (set for MinIO/localstack; empty uses AWS).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// Region is the S3 region.
	Region string `mapstructure:"region" yaml:"region"`

	// AccessKeyID and SecretAccessKey are static credentials. Empty defers to the
	// default AWS credential chain (environment, shared config, instance role).
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// ForcePathStyle is required by most S3-compatible servers that aren't AWS itself.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`

	// BucketPrefix names the bucket backing each shark: bucket = BucketPrefix + "-" + node.ID.
	BucketPrefix string `mapstructure:"bucket_prefix" yaml:"bucket_prefix"`

	// KeyPrefix namespaces every object key written under a shark's bucket.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`

	// PartSize bounds how much of a streamed write is buffered before an S3
	// UploadPart call is issued. Must be at least 5 MiB, S3's own minimum.
	PartSize bytesize.ByteSize `mapstructure:"part_size" yaml:"part_size,omitempty"`
}

// ShardRetryConfig bounds retry attempts and backoff for shark RPCs.
type ShardRetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"omitempty,min=1,max=10" yaml:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

// ShardCircuitBreakerConfig tunes a shark's circuit breaker.
type ShardCircuitBreakerConfig struct {
	MaxFailures         uint32        `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
	HalfOpenMaxRequests uint32        `mapstructure:"half_open_max_requests" yaml:"half_open_max_requests"`
}

// Load loads configuration from file, environment, and defaults.
//
// When a configuration file is found, precedence (highest to lowest) is:
//  1. Environment variables (NIMBUSGW_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns the default configuration;
// environment variables are not applied in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  nimbusgwctl init\n\n"+
				"Or specify a custom config file:\n"+
				"  gatewayd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  nimbusgwctl init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variable and config-file search settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NIMBUSGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and time.Duration.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, enabling
// human-readable sizes like "1Gi", "500Mi", "100MB" in config files.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings and numbers to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, preferring XDG_CONFIG_HOME.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nimbusgw")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "nimbusgw")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
