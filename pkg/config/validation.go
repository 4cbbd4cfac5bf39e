package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct-tag validation across the configuration and performs a few
// cross-field checks the validator tags can't express directly.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Storage.MaxOperatorUtilizationPct < cfg.Storage.MaxUtilizationPct {
		return fmt.Errorf("storage.max_operator_utilization_pct (%d) must be >= storage.max_utilization_pct (%d)",
			cfg.Storage.MaxOperatorUtilizationPct, cfg.Storage.MaxUtilizationPct)
	}

	if cfg.Metadata.Backend == "sql" && cfg.Metadata.SQL.DSN == "" {
		return fmt.Errorf("metadata.sql.dsn is required when metadata.backend is \"sql\"")
	}

	if cfg.Metadata.Backend == "badger" && cfg.Metadata.Badger.Dir == "" {
		return fmt.Errorf("metadata.badger.dir is required when metadata.backend is \"badger\"")
	}

	return nil
}
