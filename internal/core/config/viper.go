package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*AnalysisConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultAnalysisConfig
	def := DefaultAnalysisConfig()
	v.SetDefault("analysis.epsilon", def.Epsilon)
	v.SetDefault("analysis.default_lower", def.DefaultLower)
	v.SetDefault("analysis.default_upper", def.DefaultUpper)
	v.SetDefault("analysis.solve_timeout", def.SolveTimeout.String())
	v.SetDefault("analysis.max_parallel", def.MaxParallel)
	v.SetDefault("solver.max_nodes", def.MaxNodes)

	// Bind environment variables with RP_ prefix
	v.SetEnvPrefix("RP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject credentials in config files
	// Database URLs must be flag- or environment-only per 12-factor principles
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &AnalysisConfig{
		Epsilon:      v.GetFloat64("analysis.epsilon"),
		DefaultLower: v.GetFloat64("analysis.default_lower"),
		DefaultUpper: v.GetFloat64("analysis.default_upper"),
		SolveTimeout: v.GetDuration("analysis.solve_timeout"),
		MaxParallel:  v.GetInt("analysis.max_parallel"),
		MaxNodes:     v.GetInt("solver.max_nodes"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks the soundness-critical knobs: a non-positive
// epsilon or an inverted domain silently breaks strict-inequality
// encoding, so both fail fast here.
func validateConfig(cfg *AnalysisConfig) error {
	if cfg.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", cfg.Epsilon)
	}
	if cfg.DefaultUpper <= cfg.DefaultLower {
		return fmt.Errorf("default_upper must exceed default_lower, got [%g, %g]", cfg.DefaultLower, cfg.DefaultUpper)
	}
	if cfg.SolveTimeout <= 0 {
		return fmt.Errorf("solve_timeout must be positive, got %v", cfg.SolveTimeout)
	}
	if cfg.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be positive, got %d", cfg.MaxParallel)
	}
	if cfg.MaxNodes <= 0 {
		return fmt.Errorf("max_nodes must be positive, got %d", cfg.MaxNodes)
	}
	return nil
}

// validateNoCredentialsInConfig enforces environment-only database URLs (12-factor principle).
func validateNoCredentialsInConfig(v *viper.Viper) error {
	if v.IsSet("db_url") || v.IsSet("catalog.db_url") {
		return fmt.Errorf("database URLs not allowed in config files (use the --db-url flag or RP_DB_URL environment variable)")
	}
	return nil
}
