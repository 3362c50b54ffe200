// Package config provides configuration management for ruleproof commands.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/ruleproof/internal/analysis"
	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/solver"
)

// AnalysisConfig holds the feasibility-engine and solver tunables.
type AnalysisConfig struct {
	Epsilon      float64
	DefaultLower float64
	DefaultUpper float64
	SolveTimeout time.Duration
	MaxParallel  int
	MaxNodes     int
}

// DefaultAnalysisConfig returns configuration with default values.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Epsilon:      mip.DefaultEpsilon,
		DefaultLower: mip.DefaultLowerBound,
		DefaultUpper: mip.DefaultUpperBound,
		SolveTimeout: analysis.DefaultSolveTimeout,
		MaxParallel:  analysis.DefaultMaxParallel,
		MaxNodes:     solver.DefaultMaxNodes,
	}
}

// EngineOptions converts the config into engine options, including a
// simplex backend carrying the configured node budget. Per-document
// variable bounds are layered on by the caller.
func (c *AnalysisConfig) EngineOptions() analysis.Options {
	return analysis.Options{
		Epsilon:      c.Epsilon,
		DefaultLower: c.DefaultLower,
		DefaultUpper: c.DefaultUpper,
		SolveTimeout: c.SolveTimeout,
		MaxParallel:  c.MaxParallel,
		Backend:      solver.NewSimplex(solver.SimplexOptions{MaxNodes: c.MaxNodes}),
	}
}

// DatabaseURL returns the catalog database URL from the RP_DB_URL
// environment variable, or "" when unset. URLs may embed credentials,
// so they are environment- or flag-only; LoadConfig rejects them in
// config files.
func DatabaseURL() (string, error) {
	val := strings.TrimSpace(os.Getenv("RP_DB_URL"))
	if val == "" {
		return "", nil
	}
	if err := ValidateDatabaseURL(val); err != nil {
		return "", fmt.Errorf("RP_DB_URL: %w", err)
	}
	return val, nil
}

// ValidateDatabaseURL checks that a catalog URL uses a supported scheme.
// The URL itself is never echoed into the error.
func ValidateDatabaseURL(val string) error {
	switch {
	case strings.HasPrefix(val, "sqlite://"), strings.HasPrefix(val, "postgres://"):
		return nil
	default:
		return fmt.Errorf("unsupported database URL scheme (want sqlite:// or postgres://)")
	}
}
