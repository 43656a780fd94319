// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SQLitePath is the path to the submissions database. Empty selects
	// an in-memory database, useful for tests and demos.
	SQLitePath string `koanf:"sqlite_path"`

	// CacheTTLSeconds bounds how long computed comparison, ranking and
	// trend results are served from the in-process cache.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheMaxEntries caps the result cache size.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// MaxCompareIDs caps how many submissions one comparison may cover.
	MaxCompareIDs int `koanf:"max_compare_ids"`

	// MaxTopN caps GET /api/compare/rank?top_n.
	MaxTopN int `koanf:"max_top_n"`

	// ForecastHorizon sets how many future years forecasts project.
	ForecastHorizon int `koanf:"forecast_horizon"`

	// DefaultWeights maps canonical metric keys to ranking weights used
	// when a request supplies none.
	DefaultWeights map[string]float64 `koanf:"default_weights"`

	// JWTSecret enables bearer-token auth when non-empty.
	JWTSecret string `koanf:"jwt_secret"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		SQLitePath:      "drishti.db",
		CacheTTLSeconds: 300,
		CacheMaxEntries: 4096,
		MaxCompareIDs:   10,
		MaxTopN:         50,
		ForecastHorizon: 3,
		DefaultWeights: map[string]float64{
			kpi.FSRScore:            1,
			kpi.InfrastructureScore: 1,
			kpi.PlacementIndex:      1,
			kpi.LabComplianceIndex:  1,
			kpi.OverallScore:        1,
		},
		JWTSecret: "",
	}
}

// CacheTTL returns the configured cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
