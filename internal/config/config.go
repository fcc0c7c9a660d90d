// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config holding every default.
// - Load layers a YAML file and the environment over those defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is the badger directory. Empty keeps all data in memory.
	DataDir string `koanf:"data_dir"`

	// SeedFile optionally points to a YAML document with users, drivers, races and matchups.
	SeedFile string `koanf:"seed_file"`

	// JWTSecret signs and verifies bearer tokens. It has no default and
	// must be at least MinJWTSecretLen bytes.
	JWTSecret string `koanf:"jwt_secret"`

	// DefaultLeaderboardLimit is used when a leaderboard request omits limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RescoreWorkers sets the number of season rescore workers.
	RescoreWorkers int `koanf:"rescore_workers"`

	// RescoreQueueSize bounds the in-memory rescore queue.
	RescoreQueueSize int `koanf:"rescore_queue_size"`

	// Point table for the top-5 game.
	PointsExact    int `koanf:"points_exact"`
	PointsAdjacent int `koanf:"points_adjacent"`
	PointsTopFive  int `koanf:"points_top_five"`

	// MetricsEnabled turns Prometheus recording on. /metrics is served
	// either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshInterval is how often system gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// MinJWTSecretLen is the shortest accepted HS256 signing secret.
const MinJWTSecretLen = 16

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		DefaultLeaderboardLimit: 50,
		MaxLeaderboardLimit:     100,
		RescoreWorkers:          runtime.NumCPU(),
		RescoreQueueSize:        1024,
		PointsExact:             5,
		PointsAdjacent:          3,
		PointsTopFive:           1,
		MetricsEnabled:          true,
		MetricsNamespace:        "gridpick",
		MetricsSubsystem:        "game",
		MetricsRefreshInterval:  10 * time.Second,
	}
}
