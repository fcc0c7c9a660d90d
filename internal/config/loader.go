package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "GRIDPICK_"
	envConfigFile = envPrefix + "CONFIG"
)

// metricSegment matches a Prometheus name segment; empty is allowed.
var metricSegment = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)?$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GRIDPICK_CONFIG is set
//  3. env (prefix GRIDPICK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GRIDPICK_MAX_LEADERBOARD_LIMIT -> max_leaderboard_limit (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.JWTSecret) == "":
		return fmt.Errorf("%w: jwt_secret must be set (GRIDPICK_JWT_SECRET)", ErrInvalidConfig)
	case len(c.JWTSecret) < MinJWTSecretLen:
		return fmt.Errorf("%w: jwt_secret must be at least %d bytes", ErrInvalidConfig, MinJWTSecretLen)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit <= 0 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit must be in [1, max_leaderboard_limit]", ErrInvalidConfig)
	case c.RescoreWorkers <= 0:
		return fmt.Errorf("%w: rescore_workers must be positive", ErrInvalidConfig)
	case c.RescoreQueueSize <= 0:
		return fmt.Errorf("%w: rescore_queue_size must be positive", ErrInvalidConfig)
	case c.PointsExact < 0 || c.PointsAdjacent < 0 || c.PointsTopFive < 0:
		return fmt.Errorf("%w: point values must not be negative", ErrInvalidConfig)
	case !metricSegment.MatchString(c.MetricsNamespace) || !metricSegment.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_namespace and metrics_subsystem must be valid metric name segments", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
