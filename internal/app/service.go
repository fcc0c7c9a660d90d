// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
	defaultRescoreQueueSize = 1024
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the prediction game: submissions, result publication,
// rescoring and leaderboards. It holds no game state between calls; every
// operation is one store transaction.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	scorer scoring.Scorer
	now    func() time.Time

	defaultLimit     int
	maxLimit         int
	rescoreWorkers   int
	rescoreQueueSize int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the entity store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer replaces the top-5 scorer.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for lock checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLeaderboardLimits sets the default and maximum page sizes.
func WithLeaderboardLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
		if defaultLimit > 0 && defaultLimit <= s.maxLimit {
			s.defaultLimit = defaultLimit
		}
	}
}

// WithRescoreWorkers sets the number of season rescore workers.
func WithRescoreWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rescoreWorkers = n
		}
	}
}

// WithRescoreQueueSize bounds the season rescore queue.
func WithRescoreQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rescoreQueueSize = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scorer:           scoring.New(),
		now:              time.Now,
		defaultLimit:     defaultLeaderboardLimit,
		maxLimit:         maxLeaderboardLimit,
		rescoreWorkers:   runtime.NumCPU(),
		rescoreQueueSize: defaultRescoreQueueSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens an in-memory store when none was supplied and marks the
// service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		store, err := repository.OpenInMemory()
		if err != nil {
			return fmt.Errorf("open in-memory store: %w", err)
		}
		s.store = store
		s.logger.Warn(ctx, "no store configured, using in-memory badger")
	}

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("rescoreWorkers", s.rescoreWorkers),
		logger.Int("rescoreQueueSize", s.rescoreQueueSize),
		logger.Int("defaultLimit", s.defaultLimit),
		logger.Int("maxLimit", s.maxLimit),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

func (s *Service) ready() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// fail logs and counts a failed operation and returns err unchanged.
// Domain rejections are expected traffic and log at debug.
func (s *Service) fail(ctx context.Context, op string, err error, fields ...logger.Field) error {
	kind := model.Kind(err)
	metrics.RecordRejection(kind)

	fields = append(fields, logger.String("op", op), logger.String("kind", kind), logger.Error(err))
	if kind == model.KindInternal {
		s.logger.Error(ctx, "operation failed", fields...)
	} else {
		s.logger.Debug(ctx, "operation rejected", fields...)
	}
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"rescoreWorkers":   s.rescoreWorkers,
		"rescoreQueueSize": s.rescoreQueueSize,
		"defaultLimit":     s.defaultLimit,
		"maxLimit":         s.maxLimit,
	}

	if s.started {
		counts, err := s.store.Counts(context.Background())
		if err != nil {
			stats["countsError"] = err.Error()
			return stats
		}
		for kind, n := range counts {
			metrics.UpdateEntityCount(kind, n)
		}
		stats["entities"] = counts
	}

	return stats
}

// clampPage normalises limit and offset against the configured bounds.
func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
