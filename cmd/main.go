package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/gridpick/internal/adapters/http/api"
	"github.com/okian/gridpick/internal/adapters/http/auth"
	"github.com/okian/gridpick/internal/adapters/repository"
	app "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/config"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/internal/seed"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	token := flag.String("token", "", "print a bearer token for this user id and exit")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of the token printed by -token")
	flag.Parse()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger format comes from config, so it is not available yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *token != "" {
		if err := printToken(os.Stdout, cfg, *token, *ttl); err != nil {
			_, _ = os.Stderr.WriteString("failed to issue token: " + err.Error() + "\n")
			os.Exit(1)
		}
		return
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal(ctx, "server failed", logger.Error(err))
	}
}

// configureMetrics rebuilds the process-wide metrics manager from cfg. It
// must run before the service records anything and before /metrics is wired.
func configureMetrics(cfg *config.Config) *metrics.Manager {
	return metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)
}

// run wires the store, the service and the HTTP server and blocks until ctx
// is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	configureMetrics(cfg)

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	handler, err := newHandler(ctx, cfg, svc)
	if err != nil {
		return err
	}

	go metrics.RunSystemCollector(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService opens the store, applies the optional seed file and starts the
// prediction service.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	store, err := repository.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		doc, err := seed.Load(cfg.SeedFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if _, err := seed.Apply(ctx, store, doc); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply seed: %w", err)
		}
	}

	scorer := scoring.New(scoring.WithTable(scoring.Table{
		Exact:    cfg.PointsExact,
		Adjacent: cfg.PointsAdjacent,
		TopFive:  cfg.PointsTopFive,
	}))

	svc := app.New(
		app.WithStore(store),
		app.WithScorer(scorer),
		app.WithLogger(logger.Get().Named("service")),
		app.WithLeaderboardLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		app.WithRescoreWorkers(cfg.RescoreWorkers),
		app.WithRescoreQueueSize(cfg.RescoreQueueSize),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start service: %w", err)
	}
	return svc, nil
}

// newHandler builds the HTTP API with bearer token identity.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) (http.Handler, error) {
	authn, err := auth.New(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	server := api.NewServer(svc, svc, api.WithAuthenticator(authn), api.WithLogger(logger.Get().Named("http")))
	return server.Handler(ctx), nil
}

// printToken writes a bearer token for userID to w.
func printToken(w io.Writer, cfg *config.Config, userID string, ttl time.Duration) error {
	authn, err := auth.New(cfg.JWTSecret)
	if err != nil {
		return err
	}
	tok, err := authn.Issue(userID, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}
