// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/gridpick/internal/adapters/http/auth"
	"github.com/okian/gridpick/internal/adapters/http/swagger"
	"github.com/okian/gridpick/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	RaceDependencies
	PredictionDependencies
	ResultDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the game API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	raceHandler        *RaceHandler
	predictionHandler  *PredictionHandler
	resultHandler      *ResultHandler
	leaderboardHandler *LeaderboardHandler

	auth   *auth.Authenticator
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator enables bearer token identity on every route.
func WithAuthenticator(a *auth.Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.raceHandler = NewRaceHandler(deps, s.logger)
	s.predictionHandler = NewPredictionHandler(deps, s.logger)
	s.resultHandler = NewResultHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Get("/races/next", MetricsMiddleware(s.raceHandler.HandleNextRace, "next_race"))
	r.Route("/races/{raceID}", func(r chi.Router) {
		r.Post("/predictions", MetricsMiddleware(s.predictionHandler.HandleSubmitPrediction, "predictions"))
		r.Post("/h2h-predictions", MetricsMiddleware(s.predictionHandler.HandleSubmitH2H, "h2h_predictions"))
		r.Post("/results", MetricsMiddleware(s.resultHandler.HandlePublishResults, "results"))
		r.Get("/leaderboard", MetricsMiddleware(s.raceHandler.HandleRaceLeaderboard, "race_leaderboard"))
		r.Get("/scores/me", MetricsMiddleware(s.raceHandler.HandleMyScore, "my_score"))
	})

	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleSeasonLeaderboard, "leaderboard"))
	r.Get("/leaderboard/h2h", MetricsMiddleware(s.leaderboardHandler.HandleH2HLeaderboard, "h2h_leaderboard"))
	r.Post("/seasons/{season}/rescore", MetricsMiddleware(s.resultHandler.HandleRescoreSeason, "rescore"))

	swagger.Register(ctx, r)
}

// Handler builds the root router with request ids, panic recovery and,
// when configured, bearer token identity.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.auth != nil {
		r.Use(s.auth.Middleware)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: "route not found"})
	})
	s.Register(ctx, r)
	return r
}

// writeError writes err as a JSON error body. Internal errors are logged
// and their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, op string, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("requestId", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, name)
	}
	return n, nil
}
