package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/gridpick/internal/adapters/http/auth"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
)

// RaceDependencies defines the read operations scoped to one race.
type RaceDependencies interface {
	NextRace(ctx context.Context) (types.NextRace, error)
	RaceLeaderboard(ctx context.Context, viewerID, raceID string) (types.RaceBoard, error)
	MyScoreForRace(ctx context.Context, userID, raceID string, session model.SessionType) (*types.ScoreView, error)
}

// RaceHandler handles race requests.
type RaceHandler struct {
	deps   RaceDependencies
	logger logger.Logger
}

// NewRaceHandler creates a new race handler.
func NewRaceHandler(deps RaceDependencies, log logger.Logger) *RaceHandler {
	return &RaceHandler{deps: deps, logger: log}
}

// HandleNextRace handles GET /races/next requests.
func (h *RaceHandler) HandleNextRace(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_race"
	next, err := h.deps.NextRace(r.Context())
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// HandleRaceLeaderboard handles GET /races/{raceID}/leaderboard requests.
// A locked board is still a 200; its status and reason say why it is empty.
func (h *RaceHandler) HandleRaceLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_leaderboard"
	board, err := h.deps.RaceLeaderboard(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "raceID"))
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleMyScore handles GET /races/{raceID}/scores/me?session= requests.
// No content means no score has been computed yet.
func (h *RaceHandler) HandleMyScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.my_score"
	session, err := model.ParseSession(r.URL.Query().Get("session"))
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	view, err := h.deps.MyScoreForRace(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "raceID"), session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
