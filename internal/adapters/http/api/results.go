package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/okian/gridpick/internal/adapters/http/auth"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
)

// ResultDependencies defines the admin operations.
type ResultDependencies interface {
	PublishResults(ctx context.Context, adminID, raceID string, classification []string, session model.SessionType) (types.PublishReport, error)
	RescoreSeason(ctx context.Context, adminID string, season int) (types.RescoreReport, error)
}

// ResultHandler handles result publication and rescoring.
type ResultHandler struct {
	deps   ResultDependencies
	logger logger.Logger
}

// NewResultHandler creates a new result handler.
func NewResultHandler(deps ResultDependencies, log logger.Logger) *ResultHandler {
	return &ResultHandler{deps: deps, logger: log}
}

type resultRequest struct {
	Classification []string `json:"classification"`
	Session        string   `json:"session,omitempty"`
}

// HandlePublishResults handles POST /races/{raceID}/results requests.
func (h *ResultHandler) HandlePublishResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.publish_results"
	var req resultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	session, err := model.ParseSession(req.Session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	report, err := h.deps.PublishResults(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "raceID"), req.Classification, session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRescoreSeason handles POST /seasons/{season}/rescore requests.
// Season 0 rescores every season.
func (h *ResultHandler) HandleRescoreSeason(w http.ResponseWriter, r *http.Request) {
	const op = "api.rescore_season"
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season < 0 {
		writeError(w, r, h.logger, op, fmt.Errorf("%w: season must be a non-negative integer", ErrBadRequest))
		return
	}
	report, err := h.deps.RescoreSeason(r.Context(), auth.UserID(r.Context()), season)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
