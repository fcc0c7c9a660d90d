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

// PredictionDependencies defines the submission operations.
type PredictionDependencies interface {
	SubmitPrediction(ctx context.Context, userID, raceID string, picks []string, session model.SessionType) (types.SubmitReceipt, error)
	SubmitH2HPredictions(ctx context.Context, userID, raceID string, picks []types.H2HPick, session model.SessionType) (types.H2HReceipt, error)
}

// PredictionHandler handles prediction submissions.
type PredictionHandler struct {
	deps   PredictionDependencies
	logger logger.Logger
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(deps PredictionDependencies, log logger.Logger) *PredictionHandler {
	return &PredictionHandler{deps: deps, logger: log}
}

type predictionRequest struct {
	Picks   []string `json:"picks"`
	Session string   `json:"session,omitempty"`
}

type h2hRequest struct {
	Picks   []types.H2HPick `json:"picks"`
	Session string          `json:"session,omitempty"`
}

// HandleSubmitPrediction handles POST /races/{raceID}/predictions requests.
func (h *PredictionHandler) HandleSubmitPrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_prediction"
	var req predictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	session, err := model.ParseSession(req.Session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	receipt, err := h.deps.SubmitPrediction(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "raceID"), req.Picks, session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// HandleSubmitH2H handles POST /races/{raceID}/h2h-predictions requests.
func (h *PredictionHandler) HandleSubmitH2H(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_h2h"
	var req h2hRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	session, err := model.ParseSession(req.Session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	receipt, err := h.deps.SubmitH2HPredictions(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "raceID"), req.Picks, session)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
