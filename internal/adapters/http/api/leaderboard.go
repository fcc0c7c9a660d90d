package api

import (
	"context"
	"net/http"

	"github.com/okian/gridpick/internal/adapters/http/auth"
	"github.com/okian/gridpick/internal/domain/leaderboard"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
)

// LeaderboardDependencies defines the season board operations.
type LeaderboardDependencies interface {
	SeasonLeaderboard(ctx context.Context, q types.LeaderboardQuery) (leaderboard.Page, error)
	H2HSeasonLeaderboard(ctx context.Context, q types.LeaderboardQuery) (leaderboard.Page, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: log}
}

// HandleSeasonLeaderboard handles GET /leaderboard?limit&offset&season requests.
// Out-of-range limits are clamped by the service rather than rejected.
func (h *LeaderboardHandler) HandleSeasonLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.season_leaderboard", h.deps.SeasonLeaderboard)
}

// HandleH2HLeaderboard handles GET /leaderboard/h2h requests.
func (h *LeaderboardHandler) HandleH2HLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.h2h_leaderboard", h.deps.H2HSeasonLeaderboard)
}

func (h *LeaderboardHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	read func(context.Context, types.LeaderboardQuery) (leaderboard.Page, error),
) {
	q, err := parseLeaderboardQuery(r)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	page, err := read(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseLeaderboardQuery(r *http.Request) (types.LeaderboardQuery, error) {
	q := types.LeaderboardQuery{ViewerID: auth.UserID(r.Context())}
	var err error
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(r, "offset"); err != nil {
		return q, err
	}
	if q.Season, err = queryInt(r, "season"); err != nil {
		return q, err
	}
	return q, nil
}
