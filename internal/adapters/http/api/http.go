// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/bookpickr/internal/app"
	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/domain/pool"
	"github.com/okian/bookpickr/internal/domain/selection"
)

const defaultMaxLimit = 50

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	LeaderboardDependencies
	PoolDependencies
	CatalogDependencies
	ShareDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionHandler     *SessionHandler
	leaderboardHandler *LeaderboardHandler
	poolHandler        *PoolHandler
	catalogHandler     *CatalogHandler
	shareHandler       *ShareHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// leaderboard limit a client may request.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	v := validator.New()
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionHandler:     NewSessionHandler(deps, v),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		poolHandler:        NewPoolHandler(deps, v),
		catalogHandler:     NewCatalogHandler(deps),
		shareHandler:       NewShareHandler(deps, v),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /state", MetricsMiddleware(s.sessionHandler.HandleGetState, "state"))
	mux.HandleFunc("GET /pair", MetricsMiddleware(s.sessionHandler.HandleGetPair, "pair"))
	mux.HandleFunc("POST /pick", MetricsMiddleware(s.sessionHandler.HandlePostPick, "pick"))
	mux.HandleFunc("POST /reset", MetricsMiddleware(s.sessionHandler.HandlePostReset, "reset"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	mux.HandleFunc("GET /pool", MetricsMiddleware(s.poolHandler.HandleGetPool, "pool"))
	mux.HandleFunc("POST /pool", MetricsMiddleware(s.poolHandler.HandlePostPool, "pool"))
	mux.HandleFunc("DELETE /pool", MetricsMiddleware(s.poolHandler.HandleDeletePool, "pool"))

	mux.HandleFunc("GET /catalog/subjects/{subject}", MetricsMiddleware(s.catalogHandler.HandleGetSubject, "catalog_subjects"))
	mux.HandleFunc("GET /catalog/authors", MetricsMiddleware(s.catalogHandler.HandleGetAuthor, "catalog_authors"))
	mux.HandleFunc("GET /catalog/author-suggestions", MetricsMiddleware(s.catalogHandler.HandleGetSuggestions, "catalog_author_suggestions"))
	mux.HandleFunc("GET /works/{id}", MetricsMiddleware(s.catalogHandler.HandleGetWork, "works"))

	mux.HandleFunc("GET /share", MetricsMiddleware(s.shareHandler.HandleGetShare, "share"))
	mux.HandleFunc("POST /share", MetricsMiddleware(s.shareHandler.HandlePostShare, "share"))
}

// writeDomainError maps service and engine errors onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, selection.ErrBlocked):
		writeError(w, http.StatusConflict, "blocked",
			errors.New("the active pool has fewer than two books; choose a new pool via /pool"))
	case errors.Is(err, selection.ErrNotInPair):
		writeError(w, http.StatusBadRequest, "not_in_pair", err)
	case errors.Is(err, service.ErrStaleGeneration):
		writeError(w, http.StatusConflict, "stale_pair", err)
	case errors.Is(err, selection.ErrInvalidSnapshot), errors.Is(err, service.ErrInvalidShareToken):
		writeError(w, http.StatusBadRequest, "invalid_share", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, pool.ErrEmptyPool), errors.Is(err, catalog.ErrInvalidWorkID):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
