package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/bookpickr/internal/domain/types"
)

// SessionDependencies defines the engine operations behind /state, /pair,
// /pick and /reset.
type SessionDependencies interface {
	State(ctx context.Context) (types.Session, error)
	Pair(ctx context.Context) (types.Pair, error)
	Pick(ctx context.Context, index int) (types.Session, error)
	Reset(ctx context.Context) (types.Session, error)
}

// SessionHandler handles the picking session.
type SessionHandler struct {
	deps     SessionDependencies
	validate *validator.Validate
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies, v *validator.Validate) *SessionHandler {
	return &SessionHandler{deps: deps, validate: v}
}

type pickRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// HandleGetState handles GET /state requests.
func (h *SessionHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_state"
	st, err := h.deps.State(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleGetPair handles GET /pair requests.
func (h *SessionHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pair"
	pair, err := h.deps.Pair(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// HandlePostPick handles POST /pick requests.
func (h *SessionHandler) HandlePostPick(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pick"
	var req pickRequest
	if err := decodeBody(w, r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.Pick(r.Context(), *req.Index)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePostReset handles POST /reset requests.
func (h *SessionHandler) HandlePostReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reset"
	st, err := h.deps.Reset(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
