package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/bookpickr/internal/domain/types"
)

// ShareDependencies defines the session share operations.
type ShareDependencies interface {
	ShareToken(ctx context.Context) (string, error)
	RestoreShare(ctx context.Context, token string) (types.Session, error)
}

// ShareHandler handles /share requests.
type ShareHandler struct {
	deps     ShareDependencies
	validate *validator.Validate
}

// NewShareHandler creates a new share handler.
func NewShareHandler(deps ShareDependencies, v *validator.Validate) *ShareHandler {
	return &ShareHandler{deps: deps, validate: v}
}

type shareResponse struct {
	Token string `json:"token"`
}

type restoreRequest struct {
	Token string `json:"token" validate:"required"`
}

// HandleGetShare handles GET /share requests.
func (h *ShareHandler) HandleGetShare(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_share"
	token, err := h.deps.ShareToken(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{Token: token})
}

// HandlePostShare handles POST /share requests.
func (h *ShareHandler) HandlePostShare(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_share"
	var req restoreRequest
	if err := decodeBody(w, r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.RestoreShare(r.Context(), req.Token)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
