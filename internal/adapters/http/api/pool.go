package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/types"
)

// PoolDependencies defines the operations on the active pool.
type PoolDependencies interface {
	ActivePool(ctx context.Context) (types.ActivePool, error)
	CommitPool(ctx context.Context, items []model.CandidateItem, label *model.Label) (types.Session, error)
	ClearPool(ctx context.Context) (types.Session, error)
}

// PoolHandler handles /pool requests.
type PoolHandler struct {
	deps     PoolDependencies
	validate *validator.Validate
}

// NewPoolHandler creates a new pool handler.
func NewPoolHandler(deps PoolDependencies, v *validator.Validate) *PoolHandler {
	return &PoolHandler{deps: deps, validate: v}
}

type poolItem struct {
	Title            string  `json:"title" validate:"required"`
	Author           string  `json:"author"`
	WorkKey          *string `json:"workKey"`
	CoverID          *int    `json:"coverId"`
	FirstPublishYear *int    `json:"firstPublishYear"`
}

type commitRequest struct {
	Items []poolItem   `json:"items" validate:"required,min=1,dive"`
	Label *model.Label `json:"label"`
}

func (c commitRequest) candidates() []model.CandidateItem {
	out := make([]model.CandidateItem, len(c.Items))
	for i, it := range c.Items {
		out[i] = model.CandidateItem{
			Title:            it.Title,
			Author:           it.Author,
			WorkKey:          it.WorkKey,
			CoverID:          it.CoverID,
			FirstPublishYear: it.FirstPublishYear,
		}
	}
	return out
}

// HandleGetPool handles GET /pool requests.
func (h *PoolHandler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pool"
	active, err := h.deps.ActivePool(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// HandlePostPool handles POST /pool requests.
func (h *PoolHandler) HandlePostPool(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pool"
	var req commitRequest
	if err := decodeBody(w, r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.CommitPool(r.Context(), req.candidates(), req.Label)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleDeletePool handles DELETE /pool requests.
func (h *PoolHandler) HandleDeletePool(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_pool"
	st, err := h.deps.ClearPool(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
