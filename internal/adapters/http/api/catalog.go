package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/domain/model"
)

// CatalogDependencies defines the catalog browse and detail operations.
type CatalogDependencies interface {
	SubjectPool(ctx context.Context, subject string, limit, offset int) ([]model.CandidateItem, int, error)
	AuthorPool(ctx context.Context, name string, limit int) ([]model.CandidateItem, error)
	AuthorSuggestions(ctx context.Context, query string, limit int) []model.AuthorHit
	WorkDetail(ctx context.Context, workID string) (model.WorkDetail, error)
}

// CatalogHandler handles /catalog and /works requests.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type subjectResponse struct {
	Subject string                `json:"subject"`
	Total   int                   `json:"total"`
	Items   []model.CandidateItem `json:"items"`
}

type authorResponse struct {
	Author string                `json:"author"`
	Items  []model.CandidateItem `json:"items"`
}

type suggestionsResponse struct {
	Query   string            `json:"query"`
	Authors []model.AuthorHit `json:"authors"`
}

// HandleGetSubject handles GET /catalog/subjects/{subject}?limit&offset.
func (h *CatalogHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_subject"
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	subject := r.PathValue("subject")
	items, total, err := h.deps.SubjectPool(r.Context(), subject, limit, offset)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	if items == nil {
		items = []model.CandidateItem{}
	}
	writeJSON(w, http.StatusOK, subjectResponse{Subject: catalog.SubjectSlug(subject), Total: total, Items: items})
}

// HandleGetAuthor handles GET /catalog/authors?name=&limit=.
func (h *CatalogHandler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_author"
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	items, err := h.deps.AuthorPool(r.Context(), name, limit)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	if items == nil {
		items = []model.CandidateItem{}
	}
	writeJSON(w, http.StatusOK, authorResponse{Author: name, Items: items})
}

// HandleGetSuggestions handles GET /catalog/author-suggestions?q=&limit=.
func (h *CatalogHandler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_author_suggestions"
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	q := r.URL.Query().Get("q")
	hits := h.deps.AuthorSuggestions(r.Context(), q, limit)
	if hits == nil {
		hits = []model.AuthorHit{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Query: q, Authors: hits})
}

// HandleGetWork handles GET /works/{id}. Upstream failures are reported as
// 502 with the raw reason.
func (h *CatalogHandler) HandleGetWork(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_work"
	work, err := h.deps.WorkDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidWorkID) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadGateway, "upstream_error", err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}
