// Package pool loads and saves the active candidate pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/bookpickr/internal/adapters/repository"
	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/pkg/logger"
)

// Store keys.
const (
	KeyPool  = "bookpickr:queue"
	KeyLabel = "bookpickr:queue:label"
)

// record is the persisted form of one pool entry.
type record struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Provider reads and writes the active pool through a Store.
type Provider struct {
	store repository.Store
}

// NewProvider creates a Provider over store.
func NewProvider(store repository.Store) *Provider {
	return &Provider{store: store}
}

// LoadActivePool returns the persisted pool when it holds at least two
// titled records, with IDs renumbered 1..n. Anything else, including a
// store error or malformed JSON, yields the default pool.
func (p *Provider) LoadActivePool(ctx context.Context) model.Pool {
	if out, ok := p.persistedPool(ctx); ok {
		return out
	}
	return Default()
}

// LoadActive returns the active pool and its label together. A label is
// only meaningful for the pool it was saved with, so it is nil whenever
// the pool falls back to the default.
func (p *Provider) LoadActive(ctx context.Context) (model.Pool, *model.Label) {
	out, ok := p.persistedPool(ctx)
	if !ok {
		return Default(), nil
	}
	return out, p.LoadActiveLabel(ctx)
}

func (p *Provider) persistedPool(ctx context.Context) (model.Pool, bool) {
	raw, err := p.store.Get(ctx, KeyPool)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Get().Warn(ctx, "pool read failed, using default", logger.Error(err))
		}
		return nil, false
	}

	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		logger.Get().Debug(ctx, "persisted pool is malformed, using default", logger.Error(err))
		return nil, false
	}

	out := make(model.Pool, 0, len(recs))
	for _, r := range recs {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		author := strings.TrimSpace(r.Author)
		if author == "" {
			author = model.UnknownAuthor
		}
		out = append(out, model.CandidateItem{ID: len(out) + 1, Title: title, Author: author})
	}
	if len(out) < 2 {
		return nil, false
	}
	return out, true
}

// LoadActiveLabel returns the persisted label, or nil when absent,
// malformed, or of an unknown kind.
func (p *Provider) LoadActiveLabel(ctx context.Context) *model.Label {
	raw, err := p.store.Get(ctx, KeyLabel)
	if err != nil {
		return nil
	}
	var l model.Label
	if err := json.Unmarshal(raw, &l); err != nil || !l.Valid() {
		return nil
	}
	return &l
}

// SaveActivePool persists items with sequential IDs. Only id, title and
// author are kept.
func (p *Provider) SaveActivePool(ctx context.Context, items []model.CandidateItem) error {
	if len(items) == 0 {
		return ErrEmptyPool
	}
	recs := make([]record, len(items))
	for i, it := range items {
		recs[i] = record{ID: i + 1, Title: it.Title, Author: it.Author}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	if err := p.store.Set(ctx, KeyPool, b); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

// SaveActiveLabel persists l; nil removes the label.
func (p *Provider) SaveActiveLabel(ctx context.Context, l *model.Label) error {
	if l == nil {
		return p.deleteKey(ctx, KeyLabel)
	}
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode label: %w", err)
	}
	if err := p.store.Set(ctx, KeyLabel, b); err != nil {
		return fmt.Errorf("save label: %w", err)
	}
	return nil
}

// ClearActivePool removes the pool and its label.
func (p *Provider) ClearActivePool(ctx context.Context) error {
	if err := p.deleteKey(ctx, KeyPool); err != nil {
		return err
	}
	return p.deleteKey(ctx, KeyLabel)
}

func (p *Provider) deleteKey(ctx context.Context, key string) error {
	if err := p.store.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
