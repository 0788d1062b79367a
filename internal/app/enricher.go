package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/bookpickr/internal/domain/types"
	"github.com/okian/bookpickr/pkg/metrics"
)

// Enricher resolves cover and synopsis for a pair and keeps the latest
// result. A result computed for a generation that is no longer current is
// discarded.
type Enricher struct {
	warmer Warmer

	mu        sync.Mutex
	latest    types.Pair
	hasLatest bool
}

// NewEnricher creates an Enricher over w.
func NewEnricher(w Warmer) *Enricher {
	return &Enricher{warmer: w}
}

// Enrich looks up both sides of pair concurrently. current reports the
// generation that is live once the lookups return; if it differs from
// pair.Generation, or a newer pair was already stored, ErrStaleGeneration
// is returned and the stored result is left alone.
func (e *Enricher) Enrich(ctx context.Context, pair types.Pair, current func() uint64) (types.Pair, error) {
	start := time.Now()

	var g errgroup.Group
	for _, item := range []*types.PairItem{&pair.Champion, &pair.Challenger} {
		g.Go(func() error {
			if url, ok := e.warmer.ResolveCover(ctx, item.Title, item.Author); ok {
				item.CoverURL = url
			} else {
				metrics.RecordEnrichmentMissing("cover")
			}
			return nil
		})
		g.Go(func() error {
			if text, ok := e.warmer.ResolveSynopsis(ctx, item.Title, item.Author); ok {
				item.Synopsis = text
			} else {
				metrics.RecordEnrichmentMissing("synopsis")
			}
			return nil
		})
	}
	_ = g.Wait()
	metrics.RecordEnrichmentLatency(float64(time.Since(start).Milliseconds()))

	e.mu.Lock()
	defer e.mu.Unlock()
	if current() != pair.Generation || (e.hasLatest && e.latest.Generation > pair.Generation) {
		metrics.RecordStaleEnrichment()
		return types.Pair{}, ErrStaleGeneration
	}
	e.latest = pair
	e.hasLatest = true
	return pair, nil
}

// Latest returns the most recent non-stale enrichment.
func (e *Enricher) Latest() (types.Pair, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest, e.hasLatest
}
