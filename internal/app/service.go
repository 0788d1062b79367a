// Package service ties the selection engine, the pool provider and the
// catalog together behind the operations the HTTP API serves.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/adapters/mq/queue"
	"github.com/okian/bookpickr/internal/adapters/mq/worker"
	"github.com/okian/bookpickr/internal/adapters/repository"
	"github.com/okian/bookpickr/internal/domain/dedupe"
	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/pool"
	"github.com/okian/bookpickr/internal/domain/selection"
	"github.com/okian/bookpickr/internal/domain/share"
	"github.com/okian/bookpickr/internal/domain/types"
	"github.com/okian/bookpickr/pkg/logger"
	"github.com/okian/bookpickr/pkg/metrics"
)

const (
	defaultQueueSize           = 256
	defaultLeaderboardSize     = 5
	defaultMaxLeaderboardLimit = 50
	defaultSubjectPageSize     = 20
	defaultAuthorPoolLimit     = 20
	defaultSuggestionLimit     = 8
	maxPairAttempts            = 3
)

// Warmer resolves enrichment for a single book.
type Warmer = worker.Warmer

// Catalog is the part of the catalog client the service uses.
type Catalog interface {
	Warmer
	SearchSubjectPool(ctx context.Context, subject string, limit, offset int) ([]model.CandidateItem, int)
	SearchAuthorPool(ctx context.Context, name string, limit int) []model.CandidateItem
	SearchAuthorSuggestions(ctx context.Context, query string, limit int) []model.AuthorHit
	FetchWork(ctx context.Context, workID string) (model.WorkDetail, error)
	Stats() map[string]interface{}
}

// Service serializes access to one picking session.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine     *selection.Engine
	label      *model.Label
	store      repository.Store
	ownsStore  bool
	provider   *pool.Provider
	catalog    Catalog
	enricher   *Enricher
	prefetchQ  *queue.InMemoryQueue
	prefetcher *worker.Pool
	prefetched dedupe.Deduper

	// Configuration
	workerCount         int
	queueSize           int
	leaderboardSize     int
	maxLeaderboardLimit int
	subjectPageSize     int
	authorPoolLimit     int
	suggestionLimit     int
	engineOpts          []selection.Option

	started bool
	logger  logger.Logger
}

// New constructs a Service. The catalog defaults to a client for the
// public Open Library API.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU(),
		queueSize:           defaultQueueSize,
		leaderboardSize:     defaultLeaderboardSize,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		subjectPageSize:     defaultSubjectPageSize,
		authorPoolLimit:     defaultAuthorPoolLimit,
		suggestionLimit:     defaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLeaderboardLimit < s.leaderboardSize {
		s.maxLeaderboardLimit = s.leaderboardSize
	}
	return s
}

// Start loads the active pool, initializes the engine and starts the
// prefetch workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.catalog == nil {
		s.catalog = catalog.New()
	}

	s.logger.Info(ctx, "starting picker service...")

	if s.store == nil {
		st, err := repository.Open(ctx)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}
	s.provider = pool.NewProvider(s.store)
	s.enricher = NewEnricher(s.catalog)
	s.prefetched = dedupe.NewInMemoryDeduper()
	s.prefetchQ = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.prefetcher = worker.NewPool(s.workerCount, s.prefetchQ, s.catalog)
	s.prefetcher.Start(ctx)

	s.engine = selection.New(s.engineOpts...)
	active, label := s.provider.LoadActive(ctx)
	s.label = label
	s.install(ctx, active)

	s.started = true
	s.logger.Info(ctx, "picker service started",
		logger.Int("workers", s.prefetcher.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("poolSize", len(active)),
	)
	return nil
}

// Stop shuts the prefetch workers down and closes a store opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping picker service...")

	if err := s.prefetcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "prefetch shutdown", logger.Error(err))
	}
	if s.ownsStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "picker service stopped")
}

// install replaces the engine pool and schedules cache warming for it.
// Caller holds s.mu.
func (s *Service) install(ctx context.Context, p model.Pool) {
	if err := s.engine.Initialize(p); err != nil {
		s.logger.Warn(ctx, "pool too small, picking is blocked", logger.Int("poolSize", len(p)))
	}
	metrics.UpdatePoolSize(len(p), s.engine.State() == selection.Blocked)
	metrics.UpdateRounds(0)
	s.enqueuePrefetch(ctx, p)
}

func (s *Service) enqueuePrefetch(ctx context.Context, p model.Pool) {
	for _, item := range p {
		key := dedupe.Key(item.Title, item.Author)
		if s.prefetched.SeenAndRecord(ctx, key) {
			metrics.RecordPrefetchDuplicate()
			continue
		}
		if err := s.prefetchQ.Enqueue(ctx, queue.Job{Title: item.Title, Author: item.Author}); err != nil {
			s.prefetched.Unrecord(ctx, key)
			s.logger.Debug(ctx, "prefetch not queued", logger.String("title", item.Title), logger.Error(err))
			if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
				return
			}
		}
	}
}

// session builds the state view. Caller holds s.mu.
func (s *Service) session() types.Session {
	out := types.Session{
		State:      s.engine.State().String(),
		Rounds:     s.engine.Rounds(),
		PoolSize:   len(s.engine.Pool()),
		Generation: s.engine.Generation(),
	}
	if c, ch, ok := s.engine.Pair(); ok {
		out.Champion, out.Challenger = &c, &ch
	}
	if s.label != nil {
		l := *s.label
		out.Label = &l
	}
	return out
}

// State returns the current session summary.
func (s *Service) State(_ context.Context) (types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	return s.session(), nil
}

// Pick records a win for index, which must be one side of the current pair.
func (s *Service) Pick(ctx context.Context, index int) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	if err := s.engine.Pick(index); err != nil {
		return types.Session{}, fmt.Errorf("pick %d: %w", index, err)
	}
	metrics.RecordPick()
	metrics.UpdateRounds(s.engine.Rounds())
	s.logger.Debug(ctx, "pick recorded", logger.Int("index", index), logger.Int("rounds", s.engine.Rounds()))
	return s.session(), nil
}

// Reset draws a fresh pair over the current pool and clears the tally.
func (s *Service) Reset(_ context.Context) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	if err := s.engine.Reset(); err != nil {
		return types.Session{}, fmt.Errorf("reset: %w", err)
	}
	metrics.RecordReset()
	metrics.UpdateRounds(0)
	return s.session(), nil
}

// Leaderboard returns the top n entries; n <= 0 means the configured
// default and n is capped at the configured maximum.
func (s *Service) Leaderboard(_ context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if n <= 0 {
		n = s.leaderboardSize
	}
	if n > s.maxLeaderboardLimit {
		n = s.maxLeaderboardLimit
	}

	p := s.engine.Pool()
	standings := s.engine.Leaderboard(n)
	entries := make([]types.Entry, len(standings))
	for i, st := range standings {
		entries[i] = types.Entry{
			Rank:   i + 1,
			Index:  st.Index,
			Title:  p[st.Index].Title,
			Author: p[st.Index].Author,
			Wins:   st.Wins,
		}
	}
	return entries, nil
}

// Pair returns the current pair with cover and synopsis. If the pair
// changes while it is being enriched the lookup is retried for the new pair.
func (s *Service) Pair(ctx context.Context) (types.Pair, error) {
	for attempt := 0; attempt < maxPairAttempts; attempt++ {
		pair, err := s.currentPair()
		if err != nil {
			return types.Pair{}, err
		}
		enriched, err := s.enricher.Enrich(ctx, pair, s.generation)
		if errors.Is(err, ErrStaleGeneration) {
			s.logger.Debug(ctx, "discarding stale enrichment", logger.Uint64("generation", pair.Generation))
			continue
		}
		return enriched, err
	}
	return types.Pair{}, ErrStaleGeneration
}

func (s *Service) currentPair() (types.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Pair{}, ErrNotStarted
	}
	c, ch, ok := s.engine.Pair()
	if !ok {
		return types.Pair{}, selection.ErrBlocked
	}
	p := s.engine.Pool()
	return types.Pair{
		Generation: s.engine.Generation(),
		Champion:   pairItem(c, p[c]),
		Challenger: pairItem(ch, p[ch]),
	}, nil
}

func (s *Service) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Generation()
}

func pairItem(index int, it model.CandidateItem) types.PairItem {
	out := types.PairItem{Index: index, ID: it.ID, Title: it.Title, Author: it.Author}
	if it.WorkKey != nil {
		out.WorkKey = *it.WorkKey
	}
	return out
}

// ActivePool returns the pool being compared and its label.
func (s *Service) ActivePool(_ context.Context) (types.ActivePool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.ActivePool{}, ErrNotStarted
	}
	out := types.ActivePool{Items: s.engine.Pool()}
	if s.label != nil {
		l := *s.label
		out.Label = &l
	}
	return out, nil
}

// CommitPool persists items as the active pool and restarts the session
// over them. Items are deduplicated first; a pool of fewer than two items
// is stored but leaves picking blocked.
func (s *Service) CommitPool(ctx context.Context, items []model.CandidateItem, label *model.Label) (types.Session, error) {
	if label != nil && !label.Valid() {
		return types.Session{}, fmt.Errorf("%w: unknown label type %q", ErrInvalidArgument, label.Kind)
	}
	clean, dropped := dedupe.CandidateList(items, 0)
	if len(clean) == 0 {
		return types.Session{}, fmt.Errorf("commit pool: %w", pool.ErrEmptyPool)
	}
	metrics.RecordCatalogDuplicatesDropped(dropped)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	if err := s.provider.SaveActivePool(ctx, clean); err != nil {
		return types.Session{}, fmt.Errorf("commit pool: %w", err)
	}
	if err := s.provider.SaveActiveLabel(ctx, label); err != nil {
		return types.Session{}, fmt.Errorf("commit label: %w", err)
	}

	source := "custom"
	if label != nil {
		source = string(label.Kind)
		l := *label
		s.label = &l
	} else {
		s.label = nil
	}
	metrics.RecordPoolCommit(source)
	s.install(ctx, clean)
	s.logger.Info(ctx, "pool committed", logger.String("source", source), logger.Int("size", len(clean)))
	return s.session(), nil
}

// ClearPool forgets the stored pool and goes back to the default one.
func (s *Service) ClearPool(ctx context.Context) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	if err := s.provider.ClearActivePool(ctx); err != nil {
		return types.Session{}, fmt.Errorf("clear pool: %w", err)
	}
	s.label = nil
	s.install(ctx, pool.Default())
	return s.session(), nil
}

// SubjectPool previews a page of a subject's works.
func (s *Service) SubjectPool(ctx context.Context, subject string, limit, offset int) ([]model.CandidateItem, int, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, 0, fmt.Errorf("%w: subject is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.subjectPageSize
	}
	if offset < 0 {
		offset = 0
	}
	items, total := s.catalog.SearchSubjectPool(ctx, subject, limit, offset)
	return items, total, nil
}

// AuthorPool previews an author's works.
func (s *Service) AuthorPool(ctx context.Context, name string, limit int) ([]model.CandidateItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: author name is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.authorPoolLimit
	}
	return s.catalog.SearchAuthorPool(ctx, name, limit), nil
}

// AuthorSuggestions returns autocomplete hits for a partial author name.
func (s *Service) AuthorSuggestions(ctx context.Context, query string, limit int) []model.AuthorHit {
	if limit <= 0 {
		limit = s.suggestionLimit
	}
	return s.catalog.SearchAuthorSuggestions(ctx, query, limit)
}

// WorkDetail fetches metadata for one work. Upstream failures are returned.
func (s *Service) WorkDetail(ctx context.Context, workID string) (model.WorkDetail, error) {
	w, err := s.catalog.FetchWork(ctx, workID)
	if err != nil {
		return model.WorkDetail{}, fmt.Errorf("work %s: %w", workID, err)
	}
	return w, nil
}

// ShareToken encodes the current tally so it can be restored later.
func (s *Service) ShareToken(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}
	if s.engine.State() == selection.Blocked {
		return "", selection.ErrBlocked
	}
	return share.Encode(s.engine.Payload()), nil
}

// RestoreShare applies a share token to the current pool.
func (s *Service) RestoreShare(ctx context.Context, token string) (types.Session, error) {
	p, ok := share.Decode(token)
	if !ok {
		return types.Session{}, ErrInvalidShareToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Session{}, ErrNotStarted
	}
	if err := s.engine.Restore(p); err != nil {
		return types.Session{}, fmt.Errorf("restore: %w", err)
	}
	metrics.UpdateRounds(s.engine.Rounds())
	s.logger.Info(ctx, "session restored", logger.Int("rounds", p.Rounds))
	return s.session(), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.catalog != nil {
		stats["catalog"] = s.catalog.Stats()
	}
	if s.started {
		stats["state"] = s.engine.State().String()
		stats["rounds"] = s.engine.Rounds()
		stats["poolSize"] = len(s.engine.Pool())
		stats["generation"] = s.engine.Generation()
		stats["queueLength"] = s.prefetchQ.Len()
		stats["prefetched"] = s.prefetched.Size()
		stats["prefetchProcessed"] = s.prefetcher.Processed()

		metrics.UpdateQueueSize(s.prefetchQ.Len())
	}
	return stats
}
