// Package worker runs the prefetch workers that warm the catalog caches for
// every item of a newly committed pool.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/bookpickr/internal/adapters/mq/queue"
	"github.com/okian/bookpickr/pkg/logger"
	"github.com/okian/bookpickr/pkg/metrics"
)

const poolShutdownTimeout = 10 * time.Second

// Job is what workers read off the queue.
type Job = queue.Job

// Warmer resolves, and thereby caches, enrichment for one item.
type Warmer interface {
	ResolveCover(ctx context.Context, title, author string) (string, bool)
	ResolveSynopsis(ctx context.Context, title, author string) (string, bool)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// InMemoryWorker warms the caches for queued jobs.
type InMemoryWorker struct {
	queue  Queue
	warmer Warmer
	name   string
	onDone func(job Job, coverFound, synopsisFound bool)

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, warmer Warmer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		warmer:   warmer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named("prefetch").Named(w.name)
	}
	return w
}

// Run processes jobs until ctx ends, Shutdown is called, or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// The feed outlives Run otherwise, blocked on a job nobody will read.
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()

	jobs := w.queue.Dequeue(feedCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Debug(ctx, "prefetch job failed", logger.String("title", job.Title), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	_, coverOK := w.warmer.ResolveCover(ctx, job.Title, job.Author)
	_, synopsisOK := w.warmer.ResolveSynopsis(ctx, job.Title, job.Author)
	if w.onDone != nil {
		w.onDone(job, coverOK, synopsisOK)
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "context_cancelled")
		return err
	}
	return nil
}

// Pool manages a fixed set of prefetch workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers; workerCount < 1 means one per CPU.
func NewPool(workerCount int, q Queue, warmer Warmer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("prefetch-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, warmer,
			WithName("worker-"+strconv.Itoa(i)),
			WithOnDone(func(Job, bool, bool) { p.processed.Add(1) }),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs have completed.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue if it can be closed, then waits for every
// worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
