// Package worker runs season rescore jobs pulled from the rescore queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gridpick/internal/adapters/mq/queue"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Outcome is what rescoring one (race, session) produced.
type Outcome struct {
	Job       Job
	Scored    int
	H2HScored int
}

// Rescorer recomputes the stored scores of one published session.
type Rescorer interface {
	Rescore(ctx context.Context, job Job) (Outcome, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Report aggregates every outcome collected by a pool.
type Report struct {
	Sessions  int
	Scored    int
	H2HScored int
	Failed    int
	Err       error
}

// InMemoryWorker pulls jobs off the queue and hands them to the rescorer.
type InMemoryWorker struct {
	queue    Queue
	rescorer Rescorer
	sink     func(Outcome, error)
	active   *atomic.Int64
	name     string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, rescorer Rescorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		rescorer: rescorer,
		sink:     func(Outcome, error) {},
		active:   new(atomic.Int64),
		name:     "worker",
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run processes jobs until the queue is drained or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.sink(w.process(ctx, job))
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job Job) (Outcome, error) {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
	}()

	out, err := w.rescorer.Rescore(ctx, job)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "rescore failed",
			logger.String("race", job.RaceID),
			logger.String("session", job.Session.String()),
			logger.Error(err),
		)
		return Outcome{Job: job}, fmt.Errorf("rescore %s/%s: %w", job.RaceID, job.Session, err)
	}

	w.logger.Debug(ctx, "session rescored",
		logger.String("race", job.RaceID),
		logger.String("session", job.Session.String()),
		logger.Int("scored", out.Scored),
		logger.Int("h2hScored", out.H2HScored),
	)
	return out, nil
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	mu     sync.Mutex
	report Report
	errs   []error

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, rescorer Rescorer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	active := new(atomic.Int64)
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(
			q,
			rescorer,
			WithName("worker-"+strconv.Itoa(i)),
			WithSink(p.collect),
			withActiveCounter(active),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

func (p *Pool) collect(out Outcome, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.report.Sessions++
	if err != nil {
		p.report.Failed++
		p.errs = append(p.errs, err)
		return
	}
	p.report.Scored += out.Scored
	p.report.H2HScored += out.H2HScored
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has stopped and returns the aggregated report.
// Workers stop once the queue is closed and drained, or ctx passed to Start ends.
func (p *Pool) Wait() Report {
	for _, w := range p.workers {
		<-w.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.report
	r.Err = errors.Join(p.errs...)
	return r
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return nil
}
