// Package critique runs grammar critiques on a bounded background worker pool,
// decoupled from the chat response path.
package critique

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/rod/plugin/ai/timeout"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/service/tutor"
	"github.com/hrygo/rod/store"
)

const (
	// EventDropped counts critiques skipped because the queue was full or closed.
	EventDropped = "critique_dropped"
	// EventFeedback counts critiques that produced a stored correction.
	EventFeedback = "critique_feedback"
)

// Critic is the unit of work executed per job.
type Critic interface {
	Critique(ctx context.Context, job *tutor.Critique) (*store.Feedback, error)
}

// Config holds the pool configuration.
type Config struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single critique.
	Timeout time.Duration
	// DrainTimeout bounds how long queued jobs may run after shutdown starts.
	DrainTimeout time.Duration
}

// Runner is a fixed pool of critique workers fed by a bounded queue.
type Runner struct {
	critic  Critic
	metrics *observability.Metrics
	config  Config
	queue   chan *tutor.Critique

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ tutor.CritiqueScheduler = (*Runner)(nil)

// NewRunner creates a new critique pool. metrics may be nil.
func NewRunner(critic Critic, metrics *observability.Metrics, config Config) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = timeout.CritiqueTimeout
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = timeout.ShutdownTimeout
	}
	return &Runner{
		critic:  critic,
		metrics: metrics,
		config:  config,
		queue:   make(chan *tutor.Critique, config.QueueSize),
	}
}

// Enqueue hands job to the pool without blocking. It reports false when the
// queue is full or the pool is shutting down.
func (r *Runner) Enqueue(job *tutor.Critique) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.inc(EventDropped)
		return false
	}
	select {
	case r.queue <- job:
		return true
	default:
		r.inc(EventDropped)
		return false
	}
}

// Run starts the workers and blocks until ctx is done. Queued jobs are then
// drained for at most DrainTimeout before Run returns.
func (r *Runner) Run(ctx context.Context) {
	drainCtx, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.work(drainCtx)
	}
	slog.Info("critique runner started", "workers", r.config.Workers, "queue_size", r.config.QueueSize)

	<-ctx.Done()

	r.mu.Lock()
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.config.DrainTimeout):
		slog.Warn("critique runner drain timed out, abandoning queued jobs", "pending", len(r.queue))
		cancelDrain()
		<-done
	}
	slog.Info("critique runner stopped")
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for job := range r.queue {
		r.process(ctx, job)
	}
}

func (r *Runner) process(parent context.Context, job *tutor.Critique) {
	reqCtx := observability.NewRequestContextWithID(slog.Default(), job.RequestID, observability.OpCritique, job.UserID)
	ctx := observability.WithRequestContext(parent, reqCtx)
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("critique panicked: %v", p)
			reqCtx.Error("critique panicked", err, slog.Int(observability.LogFieldMessageID, int(job.MessageID)))
		}
		if r.metrics != nil {
			r.metrics.Observe(observability.OpCritique, reqCtx.Duration(), err)
		}
	}()

	var feedback *store.Feedback
	feedback, err = r.critic.Critique(ctx, job)
	if err != nil {
		reqCtx.Error("critique failed", err, slog.Int(observability.LogFieldMessageID, int(job.MessageID)))
		return
	}
	if feedback != nil {
		r.inc(EventFeedback)
	}
}

func (r *Runner) inc(event string) {
	if r.metrics != nil {
		r.metrics.Inc(event)
	}
}
