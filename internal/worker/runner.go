// Package worker runs quiz tasks in the background with bounded concurrency.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-assistant/internal/metrics"
	"quiz-assistant/internal/models"
)

const (
	defaultWorkers = 4
	storeTimeout   = 5 * time.Second
)

// Handler performs the work of a single task
type Handler func(ctx context.Context, task models.Task) error

// Runner executes submitted tasks on a fixed number of worker slots.
// Every task gets its own goroutine, which parks on the slot semaphore
// until a worker frees up.
type Runner struct {
	store   Store
	handler Handler
	logger  *zap.Logger
	metrics *metrics.Metrics
	workers int

	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Runner
type Option func(*Runner)

// WithWorkers sets the number of tasks that may run at once
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the runner logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics sets the collectors updated on task transitions
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a runner. A nil store falls back to a MemoryStore.
func NewRunner(store Store, handler Handler, opts ...Option) *Runner {
	if store == nil {
		store = NewMemoryStore()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		store:   store,
		handler: handler,
		logger:  zap.NewNop(),
		workers: defaultWorkers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.slots = make(chan struct{}, r.workers)
	return r
}

// Submit records task as pending and schedules it. The returned task carries
// the assigned ID.
func (r *Runner) Submit(ctx context.Context, task models.Task) (models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.Status = models.TaskStatusPending
	task.Error = ""
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := r.reserve(); err != nil {
		return models.Task{}, err
	}

	if err := r.store.Create(ctx, task); err != nil {
		r.wg.Done()
		return models.Task{}, fmt.Errorf("failed to store task: %w", err)
	}

	r.logger.Info("task submitted", zap.String("task_id", task.ID), zap.String("generated_pdf_id", task.GeneratedPdfID))
	go r.run(task)

	return task, nil
}

// Get returns the stored state of a task
func (r *Runner) Get(ctx context.Context, id string) (models.Task, error) {
	return r.store.Get(ctx, id)
}

// Resume schedules every unfinished task found in the store and returns how
// many were scheduled.
func (r *Runner) Resume(ctx context.Context) (int, error) {
	tasks, err := r.store.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfinished tasks: %w", err)
	}

	r.logger.Info("resuming tasks", zap.Int("count", len(tasks)))

	resumed := 0
	for _, task := range tasks {
		if err := r.reserve(); err != nil {
			return resumed, err
		}
		if err := r.store.UpdateStatus(ctx, task.ID, models.TaskStatusPending, ""); err != nil {
			r.wg.Done()
			r.logger.Warn("failed to reset task", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		go r.run(task)
		resumed++
	}

	return resumed, nil
}

// Shutdown stops accepting tasks, cancels running ones and waits for their
// goroutines until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.logger.Info("shutting down")

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	r.wg.Add(1)
	return nil
}

func (r *Runner) run(task models.Task) {
	defer r.wg.Done()

	logger := r.logger.With(zap.String("task_id", task.ID))

	select {
	case r.slots <- struct{}{}:
	case <-r.ctx.Done():
		logger.Info("task left pending at shutdown")
		return
	}
	defer func() { <-r.slots }()

	r.setStatus(logger, task.ID, models.TaskStatusRunning, "")
	r.metrics.TaskStarted()
	defer r.metrics.TaskDone()

	start := time.Now()
	err := r.invoke(task)

	switch {
	case err != nil && r.ctx.Err() != nil:
		// left as running so Resume picks it up on the next start
		logger.Warn("task interrupted by shutdown", zap.Error(err))
	case err != nil:
		logger.Warn("task failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		r.metrics.TaskFinished(string(models.TaskStatusFailed))
		r.setStatus(logger, task.ID, models.TaskStatusFailed, err.Error())
	default:
		logger.Info("task succeeded", zap.Duration("elapsed", time.Since(start)))
		r.metrics.TaskFinished(string(models.TaskStatusSucceeded))
		r.setStatus(logger, task.ID, models.TaskStatusSucceeded, "")
	}
}

func (r *Runner) invoke(task models.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return r.handler(r.ctx, task)
}

func (r *Runner) setStatus(logger *zap.Logger, id string, status models.TaskStatus, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := r.store.UpdateStatus(ctx, id, status, errMsg); err != nil {
		logger.Error("failed to update task status", zap.String("status", string(status)), zap.Error(err))
	}
}
