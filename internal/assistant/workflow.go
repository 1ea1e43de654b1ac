package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultPollInterval   = 3 * time.Second
	defaultMaxWait        = 10 * time.Minute
	defaultCleanupTimeout = 30 * time.Second

	roleUser = "user"

	runStatusIncomplete openai.RunStatus = "incomplete"
)

var (
	// ErrThreadNotSet is reported when a step needs a thread that was never created
	ErrThreadNotSet = errors.New("thread ID is not set")
	// ErrThreadOrRunNotSet is reported when there is nothing to wait for
	ErrThreadOrRunNotSet = errors.New("thread ID or run is not set")
	// ErrRunTimeout is reported when a run does not reach a terminal status within the max wait
	ErrRunTimeout = errors.New("timed out waiting for run to complete")
)

// RunStatusError describes a run that ended without completing
type RunStatusError struct {
	RunID  string
	Status openai.RunStatus
}

func (e *RunStatusError) Error() string {
	return fmt.Sprintf("run %s ended with status: %s", e.RunID, e.Status)
}

// API is the subset of the Assistants API the workflow drives. *Client implements it.
type API interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (openai.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (openai.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	ListMessages(ctx context.Context, threadID string) ([]openai.Message, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// ErrorReporter relays workflow failures to the error collector
type ErrorReporter interface {
	Log(method string, err error, message string)
}

// Outcome classifies how a workflow invocation ended
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeRunFailed  Outcome = "run_failed"
	OutcomeTimedOut   Outcome = "timed_out"
	OutcomeCanceled   Outcome = "canceled"
	OutcomeIncomplete Outcome = "incomplete"
)

// Result is the value produced by one workflow invocation
type Result struct {
	Outcome  Outcome
	Answer   string
	ThreadID string
	RunID    string
	Status   openai.RunStatus
	Err      error
}

// OK reports whether the run completed and produced an answer
func (r Result) OK() bool {
	return r.Outcome == OutcomeCompleted && r.Answer != ""
}

// state is threaded through the steps of one invocation
type state struct {
	threadID string
	runID    string
	status   openai.RunStatus
	content  []openai.MessageContent
	outcome  Outcome
	err      error
}

// Workflow asks an assistant a single question on a throwaway thread.
// It holds no per-invocation state and is safe for concurrent use.
type Workflow struct {
	api            API
	assistantID    string
	reporter       ErrorReporter
	logger         *zap.Logger
	pollInterval   time.Duration
	maxWait        time.Duration
	cleanupTimeout time.Duration
	keepThread     bool
	onPoll         func(status openai.RunStatus)
}

// WorkflowOption configures a Workflow
type WorkflowOption func(*Workflow)

// WithPollInterval sets the delay between run status checks
func WithPollInterval(d time.Duration) WorkflowOption {
	return func(w *Workflow) {
		w.pollInterval = d
	}
}

// WithMaxWait bounds how long a run may stay pending. Zero leaves only ctx as the bound.
func WithMaxWait(d time.Duration) WorkflowOption {
	return func(w *Workflow) {
		w.maxWait = d
	}
}

// WithKeepThread disables thread deletion after the workflow ends
func WithKeepThread(keep bool) WorkflowOption {
	return func(w *Workflow) {
		w.keepThread = keep
	}
}

// WithWorkflowLogger sets the workflow logger
func WithWorkflowLogger(logger *zap.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithPollObserver registers a callback invoked with every polled run status
func WithPollObserver(fn func(status openai.RunStatus)) WorkflowOption {
	return func(w *Workflow) {
		w.onPoll = fn
	}
}

// NewWorkflow creates a workflow bound to one assistant
func NewWorkflow(api API, assistantID string, reporter ErrorReporter, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		api:            api,
		assistantID:    assistantID,
		reporter:       reporter,
		logger:         zap.NewNop(),
		pollInterval:   defaultPollInterval,
		maxWait:        defaultMaxWait,
		cleanupTimeout: defaultCleanupTimeout,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Execute runs create thread → add message → run → wait → read answer → delete thread.
// Step failures are reported and never returned as panics; the Result carries the outcome.
func (w *Workflow) Execute(ctx context.Context, question string) (res Result) {
	s := state{}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("workflow panic: %v", r)
			w.handleError("executeAssistantWorkflow", err, "Error executing assistant workflow")
			s.outcome = OutcomeIncomplete
			s.err = err
		}

		w.cleanup(ctx, s)
		res = Result{
			Outcome:  s.outcome,
			ThreadID: s.threadID,
			RunID:    s.runID,
			Status:   s.status,
			Err:      s.err,
		}
		if s.outcome == OutcomeCompleted {
			res.Answer = ExtractAnswer(s.content)
		}

		w.logger.Info("workflow finished",
			zap.String("outcome", string(res.Outcome)),
			zap.String("thread_id", res.ThreadID),
			zap.String("run_id", res.RunID),
			zap.Int("answer_length", len(res.Answer)))
	}()

	s = w.createThread(ctx, s)
	s = w.addMessageToThread(ctx, s, roleUser, question)
	s = w.runAssistant(ctx, s)
	s = w.waitForCompleted(ctx, s)

	return res
}

func (w *Workflow) handleError(method string, err error, message string) {
	w.logger.Warn(message, zap.String("method", method), zap.Error(err))
	if w.reporter != nil {
		w.reporter.Log(method, err, message)
	}
}

func (w *Workflow) createThread(ctx context.Context, s state) state {
	threadID, err := w.api.CreateThread(ctx)
	if err != nil {
		w.handleError("createThread", err, "Error creating thread")
		s.err = err
		return s
	}

	s.threadID = threadID
	return s
}

func (w *Workflow) addMessageToThread(ctx context.Context, s state, role, content string) state {
	if s.threadID == "" {
		w.handleError("addMessageToThread", ErrThreadNotSet, "Thread ID is not set.")
		return s
	}

	if _, err := w.api.CreateMessage(ctx, s.threadID, role, content); err != nil {
		w.handleError("addMessageToThread", err, "Error adding message to thread")
		s.err = err
	}
	return s
}

func (w *Workflow) runAssistant(ctx context.Context, s state) state {
	if s.threadID == "" {
		w.handleError("runAssistant", ErrThreadNotSet, "Thread ID is not set.")
		return s
	}

	run, err := w.api.CreateRun(ctx, s.threadID, w.assistantID)
	if err != nil {
		w.handleError("runAssistant", err, "Error running assistant")
		s.err = err
		return s
	}

	s.runID = run.ID
	s.status = run.Status
	return s
}

func (w *Workflow) waitForCompleted(ctx context.Context, s state) state {
	// Re-checked even when earlier steps already reported the missing thread.
	if s.threadID == "" || s.runID == "" {
		w.handleError("waitForCompleted", ErrThreadOrRunNotSet, "Thread ID or Run is not set.")
		s.outcome = OutcomeIncomplete
		if s.err == nil {
			s.err = ErrThreadOrRunNotSet
		}
		return s
	}

	if w.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, w.maxWait, ErrRunTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	pollCount := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrRunTimeout) {
				w.handleError("waitForCompleted", ErrRunTimeout, "Run did not complete in time")
				s.outcome = OutcomeTimedOut
				s.err = ErrRunTimeout
				return s
			}
			s.outcome = OutcomeCanceled
			s.err = ctx.Err()
			return s
		case <-ticker.C:
		}

		pollCount++
		run, err := w.api.GetRun(ctx, s.threadID, s.runID)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.handleError("waitForCompleted", err, "Error retrieving run status")
			continue
		}

		s.status = run.Status
		if w.onPoll != nil {
			w.onPoll(run.Status)
		}
		w.logger.Debug("run polled",
			zap.String("run_id", s.runID), zap.String("status", string(run.Status)), zap.Int("poll_count", pollCount))

		switch run.Status {
		case openai.RunStatusCompleted:
			s = w.processMessage(ctx, s)
			s.outcome = OutcomeCompleted
			return s
		case openai.RunStatusCancelling, openai.RunStatusCancelled, openai.RunStatusFailed,
			openai.RunStatusExpired, runStatusIncomplete:
			err := &RunStatusError{RunID: s.runID, Status: run.Status}
			w.handleError("waitForCompleted", err, "Run status is not completed")
			s.outcome = OutcomeRunFailed
			s.err = err
			return s
		}
	}
}

func (w *Workflow) processMessage(ctx context.Context, s state) state {
	if s.threadID == "" {
		w.handleError("processMessage", ErrThreadNotSet, "Thread ID is not set.")
		return s
	}

	messages, err := w.api.ListMessages(ctx, s.threadID)
	if err != nil {
		w.handleError("processMessage", err, "Error processing message")
		s.err = err
		return s
	}

	var content []openai.MessageContent
	if len(messages) > 0 {
		content = append(content, messages[0].Content...)
	}
	s.content = content
	return s
}

// cleanup deletes the thread even when ctx is already cancelled.
func (w *Workflow) cleanup(ctx context.Context, s state) {
	if w.keepThread || s.threadID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cleanupTimeout)
	defer cancel()

	if err := w.api.DeleteThread(ctx, s.threadID); err != nil {
		w.handleError("deleteThread", err, "Error deleting thread")
	}
}
