// Package quiz turns a question into a rendered answer delivered to the caller.
package quiz

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quiz-assistant/internal/assistant"
	"quiz-assistant/internal/callback"
	"quiz-assistant/internal/metrics"
	"quiz-assistant/internal/models"
	"quiz-assistant/internal/pdf"
)

const reportMethod = "mcq"

var (
	ErrNoAnswer   = errors.New("assistant answer is empty")
	ErrNoDocument = errors.New("generated pdf is empty")
)

// Assistant answers a single question
type Assistant interface {
	Execute(ctx context.Context, question string) assistant.Result
}

// Renderer produces a PDF from answer text
type Renderer interface {
	Generate(ctx context.Context, template string) (*pdf.Document, error)
}

// Deliverer pushes the rendered quiz to the caller
type Deliverer interface {
	Deliver(ctx context.Context, beURL string, d callback.Delivery) error
}

// ErrorReporter relays pipeline failures
type ErrorReporter interface {
	Log(method string, err error, message string)
}

// Job is one accepted quiz request
type Job struct {
	GeneratedPdfID string
	BeURL          string
	Question       string
}

// Pipeline runs the assistant, renders the answer and delivers the file
type Pipeline struct {
	assistant Assistant
	renderer  Renderer
	deliverer Deliverer
	reporter  ErrorReporter
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewPipeline(a Assistant, r Renderer, d Deliverer, reporter ErrorReporter, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		assistant: a,
		renderer:  r,
		deliverer: d,
		reporter:  reporter,
		metrics:   m,
		logger:    logger,
	}
}

// Process runs job to completion. Every failure is reported before it is returned.
func (p *Pipeline) Process(ctx context.Context, job Job) error {
	logger := p.logger.With(zap.String("generated_pdf_id", job.GeneratedPdfID))

	start := time.Now()
	res := p.assistant.Execute(ctx, job.Question)
	p.metrics.ObserveWorkflow(string(res.Outcome), time.Since(start).Seconds())

	if !res.OK() {
		err := ErrNoAnswer
		if res.Err != nil {
			err = fmt.Errorf("%w: %w", ErrNoAnswer, res.Err)
		}
		// cancellation comes from shutdown, not from a failed run
		if res.Outcome == assistant.OutcomeCanceled {
			logger.Info("assistant workflow canceled", zap.Error(err))
			return err
		}
		p.report(err, "Assistant answer is empty")
		return err
	}
	logger.Info("assistant answered", zap.String("thread_id", res.ThreadID), zap.String("run_id", res.RunID))

	doc, err := p.renderer.Generate(ctx, res.Answer)
	if err != nil || doc == nil {
		wrapped := ErrNoDocument
		if err != nil {
			wrapped = fmt.Errorf("%w: %w", ErrNoDocument, err)
		}
		p.report(wrapped, "Generated PDF is empty")
		return wrapped
	}

	delivery := callback.Delivery{
		GeneratedPdfID:    job.GeneratedPdfID,
		AssistantAnswer:   res.Answer,
		FileName:          doc.FileName,
		FileEntryToBase64: base64.StdEncoding.EncodeToString(doc.Content),
	}
	if err := p.deliverer.Deliver(ctx, job.BeURL, delivery); err != nil {
		wrapped := fmt.Errorf("failed to deliver quiz: %w", err)
		p.report(wrapped, "callback delivery failed")
		return wrapped
	}

	logger.Info("quiz delivered", zap.String("file_name", doc.FileName))
	return nil
}

// HandleTask adapts Process to the worker handler signature
func (p *Pipeline) HandleTask(ctx context.Context, task models.Task) error {
	return p.Process(ctx, Job{
		GeneratedPdfID: task.GeneratedPdfID,
		BeURL:          task.BeURL,
		Question:       task.Question,
	})
}

func (p *Pipeline) report(err error, message string) {
	if p.reporter != nil {
		p.reporter.Log(reportMethod, err, message)
	}
}
