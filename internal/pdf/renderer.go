// Package pdf wraps the remote PDF generation service.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	generatePath   = "/pdf/generate"
	defaultTimeout = 60 * time.Second
)

// ErrorReporter relays generation failures
type ErrorReporter interface {
	Log(method string, err error, message string)
}

// Document is a rendered PDF
type Document struct {
	FileName string
	Content  []byte
}

// StatusError is returned when the generator answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pdf generator error (status %d): %s", e.StatusCode, e.Status)
}

type generateRequest struct {
	Template string `json:"template"`
}

// Renderer turns template text into a PDF via the generator service
type Renderer struct {
	baseURL    string
	httpClient *http.Client
	reporter   ErrorReporter
	logger     *zap.Logger
}

// Option configures a Renderer
type Option func(*Renderer)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Renderer) {
		r.httpClient = httpClient
	}
}

// WithLogger sets the renderer logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer creates a renderer for the generator at baseURL
func NewRenderer(baseURL string, reporter ErrorReporter, opts ...Option) *Renderer {
	r := &Renderer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		reporter:   reporter,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Generate renders template and names the result with a random UUID.
func (r *Renderer) Generate(ctx context.Context, template string) (*Document, error) {
	body, err := json.Marshal(generateRequest{Template: template})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.report(err, "Pdf generator request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
		r.report(statusErr, "Pdf generator error "+statusErr.Status)
		return nil, statusErr
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		r.report(err, "Pdf generator response unreadable")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	doc := &Document{
		FileName: uuid.NewString() + ".pdf",
		Content:  content,
	}
	r.logger.Info("pdf generated", zap.String("file_name", doc.FileName), zap.Int("size", len(content)))
	return doc, nil
}

func (r *Renderer) report(err error, message string) {
	r.logger.Warn(message, zap.Error(err))
	if r.reporter != nil {
		r.reporter.Log("generatePdf", err, message)
	}
}
