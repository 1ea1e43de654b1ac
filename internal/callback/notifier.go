// Package callback delivers generated quizzes back to the caller's backend.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	deliveryPath   = "/quiz/pdf"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 500
)

// Delivery is the body PATCHed to the callback URL
type Delivery struct {
	GeneratedPdfID    string `json:"generatedPdfId"`
	AssistantAnswer   string `json:"assistantAnswer"`
	FileName          string `json:"fileName"`
	FileEntryToBase64 string `json:"fileEntryToBase64"`
}

// StatusError is returned when the callback answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("callback error (status %d): %s", e.StatusCode, e.Body)
}

// Notifier pushes deliveries to caller-supplied URLs
type Notifier struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNotifier creates a notifier. A nil httpClient gets a client with a 60s timeout.
func NewNotifier(httpClient *http.Client, logger *zap.Logger) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{httpClient: httpClient, logger: logger}
}

// Deliver sends d to {beURL}/quiz/pdf
func (n *Notifier) Deliver(ctx context.Context, beURL string, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	url := strings.TrimRight(beURL, "/") + deliveryPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	n.logger.Info("delivery completed",
		zap.String("url", url), zap.String("generated_pdf_id", d.GeneratedPdfID), zap.String("file_name", d.FileName))
	return nil
}
