// Package reporter relays service errors to a remote error collector.
package reporter

import (
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Config identifies where and as what errors are reported
type Config struct {
	DSN         string
	ServiceName string
	Stage       string
	// Transport overrides the sentry transport; nil uses the default HTTP transport.
	Transport sentry.Transport
}

// Reporter logs errors locally and forwards them to Sentry.
// Delivery is asynchronous and failures of the relay are never surfaced.
type Reporter struct {
	hub     *sentry.Hub
	logger  *zap.Logger
	service string
	stage   string
}

// New creates a reporter. An empty DSN yields a reporter that only logs.
func New(cfg Config, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Stage,
		ServerName:  cfg.ServiceName,
		Transport:   cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	return &Reporter{
		hub:     sentry.NewHub(client, sentry.NewScope()),
		logger:  logger,
		service: cfg.ServiceName,
		stage:   cfg.Stage,
	}, nil
}

// Log reports err raised in method. A nil err is reported as the message itself.
func (r *Reporter) Log(method string, err error, message string) {
	if err == nil {
		err = errors.New(message)
	}

	r.logger.Error(message, zap.String("method", method), zap.Error(err))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("error relay panicked", zap.Any("panic", rec))
		}
	}()

	// each call owns its hub so concurrent reports never share a scope
	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", r.service)
		scope.SetTag("stage", r.stage)
		scope.SetTag("method", method)
		scope.SetContext("details", sentry.Context{
			"method":  method,
			"message": message,
		})
	})
	hub.CaptureException(err)
}

// Flush waits up to timeout for queued events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
