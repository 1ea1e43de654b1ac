package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-assistant/internal/api"
	"quiz-assistant/internal/assistant"
	"quiz-assistant/internal/callback"
	"quiz-assistant/internal/config"
	"quiz-assistant/internal/db"
	"quiz-assistant/internal/metrics"
	"quiz-assistant/internal/pdf"
	"quiz-assistant/internal/quiz"
	"quiz-assistant/internal/reporter"
	"quiz-assistant/internal/worker"
)

const (
	httpShutdownTimeout   = 30 * time.Second
	// longer than the workflow thread cleanup so interrupted tasks can finish it
	runnerShutdownTimeout = 45 * time.Second
	reporterFlushTimeout  = 5 * time.Second
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:           "quiz-assistant",
		Short:         "Answers quiz questions with an OpenAI assistant and delivers them as PDF",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(dev)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			return run(cmd.Context(), logger)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "human-readable development logging")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return cmd
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	errReporter, err := reporter.New(reporter.Config{
		DSN:         cfg.Sentry.DSN,
		ServiceName: cfg.Sentry.ServiceName,
		Stage:       cfg.Sentry.Stage,
	}, logger.Named("reporter"))
	if err != nil {
		return err
	}
	defer errReporter.Flush(reporterFlushTimeout)
	if cfg.Sentry.DSN == "" {
		logger.Warn("SENTRY_DSN not configured, errors are only logged")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	client := assistant.NewClient(cfg.OpenAI.APIKey,
		assistant.WithBaseURL(cfg.OpenAI.BaseURL),
		assistant.WithOrgID(cfg.OpenAI.OrgID),
		assistant.WithLogger(logger.Named("assistant")),
	)
	workflow := assistant.NewWorkflow(client, cfg.OpenAI.AssistantID, errReporter,
		assistant.WithPollInterval(cfg.Run.PollInterval),
		assistant.WithMaxWait(cfg.Run.Timeout),
		assistant.WithKeepThread(cfg.Run.KeepThread),
		assistant.WithWorkflowLogger(logger.Named("assistant")),
		assistant.WithPollObserver(func(openai.RunStatus) { m.RunPolled() }),
	)

	pipeline := quiz.NewPipeline(
		workflow,
		pdf.NewRenderer(cfg.PDFGeneratorURL, errReporter, pdf.WithLogger(logger.Named("pdf"))),
		callback.NewNotifier(nil, logger.Named("callback")),
		errReporter,
		m,
		logger.Named("quiz"),
	)

	var store worker.Store = worker.NewMemoryStore()
	var journal io.Closer
	if cfg.TaskDBPath != "" {
		taskDB, err := db.Open(cfg.TaskDBPath)
		if err != nil {
			return err
		}
		store = taskDB
		journal = taskDB
		logger.Info("task journal opened", zap.String("path", cfg.TaskDBPath))
	}

	runner := worker.NewRunner(store, pipeline.HandleTask,
		worker.WithWorkers(cfg.Workers),
		worker.WithLogger(logger.Named("worker")),
		worker.WithMetrics(m),
	)
	if n, err := runner.Resume(ctx); err != nil {
		logger.Warn("failed to resume tasks", zap.Error(err))
	} else if n > 0 {
		logger.Info("resumed unfinished tasks", zap.Int("count", n))
	}

	e := api.NewRouter(runner, registry, logger.Named("api"))
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("server is shutting down")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	httpCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	shutdownTasks(runner, journal, runnerShutdownTimeout, logger)

	logger.Info("server stopped gracefully")
	return runErr
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTasks stops the runner and closes the journal. The journal stays
// open when the runner did not drain, since task goroutines may still write.
func shutdownTasks(runner shutdowner, journal io.Closer, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := runner.Shutdown(ctx); err != nil {
		logger.Error("runner forced to shutdown, leaving task journal open", zap.Error(err))
		return
	}

	if journal == nil {
		return
	}
	if err := journal.Close(); err != nil {
		logger.Error("failed to close task journal", zap.Error(err))
	}
}
