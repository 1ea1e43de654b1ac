// Package metrics holds the Prometheus collectors of the quiz assistant.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "quiz_assistant"
)

type Metrics struct {
	TasksTotal       *prometheus.CounterVec
	TasksInFlight    prometheus.Gauge
	RunPollsTotal    prometheus.Counter
	WorkflowDuration *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Number of finished quiz tasks by status",
		}, []string{"status"}),
		TasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Number of quiz tasks currently running",
		}),
		RunPollsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_polls_total",
			Help:      "Number of assistant run status polls",
		}),
		WorkflowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of assistant workflows by outcome",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) TaskFinished(status string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksInFlight.Inc()
}

func (m *Metrics) TaskDone() {
	if m == nil {
		return
	}
	m.TasksInFlight.Dec()
}

func (m *Metrics) RunPolled() {
	if m == nil {
		return
	}
	m.RunPollsTotal.Inc()
}

// ObserveWorkflow records a workflow duration in seconds
func (m *Metrics) ObserveWorkflow(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.WorkflowDuration.WithLabelValues(outcome).Observe(seconds)
}
