package metrics

import (
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	taskDuration   *prom.HistogramVec
	taskOutcomes   *prom.CounterVec
	buildFailures  *prom.CounterVec
	githubRequests *prom.CounterVec
	retries        *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers relkit metrics on reg (a fresh
// registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "relkit",
			Name:      "task_duration_seconds",
			Help:      "Duration of task runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		}, []string{"task"}),
		taskOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "relkit",
			Name:      "task_outcomes_total",
			Help:      "Task outcomes by final status",
		}, []string{"task", "outcome"}),
		buildFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "relkit",
			Name:      "build_failures_total",
			Help:      "Classified ant build failures",
		}, []string{"kind"}),
		githubRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "relkit",
			Name:      "github_requests_total",
			Help:      "GitHub API requests by HTTP status",
		}, []string{"status"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "relkit",
			Name:      "retries_total",
			Help:      "Retries of transient failures",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskOutcomes, pr.buildFailures, pr.githubRequests, pr.retries)
	return pr
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskOutcome(task string, outcome OutcomeLabel) {
	p.taskOutcomes.WithLabelValues(task, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncBuildFailure(kind string) {
	p.buildFailures.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncGitHubRequest(status int) {
	p.githubRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) IncRetry(operation string) {
	p.retries.WithLabelValues(operation).Inc()
}

// WriteTextfile writes the registry in text exposition format, atomically, for
// node_exporter's textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
