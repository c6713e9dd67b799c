package metrics

import "time"

// OutcomeLabel enumerates task outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for task runs.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskOutcome(task string, outcome OutcomeLabel)
	IncBuildFailure(kind string) // kind: deployment|apex_test|target
	IncGitHubRequest(status int)
	IncRetry(operation string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskOutcome(string, OutcomeLabel)       {}
func (NoopRecorder) IncBuildFailure(string)                    {}
func (NoopRecorder) IncGitHubRequest(int)                      {}
func (NoopRecorder) IncRetry(string)                           {}
