package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/history"
	"git.home.luguber.info/inful/relkit/internal/logfields"
	"git.home.luguber.info/inful/relkit/internal/metrics"
	"git.home.luguber.info/inful/relkit/internal/notify"
)

// Task names used in metrics, history and notification subjects.
const (
	TaskAnt          = "ant"
	TaskReleaseNotes = "release-notes"
)

// Outcome summarizes one finished task run.
type Outcome struct {
	RunID     string
	Task      string
	Subject   string
	StartedAt time.Time
	Duration  time.Duration
	Failure   string
	ExitCode  int
	Err       error
}

// Label maps the outcome onto the metrics outcome label.
func (o Outcome) Label() metrics.OutcomeLabel {
	switch {
	case o.Err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, context.DeadlineExceeded),
		ferrors.HasCategory(o.Err, ferrors.CategoryCanceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// Reporter fans an Outcome out to metrics, history and the notifier. Zero
// value fields fall back to no-op implementations.
type Reporter struct {
	Metrics  metrics.Recorder
	History  history.Store
	Notifier notify.Notifier
	Logger   *slog.Logger
}

func (r *Reporter) defaults() {
	if r.Metrics == nil {
		r.Metrics = metrics.NoopRecorder{}
	}
	if r.History == nil {
		r.History = history.NoopStore{}
	}
	if r.Notifier == nil {
		r.Notifier = notify.NoopNotifier{}
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
}

// Report records o. Recording failures are logged and never override the
// task's own result.
func (r *Reporter) Report(ctx context.Context, o Outcome) {
	if r == nil {
		return
	}
	r.defaults()

	label := o.Label()
	r.Metrics.ObserveTaskDuration(o.Task, o.Duration)
	r.Metrics.IncTaskOutcome(o.Task, label)
	if o.Failure != "" {
		r.Metrics.IncBuildFailure(o.Failure)
	}

	// History and notifications still go out when the task was interrupted.
	ctx = context.WithoutCancel(ctx)

	run := history.Run{
		ID:        o.RunID,
		Task:      o.Task,
		Subject:   o.Subject,
		Outcome:   string(label),
		Failure:   o.Failure,
		ExitCode:  o.ExitCode,
		StartedAt: o.StartedAt,
		Duration:  o.Duration,
	}
	if c, ok := ferrors.AsClassified(o.Err); ok {
		run.Metadata = map[string]string{"category": string(c.Category())}
	}
	if err := r.History.Record(ctx, run); err != nil {
		r.Logger.Warn("Failed to record task run", logfields.Task(o.Task), logfields.Error(err))
	}

	event := notify.TaskEvent{
		RunID:    o.RunID,
		Task:     o.Task,
		Subject:  o.Subject,
		Outcome:  string(label),
		Failure:  o.Failure,
		ExitCode: o.ExitCode,
		Duration: o.Duration.Seconds(),
	}
	if o.Err != nil {
		event.Error = o.Err.Error()
	}
	if err := r.Notifier.Publish(ctx, event); err != nil {
		r.Logger.Warn("Failed to publish task event", logfields.Task(o.Task), logfields.Error(err))
	}
}
