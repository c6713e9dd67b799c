package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/relkit/internal/ant"
	"git.home.luguber.info/inful/relkit/internal/config"
	"git.home.luguber.info/inful/relkit/internal/logfields"
	"git.home.luguber.info/inful/relkit/internal/org"
)

// BuildRunner runs one ant target.
type BuildRunner interface {
	Run(ctx context.Context, target string, v ant.Verbosity) (*ant.CommandResult, error)
}

// TokenRefresher refreshes the org session before a build.
type TokenRefresher interface {
	RefreshOAuthToken(ctx context.Context, app org.ConnectedApp) error
}

// AntTask runs an ant target against the configured org.
type AntTask struct {
	Runner   BuildRunner
	Org      TokenRefresher
	App      org.ConnectedApp
	Reporter *Reporter
	Logger   *slog.Logger
}

// NewAntTask builds the task from configuration. The runner reads the org
// session through creds, so a refreshed token is picked up by the build.
func NewAntTask(cfg *config.Config, creds *org.Config, reporter *Reporter, logger *slog.Logger) *AntTask {
	if logger == nil {
		logger = slog.Default()
	}
	runner := ant.NewRunner(ant.Options{
		BasePath: cfg.Ant.BasePath,
		Binary:   cfg.Ant.Binary,
		Wrapper:  cfg.Ant.WrapperPath(),
		AntOpts:  cfg.Ant.Opts,
		Timeout:  cfg.Ant.AntTimeout(),
	}, creds, logger)
	return &AntTask{
		Runner:   runner,
		Org:      creds,
		App:      org.AppFromConfig(cfg.ConnectedApp),
		Reporter: reporter,
		Logger:   logger,
	}
}

// AntOptions selects the target and output mode.
type AntOptions struct {
	Target  string
	Verbose ant.Verbosity
}

// Run refreshes the org token, runs the target and reports the outcome. Build
// failures come back as *ant.DeploymentError, *ant.ApexTestError or
// *ant.TargetError.
func (t *AntTask) Run(ctx context.Context, opts AntOptions) (*ant.CommandResult, error) {
	started := time.Now()
	outcome := Outcome{RunID: uuid.NewString(), Task: TaskAnt, Subject: opts.Target, StartedAt: started}
	log := t.Logger.With(logfields.Task(TaskAnt), logfields.Target(opts.Target))

	res, err := t.run(ctx, opts)
	if res != nil {
		outcome.RunID = res.RunID
		if res.ExitCode != nil {
			outcome.ExitCode = *res.ExitCode
		}
		outcome.Failure = string(res.Failure)
	}
	outcome.Duration = time.Since(started)
	outcome.Err = err
	t.Reporter.Report(ctx, outcome)

	if err == nil {
		log.Info("Ant target completed", logfields.DurationMS(float64(outcome.Duration.Milliseconds())))
	}
	return res, err
}

func (t *AntTask) run(ctx context.Context, opts AntOptions) (*ant.CommandResult, error) {
	if t.Org != nil {
		if err := t.Org.RefreshOAuthToken(ctx, t.App); err != nil {
			return nil, err
		}
	}
	return t.Runner.Run(ctx, opts.Target, opts.Verbose)
}
