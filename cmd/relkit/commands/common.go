// Package commands implements the relkit command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/relkit/internal/config"
	"git.home.luguber.info/inful/relkit/internal/history"
	"git.home.luguber.info/inful/relkit/internal/logfields"
	"git.home.luguber.info/inful/relkit/internal/metrics"
	"git.home.luguber.info/inful/relkit/internal/notify"
	"git.home.luguber.info/inful/relkit/internal/tasks"
)

// Global carries process-wide dependencies into subcommands.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"relkit.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Ant          AntCmd          `cmd:"" help:"Run an Ant build target against the configured org"`
	ReleaseNotes ReleaseNotesCmd `cmd:"" name:"release-notes" help:"Generate release notes for a tag from merged pull requests"`
	Init         InitCmd         `cmd:"" help:"Initialize a new configuration file"`
	History      HistoryCmd      `cmd:"" help:"Show recent task runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// runtime bundles the reporter sinks opened for one command.
type runtime struct {
	cfg      *config.Config
	reporter *tasks.Reporter
	prom     *metrics.PrometheusRecorder
	logger   *slog.Logger
}

// openRuntime builds the reporter from the history, metrics and notify
// sections. Optional sinks that fail to open are logged and skipped.
func openRuntime(cfg *config.Config, logger *slog.Logger) *runtime {
	rt := &runtime{cfg: cfg, logger: logger, reporter: &tasks.Reporter{Logger: logger}}

	if cfg.Metrics.Textfile != "" {
		rt.prom = metrics.NewPrometheusRecorder(nil)
		rt.reporter.Metrics = rt.prom
	}
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			logger.Warn("History disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			rt.reporter.History = store
		}
	}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			logger.Warn("Notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			rt.reporter.Notifier = n
		}
	}
	return rt
}

// metricsRecorder returns the Prometheus recorder when metrics export is on.
func (rt *runtime) metricsRecorder() metrics.Recorder {
	if rt.prom == nil {
		return metrics.NoopRecorder{}
	}
	return rt.prom
}

// Close flushes metrics to the textfile and releases sinks.
func (rt *runtime) Close() error {
	var errs []error
	if rt.prom != nil {
		if err := rt.prom.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}
	if rt.reporter.History != nil {
		if err := rt.reporter.History.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if rt.reporter.Notifier != nil {
		if err := rt.reporter.Notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeRuntime closes rt, logging instead of masking the command's own error.
func closeRuntime(rt *runtime) {
	if err := rt.Close(); err != nil {
		rt.logger.Warn("Failed to finalize run", logfields.Error(err))
	}
}
