package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/relkit/internal/ant"
	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/org"
	"git.home.luguber.info/inful/relkit/internal/tasks"
)

// AntCmd implements the 'ant' command.
type AntCmd struct {
	Target     string `short:"t" help:"Ant target to run (defaults to ant.target in the configuration)"`
	AntVerbose string `name:"ant-verbose" help:"If True, run ant directly instead of the quiet wrapper" default:"False"`
}

func (a *AntCmd) Run(ctx context.Context, _ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load config").Build()
	}
	return RunAnt(ctx, cfg, a.Target, ant.ParseVerbosity(a.AntVerbose))
}

// RunAnt runs one ant target with the reporter sinks configured in cfg.
func RunAnt(ctx context.Context, cfg *config.Config, target string, v ant.Verbosity) error {
	if target == "" {
		target = cfg.Ant.Target
	}
	if target == "" {
		return ferrors.ValidationError("no ant target given; pass --target or set ant.target").Build()
	}
	if err := cfg.RequireOrg(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "incomplete configuration").Build()
	}

	logger := slog.Default()
	rt := openRuntime(cfg, logger)
	defer closeRuntime(rt)

	task := tasks.NewAntTask(cfg, org.FromConfig(cfg.Org), rt.reporter, logger)
	res, err := task.Run(ctx, tasks.AntOptions{Target: target, Verbose: v})
	if err != nil {
		return err
	}
	logger.Debug(fmt.Sprintf("Ant finished: %s", res.Describe()))
	return nil
}
