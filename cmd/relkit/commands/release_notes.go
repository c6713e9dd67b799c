package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/github"
	"git.home.luguber.info/inful/relkit/internal/retry"
	"git.home.luguber.info/inful/relkit/internal/tasks"
)

// ReleaseNotesCmd implements the 'release-notes' command.
type ReleaseNotesCmd struct {
	Tag     string `required:"" help:"The tag to generate release notes for. Ex: release/1.2"`
	LastTag string `name:"last-tag" help:"Override the last release tag, for example when releases were skipped"`
	LinkPR  bool   `name:"link-pr" help:"Append a link to the source pull request to each line"`
	DryRun  bool   `name:"dry-run" help:"Render the notes without updating the GitHub release"`
}

func (r *ReleaseNotesCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load config").Build()
	}
	return RunReleaseNotes(ctx, cfg, tasks.ReleaseNotesOptions{
		Tag:     r.Tag,
		LastTag: r.LastTag,
		LinkPR:  r.LinkPR,
		DryRun:  r.DryRun,
	})
}

// RunReleaseNotes generates release notes with the GitHub client configured in cfg.
func RunReleaseNotes(ctx context.Context, cfg *config.Config, opts tasks.ReleaseNotesOptions) error {
	if err := cfg.RequireGitHub(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "incomplete configuration").Build()
	}

	logger := slog.Default()
	rt := openRuntime(cfg, logger)
	defer closeRuntime(rt)

	client, err := github.NewClient(github.Options{
		Owner:    cfg.Project.RepoOwner,
		Repo:     cfg.Project.RepoName,
		Username: cfg.GitHub.Username,
		Token:    cfg.GitHub.Password,
		APIURL:   cfg.GitHub.APIURL,
		BaseURL:  cfg.GitHub.BaseURL,
		Retry:    retry.FromConfig(cfg.Retry),
		Metrics:  rt.metricsRecorder(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	_, err = tasks.NewReleaseNotesTask(cfg, client, rt.reporter, logger).Run(ctx, opts)
	return err
}
