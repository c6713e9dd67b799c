package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/relkit/internal/config"
	"git.home.luguber.info/inful/relkit/internal/git"
	"git.home.luguber.info/inful/relkit/internal/github"
	"git.home.luguber.info/inful/relkit/internal/logfields"
	"git.home.luguber.info/inful/relkit/internal/releasenotes"
)

// GitHubAPI is what the release notes task needs from GitHub.
type GitHubAPI interface {
	releasenotes.API
	GetRepository(ctx context.Context) (*github.Repository, error)
}

// ReleaseNotesTask renders release notes for a tag and publishes them.
type ReleaseNotesTask struct {
	Config   *config.Config
	API      GitHubAPI
	Scanner  releasenotes.MergeScanner
	Reporter *Reporter
	Logger   *slog.Logger
}

// NewReleaseNotesTask wires the task to api. Merge commits are scanned with
// go-git when project.local_repo is configured.
func NewReleaseNotesTask(cfg *config.Config, api GitHubAPI, reporter *Reporter, logger *slog.Logger) *ReleaseNotesTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReleaseNotesTask{
		Config:   cfg,
		API:      api,
		Scanner:  git.PullRequestsBetween,
		Reporter: reporter,
		Logger:   logger,
	}
}

// ReleaseNotesOptions are the task options.
type ReleaseNotesOptions struct {
	Tag     string
	LastTag string
	LinkPR  bool
	DryRun  bool
}

// GitHubInfoFromConfig assembles repository settings from the project and
// github sections.
func GitHubInfoFromConfig(cfg *config.Config) releasenotes.GitHubInfo {
	return releasenotes.GitHubInfo{
		Owner:        cfg.Project.RepoOwner,
		Repo:         cfg.Project.RepoName,
		Username:     cfg.GitHub.Username,
		Password:     cfg.GitHub.Password,
		MasterBranch: cfg.Project.Git.DefaultBranch,
		PrefixBeta:   cfg.Project.Git.PrefixBeta,
		PrefixProd:   cfg.Project.Git.PrefixRelease,
	}
}

// Run generates the notes, logs them and returns them.
func (t *ReleaseNotesTask) Run(ctx context.Context, opts ReleaseNotesOptions) (string, error) {
	started := time.Now()
	notes, err := t.run(ctx, opts)
	t.Reporter.Report(ctx, Outcome{
		RunID:     uuid.NewString(),
		Task:      TaskReleaseNotes,
		Subject:   opts.Tag,
		StartedAt: started,
		Duration:  time.Since(started),
		Err:       err,
	})
	if err != nil {
		return "", err
	}
	t.Logger.Info("\n"+notes, logfields.Task(TaskReleaseNotes), logfields.Tag(opts.Tag))
	return notes, nil
}

func (t *ReleaseNotesTask) run(ctx context.Context, opts ReleaseNotesOptions) (string, error) {
	repo, err := t.API.GetRepository(ctx)
	if err != nil {
		return "", err
	}

	gen := releasenotes.NewGenerator(
		t.API,
		GitHubInfoFromConfig(t.Config),
		releasenotes.ParsersFromConfig(t.Config.ReleaseNotes.Parsers),
		releasenotes.Options{
			Tag:       opts.Tag,
			LastTag:   opts.LastTag,
			LinkPR:    opts.LinkPR,
			DryRun:    opts.DryRun,
			HasIssues: repo.HasIssues,
			LocalRepo: t.Config.Project.LocalRepo,
		},
		t.Logger,
	).WithMergeScanner(t.Scanner)
	return gen.Generate(ctx)
}
