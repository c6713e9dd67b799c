package releasenotes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/github"
	"git.home.luguber.info/inful/relkit/internal/logfields"
)

// GitHubInfo identifies the repository and its branch and tag conventions.
type GitHubInfo struct {
	Owner        string
	Repo         string
	Username     string
	Password     string // token
	MasterBranch string
	PrefixBeta   string
	PrefixProd   string
}

// API is the GitHub surface the generator needs. *github.Client satisfies it.
type API interface {
	ListTags(ctx context.Context) ([]github.Tag, error)
	GetTag(ctx context.Context, name string) (*github.Tag, error)
	GetCommit(ctx context.Context, sha string) (*github.Commit, error)
	ListMergedPullRequests(ctx context.Context, base string, since, until time.Time) ([]github.PullRequest, error)
	GetPullRequest(ctx context.Context, n int) (*github.PullRequest, error)
	GetReleaseByTag(ctx context.Context, tag string) (*github.Release, error)
	UpdateRelease(ctx context.Context, id int64, body string) (*github.Release, error)
	PullRequestURL(n int) string
}

// MergeScanner lists pull request numbers merged between two tags in a local
// clone.
type MergeScanner func(repoPath, fromTag, toTag string) ([]int, error)

// Options controls one generation.
type Options struct {
	Tag       string
	LastTag   string // overrides last-tag resolution
	LinkPR    bool
	DryRun    bool
	HasIssues bool
	LocalRepo string // when set, pull requests come from merge commits in this clone
}

// Generator renders and publishes release notes.
type Generator struct {
	api     API
	info    GitHubInfo
	parsers []*Parser
	opts    Options
	scan    MergeScanner
	logger  *slog.Logger
}

// NewGenerator creates a generator. Parsers render in the given order.
func NewGenerator(api API, info GitHubInfo, parsers []*Parser, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{api: api, info: info, parsers: parsers, opts: opts, logger: logger}
}

// WithMergeScanner sets the scanner used when Options.LocalRepo is set.
func (g *Generator) WithMergeScanner(scan MergeScanner) *Generator {
	g.scan = scan
	return g
}

type resolvedTag struct {
	name string
	date time.Time
}

// Generate renders the notes for Options.Tag and, unless DryRun, writes them
// to the tag's release body. The rendered notes are returned either way.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	if strings.TrimSpace(g.opts.Tag) == "" {
		return "", ferrors.ValidationError("tag is required").Build()
	}

	current, err := g.tagDate(ctx, g.opts.Tag)
	if err != nil {
		return "", err
	}
	last, err := g.lastTag(ctx, current)
	if err != nil {
		return "", err
	}
	log := g.logger.With(logfields.Tag(current.name))
	if last != nil {
		log = log.With(logfields.LastTag(last.name))
	}
	log.Debug("Resolved release range")

	prs, err := g.pullRequests(ctx, current, last)
	if err != nil {
		return "", err
	}

	for _, p := range g.parsers {
		p.lines = nil
		if p.Class == GithubIssues && !g.opts.HasIssues {
			continue
		}
		for _, pr := range prs {
			link := ""
			if g.opts.LinkPR {
				url := pr.HTMLURL
				if url == "" {
					url = g.api.PullRequestURL(pr.Number)
				}
				link = fmt.Sprintf("[[PR%d](%s)]", pr.Number, url)
			}
			p.Parse(pr.Body, link)
		}
	}

	notes := g.render()

	if g.opts.DryRun {
		log.Debug("Dry run, release not updated")
		return notes, nil
	}
	rel, err := g.api.GetReleaseByTag(ctx, current.name)
	if err != nil {
		return "", err
	}
	if _, err := g.api.UpdateRelease(ctx, rel.ID, notes); err != nil {
		return "", err
	}
	log.Info("Release notes published", logfields.URL(rel.HTMLURL))
	return notes, nil
}

func (g *Generator) render() string {
	var sections []string
	for _, p := range g.parsers {
		if s := p.Render(); s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n\n")
}

func (g *Generator) tagDate(ctx context.Context, name string) (*resolvedTag, error) {
	tag, err := g.api.GetTag(ctx, name)
	if err != nil {
		return nil, err
	}
	commit, err := g.api.GetCommit(ctx, tag.Commit.SHA)
	if err != nil {
		return nil, err
	}
	return &resolvedTag{name: name, date: commit.Date}, nil
}

// prefixFor returns the tag prefix family tag belongs to.
func (g *Generator) prefixFor(tag string) (string, error) {
	switch {
	case g.info.PrefixProd != "" && strings.HasPrefix(tag, g.info.PrefixProd):
		return g.info.PrefixProd, nil
	case g.info.PrefixBeta != "" && strings.HasPrefix(tag, g.info.PrefixBeta):
		return g.info.PrefixBeta, nil
	}
	return "", ferrors.ValidationError(fmt.Sprintf("tag %s matches neither %q nor %q", tag, g.info.PrefixProd, g.info.PrefixBeta)).
		WithContext("tag", tag).
		Build()
}

// lastTag returns the override, or the first tag of the same family in
// listing order dated before current. nil means current is the first release.
func (g *Generator) lastTag(ctx context.Context, current *resolvedTag) (*resolvedTag, error) {
	if g.opts.LastTag != "" {
		return g.tagDate(ctx, g.opts.LastTag)
	}
	prefix, err := g.prefixFor(current.name)
	if err != nil {
		return nil, err
	}
	tags, err := g.api.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	// ListTags returns newest first, so the first older family tag is the previous release.
	for _, t := range tags {
		if t.Name == current.name || !strings.HasPrefix(t.Name, prefix) {
			continue
		}
		commit, err := g.api.GetCommit(ctx, t.Commit.SHA)
		if err != nil {
			return nil, err
		}
		if commit.Date.Before(current.date) {
			return &resolvedTag{name: t.Name, date: commit.Date}, nil
		}
	}
	return nil, nil
}

func (g *Generator) pullRequests(ctx context.Context, current, last *resolvedTag) ([]github.PullRequest, error) {
	if g.opts.LocalRepo != "" && g.scan != nil {
		from := ""
		if last != nil {
			from = last.name
		}
		numbers, err := g.scan(g.opts.LocalRepo, from, current.name)
		if err != nil {
			return nil, err
		}
		prs := make([]github.PullRequest, 0, len(numbers))
		for _, n := range numbers {
			pr, err := g.api.GetPullRequest(ctx, n)
			if err != nil {
				return nil, err
			}
			g.logger.Debug("Collected pull request", logfields.PullNumber(n))
			prs = append(prs, *pr)
		}
		return prs, nil
	}

	var since time.Time
	if last != nil {
		since = last.date
	}
	prs, err := g.api.ListMergedPullRequests(ctx, g.info.MasterBranch, since, current.date)
	if err != nil {
		return nil, err
	}
	for _, pr := range prs {
		g.logger.Debug("Collected pull request", logfields.PullNumber(pr.Number))
	}
	return prs, nil
}
