package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
)

// Repository is the subset of repository settings release notes use.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	HasIssues     bool   `json:"has_issues"`
	HTMLURL       string `json:"html_url"`
}

// Tag is a lightweight view of a git tag.
type Tag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// Commit carries the commit date used to order tags and pull requests.
type Commit struct {
	SHA     string
	Message string
	Date    time.Time
}

type githubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// Release is a GitHub release.
type Release struct {
	ID         int64  `json:"id"`
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// PullRequest is a closed or open pull request.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	HTMLURL   string     `json:"html_url"`
	State     string     `json:"state"`
	MergedAt  *time.Time `json:"merged_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Base      struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// Merged reports whether the pull request was merged.
func (p *PullRequest) Merged() bool { return p.MergedAt != nil }

// GetRepository returns the repository settings.
func (c *Client) GetRepository(ctx context.Context) (*Repository, error) {
	var repo Repository
	if _, err := c.call(ctx, http.MethodGet, c.repoPath(), nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListTags returns every tag in API order (newest first).
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	endpoint := c.repoPath("tags") + "?per_page=" + strconv.Itoa(perPage)
	err := paginate(ctx, c, endpoint, func(page []Tag) bool {
		tags = append(tags, page...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// GetTag looks a tag up by name.
func (c *Client) GetTag(ctx context.Context, name string) (*Tag, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tags {
		if tags[i].Name == name {
			return &tags[i], nil
		}
	}
	return nil, ferrors.WrapError(ErrNotFound, ferrors.CategoryNotFound, fmt.Sprintf("tag %s not found", name)).
		WithContext("repository", c.FullName()).
		Build()
}

// GetCommit returns the commit for sha.
func (c *Client) GetCommit(ctx context.Context, sha string) (*Commit, error) {
	var gc githubCommit
	if _, err := c.call(ctx, http.MethodGet, c.repoPath("commits", sha), nil, &gc); err != nil {
		return nil, err
	}
	date := gc.Commit.Committer.Date
	if date.IsZero() {
		date = gc.Commit.Author.Date
	}
	return &Commit{SHA: gc.SHA, Message: gc.Commit.Message, Date: date}, nil
}

// GetReleaseByTag returns the release attached to tag.
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	var rel Release
	if _, err := c.call(ctx, http.MethodGet, c.repoPath("releases", "tags", tag), nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// UpdateRelease replaces the body of release id and returns the updated release.
func (c *Client) UpdateRelease(ctx context.Context, id int64, body string) (*Release, error) {
	payload := map[string]string{"body": body}
	var rel Release
	endpoint := c.repoPath("releases", strconv.FormatInt(id, 10))
	if _, err := c.call(ctx, http.MethodPatch, endpoint, payload, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetPullRequest returns pull request n.
func (c *Client) GetPullRequest(ctx context.Context, n int) (*PullRequest, error) {
	var pr PullRequest
	if _, err := c.call(ctx, http.MethodGet, c.repoPath("pulls", strconv.Itoa(n)), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListMergedPullRequests returns pull requests merged into base with
// since < merged_at <= until, oldest merge first. A zero since means no lower
// bound.
func (c *Client) ListMergedPullRequests(ctx context.Context, base string, since, until time.Time) ([]PullRequest, error) {
	q := url.Values{}
	q.Set("state", "closed")
	q.Set("base", base)
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	q.Set("per_page", strconv.Itoa(perPage))
	endpoint := c.repoPath("pulls") + "?" + q.Encode()

	var merged []PullRequest
	err := paginate(ctx, c, endpoint, func(page []PullRequest) bool {
		for _, pr := range page {
			if !pr.Merged() {
				continue
			}
			if !since.IsZero() && !pr.MergedAt.After(since) {
				continue
			}
			if pr.MergedAt.After(until) {
				continue
			}
			merged = append(merged, pr)
		}
		if len(page) == 0 {
			return false
		}
		// updated_at never precedes merged_at, so older pages cannot match.
		last := page[len(page)-1]
		return since.IsZero() || !last.UpdatedAt.Before(since)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].MergedAt.Before(*merged[j].MergedAt)
	})
	return merged, nil
}
