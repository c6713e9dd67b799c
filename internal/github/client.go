// Package github is a small GitHub REST client covering what release automation
// needs: repositories, tags, commits, pull requests and releases.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/logfields"
	"git.home.luguber.info/inful/relkit/internal/metrics"
	"git.home.luguber.info/inful/relkit/internal/retry"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	DefaultBaseURL = "https://github.com"

	apiVersion = "2022-11-28"
	userAgent  = "relkit/1.0"
	perPage    = 100
)

// ErrNotFound is wrapped by errors for 404 responses.
var ErrNotFound = stderrors.New("github: not found")

// Options configures a Client.
type Options struct {
	Owner      string
	Repo       string
	Username   string // basic auth user; bearer token auth when empty
	Token      string
	APIURL     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Policy
	Metrics    metrics.Recorder
	Logger     *slog.Logger
}

// Client talks to one repository.
type Client struct {
	owner, repo string
	username    string
	token       string
	apiURL      string
	baseURL     string
	httpClient  *http.Client
	policy      retry.Policy
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// NewClient creates a client for opts.Owner/opts.Repo.
func NewClient(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, ferrors.ConfigError("github repository owner and name are required").Build()
	}
	c := &Client{
		owner:      opts.Owner,
		repo:       opts.Repo,
		username:   opts.Username,
		token:      opts.Token,
		apiURL:     opts.APIURL,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		policy:     opts.Retry,
		recorder:   opts.Metrics,
		logger:     opts.Logger,
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.recorder == nil {
		c.recorder = metrics.NoopRecorder{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.policy == (retry.Policy{}) {
		c.policy = retry.DefaultPolicy()
	}
	return c, nil
}

// FullName returns "owner/repo".
func (c *Client) FullName() string { return c.owner + "/" + c.repo }

// PullRequestURL returns the web URL of pull request n.
func (c *Client) PullRequestURL(n int) string {
	return fmt.Sprintf("%s/%s/pull/%d", strings.TrimSuffix(c.baseURL, "/"), c.FullName(), n)
}

func (c *Client) repoPath(parts ...string) string {
	return "/" + path.Join(append([]string{"repos", c.owner, c.repo}, parts...)...)
}

// call performs one API call with retries and decodes the JSON response into
// result. The response headers of the successful attempt are returned.
func (c *Client) call(ctx context.Context, method, endpoint string, body, result any) (http.Header, error) {
	var header http.Header
	attempt := 0
	err := c.policy.Do(ctx, ferrors.IsRetryable, func() error {
		if attempt > 0 {
			c.recorder.IncRetry("github")
			c.logger.Debug("Retrying GitHub request", logfields.URL(endpoint), slog.Int("attempt", attempt))
		}
		attempt++
		req, err := c.newRequest(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		header, err = c.doRequest(req, result)
		return err
	})
	return header, err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var u *url.URL
	var err error
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		// pagination links are absolute
		u, err = url.Parse(endpoint)
	} else {
		u, err = url.Parse(c.apiURL)
		if err == nil {
			clean := strings.TrimPrefix(endpoint, "/")
			if idx := strings.Index(clean, "?"); idx != -1 {
				u.RawQuery = clean[idx+1:]
				clean = clean[:idx]
			}
			u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), clean)
		}
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse API URL").
			WithContext("api_url", c.apiURL).
			Build()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal request body").Build()
		}
		reader = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create request").
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result any) (http.Header, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.IncGitHubRequest(0)
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to execute GitHub request").
			Retryable().
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()
	c.recorder.IncGitHubRequest(resp.StatusCode)

	if resp.StatusCode >= 400 {
		return nil, responseError(req, resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, ferrors.NewError(ferrors.CategoryForge, "failed to decode GitHub response").
				WithContext("url", req.URL.String()).
				WithContext("cause", err.Error()).
				Build()
		}
	}
	return resp.Header, nil
}

func responseError(req *http.Request, resp *http.Response) error {
	limited, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limited), "\n", " ")

	var b *ferrors.ErrorBuilder
	switch {
	case resp.StatusCode == http.StatusNotFound:
		b = ferrors.WrapError(ErrNotFound, ferrors.CategoryNotFound, "GitHub resource not found")
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		b = ferrors.NewError(ferrors.CategoryForge, "GitHub rate limit exceeded").RateLimit()
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		b = ferrors.AuthError("GitHub rejected the credentials")
	case resp.StatusCode >= 500:
		b = ferrors.ForgeError(fmt.Sprintf("GitHub API error: %s", resp.Status))
	default:
		b = ferrors.NewError(ferrors.CategoryForge, fmt.Sprintf("GitHub API error: %s", resp.Status))
	}
	return b.
		WithContext("status", resp.Status).
		WithContext("code", resp.StatusCode).
		WithContext("url", req.URL.String()).
		WithContext("response", bodyStr).
		Build()
}

// nextLink extracts the rel="next" URL from a Link header.
func nextLink(h http.Header) string {
	for _, part := range strings.Split(h.Get("Link"), ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		for _, s := range segs[1:] {
			if strings.TrimSpace(s) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(segs[0]), "<>")
			}
		}
	}
	return ""
}

// paginate walks every page starting at endpoint. page decodes one page and
// reports whether to continue.
func paginate[T any](ctx context.Context, c *Client, endpoint string, page func([]T) bool) error {
	next := endpoint
	for next != "" {
		var items []T
		header, err := c.call(ctx, http.MethodGet, next, nil, &items)
		if err != nil {
			return err
		}
		if !page(items) {
			return nil
		}
		next = nextLink(header)
	}
	return nil
}
