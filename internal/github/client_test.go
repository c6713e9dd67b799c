package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/retry"
)

func newTestClient(t *testing.T, mux *http.ServeMux, mutate func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	opts := Options{
		Owner:   "acme",
		Repo:    "widgets",
		Token:   "ghp_test",
		APIURL:  srv.URL,
		BaseURL: "https://github.example",
		Retry:   retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_RequiresRepository(t *testing.T) {
	_, err := NewClient(Options{Owner: "acme"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestGetRepository_Headers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
		writeJSON(t, w, map[string]any{"name": "widgets", "full_name": "acme/widgets", "has_issues": true, "default_branch": "main"})
	})
	c := newTestClient(t, mux, nil)

	repo, err := c.GetRepository(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.HasIssues)
	assert.Equal(t, "main", repo.DefaultBranch)
}

func TestBasicAuthWhenUsernameSet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "octocat", user)
		assert.Equal(t, "ghp_test", pass)
		writeJSON(t, w, map[string]any{"name": "widgets"})
	})
	c := newTestClient(t, mux, func(o *Options) { o.Username = "octocat" })

	_, err := c.GetRepository(context.Background())
	require.NoError(t, err)
}

func TestListTags_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /repos/acme/widgets/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, []map[string]any{{"name": "beta/1.0", "commit": map[string]string{"sha": "c"}}})
			return
		}
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/tags?per_page=100&page=2>; rel="next", <%s/repos/acme/widgets/tags?page=2>; rel="last"`, srvURL, srvURL))
		writeJSON(t, w, []map[string]any{
			{"name": "release/1.1", "commit": map[string]string{"sha": "a"}},
			{"name": "release/1.0", "commit": map[string]string{"sha": "b"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL
	c, err := NewClient(Options{Owner: "acme", Repo: "widgets", APIURL: srv.URL})
	require.NoError(t, err)

	tags, err := c.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "release/1.1", tags[0].Name)
	assert.Equal(t, "c", tags[2].Commit.SHA)

	tag, err := c.GetTag(context.Background(), "release/1.0")
	require.NoError(t, err)
	assert.Equal(t, "b", tag.Commit.SHA)

	_, err = c.GetTag(context.Background(), "release/9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCommit_Date(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/commits/abc", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"sha": "abc",
			"commit": map[string]any{
				"message":   "Release",
				"committer": map[string]any{"date": "2024-03-01T10:00:00Z"},
			},
		})
	})
	c := newTestClient(t, mux, nil)

	commit, err := c.GetCommit(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), commit.Date.UTC())
}

func TestReleaseByTagAndUpdate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/releases/tags/release/1.0", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"id": 42, "tag_name": "release/1.0", "body": ""})
	})
	mux.HandleFunc("PATCH /repos/acme/widgets/releases/42", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(t, w, map[string]any{"id": 42, "tag_name": "release/1.0", "body": payload["body"]})
	})
	c := newTestClient(t, mux, nil)

	rel, err := c.GetReleaseByTag(context.Background(), "release/1.0")
	require.NoError(t, err)
	assert.EqualValues(t, 42, rel.ID)

	updated, err := c.UpdateRelease(context.Background(), rel.ID, "# Changes\nfoo")
	require.NoError(t, err)
	assert.Equal(t, "# Changes\nfoo", updated.Body)
}

func TestNotFoundIsClassified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/releases/tags/none", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	c := newTestClient(t, mux, nil)

	_, err := c.GetReleaseByTag(context.Background(), "none")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, map[string]any{"name": "widgets"})
	})
	c := newTestClient(t, mux, nil)

	repo, err := c.GetRepository(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "widgets", repo.Name)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
	})
	c := newTestClient(t, mux, nil)

	_, err := c.GetRepository(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryAuth))
	assert.EqualValues(t, 1, calls.Load())
}

func TestListMergedPullRequests(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	at := func(day int) string { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC).Format(time.RFC3339) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "closed", q.Get("state"))
		assert.Equal(t, "main", q.Get("base"))
		writeJSON(t, w, []map[string]any{
			{"number": 5, "merged_at": "2024-03-01T00:00:00Z", "updated_at": "2024-03-01T00:00:00Z"}, // after until
			{"number": 4, "merged_at": at(20), "updated_at": at(20)},
			{"number": 3, "merged_at": nil, "updated_at": at(15)}, // closed unmerged
			{"number": 2, "merged_at": at(10), "updated_at": at(10)},
			{"number": 1, "merged_at": "2023-12-01T00:00:00Z", "updated_at": "2023-12-01T00:00:00Z"}, // before since
		})
	})
	c := newTestClient(t, mux, nil)

	prs, err := c.ListMergedPullRequests(context.Background(), "main", since, until)
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, 2, prs[0].Number, "oldest merge first")
	assert.Equal(t, 4, prs[1].Number)
}

func TestPullRequestURL(t *testing.T) {
	c, err := NewClient(Options{Owner: "acme", Repo: "widgets", BaseURL: "https://github.example/"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.example/acme/widgets/pull/7", c.PullRequestURL(7))
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, nextLink(h))
	h.Set("Link", `<https://api/x?page=3>; rel="last", <https://api/x?page=2>; rel="next"`)
	assert.Equal(t, "https://api/x?page=2", nextLink(h))
}

func TestContextCancelStopsRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, mux, func(o *Options) {
		o.Retry = retry.NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 3)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetRepository(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
