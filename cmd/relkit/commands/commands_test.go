package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relkit/internal/ant"
	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/history"
	"git.home.luguber.info/inful/relkit/internal/tasks"
)

func writeFakeAnt(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ant")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func antConfig(t *testing.T, dir, binary string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
org:
  access_token: session-token
  instance_url: https://example.my.salesforce.com
ant:
  base_path: %[1]s
  binary: %[2]s
  target: deploy
history:
  enabled: true
  path: %[1]s/history.db
metrics:
  textfile: %[1]s/relkit.prom
`, dir, binary)))
	require.NoError(t, err)
	return cfg
}

func listRuns(t *testing.T, path string) []history.Run {
	t.Helper()
	store, err := history.NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.List(context.Background(), "", 0)
	require.NoError(t, err)
	return runs
}

func TestRunAnt_SuccessRecordsHistoryAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := antConfig(t, dir, writeFakeAnt(t, dir, `echo "building $1"`))

	require.NoError(t, RunAnt(context.Background(), cfg, "", ant.Verbose))

	runs := listRuns(t, cfg.History.Path)
	require.Len(t, runs, 1)
	assert.Equal(t, tasks.TaskAnt, runs[0].Task)
	assert.Equal(t, "deploy", runs[0].Subject)
	assert.Equal(t, "success", runs[0].Outcome)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `relkit_task_outcomes_total{outcome="success",task="ant"} 1`)
}

func TestRunAnt_DeploymentFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	cfg := antConfig(t, dir, writeFakeAnt(t, dir, "echo 'All Component Failures:'\necho '1. classes/Foo.cls -- Error'\nexit 1"))

	err := RunAnt(context.Background(), cfg, "deployCI", ant.Verbose)
	require.Error(t, err)
	assert.ErrorIs(t, err, ant.ErrDeployment)
	assert.Equal(t, 11, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	runs := listRuns(t, cfg.History.Path)
	require.Len(t, runs, 1)
	assert.Equal(t, "deployCI", runs[0].Subject)
	assert.Equal(t, "deployment", runs[0].Failure)
	assert.Equal(t, 1, runs[0].ExitCode)
}

func TestRunAnt_ConfigErrors(t *testing.T) {
	cfg, err := config.Parse([]byte("ant:\n  target: deploy\n"))
	require.NoError(t, err)
	err = RunAnt(context.Background(), cfg, "", ant.Quiet)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	dir := t.TempDir()
	cfg = antConfig(t, dir, writeFakeAnt(t, dir, "true"))
	cfg.Ant.Target = ""
	err = RunAnt(context.Background(), cfg, "", ant.Quiet)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	send := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, _ *http.Request) {
		send(w, map[string]any{"name": "widgets", "has_issues": false})
	})
	mux.HandleFunc("GET /repos/acme/widgets/tags", func(w http.ResponseWriter, _ *http.Request) {
		send(w, []map[string]any{
			{"name": "release/1.1", "commit": map[string]string{"sha": "new"}},
			{"name": "release/1.0", "commit": map[string]string{"sha": "old"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/widgets/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		date := "2024-01-01T00:00:00Z"
		if r.PathValue("sha") == "new" {
			date = "2024-02-01T00:00:00Z"
		}
		send(w, map[string]any{"sha": r.PathValue("sha"), "commit": map[string]any{"committer": map[string]any{"date": date}}})
	})
	mux.HandleFunc("GET /repos/acme/widgets/pulls", func(w http.ResponseWriter, _ *http.Request) {
		send(w, []map[string]any{{
			"number":     5,
			"html_url":   "https://github.example/acme/widgets/pull/5",
			"body":       "# Changes\n\n* faster builds\n",
			"merged_at":  "2024-01-10T00:00:00Z",
			"updated_at": "2024-01-10T00:00:00Z",
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunReleaseNotes_DryRun(t *testing.T) {
	srv := fakeGitHub(t)
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
project:
  repo_owner: acme
  repo_name: widgets
github:
  password: ghp_test
  api_url: %s
history:
  enabled: true
  path: %s/history.db
retry:
  initial_delay: 1ms
  max_delay: 1ms
`, srv.URL, dir)))
	require.NoError(t, err)

	err = RunReleaseNotes(context.Background(), cfg, tasks.ReleaseNotesOptions{Tag: "release/1.1", DryRun: true})
	require.NoError(t, err)

	runs := listRuns(t, cfg.History.Path)
	require.Len(t, runs, 1)
	assert.Equal(t, tasks.TaskReleaseNotes, runs[0].Task)
	assert.Equal(t, "release/1.1", runs[0].Subject)
}

func TestRunReleaseNotes_RequiresGitHub(t *testing.T) {
	cfg, err := config.Parse([]byte("project:\n  repo_owner: acme\n"))
	require.NoError(t, err)
	err = RunReleaseNotes(context.Background(), cfg, tasks.ReleaseNotesOptions{Tag: "release/1.0"})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relkit.yaml")
	var out bytes.Buffer

	require.NoError(t, (&InitCmd{}).Run(&Global{Out: &out}, &CLI{Config: path}))
	assert.Contains(t, out.String(), "initialized successfully")
	assert.FileExists(t, path)

	assert.Error(t, (&InitCmd{}).Run(&Global{Out: &out}, &CLI{Config: path}), "refuses to overwrite")
	assert.NoError(t, (&InitCmd{Force: true}).Run(&Global{Out: &out}, &CLI{Config: path}))
}

func TestPrintRuns(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintRuns(&out, nil))
	assert.Equal(t, "no runs recorded\n", out.String())

	out.Reset()
	require.NoError(t, PrintRuns(&out, []history.Run{{
		Task: "ant", Subject: "deploy", Outcome: "failed", Failure: "apex_test", ExitCode: 1,
		StartedAt: time.Now(), Duration: 2 * time.Second,
	}}))
	assert.Contains(t, out.String(), "OUTCOME")
	assert.Contains(t, out.String(), "apex_test")
	assert.Contains(t, out.String(), "2s")
}
