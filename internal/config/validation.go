package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Parser classes understood by the release notes generator.
const (
	ParserChangeNotes  = "ChangeNotes"
	ParserGitHubIssues = "GithubIssues"
)

// Validate checks cross-field invariants. Credentials are not required here:
// each task verifies what it needs before running.
func Validate(cfg *Config) error {
	var errs []error

	for i, p := range cfg.ReleaseNotes.Parsers {
		switch p.Class {
		case ParserChangeNotes, ParserGitHubIssues:
		default:
			errs = append(errs, fmt.Errorf("release_notes.parsers[%d]: unknown class %q (allowed: %s|%s)", i, p.Class, ParserChangeNotes, ParserGitHubIssues))
		}
		if strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Errorf("release_notes.parsers[%d]: title is required", i))
		}
	}

	if cfg.Ant.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Ant.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid ant.timeout %q: %w", cfg.Ant.Timeout, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("ant.timeout must not be negative"))
		}
	}

	if NormalizeRetryBackoff(cfg.Retry.Mode) == "" {
		errs = append(errs, fmt.Errorf("invalid retry.mode %q (allowed: fixed|linear|exponential)", cfg.Retry.Mode))
	}
	if initial, maxDelay, err := cfg.Retry.Delays(); err != nil {
		errs = append(errs, err)
	} else if maxDelay < initial {
		errs = append(errs, fmt.Errorf("retry.max_delay (%s) must be >= retry.initial_delay (%s)", cfg.Retry.MaxDelay, cfg.Retry.InitialDelay))
	}
	if cfg.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries cannot be negative"))
	}

	return errors.Join(errs...)
}

// AntTimeout returns the parsed build timeout; zero means no deadline.
func (a AntConfig) AntTimeout() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// RequireGitHub reports missing GitHub settings needed by release-notes.
func (c *Config) RequireGitHub() error {
	var missing []string
	if c.Project.RepoOwner == "" {
		missing = append(missing, "project.repo_owner")
	}
	if c.Project.RepoName == "" {
		missing = append(missing, "project.repo_name")
	}
	if c.GitHub.Password == "" {
		missing = append(missing, "github.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireOrg reports missing org settings needed by ant tasks.
func (c *Config) RequireOrg() error {
	var missing []string
	if c.Org.InstanceURL == "" && c.Org.RefreshToken == "" {
		missing = append(missing, "org.instance_url")
	}
	if c.Org.AccessToken == "" && c.Org.RefreshToken == "" {
		missing = append(missing, "org.access_token or org.refresh_token")
	}
	if c.Org.RefreshToken != "" && c.ConnectedApp.ClientID == "" {
		missing = append(missing, "connected_app.client_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
