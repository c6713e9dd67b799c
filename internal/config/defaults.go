package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultAntBinary     = "ant"
	DefaultAntWrapper    = "ci/ant_wrapper.sh"
	DefaultAntOpts       = "-Xmx512m"
	DefaultDefaultBranch = "main"
	DefaultPrefixBeta    = "beta/"
	DefaultPrefixRelease = "release/"
	DefaultLoginURL      = "https://login.salesforce.com"
	DefaultGitHubAPIURL  = "https://api.github.com"
	DefaultGitHubBaseURL = "https://github.com"
	DefaultHistoryPath   = ".relkit/history.db"
	DefaultNotifySubject = "relkit.tasks"
)

// DefaultParsers mirrors the sections a release usually carries.
func DefaultParsers() []ParserConfig {
	return []ParserConfig{
		{Class: ParserChangeNotes, Title: "Critical Changes"},
		{Class: ParserChangeNotes, Title: "Changes"},
		{Class: ParserGitHubIssues, Title: "Issues Closed"},
	}
}

// applyDefaults fills zero values after unmarshalling.
func applyDefaults(cfg *Config) {
	if cfg.Project.Git.DefaultBranch == "" {
		cfg.Project.Git.DefaultBranch = DefaultDefaultBranch
	}
	if cfg.Project.Git.PrefixBeta == "" {
		cfg.Project.Git.PrefixBeta = DefaultPrefixBeta
	}
	if cfg.Project.Git.PrefixRelease == "" {
		cfg.Project.Git.PrefixRelease = DefaultPrefixRelease
	}

	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = DefaultGitHubAPIURL
	}
	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = DefaultGitHubBaseURL
	}

	if cfg.Org.LoginURL == "" {
		cfg.Org.LoginURL = DefaultLoginURL
	}

	if cfg.Ant.BasePath == "" {
		cfg.Ant.BasePath = installRoot()
	}
	if cfg.Ant.Binary == "" {
		cfg.Ant.Binary = DefaultAntBinary
	}
	if cfg.Ant.Wrapper == "" {
		cfg.Ant.Wrapper = DefaultAntWrapper
	}
	if cfg.Ant.Opts == "" {
		cfg.Ant.Opts = DefaultAntOpts
	}

	if len(cfg.ReleaseNotes.Parsers) == 0 {
		cfg.ReleaseNotes.Parsers = DefaultParsers()
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}

	if cfg.Retry.Mode == "" {
		cfg.Retry.Mode = string(RetryBackoffExponential)
	}
	if cfg.Retry.InitialDelay == "" {
		cfg.Retry.InitialDelay = "1s"
	}
	if cfg.Retry.MaxDelay == "" {
		cfg.Retry.MaxDelay = "30s"
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
}

// installRoot resolves the directory one level above the running executable
// (bin/relkit -> install root), falling back to the working directory.
func installRoot() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe))
}

// WrapperPath returns the absolute wrapper script path.
func (a AntConfig) WrapperPath() string {
	if filepath.IsAbs(a.Wrapper) {
		return a.Wrapper
	}
	return filepath.Join(a.BasePath, a.Wrapper)
}
