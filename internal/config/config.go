package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the relkit configuration file.
type Config struct {
	Project      ProjectConfig      `yaml:"project"`
	GitHub       GitHubConfig       `yaml:"github"`
	Org          OrgConfig          `yaml:"org"`
	ConnectedApp ConnectedAppConfig `yaml:"connected_app"`
	Ant          AntConfig          `yaml:"ant"`
	ReleaseNotes ReleaseNotesConfig `yaml:"release_notes"`
	History      HistoryConfig      `yaml:"history"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Notify       NotifyConfig       `yaml:"notify"`
	Retry        RetryConfig        `yaml:"retry"`
}

// ProjectConfig describes the repository the tasks operate on.
type ProjectConfig struct {
	Name      string    `yaml:"name"`
	RepoOwner string    `yaml:"repo_owner"`
	RepoName  string    `yaml:"repo_name"`
	LocalRepo string    `yaml:"local_repo,omitempty"` // optional working copy scanned for merge commits
	Git       GitConfig `yaml:"git"`
}

// GitConfig holds branch and tag naming conventions.
type GitConfig struct {
	DefaultBranch string `yaml:"default_branch"`
	PrefixBeta    string `yaml:"prefix_beta"`
	PrefixRelease string `yaml:"prefix_release"`
}

// GitHubConfig holds GitHub API credentials.
type GitHubConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"` // personal access token
	APIURL   string `yaml:"api_url,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// OrgConfig holds the Salesforce org session used by build tasks.
type OrgConfig struct {
	Username     string `yaml:"username,omitempty"`
	AccessToken  string `yaml:"access_token"`
	InstanceURL  string `yaml:"instance_url"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	LoginURL     string `yaml:"login_url,omitempty"`
}

// ConnectedAppConfig identifies the OAuth client used to refresh org tokens.
type ConnectedAppConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url,omitempty"`
}

// AntConfig configures the Ant build runner.
type AntConfig struct {
	BasePath string `yaml:"base_path,omitempty"` // install root exported as RELKIT_PATH
	Binary   string `yaml:"binary,omitempty"`
	Wrapper  string `yaml:"wrapper,omitempty"` // relative to base_path unless absolute
	Opts     string `yaml:"opts,omitempty"`
	Target   string `yaml:"target,omitempty"` // default target when the CLI omits one
	Timeout  string `yaml:"timeout,omitempty"`
}

// ReleaseNotesConfig lists the section parsers applied to pull request bodies, in render order.
type ReleaseNotesConfig struct {
	Parsers []ParserConfig `yaml:"parsers"`
}

// ParserConfig binds a parser class to the heading it extracts.
type ParserConfig struct {
	Class string `yaml:"class"`
	Title string `yaml:"title"`
}

// HistoryConfig configures the task-run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// MetricsConfig configures Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// NotifyConfig configures the optional NATS task-outcome publisher.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${ENV} references, then applies defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
