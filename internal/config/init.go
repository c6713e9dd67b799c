package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleConfig = `# relkit configuration
project:
  name: MyPackage
  repo_owner: my-org
  repo_name: my-package
  # local_repo: .
  git:
    default_branch: main
    prefix_beta: beta/
    prefix_release: release/

github:
  username: ${GITHUB_USERNAME}
  password: ${GITHUB_TOKEN}

org:
  instance_url: ${SF_INSTANCE_URL}
  access_token: ${SF_ACCESS_TOKEN}
  refresh_token: ${SF_REFRESH_TOKEN}
  login_url: https://login.salesforce.com

connected_app:
  client_id: ${SF_CLIENT_ID}
  client_secret: ${SF_CLIENT_SECRET}

ant:
  target: deploy
  # timeout: 30m

release_notes:
  parsers:
    - class: ChangeNotes
      title: Critical Changes
    - class: ChangeNotes
      title: Changes
    - class: GithubIssues
      title: Issues Closed

history:
  enabled: true
  path: .relkit/history.db

# metrics:
#   textfile: /var/lib/node_exporter/relkit.prom
# notify:
#   nats_url: nats://localhost:4222
#   subject: relkit.tasks
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
