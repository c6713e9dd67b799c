// Package tasks wires the ant build runner and the release notes generator to
// configuration and records every run in metrics, history and notifications.
package tasks
