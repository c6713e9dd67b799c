// Package notify publishes task outcome events to NATS so other systems can
// react to builds and releases.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/relkit/internal/logfields"
)

// TaskEvent is the payload published when a task finishes.
type TaskEvent struct {
	RunID     string    `json:"run_id"`
	Task      string    `json:"task"`
	Subject   string    `json:"subject"` // ant target or release tag
	Outcome   string    `json:"outcome"`
	Failure   string    `json:"failure,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers task events.
type Notifier interface {
	Publish(ctx context.Context, event TaskEvent) error
	Close() error
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Publish(context.Context, TaskEvent) error { return nil }

func (NoopNotifier) Close() error { return nil }

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes events on "<prefix>.<task>".
type NATSNotifier struct {
	conn   publisher
	prefix string
	logger *slog.Logger
}

// NewNATSNotifier connects to url. Events go to subjects below prefix.
func NewNATSNotifier(url, prefix string, logger *slog.Logger) (*NATSNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.Name("relkit"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSNotifier(conn, prefix, logger), nil
}

func newNATSNotifier(conn publisher, prefix string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{conn: conn, prefix: prefix, logger: logger}
}

// SubjectFor returns the subject used for task.
func (n *NATSNotifier) SubjectFor(task string) string {
	task = strings.NewReplacer(" ", "_", ".", "_").Replace(task)
	if n.prefix == "" {
		return task
	}
	return n.prefix + "." + task
}

// Publish marshals event and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Publish(ctx context.Context, event TaskEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := n.SubjectFor(event.Task)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	n.logger.Debug("Published task event",
		slog.String("subject", subject),
		logfields.Task(event.Task),
		logfields.RunID(event.RunID))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
