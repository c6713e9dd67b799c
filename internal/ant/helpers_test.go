package ant

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingHandler keeps every record so tests can inspect order, level and text.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingView{parent: h, attrs: attrs}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// recordingView shares the parent's record slice while carrying bound attrs.
type recordingView struct {
	parent *recordingHandler
	attrs  []slog.Attr
}

func (v *recordingView) Enabled(ctx context.Context, l slog.Level) bool { return true }
func (v *recordingView) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(v.attrs...)
	return v.parent.Handle(ctx, r)
}
func (v *recordingView) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingView{parent: v.parent, attrs: append(append([]slog.Attr{}, v.attrs...), attrs...)}
}
func (v *recordingView) WithGroup(string) slog.Handler { return v }

// messages returns the messages logged at level, in order.
func (h *recordingHandler) messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

// everything flattens all messages and attribute values for leak checks.
func (h *recordingHandler) everything() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var s string
	for _, r := range h.records {
		s += r.Message + "\n"
		r.Attrs(func(a slog.Attr) bool {
			s += a.Key + "=" + a.Value.Resolve().String() + "\n"
			return true
		})
	}
	return s
}

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

type staticCreds struct{ token, url string }

func (c staticCreds) SessionToken() string { return c.token }
func (c staticCreds) ServerURL() string    { return c.url }

const (
	testToken = "00Dxx0000000001!AQ4AQFakeSessionToken"
	testURL   = "https://acme-dev-ed.my.salesforce.com"
)

// newTestRunner returns a runner whose "ant" binary and wrapper are the given script bodies.
func newTestRunner(t *testing.T, antBody, wrapperBody string) (*Runner, *recordingHandler, string) {
	t.Helper()
	dir := t.TempDir()
	h := &recordingHandler{}
	r := NewRunner(Options{
		BasePath: dir,
		Binary:   writeScript(t, dir, "ant", antBody),
		Wrapper:  writeScript(t, dir, "ant_wrapper.sh", wrapperBody),
	}, staticCreds{token: testToken, url: testURL}, slog.New(h))
	r.WithGetenv(func(k string) string {
		if k == EnvPath {
			return os.Getenv("PATH")
		}
		return ""
	})
	return r, h, dir
}
