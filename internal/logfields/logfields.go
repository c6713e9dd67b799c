package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyTarget     = "target"
	KeyExitCode   = "exit_code"
	KeyFailure    = "failure"
	KeyDurationMS = "duration_ms"
	KeyTag        = "tag"
	KeyLastTag    = "last_tag"
	KeyRepo       = "repository"
	KeyPullNumber = "pull_request"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyName       = "name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Failure(kind string) slog.Attr   { return slog.String(KeyFailure, kind) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func LastTag(t string) slog.Attr      { return slog.String(KeyLastTag, t) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func PullNumber(n int) slog.Attr      { return slog.Int(KeyPullNumber, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
