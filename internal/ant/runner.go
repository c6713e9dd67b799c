package ant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/logfields"
)

// drainGrace bounds how long output is read after the child has exited.
const drainGrace = 250 * time.Millisecond

// State is the lifecycle position of one invocation.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// CommandResult describes one ant invocation. ExitCode is nil until the process
// has terminated.
type CommandResult struct {
	RunID     string
	Target    string
	Command   []string
	Process   *os.Process
	ExitCode  *int
	State     State
	Failure   Kind // set when State is StateFailed because of a build failure
	StartedAt time.Time
	Duration  time.Duration
}

// Options configures a Runner.
type Options struct {
	BasePath string        // exported as RELKIT_PATH; the wrapper lives under it
	Binary   string        // ant executable, resolved via PATH when not absolute
	Wrapper  string        // quiet wrapper script path
	AntOpts  string        // JVM options, DefaultAntOpts when empty
	Dir      string        // working directory, current directory when empty
	Timeout  time.Duration // zero means no deadline
}

// Runner executes ant targets. It holds no per-run state, so concurrent Run
// calls are independent.
type Runner struct {
	opts   Options
	creds  Credentials
	logger *slog.Logger
	getenv func(string) string
}

// NewRunner creates a runner. A nil logger uses slog.Default().
func NewRunner(opts Options, creds Credentials, logger *slog.Logger) *Runner {
	if opts.Binary == "" {
		opts.Binary = "ant"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, creds: creds, logger: logger, getenv: os.Getenv}
}

// WithGetenv overrides how the host environment is read (tests).
func (r *Runner) WithGetenv(fn func(string) string) *Runner {
	if fn != nil {
		r.getenv = fn
	}
	return r
}

// Command returns the argv used for target at the given verbosity.
func (r *Runner) Command(target string, v Verbosity) []string {
	if v == Verbose {
		return []string{r.opts.Binary, target}
	}
	return []string{r.opts.Wrapper, target}
}

// Run executes target and blocks until the child exits. stdout and stderr are
// read as one stream, so stderr lines are logged, captured in the failure log
// and classified like stdout lines. Every line is logged at info level as it
// arrives. Output still held open by background processes after the child
// exits is read for at most a short grace period. A non-zero exit returns the
// result along with a *DeploymentError, *ApexTestError or *TargetError.
func (r *Runner) Run(ctx context.Context, target string, v Verbosity) (*CommandResult, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ferrors.ValidationError("ant target is required").Build()
	}

	res := &CommandResult{
		RunID:   uuid.NewString(),
		Target:  target,
		Command: r.Command(target, v),
		State:   StateNotStarted,
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	env := BuildEnvironment(r.opts.BasePath, r.opts.AntOpts, r.creds, r.getenv)
	redact := newRedactor(env.Secrets())
	log := r.logger.With(logfields.RunID(res.RunID), logfields.Target(target))

	// stdout and stderr share one pipe so the child's write order is kept.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create output pipe").Fatal().Build()
	}
	defer func() { _ = pr.Close() }()

	cmd := exec.CommandContext(ctx, res.Command[0], res.Command[1:]...)
	cmd.Env = env.List()
	cmd.Dir = r.opts.Dir
	cmd.Stdout = pw
	cmd.Stderr = pw

	log.Debug("Starting ant", slog.String("mode", v.String()), slog.Any("env", env))
	res.StartedAt = time.Now()
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "start ant").
			Fatal().
			WithContext("command", res.Command[0]).
			Build()
	}
	_ = pw.Close()
	res.Process = cmd.Process
	res.State = StateRunning

	// Unblock the reader if the deadline fires while a descendant still holds the pipe.
	stop := context.AfterFunc(ctx, func() { _ = pr.Close() })
	defer stop()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		streamLines(pr, lines)
	}()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var (
		captured []string
		waitErr  error
	)
	for lines != nil || exited != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			captured = append(captured, line)
			log.Info(redact.apply(line))
		case waitErr = <-exited:
			exited = nil
			// Background processes may inherit the pipe; read what is buffered, then stop.
			if err := pr.SetReadDeadline(time.Now().Add(drainGrace)); err != nil {
				_ = pr.Close()
			}
		}
	}

	res.Duration = time.Since(res.StartedAt)
	code := cmd.ProcessState.ExitCode()
	res.ExitCode = &code

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.State = StateFailed
		log.Error("Ant run interrupted", logfields.Error(ctxErr))
		return res, ferrors.WrapError(ctxErr, ferrors.CategoryCanceled, "ant run interrupted").
			WithContext("target", target).
			Build()
	}

	if code == 0 {
		res.State = StateSucceeded
		log.Debug("Ant target succeeded", logfields.DurationMS(float64(res.Duration.Milliseconds())))
		return res, nil
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		res.State = StateFailed
		return res, ferrors.WrapError(waitErr, ferrors.CategoryRuntime, "wait for ant").Fatal().Build()
	}

	logtext := strings.Join(captured, "\n")
	kind := Classify(logtext)
	res.State = StateFailed
	res.Failure = kind
	log.Error(kind.Summary(), logfields.ExitCode(code), logfields.Failure(string(kind)))
	return res, newFailure(kind, Failure{Target: target, ExitCode: code, Log: logtext})
}

// streamLines sends each line read from r, trailing whitespace removed. Lines
// have no length limit. A final unterminated line is sent too.
func streamLines(r io.Reader, out chan<- string) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			out <- strings.TrimRightFunc(line, unicode.IsSpace)
		}
		if err != nil {
			return
		}
	}
}

// Describe renders a short, secret-free summary of the result.
func (r *CommandResult) Describe() string {
	code := "running"
	if r.ExitCode != nil {
		code = fmt.Sprintf("exit %d", *r.ExitCode)
	}
	return fmt.Sprintf("%s %s (%s, %s)", r.Target, r.State, code, r.Duration.Round(time.Millisecond))
}
