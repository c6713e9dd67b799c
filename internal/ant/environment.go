package ant

import (
	"log/slog"
	"maps"
	"slices"
)

// Variables exported to the child process.
const (
	EnvBasePath   = "RELKIT_PATH"
	EnvCLI        = "RELKIT_CLI"
	EnvPath       = "PATH"
	EnvAntOpts    = "ANT_OPTS"
	EnvSessionID  = "SF_SESSIONID"
	EnvServerURL  = "SF_SERVERURL"
	EnvVirtualEnv = "VIRTUAL_ENV"
)

// DefaultAntOpts is the JVM heap flag passed to ant.
const DefaultAntOpts = "-Xmx512m"

// Credentials supplies the org session handed to the build.
type Credentials interface {
	SessionToken() string
	ServerURL() string
}

// Environment maps variable names to values for one child process.
type Environment map[string]string

// BuildEnvironment assembles the child environment. getenv reads the host
// environment (os.Getenv in production).
func BuildEnvironment(basePath, antOpts string, creds Credentials, getenv func(string) string) Environment {
	if antOpts == "" {
		antOpts = DefaultAntOpts
	}
	env := Environment{
		EnvBasePath: basePath,
		EnvCLI:      "True",
		EnvPath:     getenv(EnvPath),
		EnvAntOpts:  antOpts,
	}
	if creds != nil {
		env[EnvSessionID] = creds.SessionToken()
		env[EnvServerURL] = creds.ServerURL()
	}
	if venv := getenv(EnvVirtualEnv); venv != "" {
		env[EnvVirtualEnv] = venv
	}
	return env
}

// List renders KEY=VALUE pairs in key order, suitable for exec.Cmd.Env.
func (e Environment) List() []string {
	keys := slices.Sorted(maps.Keys(e))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e[k])
	}
	return out
}

// Secrets returns the non-empty secret values held by the environment.
func (e Environment) Secrets() []string {
	var out []string
	for _, k := range []string{EnvSessionID, EnvServerURL} {
		if v := e[k]; v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isSecret(key string) bool { return key == EnvSessionID || key == EnvServerURL }

// LogValue masks secret values so an Environment is safe to pass to slog.
func (e Environment) LogValue() slog.Value {
	keys := slices.Sorted(maps.Keys(e))
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := e[k]
		if isSecret(k) && v != "" {
			v = redactedMarker
		}
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.GroupValue(attrs...)
}

// String masks secrets as LogValue does.
func (e Environment) String() string { return e.LogValue().String() }
