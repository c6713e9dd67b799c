package ant

// Verbosity selects how ant is invoked.
type Verbosity int

const (
	// Quiet runs the wrapper script, which suppresses ant's banner output.
	Quiet Verbosity = iota
	// Verbose invokes the ant binary directly.
	Verbose
)

// ParseVerbosity resolves the task option once at the CLI boundary. Only the
// exact strings "True" and "true" select Verbose.
func ParseVerbosity(raw string) Verbosity {
	switch raw {
	case "True", "true":
		return Verbose
	default:
		return Quiet
	}
}

func (v Verbosity) String() string {
	if v == Verbose {
		return "verbose"
	}
	return "quiet"
}
