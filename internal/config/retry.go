package config

import (
	"fmt"
	"strings"
	"time"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig controls retries of transient GitHub and OAuth failures. Build runs are never retried.
type RetryConfig struct {
	Mode         string `yaml:"mode,omitempty"`
	InitialDelay string `yaml:"initial_delay,omitempty"`
	MaxDelay     string `yaml:"max_delay,omitempty"`
	MaxRetries   int    `yaml:"max_retries"`
}

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RetryBackoffFixed):
		return RetryBackoffFixed
	case string(RetryBackoffLinear):
		return RetryBackoffLinear
	case string(RetryBackoffExponential):
		return RetryBackoffExponential
	default:
		return ""
	}
}

// Delays parses the initial and max delays.
func (r RetryConfig) Delays() (initial, maxDelay time.Duration, err error) {
	initial, err = time.ParseDuration(r.InitialDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid retry initial_delay %q: %w", r.InitialDelay, err)
	}
	maxDelay, err = time.ParseDuration(r.MaxDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid retry max_delay %q: %w", r.MaxDelay, err)
	}
	return initial, maxDelay, nil
}
