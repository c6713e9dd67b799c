package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "relkit.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "relkit.yaml", file)
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		assert.True(t, IsClassified(err))
		assert.True(t, HasCategory(err, CategoryConfig))
		assert.False(t, err.CanRetry())
		assert.True(t, err.IsFatal())
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := BuildError("ant failed").Build()
		wrapped := fmt.Errorf("task ant: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.Equal(t, CategoryBuild, GetCategory(wrapped))
	})

	t.Run("Cause reachable through Unwrap", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapError(cause, CategoryNetwork, "fetch tags").Build()

		assert.Same(t, cause, errors.Unwrap(err))
		assert.ErrorIs(t, err, cause)
		assert.Nil(t, errors.Unwrap(ValidationError("bad tag").Build()))
	})

	t.Run("Unclassified falls back to internal", func(t *testing.T) {
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
		assert.False(t, IsRetryable(errors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, CategoryNetwork, "network failure").
		Warning().
		Retryable().
		WithContext("host", "api.github.com").
		Build()

	assert.Equal(t, CategoryNetwork, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, RetryBackoff, err.RetryStrategy())
	assert.ErrorIs(t, err, originalErr)
	assert.True(t, err.CanRetry())
	assert.Contains(t, err.Error(), "original error")

	host, _ := err.Context().GetString("host")
	assert.Equal(t, "api.github.com", host)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
		retry    bool
	}{
		{"auth", AuthError("token expired").Build(), CategoryAuth, false},
		{"forge", ForgeError("rate limited").Build(), CategoryForge, true},
		{"build", BuildError("target failed").Build(), CategoryBuild, false},
		{"storage", StorageError("history unavailable").Build(), CategoryStorage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.retry, tt.err.CanRetry())
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}
	merged := a.Merge(b)

	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 2, merged["b"])
	assert.Equal(t, 1, a["b"], "receiver must not be mutated")

	var nilCtx ErrorContext
	assert.Equal(t, b, nilCtx.Merge(b))
}
