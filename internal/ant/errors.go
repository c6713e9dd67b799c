package ant

import (
	"errors"
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
)

// Output markers used to classify failed builds.
const (
	MarkerDeployment = "All Component Failures:"
	MarkerApexTest   = "[exec] Failing Tests"
)

// Kind enumerates build failure categories.
type Kind string

const (
	KindDeployment Kind = "deployment"
	KindApexTest   Kind = "apex_test"
	KindTarget     Kind = "target"
)

// Summary is the single error-level line logged for a failure of this kind.
func (k Kind) Summary() string {
	switch k {
	case KindDeployment:
		return "BUILD FAILED: One or more deployment errors occurred"
	case KindApexTest:
		return "BUILD FAILED: One or more Apex tests failed"
	default:
		return "BUILD FAILED: One or more Ant target errors occurred"
	}
}

// Classify maps captured output to a failure kind. The deployment marker wins
// over the test marker; anything else is a generic target failure.
func Classify(logtext string) Kind {
	switch {
	case strings.Contains(logtext, MarkerDeployment):
		return KindDeployment
	case strings.Contains(logtext, MarkerApexTest):
		return KindApexTest
	default:
		return KindTarget
	}
}

// Sentinels matched by errors.Is for each failure type.
var (
	ErrDeployment = errors.New("ant deployment failure")
	ErrApexTest   = errors.New("ant apex test failure")
	ErrTarget     = errors.New("ant target failure")
)

// Failure holds what every build failure carries.
type Failure struct {
	Target   string
	ExitCode int
	// Log is the captured output joined with "\n", in emission order.
	Log string
}

func (f Failure) classified(kind Kind) error {
	return ferrors.BuildError(kind.Summary()).
		WithContext("target", f.Target).
		WithContext("exit_code", f.ExitCode).
		Build()
}

// DeploymentError reports component deployment errors.
type DeploymentError struct{ Failure }

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("ant target %q: deployment failed (exit %d)", e.Target, e.ExitCode)
}
func (e *DeploymentError) Unwrap() []error {
	return []error{ErrDeployment, e.classified(KindDeployment)}
}

// ApexTestError reports failing Apex tests.
type ApexTestError struct{ Failure }

func (e *ApexTestError) Error() string {
	return fmt.Sprintf("ant target %q: apex tests failed (exit %d)", e.Target, e.ExitCode)
}
func (e *ApexTestError) Unwrap() []error {
	return []error{ErrApexTest, e.classified(KindApexTest)}
}

// TargetError reports any other failed target.
type TargetError struct{ Failure }

func (e *TargetError) Error() string {
	return fmt.Sprintf("ant target %q failed (exit %d)", e.Target, e.ExitCode)
}
func (e *TargetError) Unwrap() []error {
	return []error{ErrTarget, e.classified(KindTarget)}
}

// newFailure builds the typed error for kind.
func newFailure(kind Kind, f Failure) error {
	switch kind {
	case KindDeployment:
		return &DeploymentError{f}
	case KindApexTest:
		return &ApexTestError{f}
	default:
		return &TargetError{f}
	}
}

// FailureKind reports the kind of a build failure anywhere in err's chain.
func FailureKind(err error) (Kind, bool) {
	switch {
	case errors.Is(err, ErrDeployment):
		return KindDeployment, true
	case errors.Is(err, ErrApexTest):
		return KindApexTest, true
	case errors.Is(err, ErrTarget):
		return KindTarget, true
	default:
		return "", false
	}
}

// FailureLog returns the captured output carried by a build failure.
func FailureLog(err error) (string, bool) {
	var (
		de *DeploymentError
		ae *ApexTestError
		te *TargetError
	)
	switch {
	case errors.As(err, &de):
		return de.Log, true
	case errors.As(err, &ae):
		return ae.Log, true
	case errors.As(err, &te):
		return te.Log, true
	default:
		return "", false
	}
}
