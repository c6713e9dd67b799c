// Package errors provides the classified error primitives shared by relkit tasks.
//
// A ClassifiedError carries a category (config, auth, build, ...), a severity and a
// retry hint, plus free-form context. The CLI adapter turns them into exit codes and
// user-facing messages.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryForge, "list tags failed").
//		Retryable().
//		WithContext("repository", "owner/repo").
//		Build()
package errors
