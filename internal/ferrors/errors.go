package ferrors

import "fmt"

// ForestError is the structured error type used across the Forest core.
// It carries enough context for logging, CLI/MCP presentation, and
// programmatic handling (retry, abort, degrade).
type ForestError struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string

	// Matches, set only for ambiguous progressive-id resolution.
	Matches []string
}

func (e *ForestError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ForestError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ForestError values by code alone.
func (e *ForestError) Is(target error) bool {
	t, ok := target.(*ForestError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *ForestError) WithDetail(key, value string) *ForestError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *ForestError) WithSuggestion(s string) *ForestError {
	e.Suggestion = s
	return e
}

func (e *ForestError) WithMatches(ids []string) *ForestError {
	e.Matches = ids
	return e
}

// New builds a ForestError, deriving category/severity/retryable from code.
func New(code, message string, cause error) *ForestError {
	return &ForestError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap turns a plain error into a ForestError under the given code.
func Wrap(code string, err error) *ForestError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound builds the NotFound error kind: referenced id does not exist.
func NotFound(message string, cause error) *ForestError {
	return New(ErrCodeNotFound, message, cause)
}

// Ambiguous builds the Ambiguous error kind: a progressive prefix matched
// more than one id.
func Ambiguous(message string, matches []string) *ForestError {
	return New(ErrCodeAmbiguous, message, nil).WithMatches(matches)
}

// Validation builds the Validation error kind.
func Validation(message string, cause error) *ForestError {
	return New(ErrCodeValidation, message, cause)
}

// StorageTransient builds the StorageTransient error kind (retryable I/O).
func StorageTransient(message string, cause error) *ForestError {
	return New(ErrCodeStorageTransient, message, cause)
}

// EmbeddingFailure builds the EmbeddingFailure error kind (single-node,
// degrades to tag-only scoring; never aborts a batch).
func EmbeddingFailure(message string, cause error) *ForestError {
	return New(ErrCodeEmbeddingFailure, message, cause)
}

// DimensionMismatch builds the DimensionMismatch error kind.
func DimensionMismatch(expected, got int) *ForestError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got))
}

// Fatal builds the Fatal error kind: invariant violation, abort batch.
func Fatal(message string, cause error) *ForestError {
	return New(ErrCodeFatalInvariant, message, cause)
}

// Internal builds a generic internal error.
func Internal(message string, cause error) *ForestError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err (if a *ForestError) is retryable.
func IsRetryable(err error) bool {
	var fe *ForestError
	if as(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFatal reports whether err (if a *ForestError) has fatal severity.
func IsFatal(err error) bool {
	var fe *ForestError
	if as(err, &fe) {
		return fe.Severity == SeverityFatal
	}
	return false
}

// Code extracts the error code, or "" if err isn't a *ForestError.
func Code(err error) string {
	var fe *ForestError
	if as(err, &fe) {
		return fe.Code
	}
	return ""
}

// as is a tiny local errors.As to avoid importing the stdlib "errors"
// package name next to this package's own name in call sites.
func as(err error, target **ForestError) bool {
	for err != nil {
		if fe, ok := err.(*ForestError); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
