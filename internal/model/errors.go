package model

import "fmt"

// InputValidationError marks a bad, oversized, or corrupt document. It is the
// only error class the orchestrator surfaces to callers.
type InputValidationError struct {
	Reason string
}

func (e *InputValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// NewInputValidationError builds an InputValidationError with a formatted reason.
func NewInputValidationError(format string, a ...interface{}) *InputValidationError {
	return &InputValidationError{Reason: fmt.Sprintf(format, a...)}
}

// TimeoutError marks an external call that exceeded its budget. Recoverable:
// the owning stage degrades to a default signal and the cascade continues.
type TimeoutError struct {
	Op      string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded timeout of %s", e.Op, e.Timeout)
}

// ParseError marks a structured-extraction response that survived neither the
// fenced-JSON nor the bracket-matched fallback parse.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return "unparseable extraction response: " + e.Detail
}

// NetworkError marks a failed fetch attempt during verification. The cascade
// records it on the attempt and moves to the next candidate or fetch mode.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return "fetch " + e.URL + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CollaboratorUnavailable marks an optional collaborator (deep detector,
// secondary OCR) that is not initialized. The owning stage is skipped, never
// fatal.
type CollaboratorUnavailable struct {
	Name   string
	Reason string
}

func (e *CollaboratorUnavailable) Error() string {
	return e.Name + " unavailable: " + e.Reason
}
