package model

import "fmt"

// DecodeError means image bytes could not be parsed as a raster image.
// Fatal for the affected item only; never retried.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image decode failed: %s", e.Reason)
}

// RemoteAnalysisError means the vision AI call failed (non-2xx, timeout, or
// malformed response). The orchestrator owns retries for these.
type RemoteAnalysisError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *RemoteAnalysisError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote analysis failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("remote analysis failed: %s", e.Reason)
}

func (e *RemoteAnalysisError) Unwrap() error {
	return e.Err
}

// ValidationError means an input at the API boundary was malformed or out of
// range. Such inputs are rejected, never silently clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateScore checks a user-supplied score is within [0,1].
func ValidateScore(field string, v float64) error {
	if v < 0 || v > 1 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be in [0,1], got %v", v)}
	}
	return nil
}

// ValidateRange checks an integer rating is within [lo,hi].
func ValidateRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be in [%d,%d], got %d", lo, hi, v)}
	}
	return nil
}
