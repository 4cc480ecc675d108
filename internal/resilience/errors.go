// Package resilience provides retry and circuit breaker patterns for the
// vision endpoint and other external calls.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/partsight/inspect-cli/internal/model"
)

// IsTransient reports whether an error is safe to retry: remote analysis
// failures with retryable status codes, timeouts, and common network faults.
// Decode and validation errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var de *model.DecodeError
	if errors.As(err, &de) {
		return false
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return false
	}

	// Timeouts are treated identically to remote analysis failures.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var rae *model.RemoteAnalysisError
	if errors.As(err, &rae) {
		// Malformed responses (status 0 or 2xx with bad JSON) may be a
		// transient model hiccup; server-side statuses follow HTTP semantics.
		if rae.StatusCode == 0 {
			return true
		}
		return IsTransientHTTPStatus(rae.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status indicates a transient
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
