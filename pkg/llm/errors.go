// Error taxonomy for external-dependency failures
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors. Callers test with errors.Is; each layer wraps its cause
// onto the matching sentinel.
var (
	// ErrStorageUnavailable marks any session-store failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAnalysis marks an auxiliary-model failure: transport, timeout, or
	// an unparseable/invalid judgment (wrap with ErrValidation for the latter).
	ErrAnalysis = errors.New("context analysis failed")

	// ErrValidation is the analysis subtype for responses that arrived but
	// could not be parsed or validated. It wraps ErrAnalysis, so
	// errors.Is(err, ErrAnalysis) also holds.
	ErrValidation = fmt.Errorf("invalid model response: %w", ErrAnalysis)

	// ErrOrchestrator marks a dialog-model failure after retries.
	ErrOrchestrator = errors.New("dialog generation failed")

	// ErrRateLimited marks a provider rate-limit rejection. Never retried.
	ErrRateLimited = errors.New("rate limited by model provider")
)

// Retryable reports whether an attempt that failed with err is worth
// retrying. Timeouts, connection failures and provider 5xx responses are
// transient; rate limits and any other 4xx-class rejection are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || IsRateLimit(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"status code: 4", "status: 4", "401", "403", "404", "400",
		"invalid api key", "unauthorized", "bad request",
	} {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	for _, marker := range []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"eof", "status code: 5", "status: 5", "500", "502", "503", "504",
		"no such host", "temporarily",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	// Unknown failures get the one retry; a second identical failure still
	// surfaces quickly.
	return true
}

// IsRateLimit reports whether err looks like a provider rate-limit rejection.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "too many requests")
}
