package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a failed model call. The debate engine keys its
// retry policy off this classification.
type ErrorKind string

const (
	ErrTimeout     ErrorKind = "timeout"
	ErrAuth        ErrorKind = "auth"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrProvider    ErrorKind = "provider"
	ErrNetwork     ErrorKind = "network"
)

// CallError wraps a provider failure with its classification. The
// wrapped error may carry endpoint details, so user-facing surfaces
// must only ever expose Kind and Reason().
type CallError struct {
	Kind ErrorKind
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Reason is a short human-readable description safe to return to
// clients: classification only, no provider payloads or endpoints.
func (e *CallError) Reason() string {
	switch e.Kind {
	case ErrTimeout:
		return "provider timed out"
	case ErrAuth:
		return "provider rejected credentials"
	case ErrRateLimited:
		return "provider rate limited the request"
	case ErrNetwork:
		return "provider unreachable"
	default:
		return "provider returned an error"
	}
}

// Retryable reports whether the debate engine may re-issue the call.
// Auth and rate-limit failures will not get better on retry.
func (e *CallError) Retryable() bool {
	return e.Kind == ErrTimeout || e.Kind == ErrNetwork
}

// Classify converts an arbitrary call failure into a CallError.
func Classify(err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: ErrTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &CallError{Kind: ErrTimeout, Err: err}
		}
		return &CallError{Kind: ErrNetwork, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "authentication"):
		return &CallError{Kind: ErrAuth, Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return &CallError{Kind: ErrRateLimited, Err: err}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return &CallError{Kind: ErrTimeout, Err: err}
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "connection reset"):
		return &CallError{Kind: ErrNetwork, Err: err}
	default:
		return &CallError{Kind: ErrProvider, Err: err}
	}
}
