package sampler

import (
	"fmt"
	"time"
)

// APIError represents a structured error response from the sampler service.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.RequestID != "" {
			return fmt.Sprintf("sampler error: status=%d request_id=%s message=%s", e.StatusCode, e.RequestID, e.Message)
		}
		return fmt.Sprintf("sampler error: status=%d message=%s", e.StatusCode, e.Message)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("sampler error: status=%d request_id=%s", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("sampler error: status=%d", e.StatusCode)
}

// BadRequestError indicates the service rejected the fit request itself
// (malformed formula, prior, or data). Not retryable.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

func (e *BadRequestError) Unwrap() error { return e.APIError }

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

func (e *RateLimitError) Unwrap() error { return e.APIError }

// ServerError indicates 5xx errors from the service.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("sampler server error: %s", e.APIError.Error()) }

func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError indicates the sampler service is not reachable at all
// (e.g., a local cmdstan bridge that is not running).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("sampler unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("sampler unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// FitError wraps a failed fit with the formula variant that requested it.
type FitError struct {
	Formula FormulaKind
	Err     error
}

func (e *FitError) Error() string { return fmt.Sprintf("fit %s: %v", e.Formula, e.Err) }

func (e *FitError) Unwrap() error { return e.Err }
