package chatwire

import (
	"errors"
	"fmt"
	"strings"
)

// WireError is the base error type for all chatwire errors.
type WireError struct {
	Message string
	Cause   error
}

func (e *WireError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *WireError) Unwrap() error {
	return e.Cause
}

// APIError represents an error returned by the chat-completion provider.
type APIError struct {
	WireError
	StatusCode int
	Code       string // provider error code, e.g. "invalid_request_error"
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status=%d, code=%s): %s", e.StatusCode, e.Code, e.Message)
}

// Concrete provider error types.

// ProtocolError means the provider rejected the message sequence itself.
// This is unrecoverable for the current transcript.
type ProtocolError struct{ APIError }

type AuthenticationError struct{ APIError }
type RateLimitError struct{ APIError }
type ServerError struct{ APIError }

// Non-provider errors.

type NetworkError struct{ WireError }
type RequestTimeoutError struct{ WireError }
type ConfigurationError struct{ WireError }

// ErrorFromStatus maps an HTTP status code and provider error body to the
// appropriate typed error.
func ErrorFromStatus(statusCode int, code, message string) error {
	ae := APIError{
		WireError:  WireError{Message: message},
		StatusCode: statusCode,
		Code:       code,
	}

	switch {
	case statusCode == 400 || statusCode == 422 || code == "invalid_request_error":
		ae.Retryable = false
		return &ProtocolError{APIError: ae}
	case statusCode == 401 || statusCode == 403:
		ae.Retryable = false
		return &AuthenticationError{APIError: ae}
	case statusCode == 429:
		ae.Retryable = true
		return &RateLimitError{APIError: ae}
	case statusCode >= 500:
		ae.Retryable = true
		return &ServerError{APIError: ae}
	default:
		ae.Retryable = true
		return &ae
	}
}

// IsProtocolViolation reports whether the error indicates the provider
// rejected the request as structurally malformed, as opposed to a rate limit
// or transient transport failure. The string fallback catches providers that
// surface the violation only in the error text.
func IsProtocolViolation(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid_request_error") ||
		strings.Contains(msg, "invalid message sequence")
}

// IsRetryable reports whether a later identical request could plausibly
// succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProtocolError:
		return false
	case *AuthenticationError:
		return false
	case *ConfigurationError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *NetworkError:
		return true
	case *RequestTimeoutError:
		return true
	case *APIError:
		return e.Retryable
	default:
		return true
	}
}
