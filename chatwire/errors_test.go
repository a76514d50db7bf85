package chatwire

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFromStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		code       string
		wantType   any
		retryable  bool
		isProtocol bool
	}{
		{"bad request", 400, "", new(*ProtocolError), false, true},
		{"unprocessable", 422, "", new(*ProtocolError), false, true},
		{"invalid request code", 409, "invalid_request_error", new(*ProtocolError), false, true},
		{"unauthorized", 401, "", new(*AuthenticationError), false, false},
		{"forbidden", 403, "", new(*AuthenticationError), false, false},
		{"rate limited", 429, "", new(*RateLimitError), true, false},
		{"server error", 500, "", new(*ServerError), true, false},
		{"bad gateway", 502, "", new(*ServerError), true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ErrorFromStatus(tc.status, tc.code, "boom")
			assert.True(t, errors.As(err, tc.wantType), "expected %T", tc.wantType)
			assert.Equal(t, tc.retryable, IsRetryable(err))
			assert.Equal(t, tc.isProtocol, IsProtocolViolation(err))
		})
	}
}

func TestErrorFromStatusUnknownIsGenericRetryable(t *testing.T) {
	err := ErrorFromStatus(418, "", "teapot")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.True(t, IsRetryable(err))
}

func TestIsProtocolViolationStringFallback(t *testing.T) {
	assert.True(t, IsProtocolViolation(fmt.Errorf("provider said: invalid_request_error")))
	assert.True(t, IsProtocolViolation(errors.New("invalid message sequence near index 3")))
	assert.False(t, IsProtocolViolation(errors.New("connection reset")))
	assert.False(t, IsProtocolViolation(nil))
}

func TestWireErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &NetworkError{WireError: WireError{Message: "request failed", Cause: cause}}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "root cause")
}

func TestIsRetryableNonWireErrors(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("who knows")))
	assert.False(t, IsRetryable(&ConfigurationError{WireError: WireError{Message: "no key"}}))
}
