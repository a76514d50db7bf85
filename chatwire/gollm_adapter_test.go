package chatwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCallsFromText(t *testing.T) {
	g := &GollmCompleter{}

	text := `I'll check the directory first. [{"name":"list_dir","arguments":{"DirectoryPath":"."}}]`
	calls, remainder := g.parseToolCalls(text)

	require.Len(t, calls, 1)
	assert.Equal(t, "list_dir", calls[0].Function.Name)
	assert.JSONEq(t, `{"DirectoryPath":"."}`, calls[0].Function.Arguments)
	assert.NotEmpty(t, calls[0].ID)
	assert.Equal(t, "I'll check the directory first.", remainder)
}

func TestParseToolCallsPlainText(t *testing.T) {
	g := &GollmCompleter{}

	calls, remainder := g.parseToolCalls("just a plain answer")
	assert.Nil(t, calls)
	assert.Equal(t, "just a plain answer", remainder)

	// Broken JSON is left untouched.
	calls, remainder = g.parseToolCalls(`[{"name": broken`)
	assert.Nil(t, calls)
	assert.Equal(t, `[{"name": broken`, remainder)
}

func TestBuildResponseMarksToolCallFinish(t *testing.T) {
	g := &GollmCompleter{model: "fallback-model"}

	resp := g.buildResponse(Request{}, `[{"name":"done","arguments":{"Summary":"ok"}}]`)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	assert.Equal(t, "fallback-model", resp.Model)

	resp = g.buildResponse(Request{Model: "override"}, "plain text")
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "override", resp.Model)
	assert.Equal(t, "plain text", resp.Choices[0].Message.Content)
}

func TestTranslateErrorClassification(t *testing.T) {
	g := &GollmCompleter{}

	cases := []struct {
		message string
		check   func(error) bool
	}{
		{"API error 400: invalid_request_error", IsProtocolViolation},
		{"request failed: rate limit exceeded", IsRetryable},
		{"internal server error from provider", IsRetryable},
	}
	for _, tc := range cases {
		err := g.translateError(errors.New(tc.message))
		assert.True(t, tc.check(err), "message %q", tc.message)
	}

	var authErr *AuthenticationError
	assert.True(t, errors.As(g.translateError(errors.New("401 unauthorized")), &authErr))

	var timeoutErr *RequestTimeoutError
	assert.True(t, errors.As(g.translateError(errors.New("request timeout after 30s")), &timeoutErr))
}
