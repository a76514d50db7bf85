package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairuplabs/pairup/chatwire"
)

func TestFormatMessagesSystemFirst(t *testing.T) {
	history := []chatwire.Message{
		chatwire.UserMessage("hello"),
		chatwire.AssistantMessage("hi"),
	}

	out := Formatter{}.FormatMessages("be helpful", history, nil)

	require.Len(t, out, 3)
	assert.Equal(t, chatwire.RoleSystem, out[0].Role)
	assert.Equal(t, "be helpful", out[0].Content)
	assert.Equal(t, history, out[1:])
}

func TestFormatMessagesInjectsLastError(t *testing.T) {
	history := []chatwire.Message{chatwire.UserMessage("fix the bug")}

	out := Formatter{}.FormatMessages("sys", history, errors.New("tool run_command failed"))

	require.Len(t, out, 3)
	assert.Equal(t, chatwire.RoleUser, out[1].Role)
	assert.Contains(t, out[1].Content, "tool run_command failed")
	assert.True(t, strings.HasPrefix(out[1].Content, "The previous step failed"))
	assert.Equal(t, "fix the bug", out[2].Content)
}

func TestFormatMessagesDoesNotMutateHistory(t *testing.T) {
	history := []chatwire.Message{chatwire.UserMessage("hello")}
	_ = Formatter{}.FormatMessages("sys", history, errors.New("boom"))
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestShouldSummarizeByCount(t *testing.T) {
	history := make([]chatwire.Message, 5)
	for i := range history {
		history[i] = chatwire.UserMessage("x")
	}

	f := Formatter{}
	assert.False(t, f.ShouldSummarize(history, 0, 5))
	assert.True(t, f.ShouldSummarize(history, 0, 4))
}

func TestShouldSummarizeByPayloadSize(t *testing.T) {
	history := []chatwire.Message{
		chatwire.UserMessage(strings.Repeat("a", 100)),
		{
			Role: chatwire.RoleAssistant,
			ToolCalls: []chatwire.ToolCall{
				call("c1", "grep_search", strings.Repeat("b", 100)),
			},
		},
	}

	f := Formatter{}
	// 100 content + len("grep_search") + 100 arguments = 211.
	assert.True(t, f.ShouldSummarize(history, 210, 0))
	assert.False(t, f.ShouldSummarize(history, 211, 0))
}
