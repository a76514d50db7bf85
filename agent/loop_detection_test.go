package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pairuplabs/pairup/chatwire"
)

func historyWithCalls(calls ...chatwire.ToolCall) []chatwire.Message {
	history := []chatwire.Message{chatwire.UserMessage("go")}
	for _, c := range calls {
		history = append(history,
			assistantWithCalls("", c),
			chatwire.ToolMessage(c.ID, "output"))
	}
	return history
}

func TestDetectRepeatedCallsSingleHammeredCall(t *testing.T) {
	same := func(id string) chatwire.ToolCall { return call(id, "grep_search", `{"Query":"foo"}`) }
	history := historyWithCalls(same("c1"), same("c2"), same("c3"))

	reason, looping := DetectRepeatedCalls(history, 3)
	assert.True(t, looping)
	assert.Contains(t, reason, "repeat")
}

func TestDetectRepeatedCallsAlternatingPattern(t *testing.T) {
	a := func(id string) chatwire.ToolCall { return call(id, "list_dir", `{"DirectoryPath":"."}`) }
	b := func(id string) chatwire.ToolCall { return call(id, "file_tree", `{"Depth":2}`) }
	history := historyWithCalls(a("1"), b("2"), a("3"), b("4"), a("5"), b("6"))

	_, looping := DetectRepeatedCalls(history, 3)
	assert.True(t, looping)
}

func TestDetectRepeatedCallsVariedWorkIsFine(t *testing.T) {
	history := historyWithCalls(
		call("c1", "list_dir", `{"DirectoryPath":"."}`),
		call("c2", "grep_search", `{"Query":"foo"}`),
		call("c3", "update_file", `{"FilePath":"a.go"}`),
		call("c4", "run_command", `{"Command":"go test"}`),
	)

	_, looping := DetectRepeatedCalls(history, 3)
	assert.False(t, looping)
}

func TestDetectRepeatedCallsDifferentArgumentsAreDifferentCalls(t *testing.T) {
	history := historyWithCalls(
		call("c1", "grep_search", `{"Query":"foo"}`),
		call("c2", "grep_search", `{"Query":"bar"}`),
		call("c3", "grep_search", `{"Query":"baz"}`),
	)

	_, looping := DetectRepeatedCalls(history, 3)
	assert.False(t, looping)
}

func TestDetectRepeatedCallsShortHistory(t *testing.T) {
	history := historyWithCalls(call("c1", "list_dir", `{}`))
	_, looping := DetectRepeatedCalls(history, 3)
	assert.False(t, looping)
}
