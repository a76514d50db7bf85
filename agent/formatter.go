package agent

import (
	"fmt"

	"github.com/pairuplabs/pairup/chatwire"
)

// Formatter assembles the wire-format message list for each model call and
// decides when summarization is triggered.
type Formatter struct{}

// FormatMessages prepends the system prompt and, when lastError is non-nil,
// injects one synthetic user-role message describing the failure before the
// history, so the model can adapt its next attempt. History is appended
// unmodified.
func (Formatter) FormatMessages(systemPrompt string, history []chatwire.Message, lastError error) []chatwire.Message {
	out := make([]chatwire.Message, 0, len(history)+2)
	out = append(out, chatwire.SystemMessage(systemPrompt))
	if lastError != nil {
		out = append(out, chatwire.UserMessage(fmt.Sprintf(
			"The previous step failed with the following error:\n%s\n"+
				"Adjust your approach to work around it.", lastError.Error())))
	}
	return append(out, history...)
}

// ShouldSummarize estimates the request payload size as the sum of every
// message's content length plus, for assistant messages, the length of each
// tool call's function name and argument text. It reports true when the
// estimate exceeds maxPayloadBytes or the history exceeds maxMessageCount.
func (Formatter) ShouldSummarize(history []chatwire.Message, maxPayloadBytes, maxMessageCount int) bool {
	if maxMessageCount > 0 && len(history) > maxMessageCount {
		return true
	}
	if maxPayloadBytes <= 0 {
		return false
	}
	size := 0
	for _, msg := range history {
		size += len(msg.Content)
		for _, tc := range msg.ToolCalls {
			size += len(tc.Function.Name) + len(tc.Function.Arguments)
		}
	}
	return size > maxPayloadBytes
}
