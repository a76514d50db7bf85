package agent

import "github.com/pairuplabs/pairup/chatwire"

// workInProgressResponse is shown when a terminal assistant message carries
// tool calls but no text.
const workInProgressResponse = "I've made the requested changes. Let me know if you need anything else."

// GenerateFinalResponse derives the user-visible text from a terminal
// assistant message: its content when present, a fixed placeholder when it
// only carries tool calls, and empty otherwise.
func GenerateFinalResponse(msg chatwire.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.ToolCalls) > 0 {
		return workInProgressResponse
	}
	return ""
}
