package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pairuplabs/pairup/chatwire"
)

func TestGenerateFinalResponse(t *testing.T) {
	assert.Equal(t, "here you go",
		GenerateFinalResponse(chatwire.AssistantMessage("here you go")))

	assert.Equal(t, workInProgressResponse,
		GenerateFinalResponse(assistantWithCalls("", call("c1", "update_file", "{}"))))

	// Content wins even when tool calls are present.
	assert.Equal(t, "partial text",
		GenerateFinalResponse(assistantWithCalls("partial text", call("c1", "list_dir", "{}"))))

	assert.Empty(t, GenerateFinalResponse(chatwire.AssistantMessage("")))
}
