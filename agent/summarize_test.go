package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairuplabs/pairup/chatwire"
)

// scriptedCompleter replays canned responses and records every request it
// sees.
type scriptedCompleter struct {
	mu        sync.Mutex
	requests  []chatwire.Request
	responses []*chatwire.Response
	errs      []error
	idx       int
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req chatwire.Request) (*chatwire.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	i := s.idx
	if i >= len(s.responses) && i >= len(s.errs) {
		i = max(len(s.responses), len(s.errs)) - 1
	}
	s.idx++

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= 0 && i < len(s.responses) {
		return s.responses[i], nil
	}
	return nil, errors.New("scripted completer exhausted")
}

func (s *scriptedCompleter) lastRequest() chatwire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *scriptedCompleter) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func textResponse(content string) *chatwire.Response {
	return &chatwire.Response{
		Choices: []chatwire.Choice{{Message: chatwire.AssistantMessage(content)}},
	}
}

func toolCallResponse(calls ...chatwire.ToolCall) *chatwire.Response {
	return &chatwire.Response{
		Choices: []chatwire.Choice{{
			Message: chatwire.Message{Role: chatwire.RoleAssistant, ToolCalls: calls},
		}},
	}
}

func TestSummarizeUsesModelResponse(t *testing.T) {
	client := &scriptedCompleter{responses: []*chatwire.Response{textResponse("the user is refactoring auth")}}
	s := NewSummarizer(client, "test-model", zerolog.Nop())

	history := []chatwire.Message{
		chatwire.UserMessage("refactor internal/auth/login.go"),
		chatwire.AssistantMessage("started on it"),
	}
	summary := s.Summarize(context.Background(), history, 200)

	assert.Equal(t, SummaryTypeModel, summary.SummaryType)
	assert.Equal(t, "the user is refactoring auth", summary.Content)
	assert.Contains(t, summary.FileReferences, "internal/auth/login.go")
}

func TestSummarizeFallsBackToTemplate(t *testing.T) {
	client := &scriptedCompleter{errs: []error{errors.New("connection refused")}}
	s := NewSummarizer(client, "test-model", zerolog.Nop())

	history := []chatwire.Message{
		chatwire.UserMessage("hi"),
		chatwire.AssistantMessage("hello"),
		chatwire.ToolMessage("c1", "output"),
	}
	summary := s.Summarize(context.Background(), history, 200)

	assert.Equal(t, SummaryTypeTemplate, summary.SummaryType)
	assert.Contains(t, summary.Content, "1 user message(s)")
	assert.Contains(t, summary.Content, "1 assistant message(s)")
	assert.Contains(t, summary.Content, "1 tool result(s)")
}

func TestSummarizeRequestCarriesNoToolTraffic(t *testing.T) {
	client := &scriptedCompleter{responses: []*chatwire.Response{textResponse("ok")}}
	s := NewSummarizer(client, "test-model", zerolog.Nop())

	history := []chatwire.Message{
		chatwire.UserMessage("list the files"),
		assistantWithCalls("checking", call("c1", "list_dir", "{}")),
		chatwire.ToolMessage("c1", "a.go\nb.go"),
		assistantWithCalls("", call("c2", "file_tree", "{}")),
		chatwire.ToolMessage("c2", "tree"),
	}
	s.Summarize(context.Background(), history, 100)

	req := client.lastRequest()
	for _, msg := range req.Messages {
		assert.NotEqual(t, chatwire.RoleTool, msg.Role)
		assert.Empty(t, msg.ToolCalls)
	}
	// The assistant message with text survives as text only; the one with an
	// empty body is dropped.
	var assistants []string
	for _, msg := range req.Messages {
		if msg.Role == chatwire.RoleAssistant {
			assistants = append(assistants, msg.Content)
		}
	}
	assert.Equal(t, []string{"checking"}, assistants)
}

func TestSummaryMessageIsSystemRole(t *testing.T) {
	msg := Summary{Content: "stuff happened"}.Message()
	assert.Equal(t, chatwire.RoleSystem, msg.Role)
	assert.Contains(t, msg.Content, "Summary of the conversation so far:")
	assert.Contains(t, msg.Content, "stuff happened")
}

func TestExtractFileReferences(t *testing.T) {
	history := []chatwire.Message{
		chatwire.UserMessage("look at src/main.go and /etc/nginx/nginx.conf"),
		assistantWithCalls("", call("c1", "update_file", `{"FilePath":"internal/api/server.go"}`)),
		chatwire.AssistantMessage("no paths here"),
	}

	refs := ExtractFileReferences(history)

	require.NotEmpty(t, refs)
	assert.Contains(t, refs, "src/main.go")
	assert.Contains(t, refs, "/etc/nginx/nginx.conf")
	assert.Contains(t, refs, "internal/api/server.go")
}

func TestExtractFileReferencesEmpty(t *testing.T) {
	history := []chatwire.Message{chatwire.UserMessage("hello there")}
	assert.Nil(t, ExtractFileReferences(history))
}
