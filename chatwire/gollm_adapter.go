package chatwire

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmCompleter adapts a gollm.LLM to the Completer interface, for hosts
// that want provider routing through the gollm SDK instead of the raw HTTP
// transport. gollm's prompt API is flat, so the conversation is rendered
// into a single prompt and tool calls are recovered from the response text.
type GollmCompleter struct {
	provider string
	model    string
	llm      gollm.LLM
}

// NewGollmCompleter creates a gollm-backed transport for the given provider.
// If apiKey is empty, gollm reads it from the provider's conventional
// environment variable.
func NewGollmCompleter(provider, model, apiKey string) (*GollmCompleter, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxRetries(0), // the loop owns recovery; never retry here
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}
	return &GollmCompleter{provider: provider, model: model, llm: llm}, nil
}

// NewGollmCompleterFromLLM wraps an existing gollm.LLM instance.
func NewGollmCompleterFromLLM(provider, model string, llm gollm.LLM) *GollmCompleter {
	return &GollmCompleter{provider: provider, model: model, llm: llm}
}

// CreateChatCompletion renders the request into a gollm prompt, generates,
// and rebuilds a wire Response.
func (g *GollmCompleter) CreateChatCompletion(ctx context.Context, req Request) (*Response, error) {
	prompt := g.translateRequest(req)

	if req.Model != "" && req.Model != g.model {
		g.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		g.llm.SetOption("temperature", *req.Temperature)
	}

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, g.translateError(err)
	}

	return g.buildResponse(req, text), nil
}

// translateRequest flattens the message list into a gollm prompt.
func (g *GollmCompleter) translateRequest(req Request) *gollm.Prompt {
	var system strings.Builder
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system.WriteString(msg.Content)
			system.WriteString("\n")
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, fmt.Sprintf("[Assistant called %s]: %s", tc.Function.Name, tc.Function.Arguments))
			}
		case RoleTool:
			parts = append(parts, "[Tool Result]: "+msg.Content)
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if system.Len() > 0 {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(system.String()), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Function.Name,
					Description: t.Function.Description,
					Parameters:  t.Function.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// buildResponse wraps generated text as a single-choice wire Response,
// extracting any embedded tool-call JSON.
func (g *GollmCompleter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = g.model
	}

	msg := Message{Role: RoleAssistant}
	calls, remainder := g.parseToolCalls(text)
	msg.ToolCalls = calls
	msg.Content = remainder

	finish := "stop"
	if len(calls) > 0 {
		finish = "tool_calls"
	}

	return &Response{
		ID:      "resp_" + uuid.New().String()[:8],
		Object:  "chat.completion",
		Model:   model,
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage: Usage{
			PromptTokens:     estimatePromptTokens(req),
			CompletionTokens: len(text) / 4,
			TotalTokens:      estimatePromptTokens(req) + len(text)/4,
		},
	}
}

// parseToolCalls recovers tool calls gollm may have left embedded in the
// response text as a JSON array of {name, arguments} objects.
func (g *GollmCompleter) parseToolCalls(text string) ([]ToolCall, string) {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		return nil, text
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil, text
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:   "call_" + uuid.New().String()[:8],
			Type: "function",
			Function: FunctionCall{
				Name:      rc.Name,
				Arguments: string(rc.Arguments),
			},
		})
	}
	return calls, strings.TrimSpace(text[:start])
}

// translateError classifies a gollm error into the chatwire hierarchy.
func (g *GollmCompleter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "invalid_request_error") || strings.Contains(lower, "400"):
		return &ProtocolError{APIError: APIError{
			WireError: WireError{Message: msg, Cause: err}, StatusCode: 400, Code: "invalid_request_error",
		}}
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthenticationError{APIError: APIError{
			WireError: WireError{Message: msg, Cause: err}, StatusCode: 401,
		}}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &RateLimitError{APIError: APIError{
			WireError: WireError{Message: msg, Cause: err}, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		return &ServerError{APIError: APIError{
			WireError: WireError{Message: msg, Cause: err}, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{WireError: WireError{Message: msg, Cause: err}}
	default:
		return &NetworkError{WireError: WireError{Message: msg, Cause: err}}
	}
}

func estimatePromptTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
