package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairuplabs/pairup/chatwire"
)

// SummaryType tags how a summary was produced.
type SummaryType string

const (
	SummaryTypeModel    SummaryType = "model"
	SummaryTypeTemplate SummaryType = "template"
)

// Summary is a derived compression of older transcript content. It replaces
// transcript content in an outgoing request only; the stored transcript is
// never mutated by summarization.
type Summary struct {
	Content        string      `json:"content"`
	SummaryType    SummaryType `json:"summary_type"`
	FileReferences []string    `json:"file_references,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Message renders the summary as a system-role transcript message.
func (s Summary) Message() chatwire.Message {
	return chatwire.SystemMessage("Summary of the conversation so far:\n" + s.Content)
}

const summarizationInstruction = "Summarize the following conversation between a user and a coding " +
	"assistant. Preserve the user's goal, decisions made, files discussed, and any unresolved " +
	"problems. Be concise."

// summaryTemperature keeps the compression deterministic-ish.
var summaryTemperature = 0.2

// Summarizer compresses transcript history through the chat client, with a
// deterministic fallback when the transport fails.
type Summarizer struct {
	client chatwire.Completer
	model  string
	logger zerolog.Logger
}

// NewSummarizer creates a Summarizer using the given transport and model.
func NewSummarizer(client chatwire.Completer, model string, logger zerolog.Logger) *Summarizer {
	return &Summarizer{client: client, model: model, logger: logger}
}

// Summarize collapses the full history into one Summary. It never fails:
// transport errors degrade to a templated summary that still carries the
// collected file references.
func (s *Summarizer) Summarize(ctx context.Context, history []chatwire.Message, targetLength int) Summary {
	if targetLength <= 0 {
		targetLength = 500
	}

	fileRefs := ExtractFileReferences(history)
	reduced := reducedView(history)

	request := chatwire.Request{
		Model: s.model,
		Messages: append(
			[]chatwire.Message{chatwire.SystemMessage(summarizationInstruction)},
			append(reduced, chatwire.UserMessage(fmt.Sprintf(
				"Summarize the conversation above in at most %d words.", targetLength)))...,
		),
		Temperature: &summaryTemperature,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err == nil {
		if msg, ok := resp.FirstMessage(); ok && msg.Content != "" {
			return Summary{
				Content:        msg.Content,
				SummaryType:    SummaryTypeModel,
				FileReferences: fileRefs,
				CreatedAt:      time.Now(),
			}
		}
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Summarization request failed, using templated summary")
	}

	return Summary{
		Content:        templatedSummary(history),
		SummaryType:    SummaryTypeTemplate,
		FileReferences: fileRefs,
		CreatedAt:      time.Now(),
	}
}

// reducedView builds the outgoing view of the conversation for the
// summarization request. Assistant messages with tool calls contribute only
// their text content, and tool responses are dropped entirely, so the
// request never carries an unpaired tool call.
func reducedView(history []chatwire.Message) []chatwire.Message {
	var out []chatwire.Message
	for _, msg := range history {
		switch msg.Role {
		case chatwire.RoleTool:
			continue
		case chatwire.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			out = append(out, chatwire.AssistantMessage(msg.Content))
		default:
			out = append(out, chatwire.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	return out
}

// templatedSummary is the deterministic fallback: role counts plus nothing
// the transport could get wrong.
func templatedSummary(history []chatwire.Message) string {
	var users, assistants, tools int
	for _, msg := range history {
		switch msg.Role {
		case chatwire.RoleUser:
			users++
		case chatwire.RoleAssistant:
			assistants++
		case chatwire.RoleTool:
			tools++
		}
	}
	return fmt.Sprintf(
		"The conversation so far contains %d user message(s), %d assistant message(s), and %d tool result(s). "+
			"The full history was too large to carry forward verbatim.",
		users, assistants, tools)
}

// pathPattern matches filesystem-path-shaped substrings: something with at
// least one separator and a plausible file or directory tail.
var pathPattern = regexp.MustCompile(`(?:~|\.{1,2})?(?:/[\w.\-]+){2,}/?|\b[\w.\-]+(?:/[\w.\-]+)+\b`)

// ExtractFileReferences scans message content and tool-call arguments for
// filesystem-path-shaped substrings, returning them sorted and
// deduplicated.
func ExtractFileReferences(history []chatwire.Message) []string {
	seen := make(map[string]struct{})
	scan := func(text string) {
		for _, m := range pathPattern.FindAllString(text, -1) {
			if len(m) < 4 {
				continue
			}
			seen[m] = struct{}{}
		}
	}
	for _, msg := range history {
		scan(msg.Content)
		for _, tc := range msg.ToolCalls {
			scan(tc.Function.Arguments)
		}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
