package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pairuplabs/pairup/chatwire"
)

// LoopState describes how a query run ended.
type LoopState string

const (
	StateSuccess           LoopState = "success"
	StateErrorReset        LoopState = "error_reset"
	StateIterationExceeded LoopState = "iteration_exceeded"
)

// transcriptResetResponse is returned when repeated protocol violations
// force the transcript to be cleared.
const transcriptResetResponse = "I ran into a problem with the conversation state and had to reset it. " +
	"Earlier context was lost; please restate your request."

// LoopConfig holds the tunables of the agent loop. Zero values select the
// defaults.
type LoopConfig struct {
	MaxIterations  int           // default 10
	IterationDelay time.Duration // pause between model calls, default 200ms
	ErrorBackoff   time.Duration // extra pause after a failed model call, default 500ms
	ToolTimeout    time.Duration // per tool call, default 30s

	// Summarization triggers. MaxPayloadBytes 0 disables the size check.
	MaxPayloadBytes  int // default 60000
	MaxMessageCount  int // default 40
	SummaryWordLimit int // default 500

	TranscriptLimit int // default DefaultTranscriptLimit
	LoopThreshold   int // repeated-call detection, default DefaultLoopThreshold
}

func (c *LoopConfig) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.IterationDelay <= 0 {
		c.IterationDelay = 200 * time.Millisecond
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 500 * time.Millisecond
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = 60000
	}
	if c.MaxMessageCount <= 0 {
		c.MaxMessageCount = 40
	}
	if c.SummaryWordLimit <= 0 {
		c.SummaryWordLimit = 500
	}
	if c.LoopThreshold <= 0 {
		c.LoopThreshold = DefaultLoopThreshold
	}
}

// LoopResult is the outcome of one query run.
type LoopResult struct {
	Response     string
	State        LoopState
	Iterations   int
	ContextFiles []string
}

// Loop drives the conversation: it sends the transcript to the model,
// executes the tool calls the model requests, appends the results, and
// repeats until the model stops calling tools, calls done, or the iteration
// budget runs out.
type Loop struct {
	sessionID string

	client    chatwire.Completer
	wireCfg   chatwire.Config
	store     *Store
	registry  *Registry
	executor  *Executor
	processor *Processor
	formatter Formatter
	summarize *Summarizer
	prompts   *PromptBuilder
	tracker   *ContextTracker
	confirm   ConfirmationPrompt
	emitter   *EventEmitter
	logger    zerolog.Logger
	config    LoopConfig
}

// LoopDeps collects the collaborators a Loop needs. Nil optional fields get
// working defaults.
type LoopDeps struct {
	Client    chatwire.Completer
	WireCfg   chatwire.Config
	Workspace Workspace
	Registry  *Registry
	Tracker   *ContextTracker
	Confirm   ConfirmationPrompt
	Logger    zerolog.Logger
}

// NewLoop assembles a Loop and its collaborators.
func NewLoop(config LoopConfig, deps LoopDeps) *Loop {
	config.applyDefaults()

	sessionID := uuid.NewString()
	logger := deps.Logger.With().Str("session_id", sessionID).Logger()

	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Confirm == nil {
		deps.Confirm = AutoApprove{}
	}

	emitter := NewEventEmitter(sessionID, 0)
	executor := NewExecutor(deps.Registry, logger)
	if deps.Tracker == nil {
		deps.Tracker = NewContextTracker(emitter)
	}

	return &Loop{
		sessionID: sessionID,
		client:    deps.Client,
		wireCfg:   deps.WireCfg,
		store:     NewStore(config.TranscriptLimit, logger),
		registry:  deps.Registry,
		executor:  executor,
		processor: NewProcessor(executor, emitter, config.ToolTimeout, logger),
		summarize: NewSummarizer(deps.Client, deps.WireCfg.Model, logger),
		prompts:   NewPromptBuilder(deps.Workspace),
		tracker:   deps.Tracker,
		confirm:   deps.Confirm,
		emitter:   emitter,
		logger:    logger,
		config:    config,
	}
}

// SessionID returns the loop's session identifier.
func (l *Loop) SessionID() string { return l.sessionID }

// Events returns the loop's event channel.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// ContextFiles returns the files touched so far this session.
func (l *Loop) ContextFiles() []string { return l.tracker.Paths() }

// Tracker returns the loop's context tracker, for hosts that register tools
// after constructing the loop and want tool path reports to flow into the
// loop's event stream.
func (l *Loop) Tracker() *ContextTracker { return l.tracker }

// History returns a copy of the stored transcript.
func (l *Loop) History() []chatwire.Message { return l.store.History() }

// Reset clears the transcript and the context tracker.
func (l *Loop) Reset() {
	l.store.Clear()
	l.tracker.Reset()
}

// ExecuteAgentLoop runs one user query to completion. It validates the
// transport credentials up front, appends the query to the transcript, and
// iterates model calls until a terminal condition.
func (l *Loop) ExecuteAgentLoop(ctx context.Context, query string) (LoopResult, error) {
	if err := l.wireCfg.Validate(); err != nil {
		return LoopResult{}, err
	}

	l.emitter.Emit(EventQueryStart, map[string]any{"query": query})
	l.store.Append(chatwire.UserMessage(query))

	systemPrompt := l.prompts.Build()
	var lastErr error

	for iteration := 1; iteration <= l.config.MaxIterations; iteration++ {
		if iteration > 1 {
			select {
			case <-ctx.Done():
				return LoopResult{}, ctx.Err()
			case <-time.After(l.config.IterationDelay):
			}
		}

		resp, err := l.callModel(ctx, systemPrompt, lastErr)
		if err != nil {
			if chatwire.IsProtocolViolation(err) {
				// The transcript the provider rejected is unrecoverable for
				// this session: salvage what the sanitize pass can for the
				// log, then drop everything and end the run.
				removed := l.store.Sanitize()
				l.store.Clear()
				l.tracker.Reset()
				l.emitter.Emit(EventTranscriptReset, map[string]any{"reason": err.Error()})
				l.logger.Error().Err(err).Int("sanitized", removed).Msg("Protocol violation, transcript reset")
				return l.finish(transcriptResetResponse, StateErrorReset, iteration), nil
			}
			lastErr = err
			l.emitter.Emit(EventIterationError, map[string]any{"error": err.Error(), "iteration": iteration})
			l.logger.Warn().Err(err).Int("iteration", iteration).Msg("Model call failed")
			select {
			case <-ctx.Done():
				return LoopResult{}, ctx.Err()
			case <-time.After(l.config.ErrorBackoff):
			}
			continue
		}

		msg, ok := resp.FirstMessage()
		if !ok {
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}

		// The assistant message enters the transcript verbatim, tool calls
		// included, before anything is executed.
		l.store.Append(msg)
		l.emitter.Emit(EventAssistantMessage, map[string]any{
			"content":    msg.Content,
			"tool_calls": len(msg.ToolCalls),
		})

		if !msg.HasToolCalls() {
			return l.finish(GenerateFinalResponse(msg), StateSuccess, iteration), nil
		}

		if done := msg.FindToolCall(DoneToolName); done != nil {
			return l.finishDone(ctx, msg, *done, iteration), nil
		}

		if denied, reason := l.confirmBatch(ctx, msg.ToolCalls); denied {
			lastErr = fmt.Errorf("user denied tool execution: %s", reason)
			// The assistant's calls are in the transcript with no responses;
			// repair synthesizes placeholders so the next request is valid.
			l.store.ValidateAndRepair()
			select {
			case <-ctx.Done():
				return LoopResult{}, ctx.Err()
			case <-time.After(l.config.ErrorBackoff):
			}
			continue
		}

		results := l.processor.ProcessToolCalls(ctx, msg.ToolCalls)
		lastErr = nil
		for _, result := range results {
			l.store.Append(result.Message())
			if !result.Success {
				lastErr = fmt.Errorf("tool %s failed: %s", result.Name, firstLine(result.Output))
			}
		}

		if reason, looping := DetectRepeatedCalls(l.store.History(), l.config.LoopThreshold); looping {
			lastErr = fmt.Errorf("repeated tool calls detected: %s", reason)
			l.logger.Warn().Str("reason", reason).Msg("Repeated call pattern")
		}
	}

	response := "I couldn't complete the task within the allowed number of steps."
	if lastErr != nil {
		response += " Last error: " + lastErr.Error()
	}
	return l.finish(response, StateIterationExceeded, l.config.MaxIterations), nil
}

// callModel assembles the outgoing request and sends it. Over-size
// histories are compressed into a summary plus the latest user message;
// the stored transcript is never mutated by this.
func (l *Loop) callModel(ctx context.Context, systemPrompt string, lastErr error) (*chatwire.Response, error) {
	history := l.store.History()

	outgoing := history
	if l.formatter.ShouldSummarize(history, l.config.MaxPayloadBytes, l.config.MaxMessageCount) {
		summary := l.summarize.Summarize(ctx, history, l.config.SummaryWordLimit)
		l.emitter.Emit(EventSummarization, map[string]any{
			"type":  string(summary.SummaryType),
			"files": summary.FileReferences,
		})
		outgoing = []chatwire.Message{summary.Message()}
		if last, ok := lastUserMessage(history); ok {
			outgoing = append(outgoing, last)
		}
	}

	request := chatwire.Request{
		Model:    l.wireCfg.Model,
		Messages: l.formatter.FormatMessages(systemPrompt, outgoing, lastErr),
		Tools:    l.registry.Schemas(),
	}
	if l.wireCfg.Temperature > 0 {
		request.Temperature = &l.wireCfg.Temperature
	}
	return l.client.CreateChatCompletion(ctx, request)
}

// confirmBatch asks for approval of every gated call in the batch. One
// denial rejects the whole batch.
func (l *Loop) confirmBatch(ctx context.Context, calls []chatwire.ToolCall) (denied bool, reason string) {
	for _, call := range calls {
		if !l.registry.RequiresConfirmation(call.Function.Name) {
			continue
		}
		action := fmt.Sprintf("%s with arguments %s", call.Function.Name, firstLine(call.Function.Arguments))
		approved, err := l.confirm.Confirm(ctx, action)
		if err != nil {
			return true, err.Error()
		}
		if !approved {
			return true, call.Function.Name
		}
	}
	return false, ""
}

// finishDone executes only the done call from the terminal batch, records
// its response, and uses its output as the final answer.
func (l *Loop) finishDone(ctx context.Context, msg chatwire.Message, done chatwire.ToolCall, iteration int) LoopResult {
	output, ok := l.executor.ExecuteWithTimeout(ctx, done.Function.Name, []byte(done.Function.Arguments), l.config.ToolTimeout)
	l.store.Append(chatwire.ToolMessage(done.ID, output))
	// Sibling calls in the same batch are never executed; repair pairs them
	// with placeholders.
	l.store.ValidateAndRepair()

	response := output
	if !ok || response == "" {
		response = GenerateFinalResponse(msg)
	}
	return l.finish(response, StateSuccess, iteration)
}

func (l *Loop) finish(response string, state LoopState, iterations int) LoopResult {
	l.emitter.Emit(EventQueryEnd, map[string]any{
		"state":      string(state),
		"iterations": iterations,
	})
	return LoopResult{
		Response:     response,
		State:        state,
		Iterations:   iterations,
		ContextFiles: l.tracker.Paths(),
	}
}

func lastUserMessage(history []chatwire.Message) (chatwire.Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chatwire.RoleUser {
			return history[i], true
		}
	}
	return chatwire.Message{}, false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
