package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairuplabs/pairup/chatwire"
)

// ToolCallResult pairs one tool call with the output produced for it. The
// ToolCallID ties the result back to the assistant message that requested
// it; results are always produced in call order.
type ToolCallResult struct {
	ToolCallID string
	Name       string
	Output     string
	Success    bool
}

// Message renders the result as the tool-role transcript message answering
// its call.
func (r ToolCallResult) Message() chatwire.Message {
	return chatwire.ToolMessage(r.ToolCallID, r.Output)
}

// Processor runs the tool calls from one assistant message sequentially,
// producing exactly one result per call. Invalid arguments and execution
// failures become failed results, never skipped calls, so the transcript
// pairing invariant holds by construction.
type Processor struct {
	executor *Executor
	emitter  *EventEmitter
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewProcessor creates a Processor. A non-positive timeout falls back to
// DefaultToolTimeout.
func NewProcessor(executor *Executor, emitter *EventEmitter, timeout time.Duration, logger zerolog.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Processor{executor: executor, emitter: emitter, timeout: timeout, logger: logger}
}

// ProcessToolCalls executes every call in order and returns one result per
// call, in the same order. It never returns fewer results than calls.
func (p *Processor) ProcessToolCalls(ctx context.Context, calls []chatwire.ToolCall) []ToolCallResult {
	results := make([]ToolCallResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, p.processOne(ctx, call))
	}
	return results
}

func (p *Processor) processOne(ctx context.Context, call chatwire.ToolCall) ToolCallResult {
	name := call.Function.Name
	p.emitter.Emit(EventToolCallStart, map[string]any{"tool": name, "call_id": call.ID})

	result := ToolCallResult{ToolCallID: call.ID, Name: name}

	raw := json.RawMessage(call.Function.Arguments)
	if !json.Valid(raw) {
		result.Output = fmt.Sprintf("Error: tool %q was called with invalid JSON arguments.", name)
		result.Success = false
		p.logger.Warn().Str("tool", name).Str("call_id", call.ID).Msg("Tool call arguments are not valid JSON")
	} else {
		output, ok := p.executor.ExecuteWithTimeout(ctx, name, raw, p.timeout)
		result.Output = TruncateToolOutput(output, name)
		result.Success = ok
	}

	p.emitter.Emit(EventToolCallEnd, map[string]any{
		"tool":    name,
		"call_id": call.ID,
		"success": result.Success,
	})
	return result
}
