package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultToolTimeout bounds a single tool invocation.
const DefaultToolTimeout = 30 * time.Second

// Executor dispatches a named tool call to its registered implementation
// under a timeout. Tool failures and timeouts are converted to ordinary
// output text, never surfaced as errors, so the loop always has response
// content to pair with the call.
type Executor struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewExecutor creates an Executor over the given registry.
func NewExecutor(registry *Registry, logger zerolog.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

// RequiresConfirmation reports whether the named tool needs user approval
// before execution. Delegates to the registry, the single source of truth.
func (e *Executor) RequiresConfirmation(name string) bool {
	return e.registry.RequiresConfirmation(name)
}

// ExecuteWithTimeout runs the named tool, racing it against the timeout.
// The returned text is always non-empty; ok is false for unknown tools,
// tool errors, and timeouts.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, name string, arguments json.RawMessage, timeout time.Duration) (output string, ok bool) {
	tool := e.registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error executing tool: unknown tool %q", name), false
	}
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	type result struct {
		output string
		err    error
	}
	ch := make(chan result, 1)

	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		out, err := tool.Run(toolCtx, arguments)
		ch <- result{output: out, err: err}
	}()

	select {
	case res := <-ch:
		elapsed := time.Since(start)
		if res.err != nil {
			e.logger.Debug().
				Str("tool", name).
				Dur("elapsed", elapsed).
				Err(res.err).
				Msg("Tool execution failed")
			// A tool may pair its error with model-facing failure text;
			// prefer that over the generic rendering.
			if res.output != "" {
				return res.output, false
			}
			return fmt.Sprintf("Error executing tool: %v", res.err), false
		}
		e.logger.Debug().
			Str("tool", name).
			Dur("elapsed", elapsed).
			Int("output_bytes", len(res.output)).
			Msg("Tool executed")
		if res.output == "" {
			return "(no output)", true
		}
		return res.output, true
	case <-toolCtx.Done():
		e.logger.Warn().
			Str("tool", name).
			Dur("timeout", timeout).
			Msg("Tool execution timed out")
		return fmt.Sprintf("Tool execution timed out after %s.", timeout), false
	}
}
