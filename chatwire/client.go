package chatwire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Completer is the transport contract the agent loop consumes. A transport
// sends one request and returns one response; it never retries internally.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req Request) (*Response, error)
}

// Client is an HTTP transport for OpenAI-compatible chat-completion
// endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client's logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates an HTTP transport from the given configuration.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the transport's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// errorEnvelope is the provider's error body shape.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// CreateChatCompletion sends a blocking chat-completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &WireError{Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &WireError{Message: "failed to build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("Sending chat completion request")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &RequestTimeoutError{WireError: WireError{Message: "chat completion request timed out", Cause: err}}
		}
		return nil, &NetworkError{WireError: WireError{Message: "chat completion request failed", Cause: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var envelope errorEnvelope
		_ = json.Unmarshal(raw, &envelope)
		code := envelope.Error.Code
		if code == "" {
			code = envelope.Error.Type
		}
		message := envelope.Error.Message
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("code", code).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("Chat completion request rejected")
		return nil, ErrorFromStatus(resp.StatusCode, code, message)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &WireError{Message: "failed to decode response", Cause: err}
	}

	c.logger.Debug().
		Str("response_id", out.ID).
		Int("prompt_tokens", out.Usage.PromptTokens).
		Int("completion_tokens", out.Usage.CompletionTokens).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Chat completion response received")

	return &out, nil
}

// streamChunk is the shape of one SSE data payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// CreateChatCompletionStream sends a streaming request and returns a channel
// of text deltas. The agent loop deliberately does not use this: tool calls
// fragment across streamed chunks, and the loop requires complete tool-call
// payloads. It exists for hosts that render plain-text answers token by
// token.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &WireError{Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &WireError{Message: "failed to build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{WireError: WireError{Message: "chat completion stream failed", Cause: err}}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		var envelope errorEnvelope
		_ = json.Unmarshal(raw, &envelope)
		return nil, ErrorFromStatus(resp.StatusCode, envelope.Error.Code, envelope.Error.Message)
	}

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				ch <- StreamEvent{Type: StreamFinish}
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					ch <- StreamEvent{Type: StreamDelta, Delta: choice.Delta.Content}
				}
				if choice.FinishReason != "" {
					ch <- StreamEvent{Type: StreamFinish, FinishReason: choice.FinishReason}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamEvent{Type: StreamError, Err: fmt.Errorf("stream read: %w", err)}
		}
	}()

	return ch, nil
}
