package chatwire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"}
}

func TestCreateChatCompletionSuccess(t *testing.T) {
	var gotAuth string
	var gotReq Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := Response{
			ID: "resp-1",
			Choices: []Choice{{
				Message:      AssistantMessage("hello back"),
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	resp, err := client.CreateChatCompletion(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model, "model filled from config")
	assert.False(t, gotReq.Stream)

	msg, ok := resp.FirstMessage()
	require.True(t, ok)
	assert.Equal(t, "hello back", msg.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"messages must alternate","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.CreateChatCompletion(context.Background(), Request{})
	require.Error(t, err)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 400, protoErr.StatusCode)
	assert.Contains(t, protoErr.Message, "messages must alternate")
	assert.True(t, IsProtocolViolation(err))
	assert.False(t, IsRetryable(err))
}

func TestCreateChatCompletionAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"authentication_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.CreateChatCompletion(context.Background(), Request{})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, IsProtocolViolation(err))
	assert.False(t, IsRetryable(err))
}

func TestCreateChatCompletionRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.CreateChatCompletion(context.Background(), Request{})

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.True(t, IsRetryable(err))
}

func TestCreateChatCompletionServerErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.CreateChatCompletion(context.Background(), Request{})

	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Contains(t, srvErr.Message, "upstream unavailable")
	assert.True(t, IsRetryable(err))
}

func TestCreateChatCompletionNetworkError(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))
	_, err := client.CreateChatCompletion(context.Background(), Request{})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestCreateChatCompletionTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CreateChatCompletion(ctx, Request{})
	var timeoutErr *RequestTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestCreateChatCompletionStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	ch, err := client.CreateChatCompletionStream(context.Background(), Request{
		Messages: []Message{UserMessage("hi")},
	})
	require.NoError(t, err)

	var text string
	var finished bool
	for event := range ch {
		switch event.Type {
		case StreamDelta:
			text += event.Delta
		case StreamFinish:
			finished = true
		}
	}
	assert.Equal(t, "hello", text)
	assert.True(t, finished)
}
