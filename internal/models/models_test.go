package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meedamian/gptflo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInfo(t *testing.T, familyID, baseURL string) *types.ModelInfo {
	t.Helper()
	info, err := NewModelInfo(familyID, "")
	require.NoError(t, err)
	info.APIKey = "test-key"
	info.BaseURL = baseURL
	info.Temperature = 0.6
	info.MaxTokens = 100
	info.RequestTimeout = 5 * time.Second
	return info
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestNewModelInfo(t *testing.T) {
	info, err := NewModelInfo(GPT, "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo-instruct", info.Name)
	assert.Equal(t, "OpenAI", info.Provider)

	info, err = NewModelInfo(Claude, "claude-opus-4-1")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-1", info.Name)
	assert.False(t, IsKnownVariant(Claude, info.Name))
	assert.True(t, IsKnownVariant(Claude, "claude-haiku-4-5"))

	_, err = NewModelInfo("bard", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestFamilyIDs(t *testing.T) {
	assert.Equal(t, []string{"claude", "deepseek", "gemini", "grok", "mistral", "openai"}, FamilyIDs())
}

func TestNewModel(t *testing.T) {
	for _, id := range FamilyIDs() {
		info := testInfo(t, id, "")
		model, err := NewModel(info)
		require.NoError(t, err, id)
		assert.NotNil(t, model, id)
	}
}

func TestNewModelClientKind(t *testing.T) {
	cases := map[string]types.Completer{
		GPT:      &OpenAIModel{},
		DeepSeek: &CompatModel{},
		Mistral:  &CompatModel{},
		Grok:     &CompatModel{},
		Claude:   &ClaudeModel{},
		Gemini:   &GeminiModel{},
	}

	for id, want := range cases {
		model, err := NewModel(testInfo(t, id, ""))
		require.NoError(t, err, id)
		assert.IsType(t, want, model, id)
	}
}

func TestNewModelUnknownFamily(t *testing.T) {
	info := testInfo(t, GPT, "")
	info.ID = "bard"

	_, err := NewModel(info)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestUpstreamErrorLogged(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	})

	var buf bytes.Buffer
	info := testInfo(t, GPT, server.URL+"/v1")
	info.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	_, err := NewOpenAIModel(info).Complete(context.Background(), "prompt")
	require.Error(t, err)

	assert.Contains(t, buf.String(), "completion request failed")
	assert.Contains(t, buf.String(), "status=401")
	assert.Contains(t, buf.String(), "provider=OpenAI")
}

func TestNewModelMissingKey(t *testing.T) {
	info, err := NewModelInfo(GPT, "")
	require.NoError(t, err)

	_, err = NewModel(info)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIModel_Complete(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "gpt-3.5-turbo-instruct", body["model"])
		assert.Equal(t, "Generate questions about Dinosaurs.", body["prompt"])
		assert.InDelta(t, 0.6, body["temperature"], 1e-9)
		assert.EqualValues(t, 100, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-test",
			"object":  "text_completion",
			"created": 1234567890,
			"model":   "gpt-3.5-turbo-instruct",
			"choices": []map[string]any{
				{"text": "\n\nWhat period did dinosaurs live in? ", "index": 0, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 9, "total_tokens": 16},
		})
	})

	model := NewOpenAIModel(testInfo(t, GPT, server.URL+"/v1"))
	got, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.")
	require.NoError(t, err)
	assert.Equal(t, "What period did dinosaurs live in?", got.Text)
	assert.Equal(t, int64(7), got.TokIn)
	assert.Equal(t, int64(9), got.TokOut)
}

func TestOpenAIModel_NoChoices(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"cmpl-test","object":"text_completion","model":"gpt-3.5-turbo-instruct","choices":[]}`)
	})

	model := NewOpenAIModel(testInfo(t, GPT, server.URL+"/v1"))
	got, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
}

func TestOpenAIModel_UpstreamError(t *testing.T) {
	const payload = `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`

	var hits atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, payload)
	})

	model := NewOpenAIModel(testInfo(t, GPT, server.URL+"/v1"))
	_, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.JSONEq(t, payload, string(upstream.RawBody))
	assert.Equal(t, "OpenAI", upstream.Provider)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenAIModel_NoRetryOnServerError(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	model := NewOpenAIModel(testInfo(t, GPT, server.URL+"/v1"))
	_, err := model.Complete(context.Background(), "prompt")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenAIModel_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	model := NewOpenAIModel(testInfo(t, GPT, url+"/v1"))
	_, err := model.Complete(context.Background(), "prompt")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Zero(t, upstream.StatusCode)
	assert.Empty(t, upstream.RawBody)
}

func TestOpenAIModel_Cancelled(t *testing.T) {
	sawCancel := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client disconnect once the body is consumed
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
		close(sawCancel)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	model := NewOpenAIModel(testInfo(t, GPT, server.URL+"/v1"))
	_, err := model.Complete(ctx, "prompt")

	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-sawCancel:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request was not cancelled")
	}
}

func TestCompatModel_Complete(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, "deepseek-chat", body["model"])
		messages, _ := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "user", messages[1].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "deepseek-chat",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "**How big** were they?"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 6, "total_tokens": 36},
		})
	})

	model := NewCompatModel(testInfo(t, DeepSeek, server.URL+"/v1"))
	got, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.\nQ1: What period?\nA1:")
	require.NoError(t, err)
	assert.Equal(t, "How big were they?", got.Text)
	assert.Equal(t, int64(30), got.TokIn)
}

func TestClaudeModel_Complete(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, "claude-haiku-4-5", body["model"])
		assert.InDelta(t, 0.6, body["temperature"], 1e-9)
		assert.NotEmpty(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-haiku-4-5",
			"content":     []map[string]any{{"type": "text", "text": " What did they eat?\n"}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 20, "output_tokens": 8},
		})
	})

	model := NewClaudeModel(testInfo(t, Claude, server.URL))
	got, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.")
	require.NoError(t, err)
	assert.Equal(t, "What did they eat?", got.Text)
	assert.Equal(t, int64(20), got.TokIn)
	assert.Equal(t, int64(8), got.TokOut)
}

func TestClaudeModel_UpstreamError(t *testing.T) {
	const payload = `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`

	var hits atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		io.WriteString(w, payload)
	})

	model := NewClaudeModel(testInfo(t, Claude, server.URL))
	_, err := model.Complete(context.Background(), "prompt")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 529, upstream.StatusCode)
	assert.JSONEq(t, payload, string(upstream.RawBody))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGeminiModel_Complete(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Where were *fossils* found?"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 5, "totalTokenCount": 17}
		}`)
	})

	model, err := NewGeminiModel(testInfo(t, Gemini, server.URL))
	require.NoError(t, err)

	got, err := model.Complete(context.Background(), "Generate questions about Dinosaurs.")
	require.NoError(t, err)
	assert.Equal(t, "Where were fossils found?", got.Text)
	assert.Equal(t, int64(12), got.TokIn)
	assert.Equal(t, int64(5), got.TokOut)
}

func TestGeminiModel_UpstreamError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`)
	})

	model, err := NewGeminiModel(testInfo(t, Gemini, server.URL))
	require.NoError(t, err)

	_, err = model.Complete(context.Background(), "prompt")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, string(upstream.RawBody), "RESOURCE_EXHAUSTED")
}

func TestUpstreamErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")

	err := &UpstreamError{Provider: "OpenAI", Err: cause}
	assert.Equal(t, "OpenAI api request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &UpstreamError{Provider: "OpenAI", StatusCode: 429, Err: cause}
	assert.Equal(t, "OpenAI api returned status 429: connection refused", err.Error())
}
