package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
)

const problemJSON = `{"question":"How many litres of coffee are drunk in Paris each day?","reasoning":"2M adults, half drink 2 cups of 0.1 l.","answer":"~200,000 litres"}`

func testRequest() model.GenerationRequest {
	return model.GenerationRequest{
		Domain:            "daily life",
		Difficulty:        model.DifficultyEasy,
		SystemInstruction: "You write Fermi problems.",
		Prompt:            "Create one problem.",
		Temperature:       1.2,
		MaxOutputTokens:   500,
	}
}

func geminiServer(t *testing.T, status int, body string, inspect func(r *http.Request, payload map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if inspect != nil {
			inspect(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 34, "totalTokenCount": 46},
	})
	return string(b)
}

func TestGeminiAdapter_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]any
	srv := geminiServer(t, http.StatusOK, geminiReply(problemJSON), func(r *http.Request, p map[string]any) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotPayload = p
	})

	g, err := NewGeminiAdapter(context.Background(), "test-key", srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())
	assert.Equal(t, DefaultGeminiModel, g.Model())

	text, usage, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, problemJSON, text)
	assert.Equal(t, 12, usage.PromptTokens)
	assert.Equal(t, 34, usage.CompletionTokens)

	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-2.0-flash:generateContent"), gotPath)
	assert.Equal(t, "test-key", gotKey)
	genCfg, _ := gotPayload["generationConfig"].(map[string]any)
	require.NotNil(t, genCfg, "payload: %v", gotPayload)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.EqualValues(t, 500, genCfg["maxOutputTokens"])
	assert.NotNil(t, gotPayload["systemInstruction"])
}

func TestGeminiAdapter_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"overloaded", 503, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`, domain.ErrGenerationTransient},
		{"rate limited", 429, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, domain.ErrGenerationTransient},
		{"bad key", 403, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, domain.ErrGenerationRejected},
		{"bad request", 400, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, domain.ErrGenerationRejected},
		{"no candidates", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, domain.ErrGenerationInvalid},
		{"empty text", 200, geminiReply("  "), domain.ErrGenerationInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := geminiServer(t, tc.status, tc.body, nil)
			g, err := NewGeminiAdapter(context.Background(), "k", srv.URL, "gemini-test")
			require.NoError(t, err)
			_, _, err = g.Generate(context.Background(), testRequest())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewGeminiAdapter_EmptyKey(t *testing.T) {
	_, err := NewGeminiAdapter(context.Background(), "", "", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func openAIServer(t *testing.T, status int, body string, inspect func(r *http.Request, payload map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if inspect != nil {
			inspect(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openAIReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index": 0, "finish_reason": "stop",
			"message": map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 9, "total_tokens": 16},
	})
	return string(b)
}

func TestOpenAIAdapter_Generate(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any
	srv := openAIServer(t, http.StatusOK, openAIReply(problemJSON), func(r *http.Request, p map[string]any) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPayload = p
	})

	o, err := NewOpenAIAdapter("sk-test", srv.URL+"/v1", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, o.Model())

	text, usage, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, problemJSON, text)
	assert.Equal(t, 7, usage.PromptTokens)
	assert.Equal(t, 16, usage.TotalTokens)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotPayload["model"])
	msgs, _ := gotPayload["messages"].([]any)
	assert.Len(t, msgs, 2)
}

func TestOpenAIAdapter_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", 401, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, domain.ErrGenerationRejected},
		{"server error", 500, `{"error":{"message":"boom","type":"server_error"}}`, domain.ErrGenerationTransient},
		{"rate limited", 429, `{"error":{"message":"slow down","type":"rate_limit"}}`, domain.ErrGenerationTransient},
		{"empty choice", 200, openAIReply(""), domain.ErrGenerationInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := openAIServer(t, tc.status, tc.body, nil)
			o, err := NewOpenAIAdapter("sk", srv.URL, "gpt-test")
			require.NoError(t, err)
			_, _, err = o.Generate(context.Background(), testRequest())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpenAIAdapter_ContextDeadlinePassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	o, err := NewOpenAIAdapter("sk", srv.URL, "gpt-test")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err = o.Generate(ctx, testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.False(t, domain.Retryable(err), "context errors are classified by the caller")
}

func TestClassifyStatus(t *testing.T) {
	for code, want := range map[int]error{
		408: domain.ErrGenerationTransient,
		429: domain.ErrGenerationTransient,
		500: domain.ErrGenerationTransient,
		504: domain.ErrGenerationTransient,
		400: domain.ErrGenerationRejected,
		404: domain.ErrGenerationRejected,
	} {
		assert.ErrorIs(t, classifyStatus("x", code, "m"), want, fmt.Sprint(code))
	}
	assert.ErrorIs(t, classifyTransport("x", errors.New("connection refused")), domain.ErrGenerationTransient)
}

func TestNew_SelectsProvider(t *testing.T) {
	gen, err := New(context.Background(), config.AIConfig{Provider: "openai", OpenAIKey: "sk", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())

	gen, err = New(context.Background(), config.AIConfig{GeminiKey: "k", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", gen.Name())

	_, err = New(context.Background(), config.AIConfig{Provider: "claude"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	// No provider: the model name decides.
	gen, err = New(context.Background(), config.AIConfig{OpenAIKey: "sk", Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())
	assert.Equal(t, "gpt-4.1", gen.Model())
}
