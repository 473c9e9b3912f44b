package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOracle_Ask(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("Yes, it applies."))
	}))
	defer srv.Close()

	o := New(WithBaseURL(srv.URL), WithAPIKey("k"), WithModel("test-model"))
	answer, err := o.AskYesNo(context.Background(), "Tool: fear\n")
	require.NoError(t, err)
	require.Equal(t, "Yes, it applies.", answer)

	require.Equal(t, "test-model", body["model"])
	require.EqualValues(t, 0, body["temperature"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	require.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestOracle_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(completion("16"))
	}))
	defer srv.Close()

	o := New(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetryBaseWait(time.Millisecond))
	answer, err := o.AskExtract(context.Background(), "Parameter: number")
	require.NoError(t, err)
	require.Equal(t, "16", answer)
	require.EqualValues(t, 2, calls.Load())
}

func TestOracle_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	o := New(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetryBaseWait(time.Millisecond))
	_, err := o.AskYesNo(context.Background(), "q")
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestOracle_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := completion("")
		resp["choices"] = []any{}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL), WithAPIKey("k")).AskYesNo(context.Background(), "q")
	require.ErrorContains(t, err, "empty response")
}

func TestNewOllama(t *testing.T) {
	o := NewOllama()
	require.Equal(t, DefaultOllamaModel, o.Model())
	require.Equal(t, DefaultOllamaBaseURL, o.baseURL)

	o = NewOllama(WithModel("qwen3:8b"))
	require.Equal(t, "qwen3:8b", o.Model())
}
