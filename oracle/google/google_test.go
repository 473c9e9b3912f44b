package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func candidate(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	}
}

func TestOracle_Ask(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(candidate("no\n"))
	}))
	defer srv.Close()

	o := New(WithAPIKey("k"), WithBaseURL(srv.URL), WithModel("gemini-test"))
	answer, err := o.AskYesNo(context.Background(), "Tool: fear\n")
	require.NoError(t, err)
	require.Equal(t, "no", answer)
	require.True(t, strings.HasSuffix(path, "gemini-test:generateContent"), path)

	contents := body["contents"].([]any)
	require.Len(t, contents, 1)
	require.Contains(t, body, "generationConfig")
}

func TestOracle_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		json.NewEncoder(w).Encode(candidate("16"))
	}))
	defer srv.Close()

	o := New(WithAPIKey("k"), WithBaseURL(srv.URL), WithRetryBaseWait(time.Millisecond))
	answer, err := o.AskExtract(context.Background(), "Parameter: number")
	require.NoError(t, err)
	require.Equal(t, "16", answer)
	require.EqualValues(t, 2, calls.Load())
}

func TestOracle_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	o := New()
	require.Equal(t, "from-google", o.apiKey)
	require.Equal(t, DefaultModel, o.Model())
	require.Equal(t, ProviderName, o.Name())
}
