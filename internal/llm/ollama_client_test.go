package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeOllama emits two streamed chunks and a done marker, the shape the
// real /api/chat endpoint produces with stream=true.
func fakeOllama(t *testing.T, parts ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/api/chat", r.URL.Path)
		enc := json.NewEncoder(w)
		for _, p := range parts {
			_ = enc.Encode(map[string]any{
				"message": map[string]any{"role": "assistant", "content": p},
				"done":    false,
			})
		}
		_ = enc.Encode(map[string]any{"done": true})
	}))
}

func TestOllamaChat_ConcatenatesStream(t *testing.T) {
	ts := fakeOllama(t, "hel", "lo")
	defer ts.Close()

	c := NewOllamaClient(ts.URL, "test-model")
	out, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestOllamaChat_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewOllamaClient(ts.URL, "m")
	_, err := c.Chat(context.Background(), "hi")
	require.Error(t, err)
}

func TestOllamaPing(t *testing.T) {
	ts := fakeOllama(t)
	defer ts.Close()

	c := NewOllamaClient(ts.URL, "m")
	require.NoError(t, c.Ping(context.Background()))
}
