package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIChat_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}},
			},
		})
	}))
	defer ts.Close()

	c := NewOpenAIClient(ts.URL, "test-key", "gpt-test")
	out, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestOpenAIChat_EmptyKey(t *testing.T) {
	c := NewOpenAIClient("", "", "gpt-test")
	_, err := c.Chat(context.Background(), "hi")
	require.Error(t, err)
}

func TestOpenAIChat_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewOpenAIClient(ts.URL, "k", "m")
	_, err := c.Chat(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestOpenAIChat_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	c := NewOpenAIClient(ts.URL, "k", "m")
	_, err := c.Chat(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty response")
}

func TestOpenAIPing(t *testing.T) {
	var hit bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		require.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewOpenAIClient(ts.URL, "k", "m")
	require.NoError(t, c.Ping(context.Background()))
	require.True(t, hit)
}

func TestOpenAIChat_RetriesRateLimit(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}},
			},
		})
	}))
	defer ts.Close()

	c := NewOpenAIClient(ts.URL, "k", "m")
	out, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}
