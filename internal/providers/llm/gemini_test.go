package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	var gotKey, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req geminiRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		gotText = req.Contents[0].Parts[0].Text

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "hello there"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGemini("test-key", srv.URL)
	out, err := g.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	require.Equal(t, "hello there", out)
	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "say hi", gotText)
}

func TestGeminiCompleteNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini("test-key", srv.URL)
	_, err := g.Complete(context.Background(), "say hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestGeminiCompleteNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key", srv.URL)
	_, err := g.Complete(context.Background(), "say hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no candidates")
}
