package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElevenLabsSynthesize(t *testing.T) {
	var gotKey, gotPath string
	var gotReq elevenTTSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p := NewElevenLabs("test-key", srv.URL, "voice-1", "")
	audio, err := p.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []byte("mp3-bytes"), audio)

	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "/text-to-speech/voice-1", gotPath)
	require.Equal(t, "hello", gotReq.Text)
	require.Equal(t, defaultElevenLabsTTSMode, gotReq.ModelID)
	require.Equal(t, "mp3", gotReq.OutputFormat)
}

func TestElevenLabsSynthesizeNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewElevenLabs("bad-key", srv.URL, "", "")
	_, err := p.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestElevenLabsTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("xi-api-key"))
		require.Equal(t, "/speech-to-text", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, defaultElevenLabsSTTMode, r.FormValue("model_id"))
		require.Equal(t, "es", r.FormValue("language"))

		f, _, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		payload, _ := io.ReadAll(f)
		require.Equal(t, []byte("wav-bytes"), payload)

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hola mundo"})
	}))
	defer srv.Close()

	p := NewElevenLabs("test-key", srv.URL, "", "")
	text, conf, err := p.Transcribe(context.Background(), []byte("wav-bytes"), "es")
	require.NoError(t, err)
	require.Equal(t, "hola mundo", text)
	require.Zero(t, conf)
}

func TestElevenLabsTranscribeDefaultsLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "en", r.FormValue("language"))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hi"})
	}))
	defer srv.Close()

	p := NewElevenLabs("test-key", srv.URL, "", "")
	text, _, err := p.Transcribe(context.Background(), []byte("wav-bytes"), "")
	require.NoError(t, err)
	require.Equal(t, "hi", text)
}
