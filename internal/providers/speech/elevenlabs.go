package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultElevenLabsURL     = "https://api.elevenlabs.io/v1"
	defaultElevenLabsVoice   = "Rachel"
	defaultElevenLabsTTSMode = "eleven_multilingual_v2"
	defaultElevenLabsSTTMode = "scribe_v1"
)

// ElevenLabs implements both Synthesizer and Transcriber against the
// ElevenLabs REST API.
type ElevenLabs struct {
	apiKey  string
	apiURL  string
	voiceID string
	modelID string
	client  *http.Client
}

func NewElevenLabs(apiKey, apiURL, voiceID, modelID string) *ElevenLabs {
	if apiURL == "" {
		apiURL = defaultElevenLabsURL
	}
	if voiceID == "" {
		voiceID = defaultElevenLabsVoice
	}
	if modelID == "" {
		modelID = defaultElevenLabsTTSMode
	}
	return &ElevenLabs{
		apiKey:  apiKey,
		apiURL:  apiURL,
		voiceID: voiceID,
		modelID: modelID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *ElevenLabs) Close() error { return nil }

type elevenTTSRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
}

func (p *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(elevenTTSRequest{
		Text:         text,
		ModelID:      p.modelID,
		OutputFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	endpoint := p.apiURL + "/text-to-speech/" + url.PathEscape(p.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs tts: unexpected status %d: %s", resp.StatusCode, msg)
	}

	const maxAudio = 25 << 20
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudio))
	if err != nil {
		return nil, err
	}
	return audio, nil
}

type elevenSTTResponse struct {
	Text string `json:"text"`
}

func (p *ElevenLabs) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return "", 0, err
	}
	if _, err := part.Write(audio); err != nil {
		return "", 0, err
	}
	_ = w.WriteField("model_id", defaultElevenLabsSTTMode)
	_ = w.WriteField("language", language)
	if err := w.Close(); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/speech-to-text", &buf)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, fmt.Errorf("elevenlabs stt: unexpected status %d: %s", resp.StatusCode, msg)
	}

	var out elevenSTTResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("elevenlabs stt: decode response: %w", err)
	}
	// The API does not report a usable per-transcript confidence.
	return out.Text, 0, nil
}
