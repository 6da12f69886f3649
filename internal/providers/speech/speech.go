package speech

import "context"

type Synthesizer interface {
	// Synthesize renders text to audio and returns the raw bytes.
	Synthesize(ctx context.Context, text string) (audio []byte, err error)
	Close() error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
