package embedding

import "context"

type Provider interface {
	// Embed returns the semantic embedding of text. The vector dimension is
	// fixed per deployment and must match the long-term store's column.
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}
