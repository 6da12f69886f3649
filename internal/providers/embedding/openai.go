package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embeds text with the OpenAI embeddings API. text-embedding-3-small
// matches the store's 1536-dimension default.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

func NewOpenAI(apiKey, model string, dims int) *OpenAI {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		dims:   dims,
	}
}

func (p *OpenAI) Close() error { return nil }

func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding: empty response")
	}

	vec := resp.Data[0].Embedding
	if p.dims > 0 && len(vec) != p.dims {
		return nil, fmt.Errorf("embedding: model returned %d dimensions, store expects %d", len(vec), p.dims)
	}
	return vec, nil
}
