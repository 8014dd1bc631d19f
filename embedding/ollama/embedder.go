package ollama

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/chronicle-ai/chronicle/embedding"
)

type embedder struct {
	client *api.Client
	model  string
}

// NewEmbedder creates an Ollama-backed embedder using the host from the
// environment (OLLAMA_HOST).
func NewEmbedder(model string) (embedding.Embedder, error) {
	cli, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}
	return &embedder{client: cli, model: model}, nil
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for input")
	}
	return resp.Embeddings[0], nil
}
