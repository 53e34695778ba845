package commerce

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"
)

// GenaiEmbedder adapts the Gemini embedding endpoint to eino's Embedder.
type GenaiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGenaiEmbedder(client *genai.Client, model string) *GenaiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GenaiEmbedder{client: client, model: model}
}

func (e *GenaiEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	out := make([][]float64, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vec := make([]float64, len(emb.Values))
		for i, v := range emb.Values {
			vec[i] = float64(v)
		}
		out = append(out, vec)
	}
	return out, nil
}

var _ embedding.Embedder = (*GenaiEmbedder)(nil)
