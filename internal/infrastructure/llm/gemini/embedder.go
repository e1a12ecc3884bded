package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/resilience"
)

// Embedder builds vectors with the fixed embedding model. The model is pinned
// in config rather than resolved dynamically: query vectors must live in the
// same space as the vectors written at indexing time, or nothing matches.
//
// Embedding calls carry their own executor: they retry on the standard
// exponential policy instead of the long fixed backoff generation uses.
type Embedder struct {
	client   *Client
	executor *resilience.Executor
}

func NewEmbedder(client *Client, executor *resilience.Executor) *Embedder {
	return &Embedder{client: client, executor: executor}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var vectors [][]float32
	err := e.executor.Execute(ctx, "gemini.embed", func(ctx context.Context) error {
		if err := e.client.wait(ctx); err != nil {
			return fmt.Errorf("gemini embed: %w", err)
		}
		result, err := e.client.api.Models.EmbedContent(ctx, e.client.embedModel, contents, &genai.EmbedContentConfig{
			TaskType: task,
		})
		if err != nil {
			return fmt.Errorf("gemini embed: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
		}
		vectors = make([][]float32, len(result.Embeddings))
		for i, emb := range result.Embeddings {
			vectors[i] = emb.Values
		}
		return nil
	}, classifyGeminiError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gemini.embed", err)
	}
	return vectors, nil
}
