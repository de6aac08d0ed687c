// Package embedding provides the semantic embedding providers the matcher
// scores question similarity with.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the Gemini embedding model used when none is configured.
	DefaultModel = "text-embedding-004"

	// DefaultBatchSize is the most texts Gemini accepts per batch request.
	DefaultBatchSize = 100

	taskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// GeminiConfig configures the Gemini embedding provider.
type GeminiConfig struct {
	APIKey    string
	Model     string
	BatchSize int
}

// Gemini embeds texts with the Gemini API.
type Gemini struct {
	model string
	batch int
	embed func(ctx context.Context, texts []string) ([][]float32, error)
}

// NewGemini creates a Gemini provider. It does not call the API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > DefaultBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create gemini client: %w", err)
	}

	g := &Gemini{model: cfg.Model, batch: cfg.BatchSize}
	g.embed = func(ctx context.Context, texts []string) ([][]float32, error) {
		return embedContent(ctx, client, g.model, texts)
	}
	return g, nil
}

// Model returns the embedding model name.
func (g *Gemini) Model() string { return g.model }

// Encode returns one vector per text, in order. Empty texts are not sent and
// come back as nil vectors, which the matcher treats as unscorable.
func (g *Gemini) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		pending []string
		slots   []int
	)
	for i, t := range texts {
		if t == "" {
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}

	for start := 0; start < len(pending); start += g.batch {
		end := min(start+g.batch, len(pending))
		vecs, err := g.embed(ctx, pending[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: gemini batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding: gemini returned %d vectors for %d texts", len(vecs), end-start)
		}
		for j, v := range vecs {
			out[slots[start+j]] = v
		}
	}
	return out, nil
}

func embedContent(ctx context.Context, client *genai.Client, model string, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		TaskType: taskSemanticSimilarity,
	})
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e != nil {
			vecs[i] = e.Values
		}
	}
	return vecs, nil
}
