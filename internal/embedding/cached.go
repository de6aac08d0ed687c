package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

// Cached is a read-through cache in front of another embedder. Cache misses
// go to the inner provider in a single call; cache failures are logged and
// treated as misses.
type Cached struct {
	inner  matching.Embedder
	cache  domain.EmbeddingCache
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with cache. model namespaces the cached vectors.
func NewCached(inner matching.Embedder, cache domain.EmbeddingCache, model string, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cached{
		inner:  inner,
		cache:  cache,
		model:  model,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "embedding_cache")),
	}
}

// Encode implements matching.Embedder.
func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	hits, err := c.cache.GetEmbeddings(ctx, c.model, texts)
	if err != nil {
		c.logger.WarnContext(ctx, "embedding cache read failed", slog.String("error", err.Error()))
		hits = nil
	}

	seen := make(map[string]bool)
	var misses []string
	for _, t := range texts {
		if _, ok := hits[t]; ok || seen[t] {
			continue
		}
		seen[t] = true
		misses = append(misses, t)
	}

	fresh := make(map[string][]float32, len(misses))
	if len(misses) > 0 {
		vecs, err := c.inner.Encode(ctx, misses)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(misses) {
			return nil, fmt.Errorf("embedding: provider returned %d vectors for %d texts", len(vecs), len(misses))
		}
		for i, t := range misses {
			if len(vecs[i]) > 0 {
				fresh[t] = vecs[i]
			}
		}
		if err := c.cache.SetEmbeddings(ctx, c.model, fresh, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "embedding cache write failed", slog.String("error", err.Error()))
		}
	}

	c.logger.DebugContext(ctx, "embeddings resolved",
		slog.Int("texts", len(texts)),
		slog.Int("cache_hits", len(texts)-len(misses)),
		slog.Int("provider_texts", len(misses)),
	)

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := hits[t]; ok {
			out[i] = v
		} else {
			out[i] = fresh[t]
		}
	}
	return out, nil
}
