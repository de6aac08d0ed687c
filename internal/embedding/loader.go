package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

// Options selects and configures the embedding provider.
type Options struct {
	Provider  string // "gemini" or "none"
	APIKey    string
	Model     string
	BatchSize int

	// Cache is optional. When set, vectors are cached for CacheTTL.
	Cache    domain.EmbeddingCache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Loader returns a matching.EmbedderLoader for opts. The provider is only
// constructed when the matcher invokes the loader.
func Loader(ctx context.Context, opts Options) matching.EmbedderLoader {
	return func() (matching.Embedder, error) {
		switch strings.ToLower(opts.Provider) {
		case "gemini":
			g, err := NewGemini(ctx, GeminiConfig{
				APIKey:    opts.APIKey,
				Model:     opts.Model,
				BatchSize: opts.BatchSize,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
			}
			if opts.Cache == nil {
				return g, nil
			}
			return NewCached(g, opts.Cache, g.Model(), opts.CacheTTL, opts.Logger), nil
		case "", "none":
			return nil, fmt.Errorf("%w: provider disabled", domain.ErrEmbeddingUnavailable)
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrEmbeddingUnavailable, opts.Provider)
		}
	}
}
