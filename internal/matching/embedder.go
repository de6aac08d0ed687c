package matching

import "context"

// Embedder turns texts into vectors. Implementations should accept many
// texts per call; the matcher sends one batch per run.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderLoader builds the embedding provider. The matcher calls it at most
// once, at construction.
type EmbedderLoader func() (Embedder, error)

// SemanticState is the outcome of provider negotiation at construction. A
// zero Matcher, never passed through NewMatcher, stays uninitialized and
// scores fuzzy-only.
type SemanticState int

const (
	SemanticUninitialized SemanticState = iota
	SemanticReady
	SemanticDisabled
)

func (s SemanticState) String() string {
	switch s {
	case SemanticReady:
		return "ready"
	case SemanticDisabled:
		return "disabled"
	default:
		return "uninitialized"
	}
}

// StaticEmbedder returns a loader for an already constructed provider. A nil
// provider yields an error so the matcher runs fuzzy-only.
func StaticEmbedder(e Embedder) EmbedderLoader {
	return func() (Embedder, error) {
		if e == nil {
			return nil, errNoEmbedder
		}
		return e, nil
	}
}
