package matching

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const (
	fuzzyWeight    = 0.4
	semanticWeight = 0.6

	// DefaultMinConfidence is the acceptance threshold for a match.
	DefaultMinConfidence = 0.8
)

var errNoEmbedder = errors.New("matching: no embedder configured")

// Config controls match acceptance and scoring.
type Config struct {
	MinConfidence float64
	UseSemantic   bool
	// Workers splits the outer loop across goroutines. Zero or one keeps it
	// on the calling goroutine.
	Workers int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{MinConfidence: DefaultMinConfidence, UseSemantic: true}
}

// Matcher finds, for every market of one platform, the best equivalent market
// on the other.
type Matcher struct {
	cfg      Config
	embedder Embedder
	state    SemanticState
	logger   *slog.Logger
}

// NewMatcher negotiates the semantic provider once. When semantic scoring is
// off, the loader is nil, or the loader fails, the matcher is fuzzy-only for
// its whole lifetime.
func NewMatcher(cfg Config, load EmbedderLoader, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Matcher{
		cfg:    cfg,
		state:  SemanticUninitialized,
		logger: logger.With(slog.String("component", "matcher")),
	}

	switch {
	case !cfg.UseSemantic:
		m.state = SemanticDisabled
	case load == nil:
		m.logger.Warn("semantic scoring requested but no embedder configured")
		m.state = SemanticDisabled
	default:
		e, err := load()
		if err != nil {
			m.logger.Warn("failed to load semantic embedder, using fuzzy scoring only",
				slog.String("error", err.Error()),
			)
			m.state = SemanticDisabled
			break
		}
		m.embedder = e
		m.state = SemanticReady
	}

	m.logger.Info("matcher ready",
		slog.Float64("min_confidence", cfg.MinConfidence),
		slog.String("semantic", m.state.String()),
	)
	return m
}

// SemanticState reports whether semantic scoring is in use.
func (m *Matcher) SemanticState() SemanticState {
	return m.state
}

// prepared caches the per-market work shared by every pair the market is in.
type prepared struct {
	market *domain.Market
	norm   string
	date   DateContext
}

func prepare(markets []domain.Market) []prepared {
	out := make([]prepared, len(markets))
	for i := range markets {
		out[i] = prepared{
			market: &markets[i],
			norm:   Normalize(markets[i].Question),
			date:   ExtractDateContext(markets[i].Question),
		}
	}
	return out
}

// MatchMarkets returns at most one match per element of listA, in listA order,
// keeping the candidate from listB with the strictly highest confidence and
// dropping it when below MinConfidence. Elements of listB may be matched by
// several elements of listA. Embeddings are requested in a single batch; if
// that batch fails the run is scored fuzzy-only.
func (m *Matcher) MatchMarkets(ctx context.Context, listA, listB []domain.Market) []domain.MatchResult {
	pa, pb := prepare(listA), prepare(listB)
	vectors := m.encodeAll(ctx, pa, pb)

	slots := make([]*domain.MatchResult, len(pa))
	best := func(i int) {
		var (
			top     domain.MatchResult
			topConf float64
			found   bool
		)
		for j := range pb {
			r, ok := m.score(&pa[i], &pb[j], vectors)
			if ok && r.Confidence > topConf {
				top, topConf, found = r, r.Confidence, true
			}
		}
		if found && top.Confidence >= m.cfg.MinConfidence {
			slots[i] = &top
		}
	}

	if m.cfg.Workers > 1 && len(pa) > 1 {
		var g errgroup.Group
		g.SetLimit(m.cfg.Workers)
		for i := range pa {
			g.Go(func() error {
				best(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range pa {
			best(i)
		}
	}

	matches := make([]domain.MatchResult, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			matches = append(matches, *s)
		}
	}

	m.logger.InfoContext(ctx, "found market matches",
		slog.Int("matches", len(matches)),
		slog.Int("list_a", len(listA)),
		slog.Int("list_b", len(listB)),
		slog.Float64("min_confidence", m.cfg.MinConfidence),
	)
	return matches
}

// CalculateMatch scores a single pair. It returns false when the date veto
// applies. Acceptance against MinConfidence is left to the caller.
func (m *Matcher) CalculateMatch(ctx context.Context, a, b *domain.Market) (domain.MatchResult, bool) {
	pa := prepared{market: a, norm: Normalize(a.Question), date: ExtractDateContext(a.Question)}
	pb := prepared{market: b, norm: Normalize(b.Question), date: ExtractDateContext(b.Question)}

	var vectors map[string][]float32
	if m.state == SemanticReady && pa.norm != pb.norm && !yearsConflict(pa.date, pb.date) {
		vectors = m.encode(ctx, []string{pa.norm, pb.norm})
	}
	return m.score(&pa, &pb, vectors)
}

// score implements the pair decision. vectors is nil when semantic scoring is
// not available for this run.
func (m *Matcher) score(a, b *prepared, vectors map[string][]float32) (domain.MatchResult, bool) {
	if a.norm == b.norm {
		return domain.MatchResult{
			MarketA:    a.market,
			MarketB:    b.market,
			Confidence: 1.0,
			FuzzyScore: 100.0,
		}, true
	}

	if yearsConflict(a.date, b.date) {
		return domain.MatchResult{}, false
	}

	fuzzy := TokenSortRatio(a.norm, b.norm)

	var semantic float64
	if vectors != nil {
		va, okA := vectors[a.norm]
		vb, okB := vectors[b.norm]
		if okA && okB {
			// Orthogonal or opposed vectors carry no evidence either way.
			if c, ok := cosine(va, vb); ok && c > 0 {
				semantic = min(c*100, 100)
			}
		}
	}

	confidence := fuzzy / 100
	if semantic > 0 {
		confidence = (fuzzy*fuzzyWeight + semantic*semanticWeight) / 100
	}

	return domain.MatchResult{
		MarketA:       a.market,
		MarketB:       b.market,
		Confidence:    confidence,
		FuzzyScore:    fuzzy,
		SemanticScore: semantic,
	}, true
}

// encodeAll embeds every distinct normalized question of both lists in one
// call.
func (m *Matcher) encodeAll(ctx context.Context, pa, pb []prepared) map[string][]float32 {
	if m.state != SemanticReady {
		return nil
	}
	seen := make(map[string]bool, len(pa)+len(pb))
	var texts []string
	for _, list := range [][]prepared{pa, pb} {
		for i := range list {
			if t := list[i].norm; !seen[t] {
				seen[t] = true
				texts = append(texts, t)
			}
		}
	}
	return m.encode(ctx, texts)
}

// encode returns nil on any provider failure.
func (m *Matcher) encode(ctx context.Context, texts []string) map[string][]float32 {
	if len(texts) == 0 {
		return nil
	}
	vecs, err := m.embedder.Encode(ctx, texts)
	if err != nil {
		m.logger.WarnContext(ctx, "semantic scoring failed, continuing fuzzy-only",
			slog.Int("texts", len(texts)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(vecs) != len(texts) {
		m.logger.WarnContext(ctx, "embedder returned wrong number of vectors",
			slog.Int("want", len(texts)),
			slog.Int("got", len(vecs)),
		)
		return nil
	}
	out := make(map[string][]float32, len(texts))
	for i, t := range texts {
		out[t] = vecs[i]
	}
	return out
}
