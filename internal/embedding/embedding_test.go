package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

type fakeCache struct {
	store   map[string][]float32
	getErr  error
	setErr  error
	setTTL  time.Duration
	lastSet map[string][]float32
}

func (f *fakeCache) GetEmbeddings(_ context.Context, model string, texts []string) (map[string][]float32, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string][]float32)
	for _, t := range texts {
		if v, ok := f.store[model+"|"+t]; ok {
			out[t] = v
		}
	}
	return out, nil
}

func (f *fakeCache) SetEmbeddings(_ context.Context, model string, vectors map[string][]float32, ttl time.Duration) error {
	f.lastSet, f.setTTL = vectors, ttl
	if f.setErr != nil {
		return f.setErr
	}
	for t, v := range vectors {
		f.store[model+"|"+t] = v
	}
	return nil
}

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (c *countingEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachedOnlyEncodesMisses(t *testing.T) {
	cache := &fakeCache{store: map[string][]float32{"m|cached": {9, 9}}}
	inner := &countingEmbedder{}
	c := NewCached(inner, cache, "m", time.Hour, nil)

	vecs, err := c.Encode(context.Background(), []string{"cached", "fresh", "fresh", "other"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("inner calls = %d, want 1", len(inner.calls))
	}
	if got := inner.calls[0]; len(got) != 2 || got[0] != "fresh" || got[1] != "other" {
		t.Errorf("inner texts = %v, want [fresh other]", got)
	}
	if vecs[0][0] != 9 || vecs[1][0] != 5 || vecs[2][0] != 5 || vecs[3][0] != 5 {
		t.Errorf("vectors = %v", vecs)
	}
	if cache.setTTL != time.Hour || len(cache.lastSet) != 2 {
		t.Errorf("cache write = %v (ttl %v)", cache.lastSet, cache.setTTL)
	}

	// Second call is served entirely from cache.
	if _, err := c.Encode(context.Background(), []string{"fresh", "other"}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Errorf("expected no further provider calls, got %d", len(inner.calls))
	}
}

func TestCachedSurvivesCacheFailures(t *testing.T) {
	cache := &fakeCache{store: map[string][]float32{}, getErr: errors.New("down"), setErr: errors.New("down")}
	inner := &countingEmbedder{}
	c := NewCached(inner, cache, "m", time.Minute, nil)

	vecs, err := c.Encode(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 2 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestCachedPropagatesProviderError(t *testing.T) {
	boom := errors.New("quota")
	c := NewCached(&countingEmbedder{err: boom}, &fakeCache{store: map[string][]float32{}}, "m", time.Minute, nil)
	if _, err := c.Encode(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want quota error", err)
	}
}

func TestGeminiEncodeBatchesAndSkipsEmpty(t *testing.T) {
	var batches [][]string
	g := &Gemini{model: DefaultModel, batch: 2}
	g.embed = func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, append([]string(nil), texts...))
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = []float32{float32(len(t))}
		}
		return out, nil
	}

	vecs, err := g.Encode(context.Background(), []string{"a", "", "ccc", "dd", "eeeee"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(batches) != 2 || len(batches[0]) != 2 || len(batches[1]) != 2 {
		t.Fatalf("batches = %v", batches)
	}
	if vecs[1] != nil {
		t.Errorf("empty text should map to a nil vector, got %v", vecs[1])
	}
	want := []float32{1, 0, 3, 2, 5}
	for i, w := range want {
		if i == 1 {
			continue
		}
		if vecs[i][0] != w {
			t.Errorf("vecs[%d] = %v, want %v", i, vecs[i], w)
		}
	}
}

func TestGeminiEncodeRejectsShortResponse(t *testing.T) {
	g := &Gemini{model: DefaultModel, batch: 10}
	g.embed = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	if _, err := g.Encode(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for vector count mismatch")
	}
}

func TestLoaderDisabledProviders(t *testing.T) {
	for _, p := range []string{"none", "", "openai"} {
		_, err := Loader(context.Background(), Options{Provider: p})()
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			t.Errorf("provider %q: err = %v, want ErrEmbeddingUnavailable", p, err)
		}
	}
}

func TestLoaderGeminiRequiresKey(t *testing.T) {
	_, err := Loader(context.Background(), Options{Provider: "gemini"})()
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}
