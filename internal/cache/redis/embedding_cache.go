package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EmbeddingCache implements domain.EmbeddingCache. Vectors are stored as
// little-endian float32 bytes.
//
// Key schema:
//
//	emb:{model}:{sha256(text)} - packed []float32
type EmbeddingCache struct {
	rdb *redis.Client
}

// NewEmbeddingCache creates an EmbeddingCache backed by the given Client.
func NewEmbeddingCache(c *Client) *EmbeddingCache {
	return &EmbeddingCache{rdb: c.Underlying()}
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// GetEmbeddings fetches all texts in one MGET. Misses and undecodable values
// are left out of the result.
func (ec *EmbeddingCache) GetEmbeddings(ctx context.Context, model string, texts []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = embeddingKey(model, t)
	}

	vals, err := ec.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get embeddings: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if vec, ok := unpackVector([]byte(s)); ok {
			out[texts[i]] = vec
		}
	}
	return out, nil
}

// SetEmbeddings stores vectors in one transaction pipeline.
func (ec *EmbeddingCache) SetEmbeddings(ctx context.Context, model string, vectors map[string][]float32, ttl time.Duration) error {
	if len(vectors) == 0 {
		return nil
	}
	pipe := ec.rdb.TxPipeline()
	for text, vec := range vectors {
		pipe.Set(ctx, embeddingKey(model, text), packVector(vec), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set embeddings: %w", err)
	}
	return nil
}

func packVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func unpackVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, true
}

// Compile-time interface check.
var _ domain.EmbeddingCache = (*EmbeddingCache)(nil)
