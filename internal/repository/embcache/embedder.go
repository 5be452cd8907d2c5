package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/interest"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/vector"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the cached JSON document. The embedding travels as base64 of the
// packed little-endian float32 layout.
type entry struct {
	Vector2D     any      `json:"vector_2d"`
	EmbeddingB64 string   `json:"embedding_b64,omitempty"`
	Concepts     []string `json:"concepts,omitempty"`
}

// CachedEmbedder caches embedding results in a key-value store, keyed by the
// normalized term.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
// ttl <= 0 stores entries without expiry.
func New(
	inner domain.Embedder,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached result or calls the inner embedder.
// Cache errors never fail the call.
func (c *CachedEmbedder) Embed(ctx context.Context, req domain.EmbedRequest) (domain.EmbeddingResult, error) {
	key := cacheKey(req.Term)

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, req)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed term: %w", err)
	}

	c.putToCache(ctx, key, result)
	return result, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(term string) string {
	h := sha256.Sum256([]byte(interest.Normalize(term)))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) (domain.EmbeddingResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return domain.EmbeddingResult{}, false
	}
	if len(data) == 0 {
		return domain.EmbeddingResult{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return domain.EmbeddingResult{}, false
	}
	if _, err := job.CoerceVector2D(e.Vector2D); err != nil {
		c.logger.Warn("Ignoring cached embedding with invalid vector_2d", zap.String("key", key), zap.Error(err))
		return domain.EmbeddingResult{}, false
	}
	emb, err := vector.DecodeBase64(e.EmbeddingB64)
	if err != nil {
		c.logger.Warn("Failed to decode cached embedding", zap.String("key", key), zap.Error(err))
		return domain.EmbeddingResult{}, false
	}

	return domain.EmbeddingResult{Vector2D: e.Vector2D, Embedding: emb, Concepts: e.Concepts}, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, res domain.EmbeddingResult) {
	// A result the worker would reject must not mask a retry.
	if _, err := job.CoerceVector2D(res.Vector2D); err != nil {
		return
	}
	data, err := json.Marshal(entry{
		Vector2D:     res.Vector2D,
		EmbeddingB64: vector.EncodeBase64(res.Embedding),
		Concepts:     res.Concepts,
	})
	if err != nil {
		c.logger.Warn("Failed to encode embedding for cache", zap.String("key", key), zap.Error(err))
		return
	}

	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}
