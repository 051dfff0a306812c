package wordvec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/covereval/cover-eval/internal/pkg/hash"
)

const cacheKeyPrefix = "cover:wv:"

// CachedSource wraps a Source with Redis-backed caching of resolved
// token vectors, so repeated runs over the same label corpus skip the
// vocabulary lookups.
type CachedSource struct {
	source Source
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSource creates a caching decorator around src.
// Returns error if the Redis connection fails.
func NewCachedSource(src Source, url string, ttl time.Duration) (*CachedSource, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &CachedSource{
		source: src,
		client: client,
		ttl:    ttl,
	}, nil
}

// Embed returns token vectors for text, consulting the cache first.
func (c *CachedSource) Embed(text string) ([][]float64, error) {
	ctx := context.Background()
	key := hash.CacheKey(cacheKeyPrefix, text)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var vectors [][]float64
		if err := json.Unmarshal(data, &vectors); err == nil {
			return vectors, nil
		}
		// Corrupt entry: fall through and overwrite it.
	}

	vectors, err := c.source.Embed(text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(vectors)
	if err != nil {
		return nil, fmt.Errorf("encoding cached vectors: %w", err)
	}

	// Cache write failures are not fatal; the computed vectors are valid.
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return vectors, nil
	}

	return vectors, nil
}

// Dim returns the wrapped source's dimensionality.
func (c *CachedSource) Dim() int {
	return c.source.Dim()
}

// Close closes the Redis connection.
func (c *CachedSource) Close() error {
	return c.client.Close()
}
