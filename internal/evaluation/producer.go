package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/time/rate"

	"github.com/covereval/cover-eval/internal/config"
	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// Producer supplies a fixed-length embedding vector for each item. The
// model that computes the embeddings lives outside this repository;
// implementations retrieve or proxy its output.
type Producer interface {
	Embed(ctx context.Context, itemID string) ([]float64, error)
	EmbeddingSize() int
}

// QdrantProducer retrieves pre-indexed item embeddings from a Qdrant
// collection. Lookups are rate-limited to be polite to shared clusters.
type QdrantProducer struct {
	client     *qdrant.Client
	collection string
	size       int
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewQdrantProducer connects to Qdrant with the given settings.
func NewQdrantProducer(cfg config.ProducerConfig) (*QdrantProducer, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "creating qdrant client", err)
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &QdrantProducer{
		client:     client,
		collection: cfg.Collection,
		size:       cfg.EmbeddingSize,
		limiter:    rate.NewLimiter(limit, burst),
		timeout:    30 * time.Second,
	}, nil
}

// Embed fetches the stored embedding for an item.
func (p *QdrantProducer) Embed(ctx context.Context, itemID string) ([]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.CodeTimeout, "waiting for rate limiter", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	points, err := p.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: p.collection,
		Ids:            []*qdrant.PointId{pointID(itemID)},
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable,
			fmt.Sprintf("fetching embedding for item %s", itemID), err)
	}
	if len(points) == 0 {
		return nil, errors.NotFoundError(fmt.Sprintf("embedding for item %s", itemID))
	}

	vector := points[0].GetVectors().GetVector().GetData()
	if len(vector) == 0 {
		return nil, errors.NotFoundError(fmt.Sprintf("vector payload for item %s", itemID))
	}

	embedding := make([]float64, len(vector))
	for i, v := range vector {
		embedding[i] = float64(v)
	}
	return embedding, nil
}

// EmbeddingSize returns the configured embedding dimensionality.
func (p *QdrantProducer) EmbeddingSize() int {
	return p.size
}

// Close closes the underlying client connection.
func (p *QdrantProducer) Close() error {
	return p.client.Close()
}

// pointID maps an item ID onto a Qdrant point ID: numeric IDs become
// numeric points, everything else is treated as a UUID string.
func pointID(itemID string) *qdrant.PointId {
	if n, err := strconv.ParseUint(itemID, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewID(itemID)
}
