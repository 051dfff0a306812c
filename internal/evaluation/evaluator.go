// Package evaluation orchestrates ranking evaluation of an embedding
// producer against a dataset's ground truth.
package evaluation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/covereval/cover-eval/internal/bus"
	"github.com/covereval/cover-eval/internal/config"
	"github.com/covereval/cover-eval/internal/dataset"
	"github.com/covereval/cover-eval/internal/distance"
	"github.com/covereval/cover-eval/internal/pkg/errors"
	"github.com/covereval/cover-eval/internal/pkg/hash"
	"github.com/covereval/cover-eval/internal/pkg/logger"
	"github.com/covereval/cover-eval/internal/ranking"
)

// Evaluator runs the full evaluation pipeline: embed items, build the
// pairwise distance matrix, and score the ranking against ground truth.
type Evaluator struct {
	producer Producer
	bus      bus.Bus
	log      *logger.Logger
	cfg      config.EvalConfig
}

// ResultPayload is the bus payload for a completed evaluation.
type ResultPayload struct {
	Dataset       string  `json:"dataset"`
	Items         int     `json:"items"`
	K             int     `json:"k"`
	MAP           float64 `json:"map"`
	MRR           float64 `json:"mrr"`
	MR            float64 `json:"mr"`
	Top1          float64 `json:"top1"`
	Top10         float64 `json:"top10"`
	FirstMatchAvg float64 `json:"first_match_avg"`
}

// NewEvaluator creates a new evaluator. The bus is optional; pass nil to
// skip result publication.
func NewEvaluator(producer Producer, b bus.Bus, log *logger.Logger, cfg config.EvalConfig) *Evaluator {
	return &Evaluator{
		producer: producer,
		bus:      b,
		log:      log,
		cfg:      cfg,
	}
}

// Evaluate embeds every item, computes the masked pairwise distance
// matrix, loads the dataset's ground truth, and returns ranking metrics.
func (e *Evaluator) Evaluate(ctx context.Context, datasetName string, items []string) (*ranking.Result, error) {
	if len(items) == 0 {
		return nil, errors.ValidationError("no items to evaluate")
	}

	log := e.log.WithDataset(datasetName)
	log.Info("Evaluating embedding producer", "items", len(items))

	embeddings, err := e.embedAll(ctx, items)
	if err != nil {
		return nil, err
	}

	dist, err := e.distanceMatrix(embeddings)
	if err != nil {
		return nil, err
	}

	ytrue, err := dataset.LoadRelevance(e.cfg.DatasetRoot, datasetName)
	if err != nil {
		return nil, err
	}

	res, err := ranking.Evaluate(dist, ytrue, ranking.Options{
		K:        e.cfg.TopK,
		PerQuery: e.cfg.PerQuery,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Evaluation completed",
		"map", res.MAP,
		"mrr", res.MRR,
		"mr", res.MR,
		"top1", res.Top1,
		"top10", res.Top10,
		"first_match_avg", res.FirstMatchAvg,
		"k", res.K,
	)

	e.publish(ctx, datasetName, len(items), res)

	return res, nil
}

// embedAll fetches all item embeddings with bounded concurrency,
// preserving input order.
func (e *Evaluator) embedAll(ctx context.Context, items []string) ([][]float64, error) {
	embeddings := make([][]float64, len(items))

	g, ctx := errgroup.WithContext(ctx)
	workers := e.cfg.EmbedWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, itemID := range items {
		g.Go(func() error {
			emb, err := e.producer.Embed(ctx, itemID)
			if err != nil {
				return err
			}
			embeddings[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := e.producer.EmbeddingSize()
	for i, emb := range embeddings {
		if len(emb) != size {
			return nil, errors.ShapeMismatchError(
				fmt.Sprintf("item %s: embedding has %d dimensions, producer declares %d",
					items[i], len(emb), size))
		}
	}

	return embeddings, nil
}

// distanceMatrix builds the squared-euclidean matrix over the batch,
// optionally normalized by embedding size, with self-distances masked so
// no item ranks as its own nearest neighbor.
func (e *Evaluator) distanceMatrix(embeddings [][]float64) (*mat.Dense, error) {
	n := len(embeddings)
	d := len(embeddings[0])

	flat := make([]float64, 0, n*d)
	for _, emb := range embeddings {
		flat = append(flat, emb...)
	}
	x := mat.NewDense(n, d, flat)

	dist := distance.Squared(x)

	if e.cfg.NormalizeDist {
		if err := distance.Normalize(dist, d); err != nil {
			return nil, err
		}
	}
	if err := distance.MaskDiagonal(dist); err != nil {
		return nil, err
	}

	return dist, nil
}

func (e *Evaluator) publish(ctx context.Context, datasetName string, items int, res *ranking.Result) {
	if e.bus == nil {
		return
	}

	ts := time.Now().UnixNano()
	event := bus.Event{
		ID:        hash.EventID(bus.TopicEvalCompleted, datasetName, ts),
		Type:      bus.TopicEvalCompleted,
		Source:    "cover-eval",
		Timestamp: ts,
		Payload: ResultPayload{
			Dataset:       datasetName,
			Items:         items,
			K:             res.K,
			MAP:           res.MAP,
			MRR:           res.MRR,
			MR:            res.MR,
			Top1:          res.Top1,
			Top10:         res.Top10,
			FirstMatchAvg: res.FirstMatchAvg,
		},
	}

	if err := e.bus.Publish(ctx, bus.TopicEvalCompleted, event); err != nil {
		e.log.WithError(err).Warn("Failed to publish evaluation result")
	}
}
