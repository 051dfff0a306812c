// Package ranking derives retrieval-quality metrics from a pairwise
// distance matrix and a ground-truth relevance matrix.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// apEpsilon stabilizes the average-precision denominator for queries
// with zero relevant items.
const apEpsilon = 1e-10

// Options control the evaluation.
type Options struct {
	// K is the ranking cutoff. Zero or any value outside [3, N] is
	// replaced by N (the full ranking).
	K int

	// PerQuery additionally reports per-query values alongside the
	// reduced scalars.
	PerQuery bool
}

// Result holds the ranking metrics for one evaluation.
type Result struct {
	// MAP is the mean average precision over queries with at least one
	// relevant item. NaN when no query has a relevant item.
	MAP float64

	// MRR is the mean reciprocal rank of the first relevant item, over
	// all queries.
	MRR float64

	// MR is the mean rank (1-indexed) of the first relevant item, over
	// all queries.
	MR float64

	// Top1 counts queries whose rank-1 item is relevant.
	Top1 float64

	// Top10 counts relevant items found within the first 10 positions,
	// summed over all queries and not capped per query.
	Top10 float64

	// FirstMatchAvg is the mean 0-indexed position over every relevant
	// item found in the rankings. Diagnostic; NaN when nothing is found.
	FirstMatchAvg float64

	// K is the cutoff actually used after clamping.
	K int

	// Queries is the number of evaluated queries.
	Queries int

	// Per-query values, populated only when Options.PerQuery is set.
	// PerQueryAP holds the average precision of each query that has at
	// least one relevant item, in query order. TrueCounts and
	// FoundCounts hold, for every query, the total relevant items and
	// the relevant items found within the cutoff.
	PerQueryAP  []float64
	TrueCounts  []float64
	FoundCounts []float64
}

// Evaluate computes ranking metrics. dist must be a square matrix with
// self-distances pre-set to +Inf (see distance.MaskDiagonal); ytrue must
// be a binary relevance matrix of the same shape. Pure function: calling
// it twice with the same inputs yields identical results.
func Evaluate(dist, ytrue mat.Matrix, opts Options) (*Result, error) {
	n, m := dist.Dims()
	if n != m {
		return nil, errors.ShapeMismatchError(
			fmt.Sprintf("distance matrix must be square, got %dx%d", n, m))
	}
	if tn, tm := ytrue.Dims(); tn != n || tm != m {
		return nil, errors.ShapeMismatchError(
			fmt.Sprintf("relevance matrix is %dx%d, distance matrix is %dx%d", tn, tm, n, m))
	}
	if n == 0 {
		return nil, errors.ValidationError("cannot evaluate an empty batch")
	}

	k := opts.K
	if k < 3 || k > n {
		k = n
	}

	res := &Result{K: k, Queries: n}

	var (
		apValues       []float64
		mrrSum, mrSum  float64
		foundPositions []float64
	)

	order := make([]int, n)
	found := make([]float64, k)

	for i := 0; i < n; i++ {
		// Rank by closeness with a deterministic earliest-index
		// tie-break.
		for j := range order {
			order[j] = j
		}
		row := i
		sort.Slice(order, func(a, b int) bool {
			da, db := dist.At(row, order[a]), dist.At(row, order[b])
			if da != db {
				return da < db
			}
			return order[a] < order[b]
		})

		// Reorder the relevance row according to the ranking.
		for j := 0; j < k; j++ {
			found[j] = ytrue.At(i, order[j])
		}

		var rowTrue float64
		for j := 0; j < n; j++ {
			rowTrue += ytrue.At(i, j)
		}

		// Average precision: precision at each found position, summed,
		// over the query's total relevant count.
		var cum, precSum float64
		for j := 0; j < k; j++ {
			cum += found[j]
			if found[j] > 0 {
				precSum += cum / float64(j+1)
				foundPositions = append(foundPositions, float64(j))
			}
		}
		ap := precSum / (rowTrue + apEpsilon)
		if rowTrue > 0 {
			apValues = append(apValues, ap)
		}

		// Rank of the first relevant item: earliest position holding
		// the row maximum, so an all-zero row deterministically selects
		// rank 1, as the reference does.
		sel := 0
		for j := 1; j < k; j++ {
			if found[j] > found[sel] {
				sel = j
			}
		}
		mrrSum += 1 / float64(sel+1)
		mrSum += float64(sel + 1)

		res.Top1 += found[0]
		for j := 0; j < k && j < 10; j++ {
			res.Top10 += found[j]
		}

		if opts.PerQuery {
			var rowFound float64
			for j := 0; j < k; j++ {
				rowFound += found[j]
			}
			res.TrueCounts = append(res.TrueCounts, rowTrue)
			res.FoundCounts = append(res.FoundCounts, rowFound)
		}
	}

	res.MAP = stat.Mean(apValues, nil)
	res.MRR = mrrSum / float64(n)
	res.MR = mrSum / float64(n)
	res.FirstMatchAvg = stat.Mean(foundPositions, nil)

	if opts.PerQuery {
		res.PerQueryAP = apValues
	}

	return res, nil
}

// String renders the reduced metrics in report form.
func (r *Result) String() string {
	return fmt.Sprintf(
		"mAP: %.3f  MRR: %.3f  MR: %.3f  Top1: %.0f  Top10: %.0f  1sAvg: %.1f",
		r.MAP, r.MRR, r.MR, r.Top1, r.Top10, r.FirstMatchAvg)
}

// IsDefined reports whether the mAP is defined, i.e. at least one query
// had a relevant item.
func (r *Result) IsDefined() bool {
	return !math.IsNaN(r.MAP)
}
