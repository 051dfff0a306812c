// Package distance computes pairwise squared-euclidean distance matrices
// over batches of embedding vectors.
package distance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// Epsilon is the lower clamp applied to every matrix entry. Floating
// point cancellation in the dot-product identity can produce small
// negative values; clamping keeps downstream sqrt and division stable.
const Epsilon = 1e-12

// Squared computes the n x n matrix of squared euclidean distances
// between the rows of x, via the identity |a-b|^2 = |a|^2 + |b|^2 - 2ab.
func Squared(x *mat.Dense) *mat.Dense {
	return SquaredBetween(x, x)
}

// SquaredBetween computes the n x m matrix of squared euclidean
// distances between the rows of x and the rows of y.
func SquaredBetween(x, y *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	m, _ := y.Dims()

	xNorm := rowNorms(x)
	yNorm := rowNorms(y)

	// gram = x * y^T
	gram := mat.NewDense(n, m, nil)
	gram.Mul(x, y.T())

	dist := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := xNorm[i] + yNorm[j] - 2*gram.At(i, j)
			if v < Epsilon {
				v = Epsilon
			}
			dist.Set(i, j, v)
		}
	}

	return dist
}

func rowNorms(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		norms[i] = floats.Dot(row, row)
	}
	return norms
}

// MaskDiagonal sets the diagonal of a square distance matrix to +Inf so
// no item ranks as its own nearest neighbor.
func MaskDiagonal(dist *mat.Dense) error {
	n, m := dist.Dims()
	if n != m {
		return errors.ShapeMismatchError(
			fmt.Sprintf("cannot mask diagonal of %dx%d matrix", n, m))
	}

	for i := 0; i < n; i++ {
		dist.Set(i, i, math.Inf(1))
	}
	return nil
}

// Normalize divides every finite entry by the embedding size, matching
// the reference behavior of reporting distances per embedding dimension.
func Normalize(dist *mat.Dense, embeddingSize int) error {
	if embeddingSize <= 0 {
		return errors.ValidationError(
			fmt.Sprintf("invalid embedding size for normalization: %d", embeddingSize))
	}

	n, m := dist.Dims()
	scale := 1 / float64(embeddingSize)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := dist.At(i, j)
			if !math.IsInf(v, 0) {
				dist.Set(i, j, v*scale)
			}
		}
	}
	return nil
}
