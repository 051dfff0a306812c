package distance

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// directSquared computes squared distances by pairwise subtraction, as a
// reference for the dot-product identity.
func directSquared(x, y *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	m, _ := y.Dims()

	dist := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			var sum float64
			for k := 0; k < d; k++ {
				diff := x.At(i, k) - y.At(j, k)
				sum += diff * diff
			}
			if sum < Epsilon {
				sum = Epsilon
			}
			dist.Set(i, j, sum)
		}
	}
	return dist
}

func TestSquared(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 4,
		0, 1,
	})

	dist := Squared(x)

	tests := []struct {
		i, j int
		want float64
	}{
		{0, 1, 25}, // (3,4) vs origin
		{0, 2, 1},
		{1, 2, 18}, // 9 + 9
		{0, 0, Epsilon},
	}

	for _, tt := range tests {
		if got := dist.At(tt.i, tt.j); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("dist[%d][%d] = %g, want %g", tt.i, tt.j, got, tt.want)
		}
	}
}

func TestSquaredSymmetry(t *testing.T) {
	x := mat.NewDense(4, 3, []float64{
		0.1, -2.3, 1.7,
		4.2, 0.0, -0.5,
		-1.1, 1.1, 2.2,
		0.9, 0.9, 0.9,
	})

	dist := Squared(x)
	n, _ := dist.Dims()

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.Abs(dist.At(i, j)-dist.At(j, i)) > 1e-9 {
				t.Errorf("dist[%d][%d] = %g != dist[%d][%d] = %g",
					i, j, dist.At(i, j), j, i, dist.At(j, i))
			}
		}
	}
}

func TestSquaredNonNegative(t *testing.T) {
	// Nearly identical rows provoke floating-point cancellation.
	x := mat.NewDense(2, 3, []float64{
		1.0000000001, 2.0000000001, 3.0000000001,
		1.0000000002, 2.0000000002, 3.0000000002,
	})

	dist := Squared(x)
	n, m := dist.Dims()

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if dist.At(i, j) < Epsilon {
				t.Errorf("dist[%d][%d] = %g, below clamp floor %g", i, j, dist.At(i, j), Epsilon)
			}
		}
	}
}

func TestSquaredMatchesDirect(t *testing.T) {
	x := mat.NewDense(5, 4, []float64{
		0.5, -1.2, 3.3, 0.0,
		2.1, 2.1, -2.1, 1.0,
		-0.7, 0.0, 0.9, -3.4,
		1.1, 1.2, 1.3, 1.4,
		0.0, 0.0, 0.0, 0.0,
	})

	identity := Squared(x)
	direct := directSquared(x, x)

	n, m := identity.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if math.Abs(identity.At(i, j)-direct.At(i, j)) > 1e-9 {
				t.Errorf("identity[%d][%d] = %g, direct = %g",
					i, j, identity.At(i, j), direct.At(i, j))
			}
		}
	}
}

func TestSquaredBetween(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 0,
	})
	y := mat.NewDense(3, 2, []float64{
		0, 1,
		1, 1,
		2, 0,
	})

	dist := SquaredBetween(x, y)

	n, m := dist.Dims()
	if n != 2 || m != 3 {
		t.Fatalf("dims = %dx%d, want 2x3", n, m)
	}

	direct := directSquared(x, y)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if math.Abs(dist.At(i, j)-direct.At(i, j)) > 1e-9 {
				t.Errorf("dist[%d][%d] = %g, want %g", i, j, dist.At(i, j), direct.At(i, j))
			}
		}
	}
}

func TestMaskDiagonal(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
	})

	dist := Squared(x)
	if err := MaskDiagonal(dist); err != nil {
		t.Fatalf("MaskDiagonal() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if !math.IsInf(dist.At(i, i), 1) {
			t.Errorf("dist[%d][%d] = %g, want +Inf", i, i, dist.At(i, i))
		}
	}

	// Off-diagonal entries untouched.
	if math.Abs(dist.At(0, 1)-1) > 1e-9 {
		t.Errorf("dist[0][1] = %g, want 1", dist.At(0, 1))
	}
}

func TestMaskDiagonalNonSquare(t *testing.T) {
	dist := mat.NewDense(2, 3, nil)

	if err := MaskDiagonal(dist); err == nil {
		t.Error("MaskDiagonal() should fail for a non-square matrix")
	}
}

func TestNormalize(t *testing.T) {
	dist := mat.NewDense(2, 2, []float64{
		4, 8,
		16, 32,
	})

	if err := Normalize(dist, 4); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := [][]float64{{1, 2}, {4, 8}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if dist.At(i, j) != want[i][j] {
				t.Errorf("dist[%d][%d] = %g, want %g", i, j, dist.At(i, j), want[i][j])
			}
		}
	}
}

func TestNormalizeKeepsInfinity(t *testing.T) {
	dist := mat.NewDense(2, 2, []float64{
		math.Inf(1), 8,
		16, math.Inf(1),
	})

	if err := Normalize(dist, 4); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if !math.IsInf(dist.At(0, 0), 1) {
		t.Error("masked diagonal should stay +Inf after normalization")
	}
	if dist.At(0, 1) != 2 {
		t.Errorf("dist[0][1] = %g, want 2", dist.At(0, 1))
	}
}

func TestNormalizeInvalidSize(t *testing.T) {
	dist := mat.NewDense(1, 1, []float64{1})

	if err := Normalize(dist, 0); err == nil {
		t.Error("Normalize() should reject non-positive embedding size")
	}
}
