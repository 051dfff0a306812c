package semantic

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/covereval/cover-eval/internal/pkg/errors"
)

type labelPair struct {
	a, b string
}

// DistanceTable holds the euclidean distance between every ordered pair
// of distinct labels in a Space, plus the corpus-wide average. Fully
// computed at construction; immutable afterwards.
type DistanceTable struct {
	dists   map[labelPair]float64
	average float64
}

// NewDistanceTable computes all pairwise label distances.
func NewDistanceTable(space *Space) (*DistanceTable, error) {
	labels := space.Labels()

	table := &DistanceTable{
		dists: make(map[labelPair]float64, len(labels)*(len(labels)-1)),
	}

	values := make([]float64, 0, len(labels)*(len(labels)-1))
	for _, a := range labels {
		va, err := space.Vector(a)
		if err != nil {
			return nil, err
		}
		for _, b := range labels {
			if a == b {
				continue
			}
			vb, err := space.Vector(b)
			if err != nil {
				return nil, err
			}

			d := floats.Distance(va, vb, 2)
			table.dists[labelPair{a, b}] = d
			values = append(values, d)
		}
	}

	if len(values) > 0 {
		table.average = stat.Mean(values, nil)
	}

	return table, nil
}

// Distance returns the distance between two distinct labels. A pair
// absent from the table means the caller queried a label that was not in
// the corpus the table was built from.
func (t *DistanceTable) Distance(a, b string) (float64, error) {
	d, ok := t.dists[labelPair{a, b}]
	if !ok {
		return 0, errors.NotFoundError(fmt.Sprintf("label pair (%s, %s)", a, b)).
			WithDetail("pos", a).
			WithDetail("neg", b)
	}
	return d, nil
}

// Average returns the mean over all table entries.
func (t *DistanceTable) Average() float64 {
	return t.average
}

// Len returns the number of ordered pairs in the table.
func (t *DistanceTable) Len() int {
	return len(t.dists)
}
