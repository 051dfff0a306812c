package semantic

import (
	"fmt"

	"github.com/covereval/cover-eval/internal/config"
	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// semanticScale divides the raw label distance in the continuous policy.
// Empirical calibration constant, not a principled formula.
const semanticScale = 4.0

// MarginAdapter converts (positive, negative) training pairs into
// per-triplet margins for a triplet-margin loss, using the semantic
// distance between the pair's class labels.
type MarginAdapter struct {
	table      *DistanceTable
	baseMargin float64
	policy     string
}

// NewMarginAdapter creates a margin adapter over a precomputed distance
// table. policy selects one of the two strategies:
//   - binary: baseMargin+1 when the pair's labels are farther apart than
//     the corpus average, baseMargin-1 otherwise.
//   - continuous: margin proportional to the pair's semantic distance.
func NewMarginAdapter(table *DistanceTable, baseMargin float64, policy string) (*MarginAdapter, error) {
	switch policy {
	case config.PolicyBinary, config.PolicyContinuous:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown margin policy: %s", policy))
	}

	return &MarginAdapter{
		table:      table,
		baseMargin: baseMargin,
		policy:     policy,
	}, nil
}

// Adapt returns one margin per (selPos[i], selNeg[i]) pair, in input
// order. labels holds the class label of every item in the batch,
// indexable by position; selPos and selNeg are parallel index sequences.
func (m *MarginAdapter) Adapt(labels []string, selPos, selNeg []int) ([]float64, error) {
	if len(selPos) != len(selNeg) {
		return nil, errors.ShapeMismatchError(
			fmt.Sprintf("positive and negative selections differ in length: %d vs %d",
				len(selPos), len(selNeg)))
	}

	margins := make([]float64, len(selPos))
	for i := range selPos {
		pos, neg := selPos[i], selNeg[i]
		if pos < 0 || pos >= len(labels) || neg < 0 || neg >= len(labels) {
			return nil, errors.ValidationError(
				fmt.Sprintf("selection (%d, %d) out of range for batch of %d labels",
					pos, neg, len(labels)))
		}

		dist, err := m.table.Distance(labels[pos], labels[neg])
		if err != nil {
			return nil, err
		}

		switch m.policy {
		case config.PolicyBinary:
			if dist > m.table.Average() {
				margins[i] = m.baseMargin + 1
			} else {
				margins[i] = m.baseMargin - 1
			}
		case config.PolicyContinuous:
			margins[i] = m.baseMargin + (dist/semanticScale - m.baseMargin)
		}
	}

	return margins, nil
}

// BaseMargin returns the configured base margin.
func (m *MarginAdapter) BaseMargin() float64 {
	return m.baseMargin
}

// Policy returns the selected policy name.
func (m *MarginAdapter) Policy() string {
	return m.policy
}
