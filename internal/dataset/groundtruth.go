// Package dataset loads externally persisted evaluation artifacts.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// relevanceSuffix names the persisted ground-truth matrix for a dataset.
const relevanceSuffix = "_val_ytrue.json"

// LoadRelevance reads the ground-truth relevance matrix for a dataset
// from root. The file holds a square matrix of 0/1 cells (booleans or
// numbers); every cell is coerced to float64 before use.
func LoadRelevance(root, datasetName string) (*mat.Dense, error) {
	path := filepath.Join(root, datasetName+relevanceSuffix)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration,
			fmt.Sprintf("reading ground truth for dataset %s", datasetName), err)
	}

	// Cells may be serialized as bools or numbers; both coerce.
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration,
			fmt.Sprintf("parsing ground truth for dataset %s", datasetName), err)
	}

	n := len(raw)
	if n == 0 {
		return nil, errors.ConfigurationError(
			fmt.Sprintf("ground truth for dataset %s is empty", datasetName))
	}

	ytrue := mat.NewDense(n, n, nil)
	for i, row := range raw {
		if len(row) != n {
			return nil, errors.ShapeMismatchError(
				fmt.Sprintf("ground truth row %d has %d cells, want %d", i, len(row), n))
		}
		for j, cell := range row {
			v, err := coerceFloat(cell)
			if err != nil {
				return nil, errors.Wrap(errors.CodeConfiguration,
					fmt.Sprintf("ground truth cell (%d, %d)", i, j), err)
			}
			ytrue.Set(i, j, v)
		}
	}

	return ytrue, nil
}

func coerceFloat(cell any) (float64, error) {
	switch v := cell.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported cell type %T", cell)
	}
}
