// Package semantic derives inter-class distances from lexical word
// vectors and turns them into per-triplet training margins.
package semantic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/covereval/cover-eval/internal/pkg/errors"
	"github.com/covereval/cover-eval/internal/wordvec"
)

// Space maps each class label to a representative vector: the
// component-wise mean of the word vectors of the label's description.
// Built once per corpus; read-only afterwards.
type Space struct {
	vectors map[string][]float64
	labels  []string // distinct labels in first-occurrence order
	dim     int
}

// BuildSpace computes a label vector for every distinct label in groups.
// Duplicates are skipped; the first occurrence wins. descriptionsPath, if
// nonempty, must name an existing .json file mapping label to description
// text; labels without an entry fall back to their own text.
func BuildSpace(src wordvec.Source, groups [][]string, descriptionsPath string) (*Space, error) {
	descriptions, err := loadDescriptions(descriptionsPath)
	if err != nil {
		return nil, err
	}

	space := &Space{
		vectors: make(map[string][]float64),
		dim:     src.Dim(),
	}

	for _, group := range groups {
		for _, label := range group {
			if _, ok := space.vectors[label]; ok {
				continue
			}

			text := label
			if desc, ok := descriptions[label]; ok {
				text = desc
			}

			vectors, err := src.Embed(text)
			if err != nil {
				return nil, errors.Wrap(errors.CodeInternal,
					fmt.Sprintf("embedding description for label %q", label), err)
			}
			if len(vectors) == 0 {
				// Averaging zero vectors would make the label vector NaN
				// and poison every downstream distance.
				return nil, errors.DegenerateInputError(
					fmt.Sprintf("description for label %q produced no tokens", label)).
					WithDetail("text", text)
			}

			space.vectors[label] = meanVector(vectors)
			space.labels = append(space.labels, label)
		}
	}

	return space, nil
}

// loadDescriptions reads the optional label-to-description lookup. An
// empty path is the legal "no descriptions" mode.
func loadDescriptions(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if !strings.HasSuffix(path, ".json") {
		return nil, errors.ConfigurationError(
			fmt.Sprintf("descriptions file must be .json, got %s", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "reading descriptions file", err)
	}

	descriptions := make(map[string]string)
	if err := json.Unmarshal(data, &descriptions); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "parsing descriptions file", err)
	}

	return descriptions, nil
}

func meanVector(vectors [][]float64) []float64 {
	mean := make([]float64, len(vectors[0]))
	for _, vec := range vectors {
		floats.Add(mean, vec)
	}
	floats.Scale(1/float64(len(vectors)), mean)
	return mean
}

// Vector returns the vector for a label.
func (s *Space) Vector(label string) ([]float64, error) {
	vec, ok := s.vectors[label]
	if !ok {
		return nil, errors.NotFoundError(fmt.Sprintf("label vector for %q", label))
	}
	return vec, nil
}

// Labels returns the distinct labels in first-occurrence order.
func (s *Space) Labels() []string {
	return s.labels
}

// Dim returns the label vector dimensionality.
func (s *Space) Dim() int {
	return s.dim
}
