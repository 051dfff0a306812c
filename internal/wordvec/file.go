package wordvec

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/covereval/cover-eval/internal/pkg/errors"
)

// FileSource serves word vectors from a text-format embedding file
// (word2vec/GloVe style: one "word v1 v2 ... vD" entry per line, with an
// optional "count dim" header line). The whole vocabulary is loaded into
// memory at construction time.
type FileSource struct {
	vectors map[string][]float64
	dim     int
}

// NewFileSource loads a vectors file and validates it against the
// expected dimension. dim <= 0 accepts whatever dimension the file has.
func NewFileSource(path string, dim int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "opening vectors file", err)
	}
	defer f.Close()

	src := &FileSource{
		vectors: make(map[string][]float64),
		dim:     dim,
	}

	scanner := bufio.NewScanner(f)
	// Embedding lines for D=300 exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		// Optional word2vec header: "<vocab size> <dimension>".
		if lineNo == 1 && len(fields) == 2 {
			if d, err := strconv.Atoi(fields[1]); err == nil {
				if src.dim <= 0 {
					src.dim = d
				} else if d != src.dim {
					return nil, errors.ConfigurationError(
						fmt.Sprintf("vectors file reports dimension %d, expected %d", d, src.dim))
				}
				continue
			}
		}

		word := fields[0]
		values := fields[1:]

		if src.dim <= 0 {
			src.dim = len(values)
		}
		if len(values) != src.dim {
			return nil, errors.ConfigurationError(
				fmt.Sprintf("line %d: vector for %q has %d values, expected %d",
					lineNo, word, len(values), src.dim))
		}

		vec := make([]float64, len(values))
		for i, v := range values {
			vec[i], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrap(errors.CodeConfiguration,
					fmt.Sprintf("line %d: parsing vector for %q", lineNo, word), err)
			}
		}

		src.vectors[word] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "reading vectors file", err)
	}

	if len(src.vectors) == 0 {
		return nil, errors.ConfigurationError("vectors file contains no entries")
	}

	return src, nil
}

// Embed returns the vectors of all in-vocabulary tokens of text.
func (s *FileSource) Embed(text string) ([][]float64, error) {
	tokens := Tokenize(text)

	vectors := make([][]float64, 0, len(tokens))
	for _, tok := range tokens {
		if vec, ok := s.vectors[tok]; ok {
			vectors = append(vectors, vec)
		}
	}

	return vectors, nil
}

// Dim returns the vector dimensionality.
func (s *FileSource) Dim() int {
	return s.dim
}

// VocabSize returns the number of loaded words.
func (s *FileSource) VocabSize() int {
	return len(s.vectors)
}
