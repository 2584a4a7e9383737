package preprocess

import (
	"gonum.org/v1/gonum/mat"
)

// StandardizedDataset is the fitting input produced by Prepare. Accessors return copies so
// the dataset cannot be modified once created.
type StandardizedDataset struct {
	ids      []string
	features []string
	x        *mat.Dense
	y        []float64
	time     []float64
	event    []float64
	means    []float64
	scales   []float64
	response string
	outcome  Outcome
}

// Dims returns the number of samples and features
func (s *StandardizedDataset) Dims() (int, int) {
	return s.x.Dims()
}

// IDs returns the sample identifiers in row order
func (s *StandardizedDataset) IDs() []string {
	return copyStrings(s.ids)
}

// Features returns the feature names in column order
func (s *StandardizedDataset) Features() []string {
	return copyStrings(s.features)
}

// X returns the standardized design matrix
func (s *StandardizedDataset) X() *mat.Dense {
	return mat.DenseCopyOf(s.x)
}

// Y returns the transformed response
func (s *StandardizedDataset) Y() []float64 {
	return copyFloats(s.y)
}

// Time returns the survival times or nil for non survival outcomes
func (s *StandardizedDataset) Time() []float64 {
	return copyFloats(s.time)
}

// Event returns the event indicators, 1 for an observed event and 0 for censored, or nil
// for non survival outcomes
func (s *StandardizedDataset) Event() []float64 {
	return copyFloats(s.event)
}

// Means returns the column means removed during standardization
func (s *StandardizedDataset) Means() []float64 {
	return copyFloats(s.means)
}

// Scales returns the column standard deviations used during standardization
func (s *StandardizedDataset) Scales() []float64 {
	return copyFloats(s.scales)
}

// Response is the name of the selected response column
func (s *StandardizedDataset) Response() string {
	return s.response
}

func (s *StandardizedDataset) Outcome() Outcome {
	return s.outcome
}

func copyFloats(x []float64) []float64 {
	if x == nil {
		return nil
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
