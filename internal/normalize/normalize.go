// Package normalize turns car records into min-max scaled training columns.
package normalize

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/mpgregression/internal/cars"
	"github.com/FlavioCFOliveira/mpgregression/internal/tensor"
)

// ErrEmpty is returned when there is nothing to normalize.
var ErrEmpty = errors.New("normalize: no records")

// Bounds are the extrema used to scale inputs (horsepower) and labels (mpg).
type Bounds struct {
	InputMin float64
	InputMax float64
	LabelMin float64
	LabelMax float64
}

// Tensors holds the scaled inputs and labels as index-aligned N×1 columns.
type Tensors struct {
	Inputs *mat.Dense
	Labels *mat.Dense
}

// Len returns the number of samples.
func (t Tensors) Len() int {
	if t.Inputs == nil {
		return 0
	}
	r, _ := t.Inputs.Dims()
	return r
}

// Rows returns inputs and labels as one-element rows, the layout Fit expects.
func (t Tensors) Rows() (x, y [][]float64) {
	n := t.Len()
	x = make([][]float64, n)
	y = make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{t.Inputs.At(i, 0)}
		y[i] = []float64{t.Labels.At(i, 0)}
	}
	return x, y
}

// Scale maps x into [0,1] relative to min and max. max == min yields a
// non-finite result.
func Scale(x, min, max float64) float64 {
	return (x - min) / (max - min)
}

// Invert undoes Scale.
func Invert(x, min, max float64) float64 {
	return x*(max-min) + min
}

// InvertInput maps a scaled horsepower value back to the original range.
func (b Bounds) InvertInput(x float64) float64 {
	return Invert(x, b.InputMin, b.InputMax)
}

// InvertLabel maps a scaled mpg value back to the original range.
func (b Bounds) InvertLabel(y float64) float64 {
	return Invert(y, b.LabelMin, b.LabelMax)
}

// Shuffle reorders records in place. A nil rng uses the global source.
func Shuffle(records []cars.Record, rng *rand.Rand) {
	swap := func(i, j int) {
		records[i], records[j] = records[j], records[i]
	}
	if rng == nil {
		rand.Shuffle(len(records), swap)
		return
	}
	rng.Shuffle(len(records), swap)
}

// Normalize shuffles records in place, then min-max scales horsepower
// (inputs) and mpg (labels) into [0,1]. The returned bounds are what
// Invert needs to map model outputs back.
func Normalize(records []cars.Record, rng *rand.Rand) (Tensors, Bounds, error) {
	if len(records) == 0 {
		return Tensors{}, Bounds{}, ErrEmpty
	}

	Shuffle(records, rng)

	var (
		out    Tensors
		bounds Bounds
	)
	err := tensor.Tidy(func(s *tensor.Scope) error {
		inputs := s.Alloc(len(records))
		labels := s.Alloc(len(records))
		for i, r := range records {
			inputs[i] = r.Horsepower
			labels[i] = r.MPG
		}

		bounds = Bounds{
			InputMin: floats.Min(inputs),
			InputMax: floats.Max(inputs),
			LabelMin: floats.Min(labels),
			LabelMax: floats.Max(labels),
		}

		in := s.Column(inputs)
		in.Apply(func(_, _ int, v float64) float64 {
			return Scale(v, bounds.InputMin, bounds.InputMax)
		}, in)
		lb := s.Column(labels)
		lb.Apply(func(_, _ int, v float64) float64 {
			return Scale(v, bounds.LabelMin, bounds.LabelMax)
		}, lb)

		out = Tensors{Inputs: s.Keep(in), Labels: s.Keep(lb)}
		return nil
	})
	return out, bounds, err
}
