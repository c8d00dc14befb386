// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// StepInPlace updates params in place from gradients. group identifies
	// the parameter group (one per layer) so stateful optimizers can keep
	// per-group moments.
	StepInPlace(group int, params, gradients []float64)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(_ int, params, gradients []float64) {
	floats.AddScaled(params, -s.LearningRate, gradients)
}

// Adam optimizer.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	state map[int]*adamState
}

type adamState struct {
	m []float64
	v []float64
	t int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// StepInPlace applies one bias-corrected Adam update to params.
func (a *Adam) StepInPlace(group int, params, gradients []float64) {
	if a.state == nil {
		a.state = make(map[int]*adamState)
	}
	st, ok := a.state[group]
	if !ok || len(st.m) != len(params) {
		st = &adamState{
			m: make([]float64, len(params)),
			v: make([]float64, len(params)),
		}
		a.state[group] = st
	}
	st.t++

	b1, b2 := a.Beta1, a.Beta2
	corr1 := 1 - math.Pow(b1, float64(st.t))
	corr2 := 1 - math.Pow(b2, float64(st.t))

	for i, g := range gradients {
		st.m[i] = b1*st.m[i] + (1-b1)*g
		st.v[i] = b2*st.v[i] + (1-b2)*g*g
		mHat := st.m[i] / corr1
		vHat := st.v[i] / corr2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// Steps returns how many updates group has received.
func (a *Adam) Steps(group int) int {
	if st, ok := a.state[group]; ok {
		return st.t
	}
	return 0
}

// Reset drops all moment estimates.
func (a *Adam) Reset() {
	a.state = nil
}

// Name returns the persisted name of an optimizer.
func Name(o Optimizer) string {
	switch o.(type) {
	case *SGD:
		return "SGD"
	case *Adam:
		return "Adam"
	default:
		return fmt.Sprintf("%T", o)
	}
}

// FromName builds an optimizer from its name, matched case-insensitively,
// and learning rate. Moment state is not persisted.
func FromName(name string, learningRate float64) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "sgd":
		return &SGD{LearningRate: learningRate}, nil
	case "adam":
		return NewAdam(learningRate), nil
	default:
		return nil, fmt.Errorf("unsupported optimizer type: %s", name)
	}
}

// LearningRate reports the learning rate of known optimizers.
func LearningRate(o Optimizer) float64 {
	switch v := o.(type) {
	case *SGD:
		return v.LearningRate
	case *Adam:
		return v.LearningRate
	default:
		return 0
	}
}
