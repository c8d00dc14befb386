// Package activations provides activation functions for dense layers.
package activations

import "fmt"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) given the pre-activation x
	Derivative(x float64) float64
}

// Linear is the identity activation. Dense layers without an explicit
// activation use it.
type Linear struct{}

// Activate returns x unchanged.
func (Linear) Activate(x float64) float64 { return x }

// Derivative is always 1.
func (Linear) Derivative(float64) float64 { return 1 }

// Name returns the persisted name of an activation.
func Name(act Activation) string {
	if _, ok := act.(Linear); ok {
		return "Linear"
	}
	return fmt.Sprintf("%T", act)
}

// FromName is the inverse of Name. An empty name means Linear.
func FromName(name string) (Activation, error) {
	switch name {
	case "", "Linear":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
}
