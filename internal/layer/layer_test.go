// Package layer provides unit tests for neural network layers.
package layer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/mpgregression/internal/activations"
)

func TestDenseForward(t *testing.T) {
	// 2 inputs -> 2 outputs with identity weights
	d := NewDense(2, 2, activations.Linear{})
	d.SetWeight(0, 0, 1.0)
	d.SetWeight(0, 1, 0.0)
	d.SetWeight(1, 0, 0.0)
	d.SetWeight(1, 1, 1.0)

	output := d.Forward([]float64{1.0, 2.0})

	if output[0] != 1.0 {
		t.Errorf("output[0] = %v, want 1", output[0])
	}
	if output[1] != 2.0 {
		t.Errorf("output[1] = %v, want 2", output[1])
	}
}

func TestDenseLinearDefault(t *testing.T) {
	d := NewDenseRand(1, 1, nil, rand.New(rand.NewSource(1)))
	d.SetWeight(0, 0, 2)
	d.SetBias(0, 3)

	if got := d.Forward([]float64{4})[0]; got != 11 {
		t.Errorf("Forward(4) = %v, want 11", got)
	}
	if _, ok := d.Activation().(activations.Linear); !ok {
		t.Errorf("nil activation should default to Linear, got %T", d.Activation())
	}
}

// TestDenseBackward checks gradients against the closed form for y = w*x + b.
func TestDenseBackward(t *testing.T) {
	d := NewDense(1, 1, activations.Linear{})
	d.SetWeight(0, 0, 0.5)
	d.SetBias(0, 0.1)

	d.Forward([]float64{2})
	gradIn := d.Backward([]float64{3})

	if gradIn[0] != 1.5 {
		t.Errorf("gradIn = %v, want 1.5", gradIn[0])
	}
	grads := d.Gradients()
	if grads[0] != 6 {
		t.Errorf("dW = %v, want 6", grads[0])
	}
	if grads[1] != 3 {
		t.Errorf("dB = %v, want 3", grads[1])
	}
}

func TestDenseGradientsAccumulate(t *testing.T) {
	d := NewDense(1, 1, activations.Linear{})

	d.Forward([]float64{1})
	d.Backward([]float64{1})
	d.Forward([]float64{2})
	d.Backward([]float64{1})

	grads := d.Gradients()
	if grads[0] != 3 || grads[1] != 2 {
		t.Errorf("accumulated grads = %v, want [3 2]", grads)
	}

	d.ZeroGrad()
	for i, g := range d.Gradients() {
		if g != 0 {
			t.Errorf("grad[%d] = %v after ZeroGrad", i, g)
		}
	}
}

func TestDenseParamsRoundTrip(t *testing.T) {
	d := NewDense(3, 2, activations.Linear{})
	params := d.Params()
	if len(params) != 3*2+2 {
		t.Fatalf("len(params) = %d, want 8", len(params))
	}

	for i := range params {
		params[i] = float64(i)
	}
	d.SetParams(params)

	if d.Weight(1, 2) != 5 {
		t.Errorf("Weight(1,2) = %v, want 5", d.Weight(1, 2))
	}
	if d.Bias(1) != 7 {
		t.Errorf("Bias(1) = %v, want 7", d.Bias(1))
	}
}

func TestDenseGlorotInit(t *testing.T) {
	d := NewDenseRand(4, 3, nil, rand.New(rand.NewSource(7)))
	limit := math.Sqrt(6.0 / 7.0)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if w := d.Weight(r, c); math.Abs(w) > limit {
				t.Errorf("Weight(%d,%d) = %v outside ±%v", r, c, w, limit)
			}
		}
		if d.Bias(r) != 0 {
			t.Errorf("Bias(%d) = %v, want 0", r, d.Bias(r))
		}
	}

	same := NewDenseRand(4, 3, nil, rand.New(rand.NewSource(7)))
	for i, p := range d.Params() {
		if same.Params()[i] != p {
			t.Fatal("same seed should give same weights")
		}
	}
}
