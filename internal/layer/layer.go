// Package layer provides neural network layer implementations.
package layer

import (
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/mpgregression/internal/activations"
)

// Layer is a neural network layer.
type Layer interface {
	Forward(x []float64) []float64
	// Backward propagates grad and adds the parameter gradients of this
	// sample to the layer's accumulators.
	Backward(grad []float64) []float64
	Params() []float64
	SetParams([]float64)
	Gradients() []float64
	ZeroGrad()
	InSize() int
	OutSize() int
}

// Dense is a fully connected layer.
// Uses contiguous memory layout with pre-allocated buffers for minimal allocations.
type Dense struct {
	// Shape: [out * in] where weight for output i, input j is at weights[i*in + j]
	weights []float64
	biases  []float64
	act     activations.Activation
	outSize int
	inSize  int

	inputBuf  []float64
	outputBuf []float64
	preActBuf []float64
	gradWBuf  []float64
	gradBBuf  []float64
	gradInBuf []float64
}

// NewDense creates a dense layer initialised from the global random source.
func NewDense(in, out int, act activations.Activation) *Dense {
	return NewDenseRand(in, out, act, nil)
}

// NewDenseRand creates a dense layer with Glorot-uniform weights drawn from
// rng and zero biases. A nil rng uses the global source.
func NewDenseRand(in, out int, act activations.Activation, rng *rand.Rand) *Dense {
	if act == nil {
		act = activations.Linear{}
	}
	float := rand.Float64
	if rng != nil {
		float = rng.Float64
	}

	weights := make([]float64, out*in)
	limit := math.Sqrt(6.0 / (float64(in) + float64(out)))
	for i := range weights {
		weights[i] = float()*2*limit - limit
	}

	return &Dense{
		weights:   weights,
		biases:    make([]float64, out),
		act:       act,
		outSize:   out,
		inSize:    in,
		inputBuf:  make([]float64, in),
		outputBuf: make([]float64, out),
		preActBuf: make([]float64, out),
		gradWBuf:  make([]float64, out*in),
		gradBBuf:  make([]float64, out),
		gradInBuf: make([]float64, in),
	}
}

// Forward performs a forward pass through the dense layer.
// The returned slice is reused by the next call.
func (d *Dense) Forward(x []float64) []float64 {
	copy(d.inputBuf, x)

	inSize := d.inSize
	for o := 0; o < d.outSize; o++ {
		sum := d.biases[o]
		wBase := o * inSize
		for i := 0; i < inSize; i++ {
			sum += d.weights[wBase+i] * d.inputBuf[i]
		}
		d.preActBuf[o] = sum
		d.outputBuf[o] = d.act.Activate(sum)
	}

	return d.outputBuf
}

// Backward performs backpropagation through the dense layer.
// Weight and bias gradients are accumulated until ZeroGrad is called.
func (d *Dense) Backward(grad []float64) []float64 {
	inSize := d.inSize

	for i := range d.gradInBuf {
		d.gradInBuf[i] = 0
	}

	for o := 0; o < d.outSize; o++ {
		// dL/dz = dL/dy * f'(z)
		dz := grad[o] * d.act.Derivative(d.preActBuf[o])
		d.gradBBuf[o] += dz

		wBase := o * inSize
		for i := 0; i < inSize; i++ {
			d.gradWBuf[wBase+i] += dz * d.inputBuf[i]
			d.gradInBuf[i] += dz * d.weights[wBase+i]
		}
	}

	return d.gradInBuf
}

// ZeroGrad clears the accumulated gradients.
func (d *Dense) ZeroGrad() {
	for i := range d.gradWBuf {
		d.gradWBuf[i] = 0
	}
	for i := range d.gradBBuf {
		d.gradBBuf[i] = 0
	}
}

// Params returns all dense layer parameters flattened (weights then biases).
func (d *Dense) Params() []float64 {
	params := make([]float64, 0, len(d.weights)+len(d.biases))
	params = append(params, d.weights...)
	params = append(params, d.biases...)
	return params
}

// SetParams updates weights and biases from a flattened slice (in-place).
func (d *Dense) SetParams(params []float64) {
	copy(d.weights, params[:len(d.weights)])
	copy(d.biases, params[len(d.weights):])
}

// Gradients returns the accumulated gradients flattened in Params order.
func (d *Dense) Gradients() []float64 {
	gradients := make([]float64, 0, len(d.gradWBuf)+len(d.gradBBuf))
	gradients = append(gradients, d.gradWBuf...)
	gradients = append(gradients, d.gradBBuf...)
	return gradients
}

// SetWeight sets a single weight at (row, col).
func (d *Dense) SetWeight(row, col int, val float64) {
	d.weights[row*d.inSize+col] = val
}

// SetBias sets a single bias.
func (d *Dense) SetBias(idx int, val float64) {
	d.biases[idx] = val
}

// Weight gets a single weight at (row, col).
func (d *Dense) Weight(row, col int) float64 {
	return d.weights[row*d.inSize+col]
}

// Bias gets a single bias.
func (d *Dense) Bias(idx int) float64 {
	return d.biases[idx]
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}
