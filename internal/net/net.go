// Package net provides core neural network types.
package net

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/mpgregression/internal/activations"
	"github.com/FlavioCFOliveira/mpgregression/internal/layer"
	"github.com/FlavioCFOliveira/mpgregression/internal/loss"
	"github.com/FlavioCFOliveira/mpgregression/internal/opt"
)

// ErrNotCompiled is returned when training is requested before a loss and
// optimizer were configured.
var ErrNotCompiled = errors.New("net: model is not compiled")

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	opt    opt.Optimizer

	// Pre-allocated gradient buffer for training
	lossGradBuf []float64
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, lossFn loss.Loss, optimizer opt.Optimizer) *Network {
	return &Network{
		layers: layers,
		loss:   lossFn,
		opt:    optimizer,
	}
}

// Forward performs a forward pass through all layers.
// The returned slice belongs to the last layer and is reused by the next call.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for i := range n.layers {
		curr = n.layers[i].Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// ZeroGrad clears accumulated gradients on every layer.
func (n *Network) ZeroGrad() {
	for _, l := range n.layers {
		l.ZeroGrad()
	}
}

// Step applies one optimizer update per layer using the accumulated
// gradients averaged over batchSize samples.
func (n *Network) Step(batchSize int) {
	scale := 1 / float64(batchSize)
	for i, l := range n.layers {
		params := l.Params()
		gradients := l.Gradients()
		floats.Scale(scale, gradients)
		n.opt.StepInPlace(i, params, gradients)
		l.SetParams(params)
	}
}

// Train performs a training step on a single sample.
func (n *Network) Train(x []float64, y []float64) float64 {
	return n.TrainBatch([][]float64{x}, [][]float64{y})
}

// TrainBatch performs one optimizer step on a batch of samples.
// Gradients are accumulated and averaged over the batch. Returns the mean
// loss over the batch.
func (n *Network) TrainBatch(batchX [][]float64, batchY [][]float64) float64 {
	return n.trainBatch(batchX, batchY).Loss
}

type batchResult struct {
	Loss float64
	MSE  float64
}

func (n *Network) trainBatch(batchX [][]float64, batchY [][]float64) batchResult {
	batchSize := len(batchX)
	if batchSize == 0 {
		return batchResult{}
	}

	n.ZeroGrad()

	var totalLoss, totalMSE float64
	for i := 0; i < batchSize; i++ {
		yPred := n.Forward(batchX[i])
		totalLoss += n.loss.Forward(yPred, batchY[i])
		totalMSE += loss.MSE{}.Forward(yPred, batchY[i])

		yPredLen := len(yPred)
		if cap(n.lossGradBuf) < yPredLen {
			n.lossGradBuf = make([]float64, yPredLen)
		}
		grad := n.lossGradBuf[:yPredLen]

		if backwardInPlace, ok := n.loss.(loss.BackwardInPlacer); ok {
			backwardInPlace.BackwardInPlace(yPred, batchY[i], grad)
		} else {
			grad = n.loss.Backward(yPred, batchY[i])
		}

		n.Backward(grad)
	}

	n.Step(batchSize)

	return batchResult{
		Loss: totalLoss / float64(batchSize),
		MSE:  totalMSE / float64(batchSize),
	}
}

// Params returns all network parameters flattened (copy).
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Gradients returns all network gradients flattened (copy).
func (n *Network) Gradients() []float64 {
	var gradients []float64
	for _, l := range n.layers {
		gradients = append(gradients, l.Gradients()...)
	}
	return gradients
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Loss returns the configured loss function.
func (n *Network) Loss() loss.Loss {
	return n.loss
}

// Optimizer returns the configured optimizer.
func (n *Network) Optimizer() opt.Optimizer {
	return n.opt
}

// Save saves the network to a file using gob encoding.
// Optimizer moments are not saved.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := n.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load loads a network from a file written by Save.
func Load(filename string) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Encode writes the network to an io.Writer using gob encoding.
func (n *Network) Encode(w io.Writer) error {
	return n.EncodeTo(gob.NewEncoder(w))
}

// Decode reads a network written by Encode.
func Decode(r io.Reader) (*Network, error) {
	return DecodeFrom(gob.NewDecoder(r))
}

// header precedes the parameter block in the gob stream.
type header struct {
	Loss         string
	Optimizer    string
	LearningRate float64
	Layers       []LayerConfig
}

// EncodeTo writes the network to an existing gob stream so callers can
// append their own values after it.
func (n *Network) EncodeTo(enc *gob.Encoder) error {
	h := header{
		Loss:         loss.Name(n.loss),
		Optimizer:    opt.Name(n.opt),
		LearningRate: opt.LearningRate(n.opt),
	}
	for _, l := range n.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return err
		}
		h.Layers = append(h.Layers, cfg)
	}

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if err := enc.Encode(n.Params()); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return nil
}

// DecodeFrom reads a network from an existing gob stream.
func DecodeFrom(dec *gob.Decoder) (*Network, error) {
	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var params []float64
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	layers := make([]layer.Layer, 0, len(h.Layers))
	offset := 0
	for i, cfg := range h.Layers {
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		numParams := len(l.Params())
		if offset+numParams > len(params) {
			return nil, fmt.Errorf("layer %d: parameter block too short", i)
		}
		l.SetParams(params[offset : offset+numParams])
		layers = append(layers, l)
		offset += numParams
	}
	if offset != len(params) {
		return nil, fmt.Errorf("parameter count mismatch: got %d, layers use %d", len(params), offset)
	}

	lossFn, err := loss.FromName(h.Loss)
	if err != nil {
		return nil, err
	}
	optimizer, err := opt.FromName(h.Optimizer, h.LearningRate)
	if err != nil {
		return nil, err
	}

	return New(layers, lossFn, optimizer), nil
}

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type       string
	InSize     int
	OutSize    int
	Activation string
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	dense, ok := l.(*layer.Dense)
	if !ok {
		return LayerConfig{}, fmt.Errorf("unsupported layer type: %T", l)
	}
	return LayerConfig{
		Type:       "Dense",
		InSize:     dense.InSize(),
		OutSize:    dense.OutSize(),
		Activation: activations.Name(dense.Activation()),
	}, nil
}

// CreateLayer creates a new, uninitialised layer from the configuration.
func (c *LayerConfig) CreateLayer() (layer.Layer, error) {
	if c.Type != "Dense" {
		return nil, fmt.Errorf("unsupported layer type: %s", c.Type)
	}
	act, err := activations.FromName(c.Activation)
	if err != nil {
		return nil, err
	}
	return layer.NewDense(c.InSize, c.OutSize, act), nil
}
