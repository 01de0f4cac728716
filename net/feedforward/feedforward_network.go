// Package feedforward implements a feedforward network type
package feedforward

import "errors"
import "fmt"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

// ErrGradients is returned when a layer reports a wrong number of gradients.
var ErrGradients = errors.New("feedforward: gradient count mismatch")

// FeedforwardNetwork is the feedforward network
type FeedforwardNetwork struct {
	layers []layer.Layer
}

// NewLayer adds a layer to the end of network
func (f *FeedforwardNetwork) NewLayer(l layer.Layer) {
	f.layers = append(f.layers, l)
}

// LenLayers returns the number of layers.
func (f FeedforwardNetwork) LenLayers() int {
	return len(f.layers)
}

// GetLayer returns the n-th layer, or nil.
func (f FeedforwardNetwork) GetLayer(n int) layer.Layer {
	if n < 0 || n >= len(f.layers) {
		return nil
	}
	return f.layers[n]
}

// Len returns the number of trainable parameters (tensors, not elements).
func (f FeedforwardNetwork) Len() (o int) {
	for _, l := range f.layers {
		o += len(l.Parameters())
	}
	return
}

// Parameters lists every layer's parameters in layer order.
func (f FeedforwardNetwork) Parameters() (params []*layer.Param) {
	for _, l := range f.layers {
		params = append(params, l.Parameters()...)
	}
	return
}

// Replica returns a network sharing all parameters but owning its caches.
func (f FeedforwardNetwork) Replica() *FeedforwardNetwork {
	r := &FeedforwardNetwork{layers: make([]layer.Layer, len(f.layers))}
	for i, l := range f.layers {
		r.layers[i] = l.Replica()
	}
	return r
}

// Forward runs the input through all layers.
func (f FeedforwardNetwork) Forward(in *tensor.Tensor) (out *tensor.Tensor, err error) {
	out = in
	for i, l := range f.layers {
		out, err = l.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("feedforward: layer %d: %w", i, err)
		}
	}
	return out, nil
}

// Backward propagates dy from the last layer to the first. The gradients
// follow Parameters order.
func (f FeedforwardNetwork) Backward(dy *tensor.Tensor) (dx *tensor.Tensor, grads []*tensor.Tensor, err error) {
	per := make([][]*tensor.Tensor, len(f.layers))
	dx = dy
	for i := len(f.layers) - 1; i >= 0; i-- {
		var g []*tensor.Tensor
		dx, g, err = f.layers[i].Backward(dx)
		if err != nil {
			return nil, nil, fmt.Errorf("feedforward: layer %d: %w", i, err)
		}
		if len(g) != len(f.layers[i].Parameters()) {
			return nil, nil, fmt.Errorf("%w: layer %d returned %d for %d parameters", ErrGradients, i, len(g), len(f.layers[i].Parameters()))
		}
		per[i] = g
	}
	for _, g := range per {
		grads = append(grads, g...)
	}
	return dx, grads, nil
}
