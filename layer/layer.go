// Package layer defines the trainable layer interface and parameter handles
package layer

import "github.com/neurlang/sincnet/tensor"

// Layer is a differentiable layer. Forward caches what Backward needs, so a
// single Layer value must not run concurrently; use Replica for that.
type Layer interface {

	// Forward computes the layer output.
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)

	// Backward takes the gradient of the loss with respect to the last Forward
	// output and returns the input gradient plus one gradient per parameter,
	// in Parameters order.
	Backward(dy *tensor.Tensor) (dx *tensor.Tensor, grads []*tensor.Tensor, err error)

	// Parameters returns the trainable parameters.
	Parameters() []*Param

	// Replica returns a layer sharing the same parameters with its own caches.
	Replica() Layer
}
