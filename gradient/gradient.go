// Package gradient combines per-device gradients for synchronous multi-device
// training. Every function is pure: inputs are never modified.
package gradient

import "errors"
import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

// ErrMismatch is returned when towers disagree on variables or shapes.
var ErrMismatch = errors.New("gradient: towers do not match")

// Pair is one gradient and the variable it belongs to.
type Pair struct {
	Grad *tensor.Tensor
	Var  *layer.Param
}

// Tower is the ordered gradient list computed on one device.
type Tower []Pair

// NewTower pairs params with grads, which must have the same length.
func NewTower(params []*layer.Param, grads []*tensor.Tensor) (Tower, error) {
	if len(params) != len(grads) {
		return nil, fmt.Errorf("%w: %d params, %d gradients", ErrMismatch, len(params), len(grads))
	}
	t := make(Tower, len(params))
	for i := range params {
		if !params[i].Value.SameShape(grads[i]) {
			return nil, fmt.Errorf("%w: %s has shape %v, gradient %v", ErrMismatch, params[i].Name, params[i].Value.Shape, grads[i].Shape)
		}
		t[i] = Pair{Grad: grads[i], Var: params[i]}
	}
	return t, nil
}

// ClipByValue clips every gradient element into [min, max].
func ClipByValue(t Tower, min, max float64) Tower {
	out := make(Tower, len(t))
	for i, p := range t {
		g := p.Grad.Clone()
		for j, v := range g.Data {
			g.Data[j] = math.Min(math.Max(v, min), max)
		}
		out[i] = Pair{Grad: g, Var: p.Var}
	}
	return out
}

// GlobalNorm returns the L2 norm over all gradients taken together.
func GlobalNorm(t Tower) float64 {
	var sum float64
	for _, p := range t {
		sum += floats.Dot(p.Grad.Data, p.Grad.Data)
	}
	return math.Sqrt(sum)
}

// ClipByNorm rescales the gradients so that their global norm is at most norm.
func ClipByNorm(t Tower, norm float64) Tower {
	scale := 1.0
	if g := GlobalNorm(t); g > norm {
		scale = norm / g
	}
	out := make(Tower, len(t))
	for i, p := range t {
		g := p.Grad.Clone()
		g.Scale(scale)
		out[i] = Pair{Grad: g, Var: p.Var}
	}
	return out
}

// Average takes the element-wise mean of every variable's gradient across
// towers. All towers must list the same variables in the same order.
func Average(towers []Tower) (Tower, error) {
	if len(towers) == 0 {
		return nil, nil
	}
	first := towers[0]
	for d, t := range towers[1:] {
		if len(t) != len(first) {
			return nil, fmt.Errorf("%w: tower %d has %d gradients, tower 0 has %d", ErrMismatch, d+1, len(t), len(first))
		}
	}
	inv := 1 / float64(len(towers))
	out := make(Tower, len(first))
	for i, p := range first {
		sum := tensor.New(p.Grad.Shape...)
		for d, t := range towers {
			if t[i].Var != p.Var {
				return nil, fmt.Errorf("%w: position %d is %s on tower %d, %s on tower 0", ErrMismatch, i, t[i].Var.Name, d, p.Var.Name)
			}
			if err := sum.Add(t[i].Grad); err != nil {
				return nil, fmt.Errorf("%w: %s on tower %d: %v", ErrMismatch, p.Var.Name, d, err)
			}
		}
		sum.Scale(inv)
		out[i] = Pair{Grad: sum, Var: p.Var}
	}
	return out, nil
}
