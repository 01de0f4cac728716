// Package sum implements a pooling layer averaging over the time axis
package sum

import "fmt"
import "math"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

// Pool averages [B,T,F] over T. With Log set, every value is compressed with
// log(1+v) first, which keeps frame energies in a trainable range.
type Pool struct {
	Log bool

	x *tensor.Tensor
}

// New creates a mean pooling layer
func New(log bool) *Pool {
	return &Pool{Log: log}
}

// Parameters returns nil, pooling is not trainable.
func (p *Pool) Parameters() []*layer.Param {
	return nil
}

// Replica returns a fresh pooling layer.
func (p *Pool) Replica() layer.Layer {
	return &Pool{Log: p.Log}
}

// Forward pools [B,T,F] into [B,F].
func (p *Pool) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Dims() != 3 || x.Shape[1] == 0 {
		return nil, fmt.Errorf("sum: want [batch, time, features], got %v", x.Shape)
	}
	bs, t, fs := x.Shape[0], x.Shape[1], x.Shape[2]
	y := tensor.New(bs, fs)
	inv := 1 / float64(t)
	for b := 0; b < bs; b++ {
		dst := y.Data[b*fs : (b+1)*fs]
		for j := 0; j < t; j++ {
			for f, v := range x.Data[(b*t+j)*fs : (b*t+j+1)*fs] {
				if p.Log {
					v = math.Log1p(v)
				}
				dst[f] += v * inv
			}
		}
	}
	p.x = x
	return y, nil
}

// Backward spreads the gradient evenly over the pooled axis.
func (p *Pool) Backward(dy *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor, error) {
	if p.x == nil {
		return nil, nil, layer.ErrNoForward
	}
	bs, t, fs := p.x.Shape[0], p.x.Shape[1], p.x.Shape[2]
	if dy.Len() != bs*fs {
		return nil, nil, fmt.Errorf("sum: gradient %v, want [%d %d]", dy.Shape, bs, fs)
	}
	dx := tensor.New(p.x.Shape...)
	inv := 1 / float64(t)
	for b := 0; b < bs; b++ {
		g := dy.Data[b*fs : (b+1)*fs]
		for j := 0; j < t; j++ {
			off := (b*t + j) * fs
			for f := 0; f < fs; f++ {
				d := g[f] * inv
				if p.Log {
					d /= 1 + p.x.Data[off+f]
				}
				dx.Data[off+f] = d
			}
		}
	}
	return dx, nil, nil
}
