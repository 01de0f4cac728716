// Package full implements a fully connected layer
package full

import "errors"
import "fmt"
import "math"
import "math/rand/v2"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

// ErrConfig is returned for non-positive layer sizes.
var ErrConfig = errors.New("full: invalid configuration")

// Dense computes y = xW + b for x of shape [B, In].
type Dense struct {
	in, out int
	w       *layer.Param // [In, Out]
	b       *layer.Param // [Out]

	x *tensor.Tensor
}

// MustNew creates a new dense layer or panics
func MustNew(name string, in, out int, seed uint64) *Dense {
	o, err := New(name, in, out, seed)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new dense layer with Xavier uniform weights drawn from a
// generator seeded with seed, and zero bias.
func New(name string, in, out int, seed uint64) (*Dense, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrConfig, in, out)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	limit := math.Sqrt(6 / float64(in+out))
	w := tensor.New(in, out)
	for i := range w.Data {
		w.Data[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Dense{
		in:  in,
		out: out,
		w:   &layer.Param{Name: name + "/kernel", Value: w},
		b:   &layer.Param{Name: name + "/bias", Value: tensor.New(out)},
	}, nil
}

// Parameters returns the kernel and the bias.
func (d *Dense) Parameters() []*layer.Param {
	return []*layer.Param{d.w, d.b}
}

// Replica returns a layer sharing kernel and bias.
func (d *Dense) Replica() layer.Layer {
	return &Dense{in: d.in, out: d.out, w: d.w, b: d.b}
}

func (d *Dense) kernel() *mat.Dense {
	return mat.NewDense(d.in, d.out, d.w.Value.Data)
}

// Forward maps [B, In] to [B, Out].
func (d *Dense) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Dims() != 2 || x.Shape[1] != d.in || x.Shape[0] == 0 {
		return nil, fmt.Errorf("full: want [batch %d], got %v", d.in, x.Shape)
	}
	bs := x.Shape[0]
	y := tensor.New(bs, d.out)
	ym := mat.NewDense(bs, d.out, y.Data)
	ym.Mul(mat.NewDense(bs, d.in, x.Data), d.kernel())
	for b := 0; b < bs; b++ {
		row := y.Data[b*d.out : (b+1)*d.out]
		for j := range row {
			row[j] += d.b.Value.Data[j]
		}
	}
	d.x = x
	return y, nil
}

// Backward returns dx = dy W^T, dW = x^T dy and db = sum over the batch of dy.
func (d *Dense) Backward(dy *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor, error) {
	if d.x == nil {
		return nil, nil, layer.ErrNoForward
	}
	bs := d.x.Shape[0]
	if dy.Len() != bs*d.out {
		return nil, nil, fmt.Errorf("full: gradient %v, want [%d %d]", dy.Shape, bs, d.out)
	}
	g := mat.NewDense(bs, d.out, dy.Data)

	dx := tensor.New(bs, d.in)
	mat.NewDense(bs, d.in, dx.Data).Mul(g, d.kernel().T())

	dw := tensor.New(d.in, d.out)
	mat.NewDense(d.in, d.out, dw.Data).Mul(mat.NewDense(bs, d.in, d.x.Data).T(), g)

	db := tensor.New(d.out)
	for b := 0; b < bs; b++ {
		for j := 0; j < d.out; j++ {
			db.Data[j] += dy.Data[b*d.out+j]
		}
	}
	return dx, []*tensor.Tensor{dw, db}, nil
}
