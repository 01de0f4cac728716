// Package score computes cosine similarity between embeddings and the
// accuracy of a score matrix.
package score

import "errors"
import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/tensor"

const epsilon = 1e-10

// ErrDistanceWeight is returned when Distance is combined with a non-zero
// weight or bias.
var ErrDistanceWeight = errors.New("score: weight and bias apply to similarity only")

// ErrShape is returned when inputs do not line up.
var ErrShape = errors.New("score: shape mismatch")

type options struct {
	normalized bool
	w          *float64
	b          float64
	distance   bool
}

// Option configures Cosine.
type Option func(*options)

// Normalized declares whether both inputs already have unit length. Default true.
func Normalized(n bool) Option {
	return func(o *options) { o.normalized = n }
}

// Weight multiplies the similarity.
func Weight(w float64) Option {
	return func(o *options) { o.w = &w }
}

// Bias is added to the similarity of non-normalized inputs.
func Bias(b float64) Option {
	return func(o *options) { o.b = b }
}

// Distance returns 1-similarity instead of the similarity.
func Distance() Option {
	return func(o *options) { o.distance = true }
}

// Cosine compares q and a row by row along the last axis. The result keeps the
// leading axes and has a last axis of size 1.
//
// For normalized inputs the similarity is w·Σ(q·a) and the distance 1-Σ(q·a).
// Otherwise the similarity is (w·Σ(q·a)+b)/|q|/|a| with 1e-10 added under
// each square root. The weight defaults to 1 and the bias to 0.
func Cosine(q, a *tensor.Tensor, opts ...Option) (*tensor.Tensor, error) {
	o := options{normalized: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.distance && ((o.w != nil && *o.w != 0) || o.b != 0) {
		return nil, ErrDistanceWeight
	}
	w := 1.0
	if o.w != nil {
		w = *o.w
	}
	if !q.SameShape(a) {
		return nil, fmt.Errorf("%w: %v and %v", ErrShape, q.Shape, a.Shape)
	}
	shape := append([]int(nil), q.Shape...)
	if len(shape) == 0 {
		shape = []int{1}
	}
	shape[len(shape)-1] = 1
	out := tensor.New(shape...)
	for i := range out.Data {
		qi, ai := q.Row(i), a.Row(i)
		dot := floats.Dot(qi, ai)
		switch {
		case o.normalized && o.distance:
			out.Data[i] = 1 - dot
		case o.normalized:
			out.Data[i] = w * dot
		default:
			qn := math.Sqrt(floats.Dot(qi, qi) + epsilon)
			an := math.Sqrt(floats.Dot(ai, ai) + epsilon)
			s := (w*dot + o.b) / qn / an
			if o.distance {
				s = 1 - s
			}
			out.Data[i] = s
		}
	}
	return out, nil
}

// Normalize returns x divided by its L2 norm along the last axis.
func Normalize(x *tensor.Tensor) *tensor.Tensor {
	out := x.Clone()
	for i := 0; i < out.Rows(); i++ {
		r := out.Row(i)
		floats.Scale(1/math.Sqrt(floats.Dot(r, r)+epsilon), r)
	}
	return out
}

// ScoreMatrix returns the cosine similarity of every query row against every
// reference row.
func ScoreMatrix(queries, refs *tensor.Tensor) (*mat.Dense, error) {
	if queries.Last() != refs.Last() || queries.Rows() == 0 || refs.Rows() == 0 {
		return nil, fmt.Errorf("%w: %v and %v", ErrShape, queries.Shape, refs.Shape)
	}
	q := Normalize(queries)
	r := Normalize(refs)
	qm := mat.NewDense(q.Rows(), q.Last(), q.Data)
	rm := mat.NewDense(r.Rows(), r.Last(), r.Data)
	var out mat.Dense
	out.Mul(qm, rm.T())
	return &out, nil
}

// CalcAcc returns the fraction of rows whose argmax equals the label.
func CalcAcc(scores mat.Matrix, labels []int) (float64, error) {
	rows, cols := scores.Dims()
	if rows != len(labels) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, rows, len(labels))
	}
	if rows == 0 {
		return 0, nil
	}
	var hit int
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if scores.At(i, j) > scores.At(i, best) {
				best = j
			}
		}
		if best == labels[i] {
			hit++
		}
	}
	return float64(hit) / float64(rows), nil
}
