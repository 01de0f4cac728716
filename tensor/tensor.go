// Package tensor implements the dense row-major float64 tensor used by the layers
package tensor

import "errors"
import "fmt"

import "gonum.org/v1/gonum/floats"

// ErrShape is returned when data does not fit the requested shape.
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is a dense row-major tensor. Data is shared by Reshape.
type Tensor struct {
	Shape []int
	Data  []float64
}

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New allocates a zero tensor of the given shape.
func New(shape ...int) *Tensor {
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("tensor: negative dimension in %v", shape))
		}
	}
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, volume(shape)),
	}
}

// FromSlice wraps data (without copying) into a tensor of the given shape.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	if volume(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// MustFromSlice is FromSlice which panics on error
func MustFromSlice(data []float64, shape ...int) *Tensor {
	t, err := FromSlice(data, shape...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dims returns the rank.
func (t *Tensor) Dims() int {
	return len(t.Shape)
}

// Last returns the size of the last axis.
func (t *Tensor) Last() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return t.Shape[len(t.Shape)-1]
}

// Reshape returns a view sharing the data with a different shape.
// A single -1 dimension is inferred.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	shape = append([]int(nil), shape...)
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				return nil, fmt.Errorf("%w: more than one inferred dimension in %v", ErrShape, shape)
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || len(t.Data)%known != 0 {
			return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.Shape, shape)
		}
		shape[infer] = len(t.Data) / known
	}
	if volume(shape) != len(t.Data) {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.Shape, shape)
	}
	return &Tensor{Shape: shape, Data: t.Data}, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float64(nil), t.Data...),
	}
}

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Row returns the n-th slice along the last axis, sharing storage.
func (t *Tensor) Row(n int) []float64 {
	w := t.Last()
	return t.Data[n*w : (n+1)*w]
}

// Rows returns the number of last-axis slices.
func (t *Tensor) Rows() int {
	w := t.Last()
	if w == 0 {
		return 0
	}
	return len(t.Data) / w
}

// Scale multiplies every element by c in place.
func (t *Tensor) Scale(c float64) {
	floats.Scale(c, t.Data)
}

// Add adds o element-wise in place.
func (t *Tensor) Add(o *Tensor) error {
	if !t.SameShape(o) {
		return fmt.Errorf("%w: %v + %v", ErrShape, t.Shape, o.Shape)
	}
	floats.Add(t.Data, o.Data)
	return nil
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.Data)
}

// Norm returns the L2 norm of all elements.
func (t *Tensor) Norm() float64 {
	if len(t.Data) == 0 {
		return 0
	}
	return floats.Norm(t.Data, 2)
}

// String prints the shape.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
