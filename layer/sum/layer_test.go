package sum

import "math"
import "testing"

import "github.com/neurlang/sincnet/tensor"

func TestPoolMean(t *testing.T) {
	p := New(false)
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 1, 3, 2)
	y, err := p.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if y.Data[0] != 3 || y.Data[1] != 4 {
		t.Fatalf("y = %v, want [3 4]", y.Data)
	}
	dx, grads, err := p.Backward(tensor.MustFromSlice([]float64{3, 6}, 1, 2))
	if err != nil || grads != nil {
		t.Fatalf("Backward: %v %v", grads, err)
	}
	for i, want := range []float64{1, 2, 1, 2, 1, 2} {
		if dx.Data[i] != want {
			t.Fatalf("dx = %v", dx.Data)
		}
	}
}

func TestPoolLog(t *testing.T) {
	p := New(true)
	x := tensor.MustFromSlice([]float64{0, math.E - 1}, 1, 2, 1)
	y, err := p.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if math.Abs(y.Data[0]-0.5) > 1e-12 {
		t.Fatalf("y = %v, want 0.5", y.Data)
	}
	dx, _, err := p.Backward(tensor.MustFromSlice([]float64{1}, 1, 1))
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}
	if math.Abs(dx.Data[0]-0.5) > 1e-12 || math.Abs(dx.Data[1]-0.5/math.E) > 1e-12 {
		t.Fatalf("dx = %v", dx.Data)
	}
}
