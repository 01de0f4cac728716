package tensor

import "errors"
import "testing"

func TestReshapeInfer(t *testing.T) {
	x := New(2, 3, 4)
	y, err := x.Reshape(-1, 4)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if y.Shape[0] != 6 || y.Shape[1] != 4 {
		t.Fatalf("Reshape = %v, want [6 4]", y.Shape)
	}
	y.Data[5] = 7
	if x.Data[5] != 7 {
		t.Errorf("Reshape does not share storage")
	}
	if _, err := x.Reshape(5, -1); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestFromSlice(t *testing.T) {
	if _, err := FromSlice([]float64{1, 2, 3}, 2, 2); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	x := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	if r := x.Row(1); r[0] != 3 || r[1] != 4 {
		t.Errorf("Row(1) = %v, want [3 4]", r)
	}
	if x.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", x.Rows())
	}
	c := x.Clone()
	c.Scale(2)
	if x.Data[0] != 1 || c.Data[0] != 2 {
		t.Errorf("Clone shares storage")
	}
	if err := c.Add(x); err != nil || c.Data[3] != 12 {
		t.Errorf("Add = %v %v", c.Data, err)
	}
	if c.Sum() != 30 {
		t.Errorf("Sum = %v, want 30", c.Sum())
	}
}
