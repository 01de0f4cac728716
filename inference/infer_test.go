package inference

import "errors"
import "math"
import "testing"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/score"
import "github.com/neurlang/sincnet/tensor"

// unit embeds an utterance as itself scaled to unit length.
type unit struct{}

func (unit) Inference(x *tensor.Tensor) (*tensor.Tensor, error) {
	return score.Normalize(x), nil
}

func TestEnrollVerifyIdentify(t *testing.T) {
	table := centroid.NewTable(3)
	var m unit
	if err := Enroll(m, table, 4, tensor.MustFromSlice([]float64{1, 0, 0, 2, 0, 0}, 2, 3)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := Enroll(m, table, 9, tensor.MustFromSlice([]float64{0, 3, 0}, 1, 3)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	s, ok, err := Verify(m, table, 4, tensor.MustFromSlice([]float64{5, 0.1, 0}, 3), 0.9)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok || s < 0.99 {
		t.Errorf("Verify = %v, %v", s, ok)
	}
	s, ok, _ = Verify(m, table, 9, tensor.MustFromSlice([]float64{5, 0.1, 0}, 3), 0.9)
	if ok || s > 0.1 {
		t.Errorf("impostor accepted: %v", s)
	}
	if _, _, err := Verify(m, table, 1, tensor.New(3), 0.5); !errors.Is(err, ErrUnknownSpeaker) {
		t.Errorf("expected ErrUnknownSpeaker, got %v", err)
	}

	id, s, err := Identify(m, table, tensor.MustFromSlice([]float64{0.2, 1, 0}, 1, 3))
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if id != 9 || math.Abs(s-1/math.Sqrt(1.04)) > 1e-6 {
		t.Errorf("Identify = %d, %v", id, s)
	}
	if _, _, err := Identify(m, centroid.NewTable(3), tensor.New(1, 3)); !errors.Is(err, ErrUnknownSpeaker) {
		t.Errorf("empty table: %v", err)
	}
}
