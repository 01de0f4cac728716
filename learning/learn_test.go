package learning

import "math"
import "os"
import "path/filepath"
import "strings"
import "testing"

import "github.com/neurlang/sincnet/gradient"
import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

func TestApply(t *testing.T) {
	p := layer.NewParam("w", tensor.MustFromSlice([]float64{1, 2}, 2))
	h := &HyperParameters{LearningRate: 0.5}
	tower := gradient.Tower{{Grad: tensor.MustFromSlice([]float64{2, -2}, 2), Var: p}}
	if err := h.Apply(tower); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.Value.Data[0] != 0 || p.Value.Data[1] != 3 {
		t.Errorf("after Apply = %v, want [0 3]", p.Value.Data)
	}
	bad := gradient.Tower{{Grad: tensor.New(3), Var: p}}
	if err := h.Apply(bad); err == nil {
		t.Errorf("shape mismatch accepted")
	}
	if err := (&HyperParameters{}).Apply(tower); err != ErrLearningRate {
		t.Errorf("zero learning rate: %v", err)
	}
}

func TestClip(t *testing.T) {
	p := layer.NewParam("w", tensor.New(2))
	tower := gradient.Tower{{Grad: tensor.MustFromSlice([]float64{30, -40}, 2), Var: p}}

	none := (&HyperParameters{}).Clip(tower)
	if none[0].Grad.Data[0] != 30 {
		t.Errorf("no clipping configured but got %v", none[0].Grad.Data)
	}
	byValue := (&HyperParameters{ClipMin: -1, ClipMax: 1}).Clip(tower)
	if byValue[0].Grad.Data[0] != 1 || byValue[0].Grad.Data[1] != -1 {
		t.Errorf("value clip = %v", byValue[0].Grad.Data)
	}
	byNorm := (&HyperParameters{ClipNorm: 5}).Clip(tower)
	if math.Abs(byNorm[0].Grad.Data[0]-3) > 1e-12 || math.Abs(byNorm[0].Grad.Data[1]+4) > 1e-12 {
		t.Errorf("norm clip = %v", byNorm[0].Grad.Data)
	}
}

func TestSetLogger(t *testing.T) {
	name := filepath.Join(t.TempDir(), "train.log")
	h := &HyperParameters{LearningRate: 1}
	if err := h.SetLogger(name); err != nil {
		t.Fatalf("SetLogger: %v", err)
	}
	h.Logger().Info("epoch done")
	_ = h.Logger().Sync()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "epoch done") {
		t.Errorf("log file = %q", data)
	}
}
