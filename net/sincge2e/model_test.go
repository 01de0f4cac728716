package sincge2e

import "errors"
import "math"
import "math/rand/v2"
import "testing"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/layer/framesinc"
import "github.com/neurlang/sincnet/layer/sinc"
import "github.com/neurlang/sincnet/tensor"

func smallConfig() Config {
	return Config{
		Frames: framesinc.Config{
			Sinc: sinc.Config{
				Name:       "sinc",
				Filters:    3,
				KernelSize: 5,
				Stride:     1,
				SampleRate: 1000,
				MinLowHz:   30,
				MinBandHz:  50,
				Threads:    2,
			},
			FrameSize: 50,
			FixLen:    1,
		},
		EmbeddingDim: 4,
		LogEnergy:    true,
		InitWeight:   5,
		InitBias:     -2,
	}
}

func batch(seed uint64, b, n int) *tensor.Tensor {
	rng := rand.New(rand.NewPCG(seed, seed^7))
	x := tensor.New(b, n)
	for i := range x.Data {
		x.Data[i] = rng.Float64()*2 - 1
	}
	return x
}

func centroids(seed uint64, n, d int) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed^11))
	m := mat.NewDense(n, d, nil)
	m.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() }, m)
	return m
}

func TestInferenceUnitLength(t *testing.T) {
	m := MustNew(smallConfig(), 1)
	if m.NumSamples() != 1000 {
		t.Fatalf("NumSamples = %d, want 1000", m.NumSamples())
	}
	e, err := m.Inference(batch(1, 3, 1000))
	if err != nil {
		t.Fatalf("Inference: %v", err)
	}
	if e.Shape[0] != 3 || e.Shape[1] != 4 {
		t.Fatalf("shape %v, want [3 4]", e.Shape)
	}
	for i := 0; i < 3; i++ {
		if n := floats.Norm(e.Row(i), 2); math.Abs(n-1) > 1e-6 {
			t.Errorf("row %d has norm %v", i, n)
		}
	}
}

func TestParameters(t *testing.T) {
	m := MustNew(smallConfig(), 1)
	var names []string
	for _, p := range m.Parameters() {
		names = append(names, p.Name)
	}
	want := []string{"sinc/filter_low_hz", "sinc/filter_band_hz", "embed/kernel", "embed/bias", "ge2e/w", "ge2e/b"}
	if len(names) != len(want) {
		t.Fatalf("parameters %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("parameter %d = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestTowerGradients(t *testing.T) {
	m := MustNew(smallConfig(), 3)
	// keep the top filter off the Nyquist clip
	m.Parameters()[1].Value.Scale(0.9)

	x := batch(5, 4, 1000)
	labels := []int{0, 2, 1, 2}
	c := centroids(9, 3, 4)

	col, tower, err := m.Tower(x, labels, c)
	if err != nil {
		t.Fatalf("Tower: %v", err)
	}
	if col.Loss <= 0 || math.IsNaN(col.Loss) {
		t.Fatalf("loss = %v", col.Loss)
	}
	if len(tower) != len(m.Parameters()) {
		t.Fatalf("%d gradients for %d parameters", len(tower), len(m.Parameters()))
	}
	lossAt := func() float64 {
		col, _, err := m.Tower(x, labels, c)
		if err != nil {
			t.Fatalf("Tower: %v", err)
		}
		return col.Loss
	}
	const h = 1e-6
	for _, pair := range tower {
		v := pair.Var.Value.Data
		for _, i := range []int{0, len(v) / 2, len(v) - 1} {
			old := v[i]
			v[i] = old + h
			up := lossAt()
			v[i] = old - h
			down := lossAt()
			v[i] = old
			num := (up - down) / (2 * h)
			got := pair.Grad.Data[i]
			if math.Abs(num-got) > 1e-4*math.Max(1, math.Abs(num)) {
				t.Errorf("%s[%d]: analytic %v, numeric %v", pair.Var.Name, i, got, num)
			}
		}
	}
}

func TestReplicaMatches(t *testing.T) {
	m := MustNew(smallConfig(), 4)
	r := m.Replica()
	x := batch(6, 2, 1000)
	c := centroids(2, 2, 4)
	a, ta, err := m.Tower(x, []int{0, 1}, c)
	if err != nil {
		t.Fatalf("Tower: %v", err)
	}
	b, tb, err := r.Tower(x, []int{0, 1}, c)
	if err != nil {
		t.Fatalf("replica Tower: %v", err)
	}
	if a.Loss != b.Loss {
		t.Errorf("loss %v != %v", a.Loss, b.Loss)
	}
	for i := range ta {
		if ta[i].Var != tb[i].Var {
			t.Errorf("gradient %d is for a different variable", i)
		}
	}
}

func TestTowerErrors(t *testing.T) {
	m := MustNew(smallConfig(), 1)
	x := batch(1, 2, 1000)
	if _, _, err := m.Tower(x, []int{0, 3}, centroids(1, 3, 4)); !errors.Is(err, ErrBatch) {
		t.Errorf("label out of range: %v", err)
	}
	if _, _, err := m.Tower(x, []int{0}, centroids(1, 3, 4)); !errors.Is(err, ErrBatch) {
		t.Errorf("label count: %v", err)
	}
	if _, _, err := m.Tower(x, []int{0, 1}, centroids(1, 3, 5)); !errors.Is(err, ErrBatch) {
		t.Errorf("centroid dim: %v", err)
	}
	if _, err := New(Config{Frames: smallConfig().Frames}, 1); !errors.Is(err, ErrConfig) {
		t.Errorf("zero embedding dim: %v", err)
	}
}

func TestZeroCentroids(t *testing.T) {
	m := MustNew(smallConfig(), 1)
	col, _, err := m.Tower(batch(2, 2, 1000), []int{0, 1}, mat.NewDense(4, 4, nil))
	if err != nil {
		t.Fatalf("Tower: %v", err)
	}
	if math.Abs(col.Loss-math.Log(4)) > 1e-9 {
		t.Errorf("loss = %v, want log 4", col.Loss)
	}
}

func TestMerge(t *testing.T) {
	a := &Collection{Loss: 1, Accuracy: 1, Embeddings: tensor.MustFromSlice([]float64{1, 0}, 1, 2), Labels: []int{0},
		Scores: mat.NewDense(1, 2, []float64{1, 0})}
	b := &Collection{Loss: 4, Accuracy: 0, Embeddings: tensor.MustFromSlice([]float64{0, 1, 1, 0}, 2, 2), Labels: []int{1, 1},
		Scores: mat.NewDense(2, 2, []float64{1, 0, 1, 0})}
	m := Merge([]*Collection{a, b})
	if m.Loss != 3 || math.Abs(m.Accuracy-1.0/3) > 1e-12 {
		t.Errorf("loss %v accuracy %v", m.Loss, m.Accuracy)
	}
	if len(m.Labels) != 3 || m.Labels[2] != 1 || m.Embeddings.Shape[0] != 3 || m.Embeddings.Data[3] != 1 {
		t.Errorf("merged %v %v", m.Labels, m.Embeddings.Data)
	}
	if r, _ := m.Scores.Dims(); r != 3 {
		t.Errorf("scores rows %d", r)
	}
	if len(m.Named()) != 4 {
		t.Errorf("Named = %d entries", len(m.Named()))
	}
}
