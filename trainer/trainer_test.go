package trainer

import "bytes"
import "context"
import "errors"
import "math"
import "math/rand/v2"
import "path/filepath"
import "testing"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/datasets"
import "github.com/neurlang/sincnet/layer/framesinc"
import "github.com/neurlang/sincnet/layer/sinc"
import "github.com/neurlang/sincnet/learning"
import "github.com/neurlang/sincnet/net/sincge2e"

func smallModel(seed uint64) *sincge2e.Model {
	return sincge2e.MustNew(sincge2e.Config{
		Frames: framesinc.Config{
			Sinc: sinc.Config{
				Name:       "sinc",
				Filters:    4,
				KernelSize: 7,
				Stride:     1,
				SampleRate: 1000,
				MinLowHz:   30,
				MinBandHz:  50,
				Threads:    2,
			},
			FrameSize: 100,
			FixLen:    1,
		},
		EmbeddingDim: 6,
		LogEnergy:    true,
		InitWeight:   5,
		InitBias:     -2,
	}, seed)
}

func toneSet(speakers, per int) *datasets.Dataset {
	rng := rand.New(rand.NewPCG(3, 4))
	d := &datasets.Dataset{}
	for s := 0; s < speakers; s++ {
		d.Speakers = append(d.Speakers, string(rune('a'+s)))
		f := 60 + 90*float64(s)
		for u := 0; u < per; u++ {
			x := make([]float64, 1000)
			for i := range x {
				x[i] = 0.5*math.Sin(2*math.Pi*f*float64(i)/1000) + 0.05*rng.NormFloat64()
			}
			d.Utterances = append(d.Utterances, datasets.Utterance{Speaker: s, Samples: x})
		}
	}
	return d
}

func TestStepTowersMatchSingleDevice(t *testing.T) {
	d := toneSet(3, 2)
	x, y, err := d.Batch([]int{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	one := New(smallModel(7), &learning.HyperParameters{LearningRate: 0.1}, nil, 3, 1)
	two := New(smallModel(7), &learning.HyperParameters{LearningRate: 0.1}, nil, 3, 2)
	for step := 0; step < 2; step++ {
		if _, err := one.Step(context.Background(), x, y); err != nil {
			t.Fatalf("one tower: %v", err)
		}
		if _, err := two.Step(context.Background(), x, y); err != nil {
			t.Fatalf("two towers: %v", err)
		}
	}
	pa, pb := one.Model.Parameters(), two.Model.Parameters()
	for i := range pa {
		for j := range pa[i].Value.Data {
			if math.Abs(pa[i].Value.Data[j]-pb[i].Value.Data[j]) > 1e-9 {
				t.Fatalf("%s[%d]: %v vs %v", pa[i].Name, j, pa[i].Value.Data[j], pb[i].Value.Data[j])
			}
		}
	}
	if one.Table.Len() != 3 || two.Table.Len() != 3 {
		t.Errorf("tables have %d and %d speakers", one.Table.Len(), two.Table.Len())
	}
}

func TestStepUpdatesParameters(t *testing.T) {
	d := toneSet(2, 2)
	x, y, _ := d.Batch([]int{0, 1, 2, 3})
	tr := New(smallModel(1), &learning.HyperParameters{LearningRate: 0.1, ClipNorm: 1}, nil, 2, 2)
	// centroids start at zero, so the first step only sets them
	if _, err := tr.Step(context.Background(), x, y); err != nil {
		t.Fatalf("Step: %v", err)
	}
	before := tr.Model.Parameters()[2].Value.Clone()
	col, err := tr.Step(context.Background(), x, y)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if col.Embeddings.Shape[0] != 4 || len(col.Labels) != 4 {
		t.Errorf("collection has %v embeddings, %d labels", col.Embeddings.Shape, len(col.Labels))
	}
	var moved bool
	for i, v := range tr.Model.Parameters()[2].Value.Data {
		if v != before.Data[i] {
			moved = true
		}
	}
	if !moved {
		t.Errorf("embed/kernel did not change")
	}
	if _, err := tr.Step(context.Background(), x.Clone(), y[:1]); err == nil {
		t.Errorf("mismatched labels accepted")
	}
	small, _, _ := d.Batch([]int{0})
	if _, err := tr.Step(context.Background(), small, []int{0}); !errors.Is(err, datasets.ErrShard) {
		t.Errorf("expected ErrShard, got %v", err)
	}
}

func TestLoopEvaluateResume(t *testing.T) {
	d := toneSet(2, 4)
	h := &learning.HyperParameters{LearningRate: 0.05, Epochs: 2, BatchSize: 4, Shuffle: true, Seed: 9}
	tr := New(smallModel(2), h, nil, 2, 2)

	store, err := centroid.OpenStore(centroid.StoreOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	dst := filepath.Join(t.TempDir(), "model.lzw")
	best := -1.0
	var epochs []int
	eval := NewEvaluateFunc(tr, d, &best, dst, store)
	var out bytes.Buffer
	loop := NewLoopFunc(tr, d, &out, func(ctx context.Context, epoch int) (float64, error) {
		epochs = append(epochs, epoch)
		return eval(ctx, epoch)
	})
	if err := loop(context.Background()); err != nil {
		t.Fatalf("loop: %v", err)
	}
	if len(epochs) != 2 || epochs[1] != 1 {
		t.Fatalf("evaluated epochs %v", epochs)
	}
	if best < 0 || best > 1 {
		t.Fatalf("best accuracy %v", best)
	}

	fresh := smallModel(99)
	table, err := Resume(context.Background(), fresh, true, dst, store)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("resumed %d centroids, want 2", table.Len())
	}
	if fresh.Parameters()[0].Value.Data[0] == smallModel(99).Parameters()[0].Value.Data[0] &&
		fresh.Parameters()[2].Value.Data[0] == smallModel(99).Parameters()[2].Value.Data[0] {
		t.Errorf("weights were not loaded")
	}
	empty, err := Resume(context.Background(), fresh, false, dst, store)
	if err != nil || empty.Len() != 0 {
		t.Errorf("Resume without resume = %v, %v", empty.Len(), err)
	}
}

func TestTowersCappedAtBatchSize(t *testing.T) {
	d := toneSet(3, 2)
	h := &learning.HyperParameters{LearningRate: 0.1, Epochs: 2, BatchSize: 4}
	tr := New(smallModel(4), h, nil, 3, 8)
	if tr.Towers() != 4 {
		t.Fatalf("Towers = %d, want 4", tr.Towers())
	}
	before := tr.Model.Parameters()[2].Value.Clone()
	if err := NewLoopFunc(tr, d, nil, nil)(context.Background()); err != nil {
		t.Fatalf("loop: %v", err)
	}
	if tr.Table.Len() != 3 {
		t.Errorf("table has %d speakers, want 3", tr.Table.Len())
	}
	var moved bool
	for i, v := range tr.Model.Parameters()[2].Value.Data {
		if v != before.Data[i] {
			moved = true
		}
	}
	if !moved {
		t.Errorf("embed/kernel did not change")
	}
}

func TestLoopWithoutStepsFails(t *testing.T) {
	d := toneSet(2, 1)
	h := &learning.HyperParameters{LearningRate: 0.1, Epochs: 1}
	tr := New(smallModel(5), h, nil, 2, 4)
	if err := NewLoopFunc(tr, d, nil, nil)(context.Background()); !errors.Is(err, datasets.ErrShard) {
		t.Fatalf("expected ErrShard, got %v", err)
	}
}
