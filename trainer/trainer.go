package trainer

import "context"
import "fmt"

import "go.uber.org/zap"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/datasets"
import "github.com/neurlang/sincnet/gradient"
import "github.com/neurlang/sincnet/learning"
import "github.com/neurlang/sincnet/net/sincge2e"
import "github.com/neurlang/sincnet/parallel"
import "github.com/neurlang/sincnet/tensor"

// Trainer runs synchronous multi-tower training steps.
type Trainer struct {
	Model    *sincge2e.Model
	Hyper    *learning.HyperParameters
	Table    *centroid.Table
	NSpeaker int

	replicas []*sincge2e.Model
	step     int
}

// New creates a trainer with one model replica per tower. The tower count is
// capped at h.BatchSize when that is set.
func New(model *sincge2e.Model, h *learning.HyperParameters, table *centroid.Table, nSpeaker, towers int) *Trainer {
	if towers <= 0 {
		towers = 1
	}
	if h.BatchSize > 0 && towers > h.BatchSize {
		h.Logger().Warn("more towers than batch items",
			zap.Int("towers", towers),
			zap.Int("batch_size", h.BatchSize))
		towers = h.BatchSize
	}
	if table == nil {
		table = centroid.NewTable(model.Config().EmbeddingDim)
	}
	t := &Trainer{Model: model, Hyper: h, Table: table, NSpeaker: nSpeaker}
	for i := 0; i < towers; i++ {
		t.replicas = append(t.replicas, model.Replica())
	}
	return t
}

// Towers returns the number of towers per step.
func (t *Trainer) Towers() int {
	return len(t.replicas)
}

// Step trains on one batch. Every tower gets an equal shard; all towers
// finish before the averaged gradient is applied, and the centroid table is
// updated afterwards from the step's embeddings.
func (t *Trainer) Step(ctx context.Context, x *tensor.Tensor, labels []int) (*sincge2e.Collection, error) {
	xs, ys, err := datasets.Shard(x, labels, len(t.replicas))
	if err != nil {
		return nil, err
	}
	centroids := t.Table.Matrix(t.NSpeaker)
	cols := make([]*sincge2e.Collection, len(xs))
	towers := make([]gradient.Tower, len(xs))
	fns := make([]func(context.Context) error, len(xs))
	for i := range xs {
		i := i
		fns[i] = func(ctx context.Context) error {
			col, tower, err := t.replicas[i].Tower(xs[i], ys[i], centroids)
			if err != nil {
				return fmt.Errorf("trainer: tower %d: %w", i, err)
			}
			cols[i], towers[i] = col, tower
			return nil
		}
	}
	if err := parallel.Barrier(ctx, fns...); err != nil {
		return nil, err
	}

	avg, err := gradient.Average(towers)
	if err != nil {
		return nil, err
	}
	clipped := t.Hyper.Clip(avg)
	if err := t.Hyper.Apply(clipped); err != nil {
		return nil, err
	}

	merged := sincge2e.Merge(cols)
	table, err := t.Table.Update(merged.Embeddings, merged.Labels, t.NSpeaker)
	if err != nil {
		return nil, err
	}
	t.Table = table
	t.step++
	t.Hyper.Logger().Debug("step",
		zap.Int("step", t.step),
		zap.Int("towers", len(xs)),
		zap.Float64("loss", merged.Loss),
		zap.Float64("accuracy", merged.Accuracy),
		zap.Float64("grad_norm", gradient.GlobalNorm(avg)))
	return merged, nil
}
