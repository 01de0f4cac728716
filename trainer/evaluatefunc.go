package trainer

import "context"

import "go.uber.org/zap"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/datasets"
import "github.com/neurlang/sincnet/score"
import "github.com/neurlang/sincnet/tensor"

// NewEvaluateFunc returns a function measuring identification accuracy on d:
// every utterance embedding is scored against the trainer's current centroids
// and counted correct when its own speaker scores highest.
//
// When dstmodel is not empty and the accuracy beats *best, the weights and
// centroids are saved with Save and *best is raised.
func NewEvaluateFunc(t *Trainer, d *datasets.Dataset, best *float64, dstmodel string, store *centroid.Store) func(ctx context.Context, epoch int) (float64, error) {
	model := t.Model.Replica()
	return func(ctx context.Context, epoch int) (float64, error) {
		var embs []*tensor.Tensor
		var labels []int
		for _, idx := range d.Batches(t.Hyper.BatchSize) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			x, y, err := d.Batch(idx)
			if err != nil {
				return 0, err
			}
			e, err := model.Inference(x)
			if err != nil {
				return 0, err
			}
			embs = append(embs, e)
			labels = append(labels, y...)
		}
		q := tensor.New(len(labels), t.Model.Config().EmbeddingDim)
		var off int
		for _, e := range embs {
			off += copy(q.Data[off:], e.Data)
		}
		refs := tensor.New(t.NSpeaker, t.Table.Dim())
		m := t.Table.Matrix(t.NSpeaker)
		for i := 0; i < t.NSpeaker; i++ {
			copy(refs.Row(i), m.RawRowView(i))
		}
		scores, err := score.ScoreMatrix(q, refs)
		if err != nil {
			return 0, err
		}
		acc, err := score.CalcAcc(scores, labels)
		if err != nil {
			return 0, err
		}
		t.Hyper.Logger().Info("evaluate",
			zap.Int("epoch", epoch),
			zap.Int("utterances", len(labels)),
			zap.Float64("accuracy", acc))

		if dstmodel != "" && (best == nil || acc > *best) {
			if err := Save(ctx, t.Model, t.Table, dstmodel, store); err != nil {
				return acc, err
			}
			if best != nil {
				*best = acc
			}
		}
		return acc, nil
	}
}
