package trainer

import "context"
import "fmt"
import "io"
import "math/rand/v2"

import "github.com/vbauerster/mpb/v8"
import "github.com/vbauerster/mpb/v8/decor"
import "go.uber.org/zap"

import "github.com/neurlang/sincnet/datasets"

// NewLoopFunc returns the training loop over d. Each epoch optionally
// shuffles the set, runs Step on every batch at least one utterance per tower
// large and then calls evaluate, if not nil. Progress goes to progress; nil
// disables the bar. An epoch in which no batch was large enough fails with
// datasets.ErrShard.
func NewLoopFunc(t *Trainer, d *datasets.Dataset, progress io.Writer, evaluate func(ctx context.Context, epoch int) (float64, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := t.Hyper.Logger()
		rng := rand.New(rand.NewPCG(t.Hyper.Seed, t.Hyper.Seed^0x5851f42d4c957f2d))
		epochs := t.Hyper.Epochs
		if epochs <= 0 {
			epochs = 1
		}
		for epoch := 0; epoch < epochs; epoch++ {
			if t.Hyper.Shuffle {
				d.Shuffle(rng)
			}
			batches := d.Batches(t.Hyper.BatchSize)
			var p *mpb.Progress
			var bar *mpb.Bar
			if progress != nil {
				p = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(progress))
				bar = p.AddBar(int64(len(batches)),
					mpb.PrependDecorators(
						decor.Name("Epoch: "),
						decor.CountersNoUnit("%d / %d"),
					),
					mpb.AppendDecorators(
						decor.Percentage(),
						decor.EwmaETA(decor.ET_STYLE_GO, 60),
					),
				)
			}
			var loss, acc float64
			var steps int
			for _, idx := range batches {
				if len(idx) < t.Towers() {
					if bar != nil {
						bar.Increment()
					}
					continue
				}
				x, y, err := d.Batch(idx)
				if err != nil {
					return err
				}
				col, err := t.Step(ctx, x, y)
				if err != nil {
					if p != nil {
						bar.Abort(false)
						p.Wait()
					}
					return err
				}
				loss += col.Loss
				acc += col.Accuracy
				steps++
				if bar != nil {
					bar.Increment()
				}
			}
			if p != nil {
				p.Wait()
			}
			if steps == 0 {
				return fmt.Errorf("%w: epoch %d has no batch of %d utterances", datasets.ErrShard, epoch, t.Towers())
			}
			loss /= float64(steps)
			acc /= float64(steps)
			log.Info("epoch",
				zap.Int("epoch", epoch),
				zap.Int("steps", steps),
				zap.Float64("loss", loss),
				zap.Float64("train_accuracy", acc))
			if evaluate != nil {
				if _, err := evaluate(ctx, epoch); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
