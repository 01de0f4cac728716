// Package datasets implements the labelled utterance set used for training
package datasets

import "errors"
import "fmt"
import "math/rand/v2"

import "github.com/neurlang/sincnet/tensor"

var (
	// ErrEmpty is returned for a dataset or batch without utterances.
	ErrEmpty = errors.New("datasets: empty")

	// ErrShard is returned when a batch cannot give every tower a sample.
	ErrShard = errors.New("datasets: batch smaller than tower count")
)

// Utterance is one fixed-length recording of one speaker.
type Utterance struct {
	Speaker int
	Path    string
	Samples []float64
}

// Dataset is a set of utterances with speaker ids 0..len(Speakers)-1.
type Dataset struct {
	Speakers   []string // speaker names by id
	Utterances []Utterance
}

// Len returns the number of utterances.
func (d *Dataset) Len() int {
	return len(d.Utterances)
}

// NumSpeakers returns the number of speaker ids.
func (d *Dataset) NumSpeakers() int {
	return len(d.Speakers)
}

// Shuffle permutes the utterances.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Utterances), func(i, j int) {
		d.Utterances[i], d.Utterances[j] = d.Utterances[j], d.Utterances[i]
	})
}

// Batches splits 0..Len()-1 into consecutive batches of size. The last
// batch may be shorter.
func (d *Dataset) Batches(size int) (out [][]int) {
	if size <= 0 {
		size = 1
	}
	for i := 0; i < d.Len(); i += size {
		end := min(i+size, d.Len())
		b := make([]int, 0, end-i)
		for j := i; j < end; j++ {
			b = append(b, j)
		}
		out = append(out, b)
	}
	return
}

// Batch stacks the selected utterances into [len(idx), samples] with their
// speaker ids. All utterances must have the same length.
func (d *Dataset) Batch(idx []int) (*tensor.Tensor, []int, error) {
	if len(idx) == 0 {
		return nil, nil, ErrEmpty
	}
	n := len(d.Utterances[idx[0]].Samples)
	x := tensor.New(len(idx), n)
	labels := make([]int, len(idx))
	for i, k := range idx {
		u := d.Utterances[k]
		if len(u.Samples) != n {
			return nil, nil, fmt.Errorf("datasets: %s has %d samples, want %d", u.Path, len(u.Samples), n)
		}
		copy(x.Row(i), u.Samples)
		labels[i] = u.Speaker
	}
	return x, labels, nil
}

// Shard splits a batch into equal consecutive parts, one per tower. Rows
// beyond towers*(B/towers) are dropped.
func Shard(x *tensor.Tensor, labels []int, towers int) ([]*tensor.Tensor, [][]int, error) {
	if towers <= 0 {
		towers = 1
	}
	if x.Dims() != 2 || x.Shape[0] != len(labels) {
		return nil, nil, fmt.Errorf("datasets: batch %v with %d labels", x.Shape, len(labels))
	}
	per := len(labels) / towers
	if per == 0 {
		return nil, nil, fmt.Errorf("%w: %d rows, %d towers", ErrShard, len(labels), towers)
	}
	n := x.Shape[1]
	xs := make([]*tensor.Tensor, towers)
	ys := make([][]int, towers)
	for t := range xs {
		xs[t] = tensor.MustFromSlice(x.Data[t*per*n:(t+1)*per*n], per, n)
		ys[t] = labels[t*per : (t+1)*per]
	}
	return xs, ys, nil
}
