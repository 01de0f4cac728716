// Package centroid keeps the running per-speaker mean embedding used by the
// GE2E loss.
package centroid

import "errors"
import "fmt"
import "sort"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/tensor"

// DefaultDim is the embedding length of a centroid.
const DefaultDim = 512

// smoothing is the weight of the previous centroid when a speaker is seen again.
const smoothing = 0.5

var ErrDim = errors.New("centroid: embedding dimension mismatch")
var ErrLabel = errors.New("centroid: label out of range")

// Table maps speaker id to its centroid. Entries are never removed.
type Table struct {
	dim  int
	rows map[int][]float64
}

// NewTable returns an empty table with centroids of length dim.
// A non-positive dim selects DefaultDim.
func NewTable(dim int) *Table {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Table{dim: dim, rows: make(map[int][]float64)}
}

// Dim is the centroid length.
func (t *Table) Dim() int {
	return t.dim
}

// Len is the number of speakers with a centroid.
func (t *Table) Len() int {
	return len(t.rows)
}

// Get returns the centroid of speaker id. The slice must not be modified.
func (t *Table) Get(id int) ([]float64, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// Set stores a copy of row as the centroid of speaker id.
func (t *Table) Set(id int, row []float64) error {
	if len(row) != t.dim {
		return fmt.Errorf("%w: %d values, table has %d", ErrDim, len(row), t.dim)
	}
	t.rows[id] = append([]float64(nil), row...)
	return nil
}

// IDs returns the known speaker ids in ascending order.
func (t *Table) IDs() []int {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := NewTable(t.dim)
	for id, row := range t.rows {
		c.rows[id] = append([]float64(nil), row...)
	}
	return c
}

// Matrix returns the centroids of speakers 0..n-1 as rows of an n×Dim matrix.
// Speakers without a centroid get a zero row.
func (t *Table) Matrix(n int) *mat.Dense {
	m := mat.NewDense(n, t.dim, nil)
	for id := 0; id < n; id++ {
		if row, ok := t.rows[id]; ok {
			m.SetRow(id, row)
		}
	}
	return m
}

// Update folds a batch of embeddings [B, Dim] with their speaker labels into
// a copy of the table, visiting every speaker id in 0..nSpeaker-1:
// a speaker present in the batch gets the batch mean, averaged with its
// previous centroid if it had one; an absent speaker without a centroid gets a
// zero vector; an absent speaker with a centroid is left unchanged.
func (t *Table) Update(emb *tensor.Tensor, labels []int, nSpeaker int) (*Table, error) {
	if emb.Last() != t.dim {
		return nil, fmt.Errorf("%w: embeddings %v, table has %d", ErrDim, emb.Shape, t.dim)
	}
	if emb.Rows() != len(labels) {
		return nil, fmt.Errorf("%w: %d embeddings, %d labels", ErrDim, emb.Rows(), len(labels))
	}
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, id := range labels {
		if id < 0 || id >= nSpeaker {
			return nil, fmt.Errorf("%w: label %d with %d speakers", ErrLabel, id, nSpeaker)
		}
		if sums[id] == nil {
			sums[id] = make([]float64, t.dim)
		}
		floats.Add(sums[id], emb.Row(i))
		counts[id]++
	}
	out := t.Clone()
	for id := 0; id < nSpeaker; id++ {
		sum, seen := sums[id]
		old, known := out.rows[id]
		switch {
		case seen:
			floats.Scale(1/float64(counts[id]), sum)
			if known {
				floats.Scale(1-smoothing, sum)
				floats.AddScaled(sum, smoothing, old)
			}
			out.rows[id] = sum
		case !known:
			out.rows[id] = make([]float64, t.dim)
		}
	}
	return out, nil
}

// Labels decodes a label tensor into speaker ids. With oneHot every row
// along the last axis is reduced by argmax, so a [B,1] one-hot tensor gives
// all zeros. Otherwise every element is an id.
func Labels(ys *tensor.Tensor, oneHot bool) []int {
	if !oneHot {
		out := make([]int, ys.Len())
		for i, v := range ys.Data {
			out[i] = int(v)
		}
		return out
	}
	out := make([]int, ys.Rows())
	for i := range out {
		out[i] = floats.MaxIdx(ys.Row(i))
	}
	return out
}
