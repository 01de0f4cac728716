package sincge2e

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/tensor"

// Collection holds the outputs of one tower (or of a merged step).
type Collection struct {
	Loss       float64
	Accuracy   float64
	Embeddings *tensor.Tensor // [B, D], unit length
	Labels     []int
	Scores     *mat.Dense // [B, N] scaled similarities
}

// Named is one output under its summary name.
type Named struct {
	Name  string
	Value *tensor.Tensor
}

// Named lists the outputs for summary writers.
func (c *Collection) Named() []Named {
	out := []Named{
		{"loss", tensor.MustFromSlice([]float64{c.Loss}, 1)},
		{"accuracy", tensor.MustFromSlice([]float64{c.Accuracy}, 1)},
		{"embeddings", c.Embeddings},
	}
	if c.Scores != nil {
		r, k := c.Scores.Dims()
		s := tensor.New(r, k)
		mat.NewDense(r, k, s.Data).Copy(c.Scores)
		out = append(out, Named{"scores", s})
	}
	return out
}

// Merge concatenates tower collections in tower order. Loss and accuracy are
// averaged weighted by each tower's batch size.
func Merge(cs []*Collection) *Collection {
	var out Collection
	var rows, dim int
	for _, c := range cs {
		rows += len(c.Labels)
		dim = c.Embeddings.Last()
	}
	if rows == 0 {
		return &out
	}
	out.Embeddings = tensor.New(rows, dim)
	var off int
	var cols int
	for _, c := range cs {
		n := len(c.Labels)
		w := float64(n) / float64(rows)
		out.Loss += w * c.Loss
		out.Accuracy += w * c.Accuracy
		copy(out.Embeddings.Data[off*dim:], c.Embeddings.Data)
		out.Labels = append(out.Labels, c.Labels...)
		off += n
		if c.Scores != nil {
			_, cols = c.Scores.Dims()
		}
	}
	if cols > 0 {
		out.Scores = mat.NewDense(rows, cols, nil)
		off = 0
		for _, c := range cs {
			if c.Scores != nil {
				for i := range c.Labels {
					out.Scores.SetRow(off+i, c.Scores.RawRowView(i))
				}
			}
			off += len(c.Labels)
		}
	}
	return &out
}
