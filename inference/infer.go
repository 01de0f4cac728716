// Package inference enrolls, verifies and identifies speakers with a trained
// embedder and a centroid table.
package inference

import "errors"
import "fmt"

import "gonum.org/v1/gonum/floats"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/score"
import "github.com/neurlang/sincnet/tensor"

// ErrUnknownSpeaker is returned for a speaker without a centroid.
var ErrUnknownSpeaker = errors.New("inference: unknown speaker")

// Model maps utterances [B, samples] to embeddings [B, D].
type Model interface {
	Inference(x *tensor.Tensor) (*tensor.Tensor, error)
}

// Enroll sets the centroid of speaker to the mean embedding of utterances.
func Enroll(m Model, table *centroid.Table, speaker int, utterances *tensor.Tensor) error {
	e, err := m.Inference(utterances)
	if err != nil {
		return err
	}
	if e.Rows() == 0 {
		return fmt.Errorf("inference: no utterances for speaker %d", speaker)
	}
	mean := make([]float64, e.Last())
	for i := 0; i < e.Rows(); i++ {
		floats.Add(mean, e.Row(i))
	}
	floats.Scale(1/float64(e.Rows()), mean)
	return table.Set(speaker, mean)
}

func similarity(e []float64, c []float64) (float64, error) {
	s, err := score.Cosine(
		tensor.MustFromSlice(e, 1, len(e)),
		tensor.MustFromSlice(c, 1, len(c)),
		score.Normalized(false))
	if err != nil {
		return 0, err
	}
	return s.Data[0], nil
}

func embed(m Model, utterance *tensor.Tensor) ([]float64, error) {
	x := utterance
	if x.Dims() == 1 {
		x = tensor.MustFromSlice(x.Data, 1, x.Len())
	}
	e, err := m.Inference(x)
	if err != nil {
		return nil, err
	}
	if e.Rows() != 1 {
		return nil, fmt.Errorf("inference: want one utterance, got %d", e.Rows())
	}
	return e.Row(0), nil
}

// Verify scores one utterance against the claimed speaker's centroid and
// accepts it when the cosine similarity reaches threshold.
func Verify(m Model, table *centroid.Table, speaker int, utterance *tensor.Tensor, threshold float64) (float64, bool, error) {
	c, ok := table.Get(speaker)
	if !ok {
		return 0, false, fmt.Errorf("%w: %d", ErrUnknownSpeaker, speaker)
	}
	e, err := embed(m, utterance)
	if err != nil {
		return 0, false, err
	}
	s, err := similarity(e, c)
	if err != nil {
		return 0, false, err
	}
	return s, s >= threshold, nil
}

// Identify returns the enrolled speaker whose centroid is most similar to the
// utterance. Ties go to the lower id.
func Identify(m Model, table *centroid.Table, utterance *tensor.Tensor) (int, float64, error) {
	ids := table.IDs()
	if len(ids) == 0 {
		return -1, 0, fmt.Errorf("%w: table is empty", ErrUnknownSpeaker)
	}
	e, err := embed(m, utterance)
	if err != nil {
		return -1, 0, err
	}
	best, bestScore := -1, 0.0
	for _, id := range ids {
		c, _ := table.Get(id)
		s, err := similarity(e, c)
		if err != nil {
			return -1, 0, err
		}
		if best < 0 || s > bestScore {
			best, bestScore = id, s
		}
	}
	return best, bestScore, nil
}
