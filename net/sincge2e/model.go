// Package sincge2e is the speaker embedder trained with a GE2E style loss on
// top of frame-segmented sinc features.
//
// The embedding of an utterance is the L2 normalised projection of its mean
// log frame energies. Training scores every embedding against the current
// speaker centroids with a learned scale w and offset b and minimises the
// softmax cross entropy of the true speaker.
package sincge2e

import "errors"
import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/gradient"
import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/layer/framesinc"
import "github.com/neurlang/sincnet/layer/full"
import "github.com/neurlang/sincnet/layer/sum"
import "github.com/neurlang/sincnet/net/feedforward"
import "github.com/neurlang/sincnet/score"
import "github.com/neurlang/sincnet/tensor"

const epsilon = 1e-10

var (
	// ErrConfig is returned for an invalid model configuration.
	ErrConfig = errors.New("sincge2e: invalid configuration")

	// ErrBatch is returned when inputs, labels and centroids disagree.
	ErrBatch = errors.New("sincge2e: inconsistent batch")
)

// Config describes the model.
type Config struct {
	Frames       framesinc.Config
	EmbeddingDim int
	LogEnergy    bool    // log1p compress frame energies before pooling
	InitWeight   float64 // initial similarity scale w
	InitBias     float64 // initial similarity offset b
}

// DefaultConfig returns the default model for 3 s utterances at 16 kHz.
func DefaultConfig() Config {
	return Config{
		Frames:       framesinc.DefaultConfig(),
		EmbeddingDim: centroid.DefaultDim,
		LogEnergy:    true,
		InitWeight:   10,
		InitBias:     -5,
	}
}

// Model owns every trainable parameter of the embedder and the loss.
type Model struct {
	cfg    Config
	frames *framesinc.Extractor
	net    *feedforward.FeedforwardNetwork
	w, b   *layer.Param
}

// MustNew creates a model or panics
func MustNew(cfg Config, seed uint64) *Model {
	m, err := New(cfg, seed)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// New builds the model. The dense projection is initialised from seed.
func New(cfg Config, seed uint64) (*Model, error) {
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: embedding dim %d", ErrConfig, cfg.EmbeddingDim)
	}
	frames, err := framesinc.New(cfg.Frames)
	if err != nil {
		return nil, err
	}
	cfg.Frames.Sinc = frames.Sinc().Config()
	dense, err := full.New("embed", frames.Features(), cfg.EmbeddingDim, seed)
	if err != nil {
		return nil, err
	}
	net := &feedforward.FeedforwardNetwork{}
	net.NewLayer(frames)
	net.NewLayer(sum.New(cfg.LogEnergy))
	net.NewLayer(dense)
	return &Model{
		cfg:    cfg,
		frames: frames,
		net:    net,
		w:      layer.NewParam("ge2e/w", tensor.MustFromSlice([]float64{cfg.InitWeight}, 1)),
		b:      layer.NewParam("ge2e/b", tensor.MustFromSlice([]float64{cfg.InitBias}, 1)),
	}, nil
}

// Config returns the effective configuration.
func (m *Model) Config() Config {
	return m.cfg
}

// NumSamples is the utterance length the model accepts.
func (m *Model) NumSamples() int {
	return m.frames.NumSamples()
}

// Network returns the embedder without the loss parameters.
func (m *Model) Network() *feedforward.FeedforwardNetwork {
	return m.net
}

// Parameters lists the embedder parameters followed by w and b.
func (m *Model) Parameters() []*layer.Param {
	return append(m.net.Parameters(), m.w, m.b)
}

// Replica returns a model sharing every parameter with its own activation
// caches, so that each tower can run on its own goroutine.
func (m *Model) Replica() *Model {
	return &Model{cfg: m.cfg, frames: m.frames, net: m.net.Replica(), w: m.w, b: m.b}
}

// Inference maps utterances [B, NumSamples] to unit length embeddings [B, D].
// It uses the model's caches and must not be called concurrently on one model.
func (m *Model) Inference(x *tensor.Tensor) (*tensor.Tensor, error) {
	h, err := m.net.Forward(x)
	if err != nil {
		return nil, err
	}
	return score.Normalize(h), nil
}

// Tower runs the forward and backward pass of one device on its shard of the
// batch. centroids holds one row per speaker and is treated as a constant.
func (m *Model) Tower(x *tensor.Tensor, labels []int, centroids *mat.Dense) (*Collection, gradient.Tower, error) {
	nSpeaker, dim := centroids.Dims()
	if dim != m.cfg.EmbeddingDim {
		return nil, nil, fmt.Errorf("%w: centroids have %d columns, embeddings %d", ErrBatch, dim, m.cfg.EmbeddingDim)
	}
	if x.Dims() == 0 || x.Shape[0] != len(labels) || len(labels) == 0 {
		return nil, nil, fmt.Errorf("%w: input %v, %d labels", ErrBatch, x.Shape, len(labels))
	}
	for _, y := range labels {
		if y < 0 || y >= nSpeaker {
			return nil, nil, fmt.Errorf("%w: label %d with %d speakers", ErrBatch, y, nSpeaker)
		}
	}

	h, err := m.net.Forward(x)
	if err != nil {
		return nil, nil, err
	}
	bs := len(labels)
	e := score.Normalize(h)
	em := mat.NewDense(bs, dim, e.Data)

	craw := tensor.New(nSpeaker, dim)
	for j := 0; j < nSpeaker; j++ {
		copy(craw.Row(j), centroids.RawRowView(j))
	}
	chat := mat.NewDense(nSpeaker, dim, score.Normalize(craw).Data)

	cos := mat.NewDense(bs, nSpeaker, nil)
	cos.Mul(em, chat.T())
	w, b := m.w.Value.Data[0], m.b.Value.Data[0]
	logits := mat.NewDense(bs, nSpeaker, nil)
	logits.Apply(func(_, _ int, v float64) float64 { return w*v + b }, cos)

	// dS = (softmax(S) - onehot(y)) / B
	var loss float64
	ds := mat.NewDense(bs, nSpeaker, nil)
	for i, y := range labels {
		row := logits.RawRowView(i)
		lse := floats.LogSumExp(row)
		loss += lse - row[y]
		g := ds.RawRowView(i)
		for j, v := range row {
			g[j] = math.Exp(v-lse) / float64(bs)
		}
		g[y] -= 1 / float64(bs)
	}
	loss /= float64(bs)
	acc, err := score.CalcAcc(logits, labels)
	if err != nil {
		return nil, nil, err
	}

	dw := tensor.New(1)
	db := tensor.New(1)
	for i := 0; i < bs; i++ {
		dw.Data[0] += floats.Dot(ds.RawRowView(i), cos.RawRowView(i))
		db.Data[0] += floats.Sum(ds.RawRowView(i))
	}

	// de = w dS Ĉ, then through the L2 normalisation of h
	de := mat.NewDense(bs, dim, nil)
	de.Mul(ds, chat)
	de.Scale(w, de)
	dh := tensor.New(bs, dim)
	for i := 0; i < bs; i++ {
		ei, hi, gi := e.Row(i), h.Row(i), de.RawRowView(i)
		n := math.Sqrt(floats.Dot(hi, hi) + epsilon)
		proj := floats.Dot(ei, gi)
		out := dh.Row(i)
		for k := range out {
			out[k] = (gi[k] - ei[k]*proj) / n
		}
	}
	_, grads, err := m.net.Backward(dh)
	if err != nil {
		return nil, nil, err
	}
	tower, err := gradient.NewTower(m.Parameters(), append(grads, dw, db))
	if err != nil {
		return nil, nil, err
	}
	return &Collection{
		Loss:       loss,
		Accuracy:   acc,
		Embeddings: e,
		Labels:     append([]int(nil), labels...),
		Scores:     logits,
	}, tower, nil
}
