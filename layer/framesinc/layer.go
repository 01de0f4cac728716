// Package framesinc slices fixed-length utterances into frames and reduces
// every frame to one sinc filter bank energy per filter.
package framesinc

import "errors"
import "fmt"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/layer/sinc"
import "github.com/neurlang/sincnet/parallel"
import "github.com/neurlang/sincnet/tensor"

var (
	// ErrConfig is returned for inconsistent frame settings.
	ErrConfig = errors.New("framesinc: invalid configuration")

	// ErrShape is returned when the utterance length does not match the configuration.
	ErrShape = errors.New("framesinc: bad input shape")
)

// Config describes the utterance framing and the shared filter bank.
type Config struct {
	Sinc      sinc.Config
	FrameSize int // samples per frame
	FixLen    int // utterance duration in seconds
}

// DefaultConfig returns 3 second utterances cut into 25 ms frames at 16 kHz.
func DefaultConfig() Config {
	return Config{
		Sinc:      sinc.DefaultConfig(),
		FrameSize: 400,
		FixLen:    3,
	}
}

// Extractor is the frame-segmented sinc feature layer. Every frame goes
// through the same filter bank.
type Extractor struct {
	cfg    Config
	conv   *sinc.Conv
	frames int

	batch int
	y     *tensor.Tensor // filtered frames [B*NF, L, F]
}

// MustNew creates a new extractor or panics
func MustNew(cfg Config) *Extractor {
	o, err := New(cfg)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates the extractor and its filter bank parameters.
func New(cfg Config) (*Extractor, error) {
	if cfg.FrameSize <= 0 || cfg.FixLen <= 0 {
		return nil, fmt.Errorf("%w: frame size %d, fix len %d", ErrConfig, cfg.FrameSize, cfg.FixLen)
	}
	conv, err := sinc.New(cfg.Sinc)
	if err != nil {
		return nil, err
	}
	cfg.Sinc = conv.Config()
	samples := cfg.FixLen * cfg.Sinc.SampleRate
	if samples%cfg.FrameSize != 0 {
		return nil, fmt.Errorf("%w: %d samples do not split into frames of %d", ErrConfig, samples, cfg.FrameSize)
	}
	if conv.OutputLen(cfg.FrameSize) == 0 {
		return nil, fmt.Errorf("%w: frame size %d is shorter than kernel %d", ErrConfig, cfg.FrameSize, conv.KernelSize())
	}
	return &Extractor{
		cfg:    cfg,
		conv:   conv,
		frames: samples / cfg.FrameSize,
	}, nil
}

// NumSamples returns the expected utterance length.
func (e *Extractor) NumSamples() int {
	return e.frames * e.cfg.FrameSize
}

// NumFrames returns the number of frames per utterance.
func (e *Extractor) NumFrames() int {
	return e.frames
}

// Features returns the per-frame feature size (number of filters).
func (e *Extractor) Features() int {
	return e.conv.Filters()
}

// FrameOutputLen returns the filtered length of one frame.
func (e *Extractor) FrameOutputLen() int {
	return e.conv.OutputLen(e.cfg.FrameSize)
}

// Sinc returns the shared filter bank layer.
func (e *Extractor) Sinc() *sinc.Conv {
	return e.conv
}

// Parameters returns the filter bank parameters.
func (e *Extractor) Parameters() []*layer.Param {
	return e.conv.Parameters()
}

// Replica returns an extractor sharing the filter bank parameters.
func (e *Extractor) Replica() layer.Layer {
	return e.Share()
}

// Share is Replica with the concrete type.
func (e *Extractor) Share() *Extractor {
	return &Extractor{
		cfg:    e.cfg,
		conv:   e.conv.Share(),
		frames: e.frames,
	}
}

// Forward maps [B, NumSamples] utterances to [B, NumFrames, F] frame energies.
// All frames of the batch are filtered in one batched convolution.
func (e *Extractor) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Dims() != 2 || x.Shape[1] != e.NumSamples() {
		return nil, fmt.Errorf("%w: got %v, want [batch %d]", ErrShape, x.Shape, e.NumSamples())
	}
	bs := x.Shape[0]
	frames, err := x.Reshape(bs*e.frames, e.cfg.FrameSize)
	if err != nil {
		return nil, err
	}
	y, err := e.conv.Forward(frames)
	if err != nil {
		return nil, err
	}

	rows, l, fs := y.Shape[0], y.Shape[1], y.Shape[2]
	energy := tensor.New(bs, e.frames, fs)
	parallel.ForEach(rows, e.conv.Config().Threads, func(r int) {
		src := y.Data[r*l*fs : (r+1)*l*fs]
		dst := energy.Data[r*fs : (r+1)*fs]
		for j := 0; j < l; j++ {
			for f, v := range src[j*fs : (j+1)*fs] {
				dst[f] += v * v
			}
		}
	})
	e.batch = bs
	e.y = y
	return energy, nil
}

// Backward propagates the energy gradient to the utterance and the filter bank.
func (e *Extractor) Backward(de *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor, error) {
	if e.y == nil {
		return nil, nil, layer.ErrNoForward
	}
	rows, l, fs := e.y.Shape[0], e.y.Shape[1], e.y.Shape[2]
	if de.Len() != rows*fs {
		return nil, nil, fmt.Errorf("%w: gradient %v, want [%d %d %d]", ErrShape, de.Shape, e.batch, e.frames, fs)
	}
	dy := tensor.New(rows, l, fs)
	parallel.ForEach(rows, e.conv.Config().Threads, func(r int) {
		g := de.Data[r*fs : (r+1)*fs]
		for j := 0; j < l; j++ {
			off := (r*l + j) * fs
			for f := 0; f < fs; f++ {
				dy.Data[off+f] = 2 * e.y.Data[off+f] * g[f]
			}
		}
	})
	dframes, grads, err := e.conv.Backward(dy)
	if err != nil {
		return nil, nil, err
	}
	dx, err := dframes.Reshape(e.batch, e.NumSamples())
	if err != nil {
		return nil, nil, err
	}
	return dx, grads, nil
}
