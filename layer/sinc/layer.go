// Package sinc implements a learnable sinc band-pass filter bank applied as a
// 1-D convolution over raw audio.
package sinc

import "errors"
import "fmt"
import "math"
import "runtime"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/tensor"

// lowestHz is the lower edge of the mel grid used to initialise the filters.
const lowestHz = 30

var (
	// ErrConfig is returned for invalid filter bank parameters.
	ErrConfig = errors.New("sinc: invalid configuration")

	// ErrChannels is returned when the input has more than one channel.
	ErrChannels = errors.New("sinc: only 1 input channel is supported")

	// ErrShape is returned when the input cannot be convolved.
	ErrShape = errors.New("sinc: bad input shape")
)

// Config holds the filter bank hyper parameters.
type Config struct {
	Name       string  // parameter scope, default "sinc"
	Filters    int     // number of band-pass filters (output channels)
	KernelSize int     // filter length, even values are incremented by one
	Stride     int     // convolution stride
	SampleRate int     // input sample rate in Hz
	MinLowHz   float64 // minimum low cutoff
	MinBandHz  float64 // minimum bandwidth
	Threads    int     // convolution goroutines, default runtime.NumCPU()
}

// DefaultConfig returns the SincNet defaults for 16 kHz audio.
func DefaultConfig() Config {
	return Config{
		Name:       "sinc",
		Filters:    80,
		KernelSize: 251,
		Stride:     1,
		SampleRate: 16000,
		MinLowHz:   30,
		MinBandHz:  50,
	}
}

// Conv is the sinc convolution layer.
type Conv struct {
	cfg Config

	low  *layer.Param // filter_low_hz [F]
	band *layer.Param // filter_band_hz [F]

	window []float64 // half Hamming window, len K/2
	n      []float64 // 2*pi*t/R for the left half, len K/2, never zero

	inShape []int
	x       *tensor.Tensor // [B,T]
	state   *bank
}

// MustNew creates a new sinc layer or panics
func MustNew(cfg Config) *Conv {
	o, err := New(cfg)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new sinc layer, initialising the cutoffs on a mel grid.
func New(cfg Config) (*Conv, error) {
	if cfg.Name == "" {
		cfg.Name = "sinc"
	}
	if cfg.KernelSize%2 == 0 {
		cfg.KernelSize++
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	if cfg.Filters <= 0 {
		return nil, fmt.Errorf("%w: filters %d", ErrConfig, cfg.Filters)
	}
	if cfg.KernelSize < 3 {
		return nil, fmt.Errorf("%w: kernel size %d", ErrConfig, cfg.KernelSize)
	}
	if cfg.Stride <= 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrConfig, cfg.Stride)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrConfig, cfg.SampleRate)
	}
	highHz := float64(cfg.SampleRate)/2 - (cfg.MinLowHz + cfg.MinBandHz)
	if highHz <= lowestHz {
		return nil, fmt.Errorf("%w: top band edge %.1f Hz is below %d Hz", ErrConfig, highHz, lowestHz)
	}

	hz := melBands(lowestHz, highHz, cfg.Filters)
	low := tensor.New(cfg.Filters)
	band := tensor.New(cfg.Filters)
	for f := 0; f < cfg.Filters; f++ {
		low.Data[f] = hz[f]
		band.Data[f] = hz[f+1] - hz[f]
	}

	k := cfg.KernelSize
	h := k / 2
	o := &Conv{
		cfg:    cfg,
		low:    &layer.Param{Name: cfg.Name + "/filter_low_hz", Value: low},
		band:   &layer.Param{Name: cfg.Name + "/filter_band_hz", Value: band},
		window: make([]float64, h),
		n:      make([]float64, h),
	}
	for i := 0; i < h; i++ {
		o.window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(k))
		o.n[i] = 2 * math.Pi * (-float64(k-1)/2 + float64(i)) / float64(cfg.SampleRate)
	}
	return o, nil
}

// Config returns the effective configuration (odd kernel size).
func (c *Conv) Config() Config {
	return c.cfg
}

// KernelSize returns the effective, odd, filter length.
func (c *Conv) KernelSize() int {
	return c.cfg.KernelSize
}

// Filters returns the number of filters.
func (c *Conv) Filters() int {
	return c.cfg.Filters
}

// OutputLen returns the output length for an input of t samples.
func (c *Conv) OutputLen(t int) int {
	if t < c.cfg.KernelSize {
		return 0
	}
	return (t-c.cfg.KernelSize)/c.cfg.Stride + 1
}

// Parameters returns filter_low_hz and filter_band_hz.
func (c *Conv) Parameters() []*layer.Param {
	return []*layer.Param{c.low, c.band}
}

// Replica returns a layer sharing the filter parameters.
func (c *Conv) Replica() layer.Layer {
	return c.Share()
}

// Share is Replica with the concrete type.
func (c *Conv) Share() *Conv {
	r := *c
	r.inShape = nil
	r.x = nil
	r.state = nil
	return &r
}
