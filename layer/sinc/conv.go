package sinc

import "fmt"
import "math"

import "gonum.org/v1/gonum/floats"

import "github.com/neurlang/sincnet/layer"
import "github.com/neurlang/sincnet/parallel"
import "github.com/neurlang/sincnet/tensor"

// input flattens x to [B,T]. Accepted layouts are [B,T] and [B,T,1].
func (c *Conv) input(x *tensor.Tensor) (*tensor.Tensor, error) {
	switch x.Dims() {
	case 2:
		return x, nil
	case 3:
		if x.Shape[2] != 1 {
			return nil, fmt.Errorf("%w: got %d", ErrChannels, x.Shape[2])
		}
		return x.Reshape(x.Shape[0], x.Shape[1])
	default:
		return nil, fmt.Errorf("%w: want [batch, samples] or [batch, samples, 1], got %v", ErrShape, x.Shape)
	}
}

// Forward applies the filter bank as a valid-mode strided convolution.
// The output has shape [B, (T-K)/S+1, F].
func (c *Conv) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	in, err := c.input(x)
	if err != nil {
		return nil, err
	}
	fs, k, s := c.cfg.Filters, c.cfg.KernelSize, c.cfg.Stride
	bs, t := in.Shape[0], in.Shape[1]
	tout := c.OutputLen(t)
	if tout == 0 {
		return nil, fmt.Errorf("%w: %d samples is shorter than kernel %d", ErrShape, t, k)
	}

	state := c.compute()
	y := tensor.New(bs, tout, fs)
	parallel.ForEach(bs, c.cfg.Threads, func(b int) {
		row := in.Data[b*t : (b+1)*t]
		out := y.Data[b*tout*fs : (b+1)*tout*fs]
		for j := 0; j < tout; j++ {
			seg := row[j*s : j*s+k]
			o := out[j*fs : (j+1)*fs]
			for f := 0; f < fs; f++ {
				o[f] = floats.Dot(seg, state.filt[f*k:(f+1)*k])
			}
		}
	})

	c.inShape = append(c.inShape[:0], x.Shape...)
	c.x = in
	c.state = state
	return y, nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Backward returns the input gradient and the gradients of filter_low_hz and
// filter_band_hz.
func (c *Conv) Backward(dy *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor, error) {
	if c.x == nil || c.state == nil {
		return nil, nil, layer.ErrNoForward
	}
	fs, k, s, h := c.cfg.Filters, c.cfg.KernelSize, c.cfg.Stride, c.cfg.KernelSize/2
	bs, t := c.x.Shape[0], c.x.Shape[1]
	tout := c.OutputLen(t)
	if dy.Dims() != 3 || dy.Shape[0] != bs || dy.Shape[1] != tout || dy.Shape[2] != fs {
		return nil, nil, fmt.Errorf("%w: gradient %v, want [%d %d %d]", ErrShape, dy.Shape, bs, tout, fs)
	}
	state := c.state

	// gradient with respect to the input, independent per batch row
	dx := tensor.New(bs, t)
	parallel.ForEach(bs, c.cfg.Threads, func(b int) {
		drow := dx.Data[b*t : (b+1)*t]
		g := dy.Data[b*tout*fs : (b+1)*tout*fs]
		for j := 0; j < tout; j++ {
			seg := drow[j*s : j*s+k]
			for f := 0; f < fs; f++ {
				if v := g[j*fs+f]; v != 0 {
					floats.AddScaled(seg, v, state.filt[f*k:(f+1)*k])
				}
			}
		}
	})

	// gradient with respect to the filter taps, independent per filter
	dfilt := make([]float64, fs*k)
	parallel.ForEach(fs, c.cfg.Threads, func(f int) {
		d := dfilt[f*k : (f+1)*k]
		for b := 0; b < bs; b++ {
			row := c.x.Data[b*t : (b+1)*t]
			g := dy.Data[b*tout*fs : (b+1)*tout*fs]
			for j := 0; j < tout; j++ {
				if v := g[j*fs+f]; v != 0 {
					floats.AddScaled(d, v, row[j*s:j*s+k])
				}
			}
		}
	})

	// chain rule through the analytic band-pass and the abs/clip reparametrisation
	glow := tensor.New(fs)
	gband := tensor.New(fs)
	for f := 0; f < fs; f++ {
		d := dfilt[f*k : (f+1)*k]
		low, high := state.low[f], state.high[f]
		var gh, gl float64
		for i := 0; i < h; i++ {
			dl := 2 * c.window[i] * (d[i] + d[k-1-i])
			gh += dl * math.Cos(high*c.n[i])
			gl -= dl * math.Cos(low*c.n[i])
		}
		gh += 2 * d[h]
		gl -= 2 * d[h]
		if state.pass[f] {
			gl += gh
			gband.Data[f] = gh * sign(c.band.Value.Data[f])
		}
		glow.Data[f] = gl * sign(c.low.Value.Data[f])
	}

	dxOut, err := dx.Reshape(c.inShape...)
	if err != nil {
		return nil, nil, err
	}
	return dxOut, []*tensor.Tensor{glow, gband}, nil
}
