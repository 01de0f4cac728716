package sinc

import "math"

import "github.com/neurlang/sincnet/tensor"

// bank is the filter bank derived from the parameters for one forward pass.
type bank struct {
	low, high []float64
	pass      []bool    // high was not clipped, so it depends on low and band
	filt      []float64 // [F*K], filter f at filt[f*K:(f+1)*K]
}

// compute derives the band-pass filters from the current parameters.
func (c *Conv) compute() *bank {
	fs, k, h := c.cfg.Filters, c.cfg.KernelSize, c.cfg.KernelSize/2
	nyquist := float64(c.cfg.SampleRate) / 2
	b := &bank{
		low:  make([]float64, fs),
		high: make([]float64, fs),
		pass: make([]bool, fs),
		filt: make([]float64, fs*k),
	}
	for f := 0; f < fs; f++ {
		low := c.cfg.MinLowHz + math.Abs(c.low.Value.Data[f])
		raw := low + c.cfg.MinBandHz + math.Abs(c.band.Value.Data[f])
		high := math.Min(math.Max(raw, c.cfg.MinLowHz), nyquist)
		b.low[f], b.high[f] = low, high
		b.pass[f] = raw >= c.cfg.MinLowHz && raw <= nyquist

		row := b.filt[f*k : (f+1)*k]
		for i := 0; i < h; i++ {
			// n[i] is never zero: the grid stops one step left of the center tap.
			v := 2 * ((math.Sin(high*c.n[i]) - math.Sin(low*c.n[i])) / c.n[i]) * c.window[i]
			row[i] = v
			row[k-1-i] = v
		}
		row[h] = 2 * (high - low)
	}
	return b
}

// FilterBank returns the current filters with shape [F,1,K].
func (c *Conv) FilterBank() *tensor.Tensor {
	b := c.compute()
	return tensor.MustFromSlice(b.filt, c.cfg.Filters, 1, c.cfg.KernelSize)
}

// Kernel returns the current filters in convolution layout [K,1,F].
func (c *Conv) Kernel() *tensor.Tensor {
	fs, k := c.cfg.Filters, c.cfg.KernelSize
	b := c.compute()
	out := tensor.New(k, 1, fs)
	for f := 0; f < fs; f++ {
		for i := 0; i < k; i++ {
			out.Data[i*fs+f] = b.filt[f*k+i]
		}
	}
	return out
}

// Cutoffs returns the effective low and high cutoff of every filter in Hz.
func (c *Conv) Cutoffs() (low, high []float64) {
	b := c.compute()
	return b.low, b.high
}
