package sinc

import "math"

// ToMel converts a frequency in Hz to the mel scale.
func ToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// ToHz converts a mel value back to Hz.
func ToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melBands returns n+1 Hz values equally spaced on the mel scale between lo and hi.
func melBands(lo, hi float64, n int) []float64 {
	mlo, mhi := ToMel(lo), ToMel(hi)
	hz := make([]float64, n+1)
	for i := range hz {
		hz[i] = ToHz(mlo + float64(i)*(mhi-mlo)/float64(n))
	}
	return hz
}
