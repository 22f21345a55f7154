// Package spectrum reduces an audio block to a small set of normalized bars.
package spectrum

import (
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultBarCount is the number of bars drawn by the overlay.
const DefaultBarCount = 10

// Normalize scales raw magnitudes by their maximum and linearly resamples
// them to exactly barCount values in [0,1].
//
// The input is treated as evenly spaced over [0,1] and read back at barCount
// evenly spaced positions. All-zero or empty input yields zeros. raw is not modified.
func Normalize(raw []float64, barCount int) []float64 {
	if barCount <= 0 {
		return []float64{}
	}
	out := make([]float64, barCount)
	if len(raw) == 0 {
		return out
	}

	var peak float64
	for _, v := range raw {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return out
	}

	if len(raw) == 1 {
		for i := range out {
			out[i] = raw[0] / peak
		}
		return out
	}

	last := len(raw) - 1
	for i := range out {
		var pos float64
		if barCount > 1 {
			pos = float64(i) / float64(barCount-1) * float64(last)
		}
		lo := int(pos)
		if lo >= last {
			out[i] = raw[last] / peak
			continue
		}
		frac := pos - float64(lo)
		out[i] = (raw[lo] + (raw[lo+1]-raw[lo])*frac) / peak
	}
	return out
}

// Magnitudes returns |DFT| of block for the lower half of the spectrum,
// len(block)/2 bins starting at DC.
func Magnitudes(block []int16) []float64 {
	return NewAnalyzer().Magnitudes(block)
}

// Analyzer computes magnitude spectra, reusing the FFT plan while the block size is stable.
type Analyzer struct {
	mu     sync.Mutex
	fft    *fourier.FFT
	n      int
	seq    []float64
	coeffs []complex128
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Magnitudes returns |DFT| of block for the lower half of the spectrum.
func (a *Analyzer) Magnitudes(block []int16) []float64 {
	n := len(block)
	if n < 2 {
		return []float64{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fft == nil || a.n != n {
		a.fft = fourier.NewFFT(n)
		a.n = n
		a.seq = make([]float64, n)
		a.coeffs = make([]complex128, n/2+1)
	}
	for i, s := range block {
		a.seq[i] = float64(s)
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.seq)

	out := make([]float64, n/2)
	for i := range out {
		out[i] = cmplx.Abs(a.coeffs[i])
	}
	return out
}

// Bars runs the magnitude spectrum of block through Normalize.
func (a *Analyzer) Bars(block []int16, barCount int) []float64 {
	return Normalize(a.Magnitudes(block), barCount)
}
