package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      []float64
		barCount int
		want     []float64
	}{
		{name: "two samples to three bars", raw: []float64{0, 10}, barCount: 3, want: []float64{0, 0.5, 1}},
		{name: "all zero", raw: []float64{0, 0, 0, 0}, barCount: 5, want: []float64{0, 0, 0, 0, 0}},
		{name: "empty input", raw: nil, barCount: 3, want: []float64{0, 0, 0}},
		{name: "single sample broadcast", raw: []float64{4}, barCount: 3, want: []float64{1, 1, 1}},
		{name: "identity length", raw: []float64{1, 2, 4}, barCount: 3, want: []float64{0.25, 0.5, 1}},
		{name: "downsample keeps endpoints", raw: []float64{2, 0, 0, 0, 8}, barCount: 2, want: []float64{0.25, 1}},
		{name: "single bar reads first sample", raw: []float64{3, 6}, barCount: 1, want: []float64{0.5}},
		{name: "upsample interpolates", raw: []float64{0, 4, 8}, barCount: 5, want: []float64{0, 0.25, 0.5, 0.75, 1}},
		{name: "zero bars", raw: []float64{1, 2}, barCount: 0, want: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.barCount)
			require.Len(t, got, len(tt.want))
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestNormalize_LengthAlwaysBarCount(t *testing.T) {
	for inLen := 0; inLen <= 40; inLen += 3 {
		raw := make([]float64, inLen)
		for i := range raw {
			raw[i] = float64(i % 7)
		}
		for _, bars := range []int{1, 2, 10, 25, 64} {
			got := Normalize(raw, bars)
			require.Len(t, got, bars, "input length %d", inLen)
			for _, v := range got {
				require.GreaterOrEqual(t, v, 0.0)
				require.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	raw := []float64{3, 1, 2}
	first := Normalize(raw, 4)
	second := Normalize(raw, 4)

	assert.Equal(t, []float64{3, 1, 2}, raw)
	assert.Equal(t, first, second)
}

func TestMagnitudes_DC(t *testing.T) {
	block := make([]int16, 8)
	for i := range block {
		block[i] = 100
	}

	mags := Magnitudes(block)

	require.Len(t, mags, 4)
	assert.InDelta(t, 800, mags[0], 1e-9)
	for _, m := range mags[1:] {
		assert.InDelta(t, 0, m, 1e-9)
	}
}

func TestMagnitudes_PeakAtToneBin(t *testing.T) {
	const n = 64
	const bin = 5
	block := make([]int16, n)
	for i := range block {
		block[i] = int16(math.Round(1000 * math.Cos(2*math.Pi*bin*float64(i)/n)))
	}

	mags := NewAnalyzer().Magnitudes(block)

	require.Len(t, mags, n/2)
	peak := 0
	for i, m := range mags {
		if m > mags[peak] {
			peak = i
		}
	}
	assert.Equal(t, bin, peak)
	assert.InDelta(t, 1000*n/2, mags[bin], 50)
}

func TestMagnitudes_ShortBlock(t *testing.T) {
	assert.Empty(t, Magnitudes(nil))
	assert.Empty(t, Magnitudes([]int16{7}))
}

func TestAnalyzer_Bars(t *testing.T) {
	a := NewAnalyzer()

	silent := a.Bars(make([]int16, 1024), DefaultBarCount)
	assert.Equal(t, make([]float64, DefaultBarCount), silent)

	// the last bar samples the highest retained bin exactly
	block := make([]int16, 256)
	for i := range block {
		block[i] = int16(math.Round(8000 * math.Cos(2*math.Pi*127*float64(i)/256)))
	}
	bars := a.Bars(block, DefaultBarCount)
	require.Len(t, bars, DefaultBarCount)
	assert.InDelta(t, 1.0, bars[DefaultBarCount-1], 1e-12)
	for _, b := range bars {
		assert.LessOrEqual(t, b, 1.0)
	}

	// plan is rebuilt when the block size changes
	assert.Len(t, a.Magnitudes(make([]int16, 32)), 16)
}
