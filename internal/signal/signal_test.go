package signal

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hand(thumb, index image.Point) HandPoints {
	return HandPoints{ThumbTip: thumb, IndexTip: index}
}

func TestNormalizeDistance(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		raw  float64
		want int
	}{
		{name: "touching", raw: 0, want: 0},
		{name: "small pinch", raw: 50, want: 51},
		{name: "just below full scale", raw: 124, want: 126},
		{name: "full scale", raw: 125, want: 127},
		{name: "max distance", raw: 500, want: 127},
		{name: "beyond max distance", raw: 2000, want: 127},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDistance(cfg, tt.raw))
		})
	}
}

func TestNormalizeDistance_ZeroMaxDistance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDistance = 0

	assert.Equal(t, 0, NormalizeDistance(cfg, 100))
}

func TestNormalizeDistance_AlwaysInRange(t *testing.T) {
	cfg := DefaultConfig()
	for raw := 0.0; raw <= 1500; raw += 7.3 {
		v := NormalizeDistance(cfg, raw)
		require.GreaterOrEqual(t, v, 0)
		require.LessOrEqual(t, v, MaxValue)
	}
}

func TestInstantSpeed(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60, InstantSpeed(cfg, 0))
	assert.Equal(t, 30, InstantSpeed(cfg, 250))
	assert.Equal(t, 0, InstantSpeed(cfg, 500))
	assert.Equal(t, 0, InstantSpeed(cfg, 900))

	cfg.MaxSpeedDistance = 0
	assert.Equal(t, 0, InstantSpeed(cfg, 10))
}

func TestExtract_NoHands(t *testing.T) {
	state := SpeedState{Smoothed: 42}

	obs, next := Extract(DefaultConfig(), nil, state)

	assert.Empty(t, obs)
	assert.Equal(t, state, next)
}

func TestExtract_OneHandHoldsSpeed(t *testing.T) {
	state := SpeedState{Smoothed: 42}

	obs, next := Extract(DefaultConfig(), []HandPoints{hand(image.Pt(100, 100), image.Pt(130, 140))}, state)

	require.Len(t, obs, 1)
	assert.Equal(t, 51, obs[0].NormalizedDistance) // 50px
	assert.Equal(t, state, next)
}

func TestExtract_TwoHandsUpdatesSpeed(t *testing.T) {
	hands := []HandPoints{
		{ThumbTip: image.Pt(200, 200), IndexTip: image.Pt(200, 200), Handedness: HandRight},
		{ThumbTip: image.Pt(200, 200), IndexTip: image.Pt(260, 280), Handedness: HandLeft},
	}

	obs, next := Extract(DefaultConfig(), hands, NewSpeedState())

	require.Len(t, obs, 2)
	assert.Equal(t, 0, obs[0].NormalizedDistance)
	assert.Equal(t, 102, obs[1].NormalizedDistance) // 100px
	assert.Equal(t, HandRight, obs[0].Handedness)
	assert.Equal(t, HandLeft, obs[1].Handedness)

	// thumbs touch: instant 60, smoothed round(0.2*60 + 0.8*127) = 114
	assert.Equal(t, 114, next.Smoothed)
}

func TestExtract_ThreeHandsHoldsSpeed(t *testing.T) {
	state := SpeedState{Smoothed: 10}
	p := image.Pt(10, 10)

	_, next := Extract(DefaultConfig(), []HandPoints{hand(p, p), hand(p, p), hand(p, p)}, state)

	assert.Equal(t, state, next)
}

func TestExtract_HoldLastValueIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	p := image.Pt(300, 300)
	_, state := Extract(cfg, []HandPoints{hand(p, p), hand(p, p)}, NewSpeedState())
	held := state

	for _, frame := range [][]HandPoints{nil, {hand(p, p)}, nil, {hand(p, p)}} {
		_, state = Extract(cfg, frame, state)
		assert.Equal(t, held, state)
	}
}

func TestSmooth_Converges(t *testing.T) {
	cfg := DefaultConfig()
	// rounding leaves a fixed point within 0.5/alpha of the target
	tolerance := int(0.5/cfg.Alpha) + 1

	for _, tc := range []struct {
		name   string
		start  int
		target int
	}{
		{name: "down from initial", start: InitialSpeed, target: 60},
		{name: "up from zero", start: 0, target: 60},
		{name: "down to zero", start: 90, target: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			state := SpeedState{Smoothed: tc.start}
			prevGap := abs(tc.start - tc.target)
			for i := 0; i < 50; i++ {
				state = Smooth(cfg.Alpha, tc.target, state)
				gap := abs(state.Smoothed - tc.target)
				require.LessOrEqual(t, gap, prevGap, "iteration %d moved away from target", i)
				prevGap = gap
			}
			assert.LessOrEqual(t, prevGap, tolerance)
		})
	}
}

func TestSmooth_StaysInRange(t *testing.T) {
	state := Smooth(1.5, 127, SpeedState{Smoothed: 0})
	assert.LessOrEqual(t, state.Smoothed, MaxValue)

	state = Smooth(-1, 127, SpeedState{Smoothed: 0})
	assert.GreaterOrEqual(t, state.Smoothed, 0)
}

func TestTracker(t *testing.T) {
	tr := NewTracker(DefaultConfig())

	obs, speed := tr.Process(nil)
	assert.Empty(t, obs)
	assert.Equal(t, InitialSpeed, speed)

	p := image.Pt(50, 50)
	_, speed = tr.Process([]HandPoints{hand(p, p), hand(p, p)})
	assert.Equal(t, 114, speed)

	_, speed = tr.Process(nil)
	assert.Equal(t, 114, speed, "speed must be held, not reset, when hands leave")
	assert.Equal(t, SpeedState{Smoothed: 114}, tr.State())
}

func TestControlsFrom(t *testing.T) {
	state := SpeedState{Smoothed: 77}

	c := ControlsFrom(nil, state)
	assert.Equal(t, Controls{Speed: 77}, c)

	c = ControlsFrom([]HandObservation{{NormalizedDistance: 12}}, state)
	assert.Equal(t, Controls{Hands: 1, Volume: 12, Speed: 77}, c)

	c = ControlsFrom([]HandObservation{{NormalizedDistance: 12}, {NormalizedDistance: 99}}, state)
	assert.Equal(t, Controls{Hands: 2, Volume: 12, EQ: 99, EQPresent: true, Speed: 77}, c)
}

func TestParseHandedness(t *testing.T) {
	assert.Equal(t, HandLeft, ParseHandedness("Left"))
	assert.Equal(t, HandRight, ParseHandedness(" right "))
	assert.Equal(t, HandUnknown, ParseHandedness(""))
	assert.Equal(t, HandUnknown, ParseHandedness("both"))
	assert.Equal(t, "left", HandLeft.String())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
