// Package signal turns hand keypoints into normalized 7-bit control values.
//
// Each hand yields a thumb-to-index distance scaled to [0,127]. When exactly
// two hands are visible, the distance between the two thumb tips drives an
// exponentially smoothed speed value. The smoothed value is carried in an
// explicit SpeedState so the caller owns its lifetime.
package signal

import (
	"image"
	"math"
)

// MaxValue is the largest 7-bit control value.
const MaxValue = 127

// InitialSpeed is the speed reported before two hands have ever been seen.
const InitialSpeed = MaxValue

// Config holds the calibration constants of the extractor.
type Config struct {
	// MaxDistance is the thumb-index distance, in pixels, that maps to full scale
	// before DistanceGain is applied.
	MaxDistance float64 `yaml:"max_distance"`
	// DistanceGain multiplies the normalized distance. Typical pinch distances are
	// much smaller than MaxDistance, so the default is 4.
	DistanceGain float64 `yaml:"distance_gain"`
	// MaxSpeedDistance is the thumb-thumb distance, in pixels, at which speed reaches 0.
	MaxSpeedDistance float64 `yaml:"max_speed_distance"`
	// SpeedGain is the instant speed reported when both thumbs touch.
	SpeedGain float64 `yaml:"speed_gain"`
	// Alpha is the exponential smoothing factor, 0 < Alpha <= 1.
	Alpha float64 `yaml:"alpha"`
}

// DefaultConfig returns the calibration the controller ships with.
func DefaultConfig() Config {
	return Config{
		MaxDistance:      500,
		DistanceGain:     4,
		MaxSpeedDistance: 500,
		SpeedGain:        60,
		Alpha:            0.2,
	}
}

// HandPoints are the keypoints of one detected hand in pixel space.
type HandPoints struct {
	ThumbTip   image.Point
	IndexTip   image.Point
	Wrist      image.Point
	Handedness Handedness
}

// HandObservation is the per-frame result for one hand.
type HandObservation struct {
	ThumbTip           image.Point
	IndexTip           image.Point
	Wrist              image.Point
	Handedness         Handedness
	NormalizedDistance int
}

// SpeedState is the smoothed two-hand speed carried across frames.
// The zero value is not the initial state; use NewSpeedState.
type SpeedState struct {
	Smoothed int
}

// NewSpeedState returns the state before any two-hand frame was observed.
func NewSpeedState() SpeedState {
	return SpeedState{Smoothed: InitialSpeed}
}

// Extract computes observations for the given hands and advances the speed state.
// The state only changes when exactly two hands are present; otherwise it is
// returned as is. Hands are reported in input order.
func Extract(cfg Config, hands []HandPoints, state SpeedState) ([]HandObservation, SpeedState) {
	observations := make([]HandObservation, len(hands))
	for i, h := range hands {
		observations[i] = HandObservation{
			ThumbTip:           h.ThumbTip,
			IndexTip:           h.IndexTip,
			Wrist:              h.Wrist,
			Handedness:         h.Handedness,
			NormalizedDistance: NormalizeDistance(cfg, Distance(h.ThumbTip, h.IndexTip)),
		}
	}

	if len(hands) == 2 {
		instant := InstantSpeed(cfg, Distance(hands[0].ThumbTip, hands[1].ThumbTip))
		state = Smooth(cfg.Alpha, instant, state)
	}

	return observations, state
}

// Distance is the Euclidean distance between two pixel points.
func Distance(a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// NormalizeDistance maps a thumb-index distance to [0,127].
func NormalizeDistance(cfg Config, raw float64) int {
	if cfg.MaxDistance == 0 {
		return 0
	}
	return Clamp(int(math.Round(raw / cfg.MaxDistance * MaxValue * cfg.DistanceGain)))
}

// InstantSpeed maps a thumb-thumb distance to an unsmoothed speed in [0,127].
func InstantSpeed(cfg Config, thumbDistance float64) int {
	if cfg.MaxSpeedDistance == 0 {
		return 0
	}
	return Clamp(int(math.Round((1 - thumbDistance/cfg.MaxSpeedDistance) * cfg.SpeedGain)))
}

// Smooth blends an instant speed into the state.
func Smooth(alpha float64, instant int, state SpeedState) SpeedState {
	v := alpha*float64(instant) + (1-alpha)*float64(state.Smoothed)
	return SpeedState{Smoothed: Clamp(int(math.Round(v)))}
}

// Clamp limits v to the 7-bit range.
func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxValue:
		return MaxValue
	default:
		return v
	}
}
