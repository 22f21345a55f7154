package signal

// Controls are the values derived from one frame, ready for a MIDI sink.
type Controls struct {
	Hands     int  `json:"hands"`
	Volume    int  `json:"volume"`
	EQ        int  `json:"eq"`
	EQPresent bool `json:"eq_present"`
	Speed     int  `json:"speed"`
}

// ControlsFrom applies the positional convention: the first hand drives volume,
// the second drives EQ. Absent hands leave their control at 0.
func ControlsFrom(observations []HandObservation, state SpeedState) Controls {
	c := Controls{
		Hands: len(observations),
		Speed: state.Smoothed,
	}
	if len(observations) > 0 {
		c.Volume = observations[0].NormalizedDistance
	}
	if len(observations) > 1 {
		c.EQ = observations[1].NormalizedDistance
		c.EQPresent = true
	}
	return c
}

// Tracker owns a SpeedState across frames of a single capture loop.
type Tracker struct {
	cfg   Config
	state SpeedState
}

// NewTracker creates a Tracker starting from NewSpeedState.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:   cfg,
		state: NewSpeedState(),
	}
}

// Process extracts one frame and returns its observations and the current speed.
func (t *Tracker) Process(hands []HandPoints) ([]HandObservation, int) {
	var observations []HandObservation
	observations, t.state = Extract(t.cfg, hands, t.state)
	return observations, t.state.Smoothed
}

// State returns the current speed state.
func (t *Tracker) State() SpeedState {
	return t.state
}
