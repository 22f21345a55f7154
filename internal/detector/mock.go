package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed set of hands or a scripted sequence, one entry per call.
type MockDetector struct {
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	calls    int
	err      error
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
	m.sequence = nil
}

// SetSequence scripts the result of consecutive Detect calls.
// Once the sequence is exhausted the last entry is repeated.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.sequence = seq
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	idx := m.calls
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		if idx >= len(m.sequence) {
			idx = len(m.sequence) - 1
		}
		return m.sequence[idx], nil
	}
	return m.hands, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// PinchLandmarks builds a hand whose thumb and index tips sit at the given
// normalized positions, with the wrist below them. The remaining landmarks
// are interpolated between wrist and tips so the hand is plausible when drawn.
func PinchLandmarks(handedness string, thumb, index Point3D) HandLandmarks {
	h := HandLandmarks{
		Handedness: handedness,
		Score:      0.95,
	}

	wrist := Point3D{X: (thumb.X + index.X) / 2, Y: max(thumb.Y, index.Y) + 0.25}
	h.Points[Wrist] = wrist

	fill := func(from, to int, tip Point3D) {
		steps := float64(to - from + 1)
		for i := from; i < to; i++ {
			f := float64(i-from+1) / steps
			h.Points[i] = Point3D{
				X: wrist.X + (tip.X-wrist.X)*f,
				Y: wrist.Y + (tip.Y-wrist.Y)*f,
			}
		}
		h.Points[to] = tip
	}
	fill(ThumbCMC, ThumbTip, thumb)
	fill(IndexMCP, IndexTip, index)
	fill(MiddleMCP, MiddleTip, Point3D{X: index.X - 0.03, Y: index.Y + 0.1})
	fill(RingMCP, RingTip, Point3D{X: index.X - 0.06, Y: index.Y + 0.12})
	fill(PinkyMCP, PinkyTip, Point3D{X: index.X - 0.09, Y: index.Y + 0.15})

	return h
}

// ClosedPinchLandmarks returns a right hand with thumb and index tips touching.
func ClosedPinchLandmarks() HandLandmarks {
	return PinchLandmarks("Right", Point3D{X: 0.30, Y: 0.40}, Point3D{X: 0.30, Y: 0.40})
}

// OpenPinchLandmarks returns a left hand with thumb and index tips spread apart.
func OpenPinchLandmarks() HandLandmarks {
	return PinchLandmarks("Left", Point3D{X: 0.70, Y: 0.55}, Point3D{X: 0.80, Y: 0.30})
}
