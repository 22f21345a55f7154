package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
	// blurKernel is the Gaussian kernel size applied before differencing.
	blurKernel = 21
	// diffLevel is the per-pixel intensity change that marks a pixel as changed.
	diffLevel = 25
)

// MotionDetector compares each frame with the one before it.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prevGray  gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector. threshold is a percentage of
// the frame, so 1.0 means 1% of pixels must change.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous one and by how much (percent).
//
// Frames are converted to grayscale and blurred, then the absolute difference
// with the previous frame is thresholded and the changed pixels counted.
// The first frame only primes the detector and never reports motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prevGray)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffLevel, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset forgets the previous frame; the next Detect primes again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the stored frame. Safe to call more than once.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Gate decides whether the detector needs to run on a frame.
// A disabled gate always says yes. An enabled gate says yes on motion and
// on the first frame, and no on a still frame, so the caller can reuse the
// landmarks it already has.
type Gate struct {
	motion *MotionDetector
	seen   bool
}

// NewGate creates a Gate. When enabled is false the gate never skips frames.
func NewGate(enabled bool, threshold float64) *Gate {
	if !enabled {
		return &Gate{}
	}
	return &Gate{motion: NewMotionDetector(threshold)}
}

// Enabled reports whether the gate can skip frames.
func (g *Gate) Enabled() bool {
	return g.motion != nil
}

// ShouldDetect reports whether frame needs a fresh detection.
func (g *Gate) ShouldDetect(frame *gocv.Mat) bool {
	if g.motion == nil {
		return true
	}
	moved, _ := g.motion.Detect(frame)
	if !g.seen {
		g.seen = true
		return true
	}
	return moved
}

// Close releases the gate's motion state.
func (g *Gate) Close() {
	if g.motion != nil {
		g.motion.Close()
	}
}
