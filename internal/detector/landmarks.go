// Package detector provides hand landmark detection for the gesture controller.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position in normalized image coordinates.
// X and Y are in [0,1] relative to frame width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left", "Right" or empty
	Score      float64               `json:"score"`
}

// Pixel scales the landmark at index to pixel space for a frame of the given size.
// Coordinates are truncated toward zero. An out of range index yields the zero point.
func (h *HandLandmarks) Pixel(index, width, height int) image.Point {
	if h == nil || index < 0 || index >= NumLandmarks {
		return image.Point{}
	}
	p := h.Points[index]
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// Keypoints returns the thumb tip, index tip and wrist in pixel space.
func (h *HandLandmarks) Keypoints(width, height int) (thumb, index, wrist image.Point) {
	return h.Pixel(ThumbTip, width, height),
		h.Pixel(IndexTip, width, height),
		h.Pixel(Wrist, width, height)
}
