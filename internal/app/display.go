package app

import (
	"gocv.io/x/gocv"
)

// Display shows rendered frames and reports key presses.
type Display interface {
	Show(frame *gocv.Mat)
	// PollKey waits up to delayMs for a key and returns its code, or -1.
	PollKey(delayMs int) int
	Close() error
}

// Window is a Display backed by a HighGUI window.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

func (w *Window) Show(frame *gocv.Mat) {
	w.w.IMShow(*frame)
}

func (w *Window) PollKey(delayMs int) int {
	return w.w.WaitKey(delayMs)
}

func (w *Window) Close() error {
	return w.w.Close()
}

// Headless discards frames and never reports a key.
type Headless struct{}

func (Headless) Show(*gocv.Mat)  {}
func (Headless) PollKey(int) int { return -1 }
func (Headless) Close() error    { return nil }
