// Package render draws hand markers, control labels and the spectrum overlay onto camera frames.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/signal"
)

// Overlay defaults.
const (
	MarkerRadius       = 10
	LabelOffset        = 35
	SpectrumHeight     = 40
	BarThickness       = 2
	ConnectorThickness = 3
)

var (
	thumbColor = color.RGBA{R: 255, A: 255}
	indexColor = color.RGBA{R: 255, G: 255, A: 255}
	white      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Config controls the overlay geometry.
type Config struct {
	SpectrumHeight int     `yaml:"spectrum_height"`
	LabelOffset    int     `yaml:"label_offset"`
	FontScale      float64 `yaml:"font_scale"`
}

// DefaultConfig returns the overlay geometry used by the live view.
func DefaultConfig() Config {
	return Config{
		SpectrumHeight: SpectrumHeight,
		LabelOffset:    LabelOffset,
		FontScale:      0.6,
	}
}

// Bar is one vertical spectrum line, drawn from Center up to Top and down to Bottom.
type Bar struct {
	X      int
	Center int
	Top    int
	Bottom int
}

// Label is a piece of text anchored at its bottom-left corner.
type Label struct {
	Text string
	At   image.Point
}

// SpectrumLayout places the spectrum bars between two hands.
//
// The spectrum spans horizontally between the midpoints of each hand's
// thumb-index segment and is centred between them. Bar height scales with
// volume: the tallest possible half-bar is int(spectrumHeight * volume/100).
// Bars are clamped to [0, frameHeight]. It returns nil unless there are
// exactly two hands and at least one bar.
func SpectrumLayout(hands []signal.HandObservation, bars []float64, volume, spectrumHeight, frameHeight int) []Bar {
	if len(hands) != 2 || len(bars) == 0 {
		return nil
	}

	m0 := midpoint(hands[0].ThumbTip, hands[0].IndexTip)
	m1 := midpoint(hands[1].ThumbTip, hands[1].IndexTip)

	width := m1.X - m0.X
	if width < 0 {
		width = -width
	}
	center := midpoint(m0, m1)
	maxHeight := int(float64(spectrumHeight) * (float64(volume) / 100))
	xStart := center.X - floorDiv(width, 2)
	step := floorDiv(width, len(bars))

	layout := make([]Bar, len(bars))
	for i, v := range bars {
		h := int(v * float64(maxHeight))
		top := center.Y - h
		if top < 0 {
			top = 0
		}
		bottom := center.Y + h
		if bottom > frameHeight {
			bottom = frameHeight
		}
		layout[i] = Bar{
			X:      xStart + i*step,
			Center: center.Y,
			Top:    top,
			Bottom: bottom,
		}
	}
	return layout
}

// Labels returns the per-hand value labels: the first hand shows volume and the
// second shows the filter (EQ) level, each drawn above the index fingertip.
func Labels(hands []signal.HandObservation, c signal.Controls, offset int) []Label {
	var labels []Label
	for i, h := range hands {
		var text string
		switch i {
		case 0:
			text = fmt.Sprintf("Vol: %d", c.Volume)
		case 1:
			text = fmt.Sprintf("Filter: %d", c.EQ)
		default:
			continue
		}
		labels = append(labels, Label{
			Text: text,
			At:   image.Pt(h.IndexTip.X, h.IndexTip.Y-offset),
		})
	}
	return labels
}

func midpoint(a, b image.Point) image.Point {
	return image.Pt(floorDiv(a.X+b.X, 2), floorDiv(a.Y+b.Y, 2))
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Renderer draws overlays onto frames in place.
type Renderer struct {
	cfg Config
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.SpectrumHeight <= 0 {
		cfg.SpectrumHeight = SpectrumHeight
	}
	if cfg.FontScale <= 0 {
		cfg.FontScale = DefaultConfig().FontScale
	}
	return &Renderer{cfg: cfg}
}

// Draw renders hand markers, labels and, with two hands, the spectrum overlay.
func (r *Renderer) Draw(frame *gocv.Mat, hands []signal.HandObservation, c signal.Controls, bars []float64) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, h := range hands {
		gocv.Circle(frame, h.ThumbTip, MarkerRadius, thumbColor, 1)
		gocv.Circle(frame, h.IndexTip, MarkerRadius, indexColor, 1)
		gocv.Line(frame, h.ThumbTip, h.IndexTip, white, ConnectorThickness)
	}

	for _, l := range Labels(hands, c, r.cfg.LabelOffset) {
		gocv.PutText(frame, l.Text, l.At, gocv.FontHersheySimplex, r.cfg.FontScale, white, 1)
	}

	for _, b := range SpectrumLayout(hands, bars, c.Volume, r.cfg.SpectrumHeight, frame.Rows()) {
		gocv.Line(frame, image.Pt(b.X, b.Center), image.Pt(b.X, b.Top), white, BarThickness)
		gocv.Line(frame, image.Pt(b.X, b.Center), image.Pt(b.X, b.Bottom), white, BarThickness)
	}
}
