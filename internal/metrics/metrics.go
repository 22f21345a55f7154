// Package metrics exposes Prometheus collectors for the frame loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mudra/internal/signal"
)

const namespace = "mudra"

// Metrics holds the loop's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Frames        prometheus.Counter
	DetectSkipped prometheus.Counter
	DetectErrors  prometheus.Counter
	AudioErrors   prometheus.Counter
	SinkErrors    prometheus.Counter
	Hands         prometheus.Gauge
	Controls      *prometheus.GaugeVec
	FrameDuration prometheus.Histogram
	FramesByHands *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed by the loop.",
		}),
		DetectSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_skipped_total",
			Help:      "Frames where detection was skipped because nothing moved.",
		}),
		DetectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_errors_total",
			Help:      "Frames where the landmark detector failed.",
		}),
		AudioErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_errors_total",
			Help:      "Audio blocks replaced by silence after a read error.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Frames whose control values could not be delivered.",
		}),
		Hands: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hands",
			Help:      "Hands seen in the latest frame.",
		}),
		Controls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_value",
			Help:      "Latest value per control.",
		}, []string{"control"}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Wall time of one loop iteration.",
			Buckets:   []float64{.005, .01, .02, .033, .05, .1, .2, .5},
		}),
		FramesByHands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_by_hand_count_total",
			Help:      "Frames by number of hands detected.",
		}, []string{"hands"}),
	}

	m.registry.MustRegister(
		m.Frames,
		m.DetectSkipped,
		m.DetectErrors,
		m.AudioErrors,
		m.SinkErrors,
		m.Hands,
		m.Controls,
		m.FrameDuration,
		m.FramesByHands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFrame records one loop iteration.
func (m *Metrics) ObserveFrame(c signal.Controls, took time.Duration) {
	m.Frames.Inc()
	m.Hands.Set(float64(c.Hands))
	m.Controls.WithLabelValues("volume").Set(float64(c.Volume))
	m.Controls.WithLabelValues("eq").Set(float64(c.EQ))
	m.Controls.WithLabelValues("speed").Set(float64(c.Speed))
	m.FrameDuration.Observe(took.Seconds())
	m.FramesByHands.WithLabelValues(handLabel(c.Hands)).Inc()
}

func handLabel(n int) string {
	switch n {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "more"
	}
}
