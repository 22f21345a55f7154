// Package app wires the camera, detector, MIDI sink and audio tap into the controller loop.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"

	"github.com/ayusman/mudra/internal/audio"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/midi"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/signal"
	"github.com/ayusman/mudra/internal/spectrum"
	"github.com/ayusman/mudra/internal/store"
)

// StartupError reports a resource that could not be acquired.
type StartupError struct {
	Resource string
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Deps are the collaborators an App owns. Camera must already be open.
// Feed, Metrics, Store and Closers are optional.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Sink     midi.Sink
	Tap      audio.Tap
	Display  Display
	Feed     *server.Feed
	Metrics  *metrics.Metrics
	// Store holds recorded sessions. It is closed last, after the sink
	// has flushed into it.
	Store *store.Store
	// Closers are released after the collaborators above, in order.
	Closers []io.Closer
}

func (d Deps) close() error {
	var result *multierror.Error
	add := func(what string, err error) {
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", what, err))
		}
	}

	if d.Display != nil {
		add("display", d.Display.Close())
	}
	if d.Tap != nil {
		add("audio", d.Tap.Close())
	}
	if d.Sink != nil {
		add("midi", d.Sink.Close())
	}
	if d.Detector != nil {
		add("detector", d.Detector.Close())
	}
	if d.Camera != nil {
		add("camera", d.Camera.Close())
	}
	for _, c := range d.Closers {
		add("resource", c.Close())
	}
	if d.Store != nil {
		add("store", d.Store.Close())
	}
	return result.ErrorOrNil()
}

// App runs the frame loop.
type App struct {
	deps     Deps
	gate     *capture.Gate
	tracker  *signal.Tracker
	analyzer *spectrum.Analyzer
	renderer *render.Renderer
	barCount int

	lastHands []detector.HandLandmarks

	closeOnce sync.Once
	closeErr  error
}

// New creates an App around already acquired collaborators.
func New(cfg config.Config, deps Deps) *App {
	barCount := cfg.Spectrum.Bars
	if barCount <= 0 {
		barCount = spectrum.DefaultBarCount
	}
	if deps.Display == nil {
		deps.Display = Headless{}
	}

	return &App{
		deps:     deps,
		gate:     capture.NewGate(cfg.Capture.MotionGate, cfg.Capture.MotionThreshold),
		tracker:  signal.NewTracker(cfg.Signal),
		analyzer: spectrum.NewAnalyzer(),
		renderer: render.New(cfg.Render),
		barCount: barCount,
	}
}

// namedSink is a MIDI sink that knows which port it writes to.
type namedSink interface {
	midi.Sink
	Port() string
}

// namedTap is an audio tap that knows which device it reads from.
type namedTap interface {
	audio.Tap
	Device() string
}

// opener acquires the collaborators of an App.
type opener struct {
	camera   func(capture.Config) capture.Camera
	detector func(detector.Config) (detector.Detector, error)
	midi     func(midi.Config) (namedSink, error)
	audio    func(audio.Config) (namedTap, error)
	store    func(dbPath string) (*store.Store, error)
	recorder func(st *store.Store, port string, flushEvery int) (*store.Recorder, error)
	display  func(title string) Display
}

func defaultOpener() opener {
	return opener{
		camera: capture.NewCamera,
		detector: func(cfg detector.Config) (detector.Detector, error) {
			return detector.NewMediaPipeDetector(cfg)
		},
		midi: func(cfg midi.Config) (namedSink, error) {
			return midi.OpenPort(cfg)
		},
		audio: func(cfg audio.Config) (namedTap, error) {
			return audio.OpenPortAudio(cfg)
		},
		store:    store.New,
		recorder: store.NewRecorder,
		display: func(title string) Display {
			return NewWindow(title)
		},
	}
}

// Open acquires the camera, detector, MIDI port, audio stream and, when
// configured, the session store, then returns an App owning all of them.
// Any failure releases what was already acquired and returns a *StartupError.
func Open(ctx context.Context, cfg config.Config, feed *server.Feed, m *metrics.Metrics) (*App, error) {
	return defaultOpener().open(ctx, cfg, feed, m)
}

func (o opener) open(ctx context.Context, cfg config.Config, feed *server.Feed, m *metrics.Metrics) (_ *App, err error) {
	deps := Deps{Feed: feed, Metrics: m}
	defer func() {
		if err != nil {
			if cerr := deps.close(); cerr != nil {
				logger.Warnf(ctx, "release after failed startup: %v", cerr)
			}
		}
	}()

	cam := o.camera(cfg.Capture)
	if err := cam.Open(); err != nil {
		return nil, &StartupError{Resource: "camera", Err: err}
	}
	deps.Camera = cam
	logger.Debugf(ctx, "camera %d open", cfg.Capture.DeviceID)

	det, err := o.detector(cfg.Detector)
	if err != nil {
		return nil, &StartupError{Resource: "detector", Err: err}
	}
	deps.Detector = det

	port, err := o.midi(cfg.MIDI)
	if err != nil {
		return nil, &StartupError{Resource: "midi", Err: err}
	}
	sinks := midi.MultiSink{port}
	deps.Sink = sinks
	logger.Infof(ctx, "sending to MIDI port '%s' channel %d", port.Port(), cfg.MIDI.Channel)

	tap, err := o.audio(cfg.Audio)
	if err != nil {
		return nil, &StartupError{Resource: "audio", Err: err}
	}
	deps.Tap = tap
	logger.Infof(ctx, "reading audio from '%s'", tap.Device())

	if cfg.Record.DBPath != "" {
		st, err := o.store(cfg.Record.DBPath)
		if err != nil {
			return nil, &StartupError{Resource: "store", Err: err}
		}
		deps.Store = st

		rec, err := o.recorder(st, port.Port(), cfg.Record.FlushEvery)
		if err != nil {
			return nil, &StartupError{Resource: "store", Err: err}
		}
		sinks = append(sinks, rec)
		deps.Sink = sinks
		logger.Infof(ctx, "recording session %s to '%s'", rec.Session().ID, cfg.Record.DBPath)
	}

	if !cfg.Window.Headless {
		deps.Display = o.display(cfg.Window.Title)
	}

	return New(cfg, deps), nil
}

// Store returns the session store the App records into, or nil when
// recording is off.
func (a *App) Store() *store.Store {
	return a.deps.Store
}

// Close releases every collaborator exactly once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.gate.Close()
		a.closeErr = a.deps.close()
	})
	return a.closeErr
}
