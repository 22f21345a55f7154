package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/audio"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/midi"
	"github.com/ayusman/mudra/internal/store"
)

type portMock struct {
	*midi.MockSink
}

func (portMock) Port() string { return "mock port" }

type deviceMock struct {
	*audio.MockTap
}

func (deviceMock) Device() string { return "mock device" }

// openFixture records every collaborator fakeOpener hands out.
type openFixture struct {
	camera   *capture.MockCamera
	detector *detector.MockDetector
	sink     *midi.MockSink
	tap      *audio.MockTap
	store    *store.Store
	display  *keyDisplay

	storeErr    error
	recorderErr error
	midiErr     error
}

func (f *openFixture) opener(t *testing.T) opener {
	t.Helper()
	return opener{
		camera: func(capture.Config) capture.Camera {
			f.camera = capture.NewMockCamera(nil, false)
			return f.camera
		},
		detector: func(detector.Config) (detector.Detector, error) {
			f.detector = detector.NewMockDetector()
			return f.detector, nil
		},
		midi: func(midi.Config) (namedSink, error) {
			if f.midiErr != nil {
				return nil, f.midiErr
			}
			f.sink = midi.NewMockSink()
			return portMock{f.sink}, nil
		},
		audio: func(audio.Config) (namedTap, error) {
			f.tap = audio.NewMockTap(1024)
			return deviceMock{f.tap}, nil
		},
		store: func(string) (*store.Store, error) {
			if f.storeErr != nil {
				return nil, f.storeErr
			}
			st, err := store.New(filepath.Join(t.TempDir(), "sessions.db"))
			if err != nil {
				t.Fatalf("store.New() error = %v", err)
			}
			f.store = st
			return st, nil
		},
		recorder: func(st *store.Store, port string, flushEvery int) (*store.Recorder, error) {
			if f.recorderErr != nil {
				return nil, f.recorderErr
			}
			return store.NewRecorder(st, port, flushEvery)
		},
		display: func(string) Display {
			f.display = &keyDisplay{}
			return f.display
		},
	}
}

func recordingConfig() config.Config {
	cfg := config.Default()
	cfg.Record.DBPath = "sessions.db"
	cfg.Window.Headless = true
	return cfg
}

func assertStartupError(t *testing.T, err error, resource string, cause error) {
	t.Helper()
	var se *StartupError
	if !errors.As(err, &se) {
		t.Fatalf("open() error = %v, want *StartupError", err)
	}
	if se.Resource != resource {
		t.Errorf("resource = %q, want %q", se.Resource, resource)
	}
	if !errors.Is(err, cause) {
		t.Errorf("open() error = %v, want it to wrap %v", err, cause)
	}
}

func TestOpen_MIDIFailureReleasesAcquired(t *testing.T) {
	f := &openFixture{midiErr: midi.ErrPortNotFound}

	a, err := f.opener(t).open(context.Background(), recordingConfig(), nil, nil)
	if a != nil {
		t.Fatal("expected no App on failure")
	}
	assertStartupError(t, err, "midi", midi.ErrPortNotFound)

	if f.camera.IsOpen() || f.camera.Closes() != 1 {
		t.Errorf("camera open = %v, closes = %d, want released once", f.camera.IsOpen(), f.camera.Closes())
	}
	if !f.detector.Closed() {
		t.Error("expected detector to be closed")
	}
	if f.tap != nil || f.store != nil {
		t.Error("expected later resources not to be acquired")
	}
}

func TestOpen_StoreFailureReleasesAcquired(t *testing.T) {
	cause := errors.New("disk full")
	f := &openFixture{storeErr: cause}

	_, err := f.opener(t).open(context.Background(), recordingConfig(), nil, nil)
	assertStartupError(t, err, "store", cause)

	if f.camera.IsOpen() || !f.detector.Closed() || !f.sink.Closed() || !f.tap.Closed() {
		t.Error("expected camera, detector, sink and tap to be released")
	}
}

func TestOpen_RecorderFailureClosesStore(t *testing.T) {
	cause := errors.New("session insert failed")
	f := &openFixture{recorderErr: cause}

	_, err := f.opener(t).open(context.Background(), recordingConfig(), nil, nil)
	assertStartupError(t, err, "store", cause)

	if f.store == nil {
		t.Fatal("expected the store to have been opened")
	}
	if err := f.store.DB().Ping(); err == nil {
		t.Error("expected the store to be closed")
	}
	if f.camera.IsOpen() || !f.detector.Closed() || !f.sink.Closed() || !f.tap.Closed() {
		t.Error("expected camera, detector, sink and tap to be released")
	}
}

func TestOpen_Success(t *testing.T) {
	f := &openFixture{}
	cfg := recordingConfig()
	cfg.Window.Headless = false

	a, err := f.opener(t).open(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if a.Store() != f.store {
		t.Error("expected the App to expose the session store")
	}
	if f.display == nil {
		t.Error("expected a display when not headless")
	}

	sessions, err := a.Store().Sessions().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].Port != "mock port" {
		t.Errorf("sessions = %+v, want one on the mock port", sessions)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !f.sink.Closed() || f.display.closed != 1 || f.camera.IsOpen() {
		t.Error("expected every collaborator to be released")
	}
	if err := f.store.DB().Ping(); err == nil {
		t.Error("expected the store to be closed")
	}
}

func TestOpen_NoRecording(t *testing.T) {
	f := &openFixture{}
	cfg := config.Default()
	cfg.Window.Headless = true

	a, err := f.opener(t).open(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	defer a.Close()

	if a.Store() != nil || f.store != nil {
		t.Error("expected no store without record.db_path")
	}
	if f.display != nil {
		t.Error("expected no window when headless")
	}
}
