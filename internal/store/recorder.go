package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ayusman/mudra/internal/signal"
)

// DefaultFlushEvery is the number of buffered events written per transaction.
const DefaultFlushEvery = 30

// ErrRecorderClosed is returned when recording after Close.
var ErrRecorderClosed = errors.New("recorder is closed")

// Recorder appends every frame's controls to an open session.
// It has the same Send/Close shape as a MIDI sink so it can sit next to one.
type Recorder struct {
	mu      sync.Mutex
	store   *Store
	session *Session
	buf     []ControlEvent
	every   int
	seq     int
	now     func() time.Time
	closed  bool
}

// NewRecorder starts a session for port. flushEvery <= 0 uses DefaultFlushEvery.
func NewRecorder(s *Store, port string, flushEvery int) (*Recorder, error) {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}

	sess, err := s.Sessions().Start(port)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	return &Recorder{
		store:   s,
		session: sess,
		every:   flushEvery,
		buf:     make([]ControlEvent, 0, flushEvery),
		now:     time.Now,
	}, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() *Session {
	return r.session
}

// Send buffers one frame and flushes when the buffer is full.
func (r *Recorder) Send(c signal.Controls) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRecorderClosed
	}

	r.buf = append(r.buf, ControlEvent{
		SessionID: r.session.ID,
		Sequence:  r.seq,
		OffsetMS:  r.now().Sub(r.session.StartedAt).Milliseconds(),
		Controls:  c,
	})
	r.seq++

	if len(r.buf) >= r.every {
		return r.flush()
	}
	return nil
}

// Flush writes any buffered events.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

func (r *Recorder) flush() error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.store.Events().Append(r.buf); err != nil {
		return fmt.Errorf("record events: %w", err)
	}
	r.buf = r.buf[:0]
	return nil
}

// Close flushes pending events and ends the session. It does not close the Store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var result *multierror.Error
	if err := r.flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.store.Sessions().End(r.session.ID, r.seq); err != nil {
		result = multierror.Append(result, fmt.Errorf("end session: %w", err))
	}
	return result.ErrorOrNil()
}
