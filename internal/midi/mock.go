package midi

import (
	"sync"

	"github.com/ayusman/mudra/internal/signal"
)

// MockSink records everything sent to it.
type MockSink struct {
	mu       sync.Mutex
	controls []signal.Controls
	err      error
	closed   bool
}

// NewMockSink creates an empty MockSink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// SetError makes subsequent sends fail with err.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send records c.
func (m *MockSink) Send(c signal.Controls) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}
	if m.err != nil {
		return m.err
	}
	m.controls = append(m.controls, c)
	return nil
}

// Controls returns a copy of everything sent.
func (m *MockSink) Controls() []signal.Controls {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]signal.Controls, len(m.controls))
	copy(out, m.controls)
	return out
}

// Close marks the sink closed.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
