package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/signal"
)

// Update is one published frame's control state.
type Update struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	signal.Controls
}

// Feed holds the latest rendered frame and controls published by the frame loop.
// Readers never block the loop: they take a copy and wait on the change channel.
type Feed struct {
	mu      sync.RWMutex
	jpeg    []byte
	update  Update
	changed chan struct{}
	closed  bool

	viewers atomic.Int32
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{changed: make(chan struct{})}
}

// Publish stores c and, while anyone is watching the stream, a JPEG of frame.
func (f *Feed) Publish(frame *gocv.Mat, c signal.Controls) error {
	var jpeg []byte
	if frame != nil && !frame.Empty() && f.viewers.Load() > 0 {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		if err != nil {
			f.PublishJPEG(nil, c)
			return fmt.Errorf("encode frame: %w", err)
		}
		jpeg = append([]byte(nil), buf.GetBytes()...)
		buf.Close()
	}
	f.PublishJPEG(jpeg, c)
	return nil
}

// PublishJPEG stores an already encoded frame. A nil jpeg keeps the previous image.
func (f *Feed) PublishJPEG(jpeg []byte, c signal.Controls) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if jpeg != nil {
		f.jpeg = jpeg
	}
	f.update = Update{
		Seq:       f.update.Seq + 1,
		Timestamp: time.Now().UnixMilli(),
		Controls:  c,
	}
	close(f.changed)
	f.changed = make(chan struct{})
}

// Latest returns the current frame and update, plus a channel closed on the next change.
// ok is false once the feed is closed.
func (f *Feed) Latest() (jpeg []byte, u Update, changed <-chan struct{}, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.jpeg, f.update, f.changed, !f.closed
}

// Close wakes every reader and stops accepting updates.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.changed)
}

// Viewers returns the number of connected stream clients.
func (f *Feed) Viewers() int {
	return int(f.viewers.Load())
}

func (f *Feed) addViewer() func() {
	f.viewers.Add(1)
	return func() { f.viewers.Add(-1) }
}
