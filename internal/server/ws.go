package server

import (
	"context"
	"net/http"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ControlsHandler pushes every published Update to websocket clients as JSON.
type ControlsHandler struct {
	ctx  context.Context
	feed *Feed
}

// NewControlsHandler creates a ControlsHandler reading from feed. ctx carries the logger.
func NewControlsHandler(ctx context.Context, feed *Feed) *ControlsHandler {
	return &ControlsHandler{ctx: ctx, feed: feed}
}

// ServeHTTP upgrades the connection and streams updates until either side closes.
// Slow clients skip updates rather than queueing them.
func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf(h.ctx, "websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// reader detects the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastSeq uint64
	for {
		_, u, changed, ok := h.feed.Latest()
		if !ok {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		}

		if u.Seq != lastSeq && u.Seq > 0 {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u); err != nil {
				logger.Debugf(h.ctx, "websocket write error: %v", err)
				return
			}
			lastSeq = u.Seq
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-changed:
		}
	}
}
