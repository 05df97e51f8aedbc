package substation

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/internal/eventbus"
)

const streamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// stream pushes every snapshot published on the bus to a websocket client
// as a JSON text message. Client messages are discarded.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.log.Infof("stream client %s connected", r.RemoteAddr)
	for {
		select {
		case <-gone:
			h.log.Infof("stream client %s left", r.RemoteAddr)
			return
		case snap, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second))
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				h.log.Warnf("stream client %s: %v", r.RemoteAddr, err)
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap model.Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}

// WithStream serves GET /api/stream from bus.
func WithStream(bus *eventbus.Bus[model.Snapshot]) Option {
	return func(h *Handler) { h.bus = bus }
}

// WithAuth requires an HS256 operator token signed with secret on every
// endpoint that changes state. An empty secret disables the check.
func WithAuth(secret []byte) Option {
	return func(h *Handler) { h.secret = secret }
}
