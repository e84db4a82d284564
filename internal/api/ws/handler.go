// Package ws bridges a uart session onto a websocket byte stream.
//
// Binary frames from the client are written to the line; received data
// is pushed to the client as binary frames, driven by the session's
// read-avail notification. On attach the client gets a "connected"
// control frame, unconditionally, mirroring the session's connected
// signal semantics.
package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
	"github.com/Time0o/uartd/internal/infrastructure/monitoring"
	"github.com/Time0o/uartd/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is CORS middleware's concern
	},
}

// Handler manages websocket stream connections.
type Handler struct {
	root    *uart.Root
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a websocket handler.
func NewHandler(root *uart.Root, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{root: root, log: log, metrics: metrics}
}

// HandleStream handles GET /sessions/:id/stream.
func (h *Handler) HandleStream(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if _, err := h.root.Info(sid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.RecordWSConnect()
		defer h.metrics.RecordWSDisconnect()
	}

	// fires every time, readiness is unconditional
	h.root.ConnectedSigh(sid, func() {
		conn.WriteJSON(map[string]string{"type": "connected"})
	})

	// Coalescing wake-up channel: the bridge fires at most one wake-up
	// per arrival, and an already-pending wake-up absorbs new ones. The
	// drain loop below reconciles level-style.
	notify := make(chan struct{}, 1)
	h.root.ReadAvailSigh(sid, func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer h.root.ReadAvailSigh(sid, nil)

	done := make(chan struct{})
	go h.readClient(conn, sid, done)

	for {
		select {
		case <-notify:
			if !h.drain(conn, sid) {
				return
			}
		case <-done:
			return
		}
	}
}

// readClient pumps client frames onto the line, chunked to the session
// buffer capacity.
func (h *Handler) readClient(conn *websocket.Conn, sid id.SessionID, done chan struct{}) {
	defer close(done)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		for len(data) > 0 {
			chunk := data
			if len(chunk) > uart.IOBufferSize {
				chunk = chunk[:uart.IOBufferSize]
			}
			if _, err := h.root.Write(sid, chunk); err != nil {
				return
			}
			data = data[len(chunk):]
		}
	}
}

// drain forwards everything currently available on the line. It
// reports false when the connection or the session is gone.
func (h *Handler) drain(conn *websocket.Conn, sid id.SessionID) bool {
	for {
		data, err := h.root.Read(sid, uart.IOBufferSize)
		if err != nil {
			return false
		}
		if len(data) == 0 {
			return true
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return false
		}
	}
}
