// Package http provides the REST control surface for uart sessions:
// creation via policy, transfer through the shared buffer, geometry
// query, baud control and teardown.
package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
	"github.com/Time0o/uartd/internal/shared/id"
)

// Handlers bundles the HTTP endpoints over the session root.
type Handlers struct {
	root *uart.Root
	log  *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(root *uart.Root, log *logging.Logger) *Handlers {
	return &Handlers{root: root, log: log}
}

// Root handles GET /.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "uartd",
		"status":  "running",
	})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": len(h.root.List()),
	})
}

type createSessionRequest struct {
	Label string `json:"label" binding:"required"`
}

// CreateSession handles POST /sessions. A label with no matching policy
// or a policy without a uart line refuses the session with 503; the
// server keeps serving everyone else.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.root.CreateSession(req.Label)
	if err != nil {
		if errors.Is(err, uart.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListSessions handles GET /sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.root.List()
	if sessions == nil {
		sessions = []uart.SessionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles GET /sessions/:id.
func (h *Handlers) GetSession(c *gin.Context) {
	info, err := h.root.Info(id.SessionID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseSession handles DELETE /sessions/:id.
func (h *Handlers) CloseSession(c *gin.Context) {
	if err := h.root.CloseSession(id.SessionID(c.Param("id"))); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SessionSize handles GET /sessions/:id/size. Width and height are 0
// when detection was skipped or failed.
func (h *Handlers) SessionSize(c *gin.Context) {
	size, err := h.root.SizeOf(id.SessionID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, size)
}

// SessionAvail handles GET /sessions/:id/avail.
func (h *Handlers) SessionAvail(c *gin.Context) {
	avail, err := h.root.Avail(id.SessionID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"avail": avail})
}

// Bits stays unconstrained: zero is a value the driver decides about,
// and gin's required binding would reject it as absent.
type baudRequest struct {
	Bits int `json:"bits"`
}

// SetBaudRate handles POST /sessions/:id/baud. The value is forwarded
// to the driver unvalidated.
func (h *Handlers) SetBaudRate(c *gin.Context) {
	var req baudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.root.SetBaudRate(id.SessionID(c.Param("id")), req.Bits); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"baud": req.Bits})
}

// Len zero is a legal request that drains nothing, so no required
// binding here either.
type readRequest struct {
	Len int `json:"len"`
}

// ReadSession handles POST /sessions/:id/read. It drains up to len
// bytes (clamped to the buffer capacity) and may return fewer than
// requested, including zero, when the line runs dry.
func (h *Handlers) ReadSession(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.root.Read(id.SessionID(c.Param("id")), req.Len)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  base64.StdEncoding.EncodeToString(data),
		"count": len(data),
	})
}

type writeRequest struct {
	Data string `json:"data" binding:"required"`
}

// WriteSession handles POST /sessions/:id/write. Payloads beyond the
// buffer capacity are truncated, never rejected; the response reports
// the count actually transmitted.
func (h *Handlers) WriteSession(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data must be base64"})
		return
	}

	n, err := h.root.Write(id.SessionID(c.Param("id")), payload)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"written": n})
}
