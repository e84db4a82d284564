package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/driver"
	"github.com/Time0o/uartd/internal/infrastructure/config"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
)

const testPolicy = `
lines:
  - index: 0
    backend: loopback
    device: echo
  - index: 1
    backend: loopback

policies:
  - label: console
    uart: 0
    baudrate: 115200
  - label: quiet
    uart: 1
  - label: broken
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policy, err := config.ParsePolicy([]byte(testPolicy), ".yaml")
	require.NoError(t, err)

	registry := driver.NewRegistry()
	require.NoError(t, registry.Register(driver.NewLoopback()))

	specs := make([]driver.LineSpec, 0, len(policy.Lines))
	for _, l := range policy.Lines {
		specs = append(specs, driver.LineSpec{
			Index:   l.Index,
			Backend: l.Backend,
			Device:  l.Device,
		})
	}

	root := uart.NewRoot(driver.NewFactory(registry, specs), policy, logging.NewNop()).
		WithDetectDeadline(50 * time.Millisecond)
	root.Start()
	t.Cleanup(root.Stop)

	h := NewHandlers(root, logging.NewNop())

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.CloseSession)
	router.GET("/sessions/:id/size", h.SessionSize)
	router.GET("/sessions/:id/avail", h.SessionAvail)
	router.POST("/sessions/:id/baud", h.SetBaudRate)
	router.POST("/sessions/:id/read", h.ReadSession)
	router.POST("/sessions/:id/write", h.WriteSession)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createSession(t *testing.T, router *gin.Engine, label string) string {
	t.Helper()
	w, body := doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": label})
	require.Equal(t, http.StatusCreated, w.Code)
	return body["id"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w, body := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateSessionEndpoint(t *testing.T) {
	t.Run("matching policy", func(t *testing.T) {
		router := newTestRouter(t)

		w, body := doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": "console"})

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "console", body["label"])
		assert.Equal(t, float64(0), body["line"])
		assert.Equal(t, float64(115200), body["baud"])
		assert.NotEmpty(t, body["id"])
	})

	t.Run("unknown label", func(t *testing.T) {
		router := newTestRouter(t)

		w, body := doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": "stranger"})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, body["error"], "unavailable")
	})

	t.Run("policy without uart line", func(t *testing.T) {
		router := newTestRouter(t)

		w, _ := doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": "broken"})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("line already in use", func(t *testing.T) {
		router := newTestRouter(t)
		createSession(t, router, "console")

		w, _ := doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": "console"})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing label", func(t *testing.T) {
		router := newTestRouter(t)

		w, _ := doJSON(t, router, http.MethodPost, "/sessions", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	router := newTestRouter(t)
	sid := createSession(t, router, "console")

	w, body := doJSON(t, router, http.MethodGet, "/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sid, body["id"])

	w, body = doJSON(t, router, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["sessions"], 1)

	w, _ = doJSON(t, router, http.MethodDelete, "/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the line is free again after teardown
	w, _ = doJSON(t, router, http.MethodPost, "/sessions", gin.H{"label": "console"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTransferEndpoints(t *testing.T) {
	router := newTestRouter(t)
	sid := createSession(t, router, "console")

	t.Run("write then read through echo line", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("hello"))

		w, body := doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/write", gin.H{"data": payload})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(5), body["written"])

		w, body = doJSON(t, router, http.MethodGet, "/sessions/"+sid+"/avail", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["avail"])

		w, body = doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/read", gin.H{"len": 64})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(5), body["count"])

		data, err := base64.StdEncoding.DecodeString(body["data"].(string))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("zero-length read is valid and drains nothing", func(t *testing.T) {
		w, body := doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/read", gin.H{"len": 0})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("read on a dry line returns zero bytes", func(t *testing.T) {
		w, body := doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/read", gin.H{"len": 16})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("write rejects invalid base64", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/write", gin.H{"data": "not base64!"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/sessions/sess_nope/read", gin.H{"len": 1})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSizeEndpoint(t *testing.T) {
	router := newTestRouter(t)
	sid := createSession(t, router, "console")

	w, body := doJSON(t, router, http.MethodGet, "/sessions/"+sid+"/size", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["width"])
	assert.Equal(t, float64(0), body["height"])
}

func TestBaudEndpoint(t *testing.T) {
	router := newTestRouter(t)
	sid := createSession(t, router, "console")

	w, body := doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/baud", gin.H{"bits": 9600})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(9600), body["baud"])

	// zero is forwarded, not rejected at the binding layer
	w, body = doJSON(t, router, http.MethodPost, "/sessions/"+sid+"/baud", gin.H{"bits": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["baud"])
}
