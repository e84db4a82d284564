// Package server wires the uart session core to its HTTP/WS surface:
// policy loading, driver backends, metrics, tracing and routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/Time0o/uartd/internal/api/http"
	"github.com/Time0o/uartd/internal/api/middleware"
	"github.com/Time0o/uartd/internal/api/ws"
	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/driver"
	"github.com/Time0o/uartd/internal/infrastructure/config"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
	"github.com/Time0o/uartd/internal/infrastructure/monitoring"
	"github.com/Time0o/uartd/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	root    *uart.Root
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	httpSrv *http.Server
}

// New creates a server instance from process configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing uartd",
		zap.String("port", cfg.Server.Port),
		zap.String("policy", cfg.UART.PolicyPath),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("uartd", logger.Logger)

	policy, err := config.LoadPolicy(cfg.UART.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	logger.Info("Policy loaded",
		zap.Int("lines", len(policy.Lines)),
		zap.Int("rules", len(policy.Policies)),
	)

	registry := driver.NewRegistry()
	registry.Register(driver.NewSerial(logger))
	registry.Register(driver.NewPTY(logger))
	registry.Register(driver.NewLoopback())

	specs := make([]driver.LineSpec, 0, len(policy.Lines))
	for _, l := range policy.Lines {
		specs = append(specs, driver.LineSpec{
			Index:   l.Index,
			Backend: l.Backend,
			Device:  l.Device,
		})
	}
	factory := driver.NewFactory(registry, specs)

	root := uart.NewRoot(factory, policy, logger).
		WithMetrics(metrics).
		WithDetectDeadline(time.Duration(cfg.UART.DetectTimeoutMS) * time.Millisecond)
	root.Start()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(root, logger)
	wsHandler := ws.NewHandler(root, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.CloseSession)
	router.GET("/sessions/:id/size", handlers.SessionSize)
	router.GET("/sessions/:id/avail", handlers.SessionAvail)
	router.POST("/sessions/:id/baud", handlers.SetBaudRate)
	router.POST("/sessions/:id/read", handlers.ReadSession)
	router.POST("/sessions/:id/write", handlers.WriteSession)
	router.GET("/sessions/:id/stream", wsHandler.HandleStream)

	return &Server{
		router:  router,
		root:    root,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts serving on the configured host/port. It blocks until the
// listener fails or Close is called.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting uartd", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close tears down all sessions and stops the listener.
func (s *Server) Close() error {
	s.logger.Info("Shutting down")
	s.root.Stop()
	s.metrics.Close()

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine { return s.router }
