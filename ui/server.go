package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/app"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/metrics"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the engine contracts over HTTP and websocket
type Server struct {
	router     *gin.Engine
	engine     *app.EngineService
	pool       *worker.Pool
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *internal.Logger
	httpServer *http.Server
}

// NewServer creates a new web server instance. gatherer backs /metrics and
// may be nil to use the default registry.
func NewServer(engine *app.EngineService, pool *worker.Pool, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:   gin.New(),
		engine:   engine,
		pool:     pool,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger.With("Server"),
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.Use(consumerMiddleware())
	{
		api.POST("/reduce", s.handleReduce)
		api.POST("/reconstruct", s.handleReconstruct)
		api.POST("/raw/reduce", s.handleRawReduce)
		api.POST("/raw/reconstruct", s.handleRawReconstruct)
		api.GET("/stream", s.handleStream)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.router.GET("/healthz", s.handleHealth)
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	s.logger.Info("listening on http://%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"attached": s.pool.Attached(),
	})
}
