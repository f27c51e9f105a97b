// Package server exposes the render service over HTTP: one POST endpoint
// accepting request envelopes and a liveness probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"

	"github.com/cinema-ai/cinema-service/internal/request"
)

// Routes served by the HTTP transport.
const (
	RunPath    = "/run"
	HealthPath = "/health"
)

// Listener timeouts. Render requests run long, so only the header read is
// bounded; in-flight renders get shutdownTimeout to finish on shutdown.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Server wraps a gin engine around the request router.
type Server struct {
	engine *gin.Engine
	router *request.Router
	log    *logger.Logger
}

// New creates the HTTP server.
func New(router *request.Router, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		engine: engine,
		router: router,
		log:    log,
	}

	engine.POST(RunPath, srv.handleRun)
	engine.GET(HealthPath, srv.handleHealth)

	return srv
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails or ctx is canceled, then shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	s.log.Info("HTTP transport listening on %s", addr)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("HTTP transport shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	err = <-serveErr
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// handleRun decodes one envelope from the body and routes it.
func (s *Server) handleRun(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		handleErr := request.NewValidationError(fmt.Sprintf("failed to read request body: %v", err))
		c.JSON(http.StatusBadRequest, handleErr.Body())

		return
	}

	body, handleErr := s.router.Handle(c.Request.Context(), raw)
	if handleErr != nil {
		c.JSON(statusFor(handleErr.Kind), handleErr.Body())

		return
	}

	c.JSON(http.StatusOK, body)
}

// handleHealth answers without touching the pipeline.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.router.Health())
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(kind string) int {
	switch kind {
	case request.KindValidationError, request.KindUnknownRequestType:
		return http.StatusBadRequest
	case request.KindGenerationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
