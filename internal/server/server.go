// Package server binds browse and transfer to HTTP/JSON using gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/spbridge/internal/browse"
	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

// Browser resolves browse requests.
type Browser interface {
	Browse(ctx context.Context, loc browse.Location) (*catalog.BrowseResult, error)
}

// Transferrer runs selective transfers.
type Transferrer interface {
	TransferSelected(ctx context.Context, req catalog.TransferRequest) (*catalog.TransferReport, error)
}

// Options configures the HTTP binding.
type Options struct {
	// DestinationEnabled is consulted on every transfer request. A nil func
	// means the destination is always enabled.
	DestinationEnabled func() bool
}

// Server is the HTTP front end for a Browser and a Transferrer.
type Server struct {
	browser     Browser
	transferrer Transferrer
	opts        Options
	logger      *slog.Logger
	router      *gin.Engine
}

// New builds the router. Call gin.SetMode before New to choose the mode.
func New(browser Browser, transferrer Transferrer, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		browser:     browser,
		transferrer: transferrer,
		opts:        opts,
		logger:      logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(logger))
	r.Use(requestMetrics())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/browse", s.browse)
	v1.POST("/transfers", s.transfer)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, &APIError{Code: CodeNotFound, Message: "route not found", Status: http.StatusNotFound})
	})

	s.router = r

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then drains in-flight requests
// for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", slog.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}
