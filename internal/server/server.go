// Package server serves the live mesh over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"decisionmesh/internal/metrics"
	"decisionmesh/internal/view"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Addr    string
	Version string
	Logger  *zap.Logger
	Metrics *metrics.PrometheusRecorder
}

type Server struct {
	view    *view.View
	hub     *Hub
	engine  *gin.Engine
	logger  *zap.Logger
	metrics metrics.Recorder
	addr    string
	version string

	upgrader websocket.Upgrader
}

func New(v *view.View, hub *Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(opts.Logger)
	}
	s := &Server{
		view:    v,
		hub:     hub,
		logger:  opts.Logger,
		metrics: metrics.Nop{},
		addr:    opts.Addr,
		version: opts.Version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if opts.Metrics != nil {
		s.metrics = opts.Metrics
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger))
	s.registerRoutes(engine)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is done, then shuts down and disconnects every
// websocket session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
