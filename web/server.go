// Package web serves the exchange rates API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/web/middleware"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	lg             *zap.Logger
	engine         *gin.Engine
	mode           string
	port           int64
	allowedOrigins []string
	handlers       []gin.HandlerFunc
	routes         []func(gin.IRouter)
}

type Option func(*Server)

func WithMode(mode string) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

func WithPort(port int64) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithAllowedOrigins enables CORS for the given origins, see
// util.MakeAllowedOriginValidator for the accepted forms.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithCustomHandler(handler gin.HandlerFunc) Option {
	return func(s *Server) {
		s.handlers = append(s.handlers, handler)
	}
}

func WithRoutes(register func(gin.IRouter)) Option {
	return func(s *Server) {
		s.routes = append(s.routes, register)
	}
}

func NewServer(lg *zap.Logger, opts ...Option) *Server {
	s := &Server{
		lg:   lg,
		mode: gin.ReleaseMode,
		port: 8080,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(s.mode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	if len(s.allowedOrigins) > 0 {
		s.engine.Use(middleware.CORSMiddleware(s.allowedOrigins))
	}
	s.engine.Use(
		middleware.CorrelationIdMiddleware(),
		middleware.LoggingMiddleware(
			middleware.WithLogger(lg),
			middleware.WithDebugEnabled(s.mode == gin.DebugMode),
			middleware.WithExcludePaths([]string{"/", "/healthcheck"}),
		),
	)
	s.engine.Use(s.handlers...)

	s.engine.GET("/", ok)
	s.engine.GET("/healthcheck", ok)
	for _, register := range s.routes {
		register(s.engine)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.lg.Info("starting web server ...", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fail to listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.lg.Info("shutdown web server ...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("fail to shutdown web server: %w", err)
	}
	s.lg.Info("web server exiting")
	return nil
}

// StartServer blocks until SIGINT or SIGTERM.
func StartServer(lg *zap.Logger, opts ...Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewServer(lg, opts...).Run(ctx)
}

func ok(c *gin.Context) {
	c.Status(http.StatusOK)
}
