package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TradePilot/pkg/http/middleware"
	"TradePilot/pkg/logger"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SlowThreshold   time.Duration
	MetricsPath     string
	Registerer      prometheus.Registerer
	Gatherer        prometheus.Gatherer
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	logger *logger.Logger
}

// NewServer creates a new HTTP server with Echo.
func NewServer(lgr *logger.Logger, handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SlowThreshold:   time.Second,
		MetricsPath:     "/metrics",
		Registerer:      prometheus.DefaultRegisterer,
		Gatherer:        prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	lgr = lgr.Component("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(lgr))
	e.Use(middleware.RequestLogging(lgr, cfg.SlowThreshold))
	if cfg.Registerer != nil {
		e.Use(middleware.NewHTTPMetrics(cfg.Registerer).Middleware())
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	if cfg.MetricsPath != "" && cfg.Gatherer != nil {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		echo:   e,
		config: cfg,
		logger: lgr,
	}
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		s.logger.Info("http server listening", logger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logger.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("http server stopped gracefully")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithMetrics sets the registry used for HTTP metrics and the scrape path.
// An empty path disables the scrape endpoint.
func WithMetrics(path string, reg prometheus.Registerer, gatherer prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.MetricsPath = path
		c.Registerer = reg
		c.Gatherer = gatherer
	}
}
