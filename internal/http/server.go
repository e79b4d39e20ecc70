// Package http provides the jarvisd HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/command"
	"github.com/fyrsmithlabs/jarvis/internal/intent"
	"github.com/fyrsmithlabs/jarvis/internal/logging"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
	"github.com/fyrsmithlabs/jarvis/internal/session"
)

// Interpreter runs commands. *session.Session satisfies it.
type Interpreter interface {
	Interpret(ctx context.Context, req command.Request) (intent.Intent, error)
	Execute(ctx context.Context, req command.Request, events []resolver.Event) session.Result
	// TimeZone resolves currentDate values without an offset when the
	// request names no zone.
	TimeZone() string
}

// ProviderStatus reports which AI providers are configured.
type ProviderStatus interface {
	Providers() map[string]bool
}

var _ Interpreter = (*session.Session)(nil)

// Server provides HTTP endpoints for jarvisd.
type Server struct {
	echo        *echo.Echo
	interpreter Interpreter
	providers   ProviderStatus
	logger      *logging.Logger
	config      *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// BodyLimit caps request bodies, e.g. "10M". Image payloads are inline.
	BodyLimit string
}

// NewServer creates a new HTTP server.
func NewServer(interpreter Interpreter, providers ProviderStatus, logger *logging.Logger, cfg *Config) (*Server, error) {
	if interpreter == nil {
		return nil, fmt.Errorf("interpreter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "10M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})

	s := &Server{
		echo:        e,
		interpreter: interpreter,
		providers:   providers,
		logger:      logger,
		config:      cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/jarvis")
	api.POST("", s.handleInterpret)
	api.POST("/execute", s.handleExecute)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		} else {
			logger.Error(c.Request().Context(), "unhandled http error", zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, ErrorResponse{Error: msg})
		}
		if err != nil {
			logger.Warn(c.Request().Context(), "writing error response failed", zap.Error(err))
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Providers: map[string]bool{}}
	if s.providers != nil {
		resp.Providers = s.providers.Providers()
	}
	return c.JSON(http.StatusOK, resp)
}

// handleInterpret classifies a command and returns the validated intent
// without applying it.
func (s *Server) handleInterpret(c echo.Context) error {
	var body JarvisRequest
	if err := c.Bind(&body); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid jarvis request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := body.command(s.interpreter.TimeZone())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in, err := s.interpreter.Interpret(c.Request().Context(), req)
	if err != nil {
		outcome := session.Describe(err)
		return echo.NewHTTPError(statusFor(err), outcome.Message)
	}
	return c.JSON(http.StatusOK, in)
}

// handleExecute classifies and applies a command.
func (s *Server) handleExecute(c echo.Context) error {
	var body JarvisRequest
	if err := c.Bind(&body); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid jarvis request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := body.command(s.interpreter.TimeZone())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res := s.interpreter.Execute(c.Request().Context(), req, body.Events)
	return c.JSON(http.StatusOK, ExecuteResponse{Intent: res.Intent, Provider: res.Provider, Outcome: res.Outcome})
}

// statusFor maps interpretation errors: bad input is the caller's fault,
// everything else is reported as a server failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrEmptyPayload),
		errors.Is(err, command.ErrInvalidKind),
		errors.Is(err, command.ErrInvalidTimeZone),
		errors.Is(err, command.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
