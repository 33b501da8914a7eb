// Package server hosts the HTTP surface of the question-answering service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/internal/profile"
	apiv1 "github.com/parksage/parksage/server/router/api/v1"
	"github.com/parksage/parksage/store"
)

// Server is the HTTP server hosting the API and observability endpoints.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	metrics    *metrics.PrometheusExporter
}

// healthResponse is the body of the health endpoints.
type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// NewServer builds the echo server, the metrics exporter, and the API
// service wired to the answering pipeline.
func NewServer(_ context.Context, instanceProfile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	s := &Server{
		Profile:    instanceProfile,
		Store:      storeInstance,
		echoServer: e,
		metrics:    exporter,
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(20),
			Burst:     40,
			ExpiresIn: 3 * time.Minute,
		}),
	}))
	e.Use(requestLogger())

	e.GET("/", s.health)
	e.GET("/health", s.healthz)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	apiV1Service, err := apiv1.NewAPIV1Service(instanceProfile, storeInstance, exporter)
	if err != nil {
		return nil, err
	}
	s.apiV1 = apiV1Service
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

// Start begins serving. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	return s.echoServer.Start(address)
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("parksage stopped properly")
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{
		Status:  "healthy",
		Message: "ParkSage API is running",
		Version: s.Profile.Version,
	})
}

// healthz additionally checks that the chunk store is reachable.
func (s *Server) healthz(c echo.Context) error {
	count, err := s.Store.CountChunks(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, &healthResponse{
			Status:  "degraded",
			Message: "chunk store unreachable",
			Version: s.Profile.Version,
		})
	}
	return c.JSON(http.StatusOK, &healthResponse{
		Status:  "healthy",
		Message: fmt.Sprintf("All systems operational (%d chunks indexed)", count),
		Version: s.Profile.Version,
	})
}

// requestLogger logs one line per request through slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Error("request", attrs...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}
