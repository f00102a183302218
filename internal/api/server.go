package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/reviewdeck/internal/engine"
	"github.com/reviewdeck/internal/providers"
)

// Server exposes the derive pipeline over HTTP. It owns the engine client:
// shutting the server down disposes the client, which rejects whatever is
// still in flight.
type Server struct {
	echo      *echo.Echo
	port      int
	engine    *engine.Client
	providers map[string]providers.Provider
	log       zerolog.Logger
}

// NewServer creates a new API server around an engine client and the
// configured host providers.
func NewServer(port int, client *engine.Client, hosts map[string]providers.Provider, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	server := &Server{
		echo:      e,
		port:      port,
		engine:    client,
		providers: hosts,
		log:       log,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")
	v1.POST("/derive", s.derive)
	v1.POST("/derive/pull-request", s.deriveFromPullRequest)
}

// Start begins the API server and blocks until an interrupt signal, then
// shuts down gracefully and tears down the engine client.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("Shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.echo.Shutdown(ctx)
	s.engine.Close()
	return err
}
