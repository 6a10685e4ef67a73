// Package server wires the HTTP surface: echo instance, middleware stack,
// API routes and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/plugin/ai"
	"github.com/hrygo/aicall/server/conversation"
	"github.com/hrygo/aicall/server/middleware"
	"github.com/hrygo/aicall/server/router/apiv1"
	"github.com/hrygo/aicall/server/stats"
	"github.com/hrygo/aicall/server/timezone"
	"github.com/hrygo/aicall/store"
	"github.com/hrygo/aicall/store/blob"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.NewRateLimiter(time.Second/10, 20).Middleware())

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
	}

	provider, err := ai.NewProvider(ai.ConfigFromProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	blobs, err := blob.NewStore(profile.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	pipeline := conversation.NewPipeline(provider, provider, profile)
	engine := conversation.NewEngine(st, blobs, pipeline, conversation.DefaultCatalog(), nil, profile)
	summaries := conversation.NewSummaryGenerator(st, blobs, provider, profile)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": profile.Version})
	})

	loc, err := timezone.ParseTimezone(profile.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using UTC", slog.String("error", err.Error()))
	}
	collector := stats.NewCollector(st, loc)

	apiGroup := e.Group("/api/v1")
	apiv1.NewVoiceChatService(profile, st, engine, summaries).RegisterRoutes(apiGroup)
	apiGroup.GET("/stats", func(c echo.Context) error {
		snapshot, err := collector.Collect(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to collect stats")
		}
		return c.JSON(http.StatusOK, snapshot)
	})

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", slog.String("address", address), slog.String("mode", s.Profile.Mode))
	return s.echoServer.Start(address)
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}
	slog.Info("server shutdown complete")
}
