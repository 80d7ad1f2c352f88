package api

import (
	"context"
	"strconv"

	"chatter/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware. ctx bounds the background work of the rate limiters.
func SetupRouter(ctx context.Context, handler *Handler, verifier TokenVerifier, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	authLimiter := NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	uploadLimiter := NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	requireAuth := RequireAuth(verifier)

	// Health & stats
	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)

	// Accounts (rate-limited)
	e.POST("/api/register", handler.HandleRegister, authLimiter.Middleware())
	e.POST("/api/login", handler.HandleLogin, authLimiter.Middleware())

	// Upload (rate-limited, size-capped)
	e.POST("/api/upload", handler.HandleUpload,
		uploadLimiter.Middleware(),
		middleware.BodyLimit(strconv.FormatInt(cfg.MaxFileSize, 10)+"B"),
		requireAuth,
	)
	e.GET("/api/images/:filename", handler.HandleGetImage)

	// Messages
	e.GET("/api/messages", handler.HandleListMessages)
	e.POST("/api/messages", handler.HandlePostMessage, requireAuth)
	e.POST("/api/clear", handler.HandleClear, requireAuth)

	// Working time
	e.POST("/api/add-time", handler.HandleAddTime, requireAuth)

	return e
}
