package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	hrest "github.com/chedlikh/greenspace-notify/internal/handler/http"
	wshandler "github.com/chedlikh/greenspace-notify/internal/handler/ws"
	"github.com/chedlikh/greenspace-notify/internal/middleware"
)

// SetupRoutes configures the HTTP routes for the notification service
func SetupRoutes(
	r chi.Router,
	h *hrest.NotificationHandler,
	wsHandler *wshandler.WSHandler,
	auth *middleware.Auth,
	rdb *redis.Client,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "global"))

	// ============================================================
	// Notification routes (all require auth)
	// ============================================================
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/user/{userId}", h.ListByUser)
		r.Get("/user/{userId}/unread-count", h.CountUnread)
		r.Delete("/user/{userId}", h.ClearByUser)
		r.Put("/{id}/mark-as-read", h.MarkAsRead)
		r.Put("/mark-all-read/{userId}", h.MarkAllAsRead)
		r.Post("/", h.Create)
	})

	// WebSocket push endpoint
	r.With(auth.Middleware).Get("/ws/notifications", wsHandler.HandleNotifications)

	return r
}
