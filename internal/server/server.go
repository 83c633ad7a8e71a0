package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/chedlikh/greenspace-notify/internal/config"
	hrest "github.com/chedlikh/greenspace-notify/internal/handler/http"
	wshandler "github.com/chedlikh/greenspace-notify/internal/handler/ws"
	"github.com/chedlikh/greenspace-notify/internal/middleware"
	"github.com/chedlikh/greenspace-notify/internal/repository"
	"github.com/chedlikh/greenspace-notify/internal/router"
	"github.com/chedlikh/greenspace-notify/internal/sub"
	"github.com/chedlikh/greenspace-notify/internal/usecase"
	"github.com/chedlikh/greenspace-notify/pkg/notifier"
)

// NewServer wires the service together. The returned cleanup stops the
// background workers; call it after http.Server shutdown.
func NewServer(ctx context.Context, cfg config.AppConfig) (*http.Server, func()) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// --- Init repos ---
	notifRepo := repository.NewRepository(dbpool)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Auth middleware ---
	auth := middleware.NewAuth(cfg.JWTSecret)

	// --- WS hub and handler ---
	hub := notifier.NewHub()
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go hub.Heartbeat(workerCtx, 4*time.Second)

	// --- Usecases ---
	uc := usecase.NewNotificationUsecase(notifRepo, hub)

	// --- Handlers ---
	restHandler := hrest.NewNotificationHandler(uc)
	wsHandler := wshandler.NewWSHandler(hub, uc)

	// --- Redis event ingest ---
	events := sub.NewEventSubscriber(rdb, uc, cfg.EventChannel)
	if err := events.Start(workerCtx); err != nil {
		log.Printf("event subscriber unavailable: %v", err)
	}

	// --- HTTP routes ---
	r := chi.NewRouter()
	router.SetupRoutes(r, restHandler, wsHandler, auth, rdb)

	cleanup := func() {
		stopWorkers()
		_ = events.Stop()
		_ = rdb.Close()
		dbpool.Close()
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}, cleanup
}
