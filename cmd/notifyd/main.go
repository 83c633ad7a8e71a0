package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chedlikh/greenspace-notify/internal/config"
	"github.com/chedlikh/greenspace-notify/internal/server"
)

func main() {
	cfg := config.Load()

	srv, cleanup := server.NewServer(context.Background(), cfg)
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Notification service listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("Notification service shutting down gracefully...")
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Notification service shutdown error: %v", err)
		}
	case err := <-errCh:
		log.Fatalf("Notification service failed: %v", err)
	}
}
