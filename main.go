// Package main our entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/vaporchat/vapor/internal/blob"
	"github.com/vaporchat/vapor/internal/config"
	"github.com/vaporchat/vapor/internal/handler"
	"github.com/vaporchat/vapor/internal/ratelimit"
	"github.com/vaporchat/vapor/internal/room"
	"github.com/vaporchat/vapor/internal/store"
	"github.com/vaporchat/vapor/internal/sweeper"
	"github.com/vaporchat/vapor/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	startedAt := time.Now().UTC()

	log.Println("Starting application...")

	// Every piece of shared mutable state is built here and passed by
	// reference; there are no ambient singletons.
	messages := store.New(cfg.MessageTTL)
	blobs := blob.New(cfg.MessageTTL, cfg.MaxBlobBytes)
	registry := room.NewRegistry(messages)
	msgCooldown := ratelimit.NewCooldown(cfg.MessageCooldown)
	uploadCooldown := ratelimit.NewCooldown(cfg.UploadCooldown)
	hub := ws.NewHub(registry, messages, msgCooldown)

	ipLimiter := ratelimit.NewIPRateLimiter(cfg.IPRequests, cfg.IPWindow, ratelimit.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer ipLimiter.Cancel()

	// The sweeper ticks independently of client activity.
	sw := sweeper.New(cfg.SweepInterval, messages, blobs)
	go sw.Run(ctx)

	r := chi.NewRouter()
	r.Use(ipLimiter.Middleware)
	r.Get("/ws", ws.ServeWs(hub))
	r.Post("/upload", handler.Upload(blobs, uploadCooldown))
	r.Get("/blob/{id}", handler.FetchBlob(blobs))
	r.Get("/stats", handler.Stats(hub, registry, messages, blobs, startedAt))
	r.Get("/health", handler.Health())

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		// No blanket read/write timeouts: they would tear down healthy
		// long-lived websocket connections.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler:           r,
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	log.Println("Server stopped")
}
