package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repo-insights/internal/api"
	"repo-insights/internal/cache"
	"repo-insights/internal/config"
	"repo-insights/internal/github"
	"repo-insights/internal/scheduler"
	"repo-insights/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Println("Config loaded")

	// Wire the core: client -> fetcher (fetch cache) -> service
	// (transform cache).
	client := github.NewClient(cfg.GitHub.Token)
	fetchCache := cache.New(cfg.Cache.FetchTTL, cfg.Cache.FetchCapacity)
	transformCache := cache.New(cfg.Cache.TransformTTL, cfg.Cache.TransformCapacity)
	fetcher := github.NewFetcher(client, fetchCache)

	defaults := github.FetchOptions{
		MaxRecords:         cfg.Fetch.MaxRecords,
		RateLimitThreshold: cfg.Fetch.RateLimitThreshold,
		PageSize:           cfg.Fetch.PageSize,
		PageDelay:          cfg.Fetch.PageDelay,
		Retry: github.RetryPolicy{
			MaxRetries: cfg.Fetch.MaxRetries,
			BaseDelay:  cfg.Fetch.RetryBaseDelay,
		},
	}
	svc := service.New(fetcher, fetchCache, transformCache, defaults)

	// Set up HTTP server
	router := gin.Default()
	handler := api.NewHandler(cfg, svc)
	handler.Register(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start scheduler
	sched := scheduler.New(cfg, svc)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sched.Stop()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
