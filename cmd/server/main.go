package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lectorium/server/internal/api"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/books"
	"github.com/lectorium/server/internal/config"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/storage"
	"github.com/lectorium/server/internal/tts"
	"github.com/lectorium/server/internal/users"
)

// @title Lectorium API
// @version 1.0
// @description Audiobook catalogue, accounts and book ingestion.
// @BasePath /api
func main() {
	cfg := config.Load()

	db, err := repositories.Connect(cfg.DB_URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token issuer: %v", err)
	}

	blobs := storage.NewClient(cfg.R2)
	turnstile := auth.NewTurnstileVerifier(cfg.Turnstile, nil)
	synth := tts.NewJobClient(cfg.TTS)

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)

	userService := &users.Service{
		Users:           userRepo,
		Photos:          blobs,
		Tokens:          tokens,
		DefaultPhotoURL: cfg.R2.PublicBaseURL + "/images/users/default-profile-picture.webp",
	}

	ingestor := books.NewIngestor(userRepo, bookRepo, blobs, synth, tokens)

	handler, err := api.SetupRouter(cfg, api.Deps{
		Users:     userService,
		Books:     bookRepo,
		Ingestor:  ingestor,
		Tokens:    tokens,
		Turnstile: turnstile,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients. The write
		// timeout stays generous because AI narration polls a transcode job.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting Lectorium server on port: %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on port %s: %v", cfg.Port, err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
