package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yagptchat/internal/api"
	"yagptchat/internal/config"
	"yagptchat/internal/crypto"
	"yagptchat/internal/handlers"
	"yagptchat/internal/services"
	"yagptchat/internal/store/postgres"
	"yagptchat/internal/yandexgpt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting yagptchat server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v", err)
	}
	log.Println("Database connection established.")

	// --- Dependency Injection ---
	dbStore := postgres.NewPostgresStore(dbpool)

	aead, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize encryption cipher: %v", err)
	}

	gptClient := yandexgpt.NewClient(cfg.CompletionURL, cfg.FolderID)

	authService := services.NewAuthService(dbStore, aead, cfg)
	profileService := services.NewProfileService(dbStore, aead)
	convService := services.NewConversationService(dbStore, profileService, gptClient)

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService)
	convHandler := handlers.NewConversationHandler(convService)

	// --- Router ---
	router := api.NewRouter(cfg.JWTSecret, authHandler, profileHandler, convHandler)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Run server in a goroutine so shutdown can be handled below.
	go func() {
		log.Printf("Server listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Let in-flight title generation finish before closing the pool.
	convService.Wait()

	log.Println("Server exited.")
}
