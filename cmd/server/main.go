package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nekoneko/seisan-server/internal/api"
	"github.com/nekoneko/seisan-server/internal/config"
	"github.com/nekoneko/seisan-server/internal/notify"
	"github.com/nekoneko/seisan-server/internal/repository"
	"github.com/nekoneko/seisan-server/internal/service"
	"github.com/nekoneko/seisan-server/pkg/logging"
)

func main() {
	// Local development overrides; ignored when no .env is present
	_ = godotenv.Load()

	logging.Setup()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		slog.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db, cfg.TablePrefix())

	// Create notification client
	notifier := notify.NewClient(cfg.Notify)

	// Create service
	svc := service.NewDefaultService(repo, notifier, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, cfg.AppEnv)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "addr", serverAddr, "env", cfg.AppEnv, "version", api.Version)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
