package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/siebog/console/api/handlers"
	"github.com/siebog/console/internal/config"
	"github.com/siebog/console/internal/db"
	"github.com/siebog/console/internal/logger"
	"github.com/siebog/console/internal/repository"
	"github.com/siebog/console/internal/ws"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "path to console.toml (default ~/.siebog/console.toml)")
	pflag.Parse()

	logger.Configure()
	log := logger.Named("server")

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	agentRepo := repository.NewAgentRepository(database)

	// Console hub; server log lines are mirrored to connected consoles.
	if cfg.Backlog > ws.MaxBacklog {
		log.Warnf("Console backlog %d exceeds %d, clamping", cfg.Backlog, ws.MaxBacklog)
	}
	hub := ws.NewHub(cfg.Backlog)
	defer hub.Close()
	logrus.AddHook(ws.NewConsoleHook(hub))

	wsHandler := ws.NewHandler(hub)
	if len(cfg.AllowedOrigins) > 0 {
		wsHandler.SetCheckOrigin(ws.AllowOrigins(cfg.AllowedOrigins))
	}

	agentHandler := handlers.NewAgentHandler(agentRepo, hub)
	consoleHandler := handlers.NewConsoleHandler(wsHandler)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(corsMiddleware())

	api := r.Group("/api")
	agentHandler.RegisterRoutes(api)
	consoleHandler.RegisterRoutes(r, api)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutting down server...")
		hub.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	log.Infof("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requestLogger logs each request at debug level so request noise stays
// off the console feed.
func requestLogger() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logger.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
