package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamchat/internal/api/handlers"
	"streamchat/internal/app"
	"streamchat/internal/config"
	"streamchat/internal/logger"
	"streamchat/internal/repository"
	"streamchat/internal/service/llm"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Values from .env win over the process environment
	if err := godotenv.Overload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.WithError(err).Warn("Failed to load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	database, err := repository.Open(cfg.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewLLMProvider(ctx, &cfg.LLM, cfg.Models)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize LLM provider")
	}

	appConfig := app.NewConfig(database, provider, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(appConfig),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"provider": provider.Name(),
			"model":    provider.DefaultModel(),
			"driver":   cfg.Database.Driver,
		}).Info("Server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
}
