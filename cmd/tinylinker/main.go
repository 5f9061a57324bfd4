package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tinylinker/internal/auth"
	"tinylinker/internal/bot"
	"tinylinker/internal/config"
	"tinylinker/internal/preview"
	"tinylinker/internal/server"
	"tinylinker/internal/storage"
	"tinylinker/internal/tracker"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.WithFields(logrus.Fields{
		"server_port":   cfg.ServerPort,
		"badgerdb_path": cfg.BadgerDBPath,
		"base_url":      cfg.BaseURL,
	}).Info("Configuration loaded successfully")

	repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		log.Info("Closing database...")
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	authSvc := auth.NewService(repo, cfg.JWTSecret, log)
	recorder := tracker.NewRecorder(repo, log)

	var previewScraper preview.Scraper
	if cfg.PreviewEnabled {
		previewScraper = preview.NewRodScraper(log)
	}

	srv := server.New(cfg, repo, authSvc, recorder, previewScraper, log)
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", httpServer.Addr).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if cfg.TelegramBotToken != "" {
		botHandler, err := bot.NewHandler(cfg, repo, log)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
		}
		go botHandler.Start(ctx)
	}

	<-ctx.Done()
	stop()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Shut down gracefully.")
}
