package main

import (
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/NgumtsaB/web-programming-project/internal/app"
	"github.com/NgumtsaB/web-programming-project/internal/config"
	"github.com/NgumtsaB/web-programming-project/internal/server"
	"github.com/NgumtsaB/web-programming-project/internal/storage"
	"github.com/NgumtsaB/web-programming-project/internal/store"
	"github.com/NgumtsaB/web-programming-project/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	images, err := storage.NewFileStore(filepath.Join(cfg.StaticDir, "images"))
	if err != nil {
		log.Fatalf("failed to init image store: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store: db,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		Images:                     images,
		StaticDir:                  cfg.StaticDir,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		TrustedProxyCIDRs:          cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr, "db", cfg.DBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
