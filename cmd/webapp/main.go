package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/config"
	"example.com/crypto-profit-bot/internal/portfolio"
	"example.com/crypto-profit-bot/internal/storage"
	"example.com/crypto-profit-bot/internal/storage/postgres"
	"example.com/crypto-profit-bot/internal/storage/sqlite"
	"example.com/crypto-profit-bot/internal/webapp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}
	if cfg.WebAppAddr == "" {
		logrus.Fatal("WEBAPP_ADDR is not set")
	}
	if cfg.WebAppSigningKey == "" {
		logrus.Fatal("TELEGRAM_WEB_APP_DATA is not set")
	}

	st, err := openStore(cfg)
	if err != nil {
		logrus.Fatalf("storage init error: %v", err)
	}
	defer st.Close()

	svc := portfolio.NewService(st, st)
	server := webapp.NewServer(svc, st, cfg.BotToken, cfg.WebAppSigningKey)

	httpServer := &http.Server{
		Addr:         cfg.WebAppAddr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-signals
		logrus.Info("shutdown signal received")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("server shutdown failed")
		}
	}()

	logrus.WithField("addr", cfg.WebAppAddr).Info("webapp server started")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server run error: %v", err)
	}
	logrus.Info("webapp server stopped")
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.New(cfg.PostgresDSN())
	}
	return sqlite.New(cfg.DBPath)
}
