package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	internalbot "example.com/crypto-profit-bot/internal/bot"
	"example.com/crypto-profit-bot/internal/config"
	"example.com/crypto-profit-bot/internal/market"
	"example.com/crypto-profit-bot/internal/portfolio"
	"example.com/crypto-profit-bot/internal/storage"
	"example.com/crypto-profit-bot/internal/storage/postgres"
	"example.com/crypto-profit-bot/internal/storage/sqlite"
	"example.com/crypto-profit-bot/internal/updater"
)

func main() {
	// Загружаем .env в самом начале
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	// Настройка логгера после загрузки .env
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	// Установка уровня логирования из конфигурации
	switch cfg.LogLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.WithFields(logrus.Fields{
		"log_level":       cfg.LogLevel,
		"db_driver":       cfg.DBDriver,
		"coin_limit":      cfg.CoinLimit,
		"coin_pages":      cfg.CoinPages,
		"update_interval": cfg.UpdateInterval.String(),
	}).Info("config loaded")

	st, err := openStore(cfg)
	if err != nil {
		logrus.Fatalf("storage init error: %v", err)
	}
	defer st.Close()

	svc := portfolio.NewService(st, st)

	bot, err := internalbot.New(cfg.BotToken, st, svc)
	if err != nil {
		logrus.Fatalf("bot init error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов для graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-signals
		logrus.Info("shutdown signal received")
		cancel()
	}()

	// Фоновое обновление каталога цен
	upd := updater.New(market.NewClient(cfg.CryptoCompareKey), st,
		cfg.CoinLimit, cfg.CoinPages, cfg.UpdateInterval)
	go upd.Run(ctx)

	if err := bot.Start(ctx); err != nil {
		logrus.Fatalf("bot run error: %v", err)
	}

	// Даем немного времени на корректное завершение внутренних горутин
	time.Sleep(300 * time.Millisecond)
	logrus.Info("bot stopped")
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.New(cfg.PostgresDSN())
	}
	return sqlite.New(cfg.DBPath)
}
