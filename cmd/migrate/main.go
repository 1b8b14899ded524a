package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/config"
	"example.com/crypto-profit-bot/internal/storage/postgres"
	"example.com/crypto-profit-bot/internal/storage/sqlite"
)

// Применяет схему БД к сконфигурированному хранилищу и выходит.
// Хранилища мигрируют себя на открытии, команда нужна для деплоя:
// прогнать миграции до старта бота и веб-аппа.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	if cfg.DBDriver == "postgres" {
		st, err := postgres.New(cfg.PostgresDSN())
		if err != nil {
			logrus.Fatalf("postgres migration error: %v", err)
		}
		defer st.Close()
	} else {
		st, err := sqlite.New(cfg.DBPath)
		if err != nil {
			logrus.Fatalf("sqlite migration error: %v", err)
		}
		defer st.Close()
	}

	logrus.WithField("db_driver", cfg.DBDriver).Info("schema is up to date")
}
