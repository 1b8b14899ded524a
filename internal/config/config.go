package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения, получаемую из окружения.
type Config struct {
	BotToken string

	DBDriver   string // "sqlite" или "postgres"
	DBPath     string // путь к файлу БД для sqlite
	DBHost     string
	DBPort     int
	DBUsername string
	DBPassword string
	DBDatabase string

	CryptoCompareKey string
	CoinLimit        int
	CoinPages        int
	UpdateInterval   time.Duration

	WebAppAddr       string
	WebAppSigningKey string

	LogLevel string
}

// Load загружает конфигурацию из переменных окружения.
func Load() (Config, error) {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	// DB_DRIVER: sqlite (по умолчанию) или postgres
	driver := "sqlite"
	if v := os.Getenv("DB_DRIVER"); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "sqlite" && v != "postgres" {
			return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", v)
		}
		driver = v
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/portfolio.db"
	}

	dbPort := 5432
	if v := os.Getenv("DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbPort = n
		}
	}

	// COIN_LIMIT: размер страницы топа по капитализации
	coinLimit := 100
	if v := os.Getenv("COIN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			coinLimit = n
		}
	}

	// COIN_PAGES: количество страниц топа
	coinPages := 1
	if v := os.Getenv("COIN_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			coinPages = n
		}
	}

	// UPDATE_INTERVAL_MIN: период обновления цен в минутах
	updateInterval := time.Hour
	if v := os.Getenv("UPDATE_INTERVAL_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			updateInterval = time.Duration(n) * time.Minute
		}
	}

	// LOG_LEVEL: string (debug, info, warn, error)
	logLevel := "info"
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "debug" || v == "info" || v == "warn" || v == "error" {
			logLevel = v
		}
	}

	return Config{
		BotToken:         token,
		DBDriver:         driver,
		DBPath:           dbPath,
		DBHost:           os.Getenv("DB_HOST"),
		DBPort:           dbPort,
		DBUsername:       os.Getenv("DB_USERNAME"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBDatabase:       os.Getenv("DB_DATABASE"),
		CryptoCompareKey: os.Getenv("CRYPTO_COMPARE_AUTH"),
		CoinLimit:        coinLimit,
		CoinPages:        coinPages,
		UpdateInterval:   updateInterval,
		WebAppAddr:       os.Getenv("WEBAPP_ADDR"),
		WebAppSigningKey: os.Getenv("TELEGRAM_WEB_APP_DATA"),
		LogLevel:         logLevel,
	}, nil
}

// PostgresDSN собирает строку подключения к Postgres.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase)
}
