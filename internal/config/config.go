package config

import (
	"os"
	"strconv"
	"time"

	"telegram_rps/internal/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string

	// WorkerID идентифицирует этот процесс в колонке claimed_by
	WorkerID string

	LogLevel string
	LogJSON  bool

	// Redis (опционально, для rate limit действий)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Таймауты игры
	OfferTimeout  time.Duration
	ChoiceTimeout time.Duration

	// Лимит действий игрока
	ActionRateLimit  int
	ActionRateWindow time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "worker"
		}
		// суффикс чтобы реплики на одном хосте не совпадали
		workerID = host + "-" + uuid.NewString()[:8]
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logJSON := os.Getenv("LOG_JSON") == "true"

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			redisDB = n
		}
	}

	offerTimeout := 60 * time.Second // ожидание ответа на оффер
	if v := os.Getenv("OFFER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offerTimeout = time.Duration(n) * time.Second
		}
	}

	choiceTimeout := 20 * time.Second // ожидание хода
	if v := os.Getenv("CHOICE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			choiceTimeout = time.Duration(n) * time.Second
		}
	}

	rateLimit := 30 // макс действий за ->
	if v := os.Getenv("ACTION_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateLimit = n
		}
	}

	rateWindow := 60 * time.Second // -> 60 секунд
	if v := os.Getenv("ACTION_RATE_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateWindow = time.Duration(n) * time.Second
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		BotToken:         botToken,
		WorkerID:         workerID,
		LogLevel:         logLevel,
		LogJSON:          logJSON,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		OfferTimeout:     offerTimeout,
		ChoiceTimeout:    choiceTimeout,
		ActionRateLimit:  rateLimit,
		ActionRateWindow: rateWindow,
	}
}
