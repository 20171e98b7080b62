// Пакет config — загрузка и валидация конфигурации Web Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Web Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Secure flag для cookies (true при работе за HTTPS)
	CookieSecure bool

	// --- Бэкенд анализа документов ---

	// Базовый URL бэкенда анализа
	BackendURL string
	// Путь к CA-сертификату для TLS-соединений с бэкендом/IdP (опционально)
	BackendCACertPath string
	// Интервал опроса статуса обработки документа
	PollInterval time.Duration
	// Потолок общего времени опроса одного документа (0 — не ограничен)
	PollMaxElapsed time.Duration
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	// --- Бэкенд бронирований ---

	// Базовый URL API бронирований (по умолчанию равен BackendURL)
	BookingURL string
	// Размер кэша списков бронирований (число пользователей)
	BookingsCacheSize int
	// TTL кэша списков бронирований
	BookingsCacheTTL time.Duration

	// --- Сессии и JWT ---

	// Ключ шифрования session cookie (AES-256-GCM).
	// Пустое значение — случайный ключ на время жизни процесса.
	SessionSecret string
	// URL JWKS endpoint IdP. Пустое значение отключает валидацию подписи.
	JWTJWKSURL string
	// Ожидаемый issuer JWT (опционально)
	JWTIssuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Мониторинг зависимостей ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// WM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("WM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("WM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("WM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// WM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("WM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("WM_LOG_LEVEL: %w", err)
	}

	// WM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("WM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("WM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// WM_COOKIE_SECURE — Secure flag для cookies (по умолчанию false)
	cfg.CookieSecure, err = getEnvBool("WM_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("WM_COOKIE_SECURE: %w", err)
	}

	// --- Бэкенд анализа ---

	// WM_BACKEND_URL — базовый URL бэкенда анализа (по умолчанию localhost)
	cfg.BackendURL = strings.TrimRight(getEnvDefault("WM_BACKEND_URL", "http://localhost:8000"), "/")

	// WM_BACKEND_CA_CERT_PATH — CA-сертификат (опционально)
	cfg.BackendCACertPath = getEnvDefault("WM_BACKEND_CA_CERT_PATH", "")

	// WM_POLL_INTERVAL — интервал опроса статуса (по умолчанию 2s)
	cfg.PollInterval, err = getEnvDuration("WM_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WM_POLL_INTERVAL: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("WM_POLL_INTERVAL: значение должно быть положительным")
	}

	// WM_POLL_MAX_ELAPSED — потолок времени опроса (по умолчанию 10m, 0 отключает)
	cfg.PollMaxElapsed, err = getEnvDuration("WM_POLL_MAX_ELAPSED", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WM_POLL_MAX_ELAPSED: %w", err)
	}
	if cfg.PollMaxElapsed < 0 {
		return nil, fmt.Errorf("WM_POLL_MAX_ELAPSED: значение не может быть отрицательным")
	}

	// WM_MAX_UPLOAD_SIZE — лимит размера файла (по умолчанию 50 MiB)
	maxUpload, err := getEnvInt("WM_MAX_UPLOAD_SIZE", 52428800)
	if err != nil {
		return nil, fmt.Errorf("WM_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload < 1 {
		return nil, fmt.Errorf("WM_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}
	cfg.MaxUploadSize = int64(maxUpload)

	// --- Бэкенд бронирований ---

	// WM_BOOKING_URL — URL API бронирований (по умолчанию равен WM_BACKEND_URL)
	cfg.BookingURL = strings.TrimRight(getEnvDefault("WM_BOOKING_URL", cfg.BackendURL), "/")

	// WM_BOOKINGS_CACHE_SIZE — размер кэша (по умолчанию 256)
	cfg.BookingsCacheSize, err = getEnvInt("WM_BOOKINGS_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("WM_BOOKINGS_CACHE_SIZE: %w", err)
	}
	if cfg.BookingsCacheSize < 1 {
		return nil, fmt.Errorf("WM_BOOKINGS_CACHE_SIZE: значение должно быть положительным")
	}

	// WM_BOOKINGS_CACHE_TTL — TTL кэша (по умолчанию 5m)
	cfg.BookingsCacheTTL, err = getEnvDuration("WM_BOOKINGS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WM_BOOKINGS_CACHE_TTL: %w", err)
	}

	// --- Сессии и JWT ---

	// WM_SESSION_SECRET — ключ шифрования сессий (опционально)
	cfg.SessionSecret = getEnvDefault("WM_SESSION_SECRET", "")

	// WM_JWT_JWKS_URL — JWKS endpoint IdP (опционально)
	cfg.JWTJWKSURL = getEnvDefault("WM_JWT_JWKS_URL", "")

	// WM_JWT_ISSUER — ожидаемый issuer (опционально)
	cfg.JWTIssuer = getEnvDefault("WM_JWT_ISSUER", "")

	// WM_JWT_LEEWAY — отклонение времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("WM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WM_JWT_LEEWAY: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// WM_DEPHEALTH_GROUP — группа в метриках (по умолчанию legalmitra)
	cfg.DephealthGroup = getEnvDefault("WM_DEPHEALTH_GROUP", "legalmitra")

	// WM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("WM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// WM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("WM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень логирования: %q, допустимые: debug, info, warn, error", level)
	}
}
