package config

import (
	"log/slog"
	"testing"
	"time"
)

// clearEnv сбрасывает все WM_-переменные, влияющие на тесты.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"WM_PORT", "WM_LOG_LEVEL", "WM_LOG_FORMAT", "WM_COOKIE_SECURE",
		"WM_BACKEND_URL", "WM_BACKEND_CA_CERT_PATH",
		"WM_POLL_INTERVAL", "WM_POLL_MAX_ELAPSED", "WM_MAX_UPLOAD_SIZE",
		"WM_BOOKING_URL", "WM_BOOKINGS_CACHE_SIZE", "WM_BOOKINGS_CACHE_TTL",
		"WM_SESSION_SECRET", "WM_JWT_JWKS_URL", "WM_JWT_ISSUER", "WM_JWT_LEEWAY",
		"WM_DEPHEALTH_GROUP", "WM_DEPHEALTH_CHECK_INTERVAL", "WM_SHUTDOWN_TIMEOUT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("ожидался порт 8080, получен %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("ожидался уровень info, получен %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("ожидался формат json, получен %q", cfg.LogFormat)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("ожидался backend URL http://localhost:8000, получен %q", cfg.BackendURL)
	}
	if cfg.BookingURL != cfg.BackendURL {
		t.Errorf("booking URL должен наследовать backend URL, получен %q", cfg.BookingURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("ожидался интервал опроса 2s, получен %v", cfg.PollInterval)
	}
	if cfg.PollMaxElapsed != 10*time.Minute {
		t.Errorf("ожидался потолок опроса 10m, получен %v", cfg.PollMaxElapsed)
	}
	if cfg.MaxUploadSize != 52428800 {
		t.Errorf("ожидался лимит 52428800, получен %d", cfg.MaxUploadSize)
	}
	if cfg.BookingsCacheSize != 256 {
		t.Errorf("ожидался размер кэша 256, получен %d", cfg.BookingsCacheSize)
	}
	if cfg.BookingsCacheTTL != 5*time.Minute {
		t.Errorf("ожидался TTL кэша 5m, получен %v", cfg.BookingsCacheTTL)
	}
	if cfg.JWTJWKSURL != "" {
		t.Errorf("валидация JWT по умолчанию отключена, получен %q", cfg.JWTJWKSURL)
	}
	if cfg.JWTLeeway != 30*time.Second {
		t.Errorf("ожидался leeway 30s, получен %v", cfg.JWTLeeway)
	}
	if cfg.DephealthGroup != "legalmitra" {
		t.Errorf("ожидалась группа legalmitra, получена %q", cfg.DephealthGroup)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ожидался таймаут 5s, получен %v", cfg.ShutdownTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WM_PORT", "9090")
	t.Setenv("WM_BACKEND_URL", "https://analysis.legalmitra.in/")
	t.Setenv("WM_BOOKING_URL", "https://booking.legalmitra.in")
	t.Setenv("WM_POLL_INTERVAL", "500ms")
	t.Setenv("WM_POLL_MAX_ELAPSED", "0")
	t.Setenv("WM_LOG_LEVEL", "debug")
	t.Setenv("WM_LOG_FORMAT", "text")
	t.Setenv("WM_JWT_JWKS_URL", "https://idp.legalmitra.in/realms/legalmitra/protocol/openid-connect/certs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("ожидался порт 9090, получен %d", cfg.Port)
	}
	// Trailing slash убирается
	if cfg.BackendURL != "https://analysis.legalmitra.in" {
		t.Errorf("ожидался URL без trailing slash, получен %q", cfg.BackendURL)
	}
	if cfg.BookingURL != "https://booking.legalmitra.in" {
		t.Errorf("ожидался отдельный booking URL, получен %q", cfg.BookingURL)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("ожидался интервал 500ms, получен %v", cfg.PollInterval)
	}
	if cfg.PollMaxElapsed != 0 {
		t.Errorf("ожидался отключённый потолок (0), получен %v", cfg.PollMaxElapsed)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("ожидался уровень debug, получен %v", cfg.LogLevel)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"некорректный порт", "WM_PORT", "not-a-number"},
		{"порт вне диапазона", "WM_PORT", "70000"},
		{"некорректный уровень логов", "WM_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "WM_LOG_FORMAT", "xml"},
		{"некорректный интервал опроса", "WM_POLL_INTERVAL", "two seconds"},
		{"нулевой интервал опроса", "WM_POLL_INTERVAL", "0"},
		{"отрицательный лимит файла", "WM_MAX_UPLOAD_SIZE", "-1"},
		{"нулевой размер кэша", "WM_BOOKINGS_CACHE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q): ожидалась ошибка", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q) вернул ошибку: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидалось %v", tt.input, got, tt.want)
		}
	}
}
