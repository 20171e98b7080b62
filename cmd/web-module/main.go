// Точка входа Web Module — серверный фронтенд-модуль LegalMitra.
// Загружает конфигурацию, создаёт клиенты бэкендов анализа и бронирований,
// сервисный слой и API handlers, запускает мониторинг зависимостей
// (topologymetrics) и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/legalmitra/web-module/internal/analysisclient"
	"github.com/legalmitra/web-module/internal/api/handlers"
	"github.com/legalmitra/web-module/internal/api/middleware"
	"github.com/legalmitra/web-module/internal/bookingclient"
	"github.com/legalmitra/web-module/internal/config"
	"github.com/legalmitra/web-module/internal/repository"
	"github.com/legalmitra/web-module/internal/server"
	"github.com/legalmitra/web-module/internal/service"
	"github.com/legalmitra/web-module/internal/ui/auth"
	"github.com/legalmitra/web-module/internal/ui/i18n"
)

// readinessTimeout — таймаут HTTP-проверок в readiness probe.
const readinessTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Web Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("WM_DEPHEALTH_GROUP") == "" {
		logger.Warn("WM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. i18n — каталоги en/hi из embed.FS
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки i18n каталогов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Клиент бэкенда анализа
	analysisClient, err := analysisclient.New(cfg.BackendURL, cfg.BackendCACertPath, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента бэкенда анализа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент бэкенда анализа создан", slog.String("url", cfg.BackendURL))

	// 5. Клиент API бронирований
	bookingClient := bookingclient.New(cfg.BookingURL, nil, logger)

	// 6. In-memory хранилище документов (списки живут в памяти процесса)
	docStore := repository.NewDocumentStore()

	// 7. Сервисный слой
	documentsSvc := service.NewDocumentService(
		docStore, analysisClient,
		cfg.PollInterval, cfg.PollMaxElapsed,
		logger,
	)
	defer documentsSvc.Stop()

	bookingsSvc := service.NewBookingService(
		bookingClient,
		cfg.BookingsCacheSize, cfg.BookingsCacheTTL,
		logger,
	)

	// 8. Session Manager — шифрование сессий (AES-256-GCM)
	if cfg.SessionSecret == "" {
		logger.Warn("WM_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, cfg.CookieSecure)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Auth middleware (опциональная JWKS-валидация токенов)
	sessionAuth, err := middleware.NewSessionAuth(
		sessionMgr,
		cfg.JWTJWKSURL,
		cfg.BackendCACertPath,
		cfg.JWTIssuer,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания auth middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.JWTJWKSURL != "" {
		logger.Info("JWKS-валидация токенов включена",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("WM_JWT_JWKS_URL не задан, подпись токенов не валидируется")
	}

	// 10. Readiness checkers (бэкенд анализа + IdP)
	backendChecker, err := middleware.NewHTTPReadinessChecker(
		"бэкенд анализа", cfg.BackendURL+"/health", cfg.BackendCACertPath, readinessTimeout)
	if err != nil {
		logger.Error("Ошибка создания readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var idpChecker handlers.ReadinessChecker
	if cfg.JWTJWKSURL != "" {
		checker, checkerErr := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.BackendCACertPath, readinessTimeout)
		if checkerErr != nil {
			logger.Error("Ошибка создания IdP readiness checker", slog.String("error", checkerErr.Error()))
			os.Exit(1)
		}
		idpChecker = checker
	}

	// 11. topologymetrics — мониторинг зависимостей
	ctx := context.Background()
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"web-module",
		cfg.DephealthGroup,
		cfg.BackendURL,
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. API handlers
	h := server.Handlers{
		Documents: handlers.NewDocumentsHandler(documentsSvc, cfg.MaxUploadSize, logger),
		Bookings:  handlers.NewBookingsHandler(bookingsSvc, logger),
		Session:   handlers.NewSessionHandler(sessionMgr, bookingsSvc, logger),
		Health:    handlers.NewHealthHandler(backendChecker, idpChecker),
	}

	// 13. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, h, sessionAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
