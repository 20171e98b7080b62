// Пакет server — HTTP-сервер Web Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/legalmitra/web-module/internal/api/handlers"
	"github.com/legalmitra/web-module/internal/api/middleware"
	"github.com/legalmitra/web-module/internal/config"
	"github.com/legalmitra/web-module/internal/ui/i18n"
)

// Handlers — набор обработчиков, монтируемых на router.
type Handlers struct {
	Documents *handlers.DocumentsHandler
	Bookings  *handlers.BookingsHandler
	Session   *handlers.SessionHandler
	Health    *handlers.HealthHandler
}

// Server — HTTP-сервер Web Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// sessionAuth защищает операции с бронированиями и /session/me;
// документы живут в анонимной сессии браузера и входа не требуют.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, sessionAuth *middleware.SessionAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(i18n.Middleware())

	// Health и metrics — без сессий (проверяются Kubernetes напрямую)
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	router.Post("/set-language", handlers.HandleSetLanguage)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BrowserSession(cfg.CookieSecure))

		// Workflow анализа документов — анонимная сессия браузера
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.Documents.Upload)
			r.Get("/", h.Documents.List)
			r.Get("/{id}", h.Documents.Get)
			r.Delete("/{id}", h.Documents.Delete)
		})

		// Сессия пользователя
		r.Post("/session", h.Session.Create)
		r.Delete("/session", h.Session.Delete)

		// Аутентифицированные маршруты
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Middleware())

			r.Get("/session/me", h.Session.Me)
			r.Get("/bookings", h.Bookings.List)
			r.Delete("/bookings/{id}", h.Bookings.Cancel)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
