// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Web Module мониторит свои HTTP-зависимости:
//   - бэкенд анализа документов — HTTP checker (critical)
//   - JWKS endpoint identity provider — HTTP checker (critical, только
//     когда валидация токенов включена через WM_JWT_JWKS_URL)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения (e.g. "web-module")
//   - group — имя группы в метриках (WM_DEPHEALTH_GROUP)
//   - backendURL — базовый URL бэкенда анализа
//   - jwksURL — URL JWKS endpoint IdP (пустая строка — проверка не добавляется)
//   - checkInterval — интервал проверки зависимостей (WM_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	serviceID string,
	group string,
	backendURL string,
	jwksURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, backendURL, jwksURL, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	backendURL string,
	jwksURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, backendURL, jwksURL, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	serviceID string,
	group string,
	backendURL string,
	jwksURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// Бэкенд анализа — HTTP checker к health endpoint.
		dephealth.HTTP("analysis-backend",
			dephealth.FromURL(backendURL),
			dephealth.WithHTTPHealthPath("/health"),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
	}

	if jwksURL != "" {
		// У IdP health endpoint обычно на management-порту; используем
		// path самого JWKS URL — это подтверждает доступность realm.
		jwksHealthPath := "/health"
		if parsed, parseErr := url.Parse(jwksURL); parseErr == nil && parsed.Path != "" {
			jwksHealthPath = parsed.Path
		}
		opts = append(opts,
			dephealth.HTTP("idp-jwks",
				dephealth.FromURL(jwksURL),
				dephealth.WithHTTPHealthPath(jwksHealthPath),
				dephealth.CheckInterval(checkInterval),
				dephealth.Critical(true),
				dephealth.WithHTTPTLSSkipVerify(true), // Dev-среда: self-signed сертификаты
			),
		)
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
