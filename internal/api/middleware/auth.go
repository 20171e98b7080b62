// auth.go — аутентификация запросов к дашборду бронирований.
//
// Bearer-токен выдаётся внешним identity provider и хранится в
// зашифрованной сессии (cookie). Middleware извлекает сессию,
// проверяет срок жизни токена и — когда настроен JWKS endpoint —
// валидирует подпись токена (RS256). Получение и обновление токена
// в зону ответственности Web Module не входят.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/legalmitra/web-module/internal/api/errors"
	"github.com/legalmitra/web-module/internal/ui/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const contextKeySession contextKey = "auth_session"

// Параметры JWKS-клиента.
const (
	jwksClientTimeout   = 10 * time.Second
	jwksRefreshInterval = 5 * time.Minute
)

// SessionAuth — middleware аутентификации через зашифрованную сессию.
type SessionAuth struct {
	sessions *auth.SessionManager
	jwks     keyfunc.Keyfunc // nil — валидация подписи отключена
	issuer   string
	leeway   time.Duration
	logger   *slog.Logger
}

// NewSessionAuth создаёт middleware аутентификации.
// jwksURL — JWKS endpoint IdP; пустая строка отключает валидацию подписи
// (token принимается как есть, проверяется только срок жизни из сессии).
// caCertPath — опциональный CA-сертификат для TLS к IdP.
func NewSessionAuth(
	sessions *auth.SessionManager,
	jwksURL string,
	caCertPath string,
	issuer string,
	leeway time.Duration,
	logger *slog.Logger,
) (*SessionAuth, error) {
	sa := &SessionAuth{
		sessions: sessions,
		issuer:   issuer,
		leeway:   leeway,
		logger:   logger.With(slog.String("component", "session_auth")),
	}

	if jwksURL == "" {
		return sa, nil
	}

	httpClient := http.DefaultClient
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, jwksClientTimeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
		logger.Info("CA-сертификат для JWKS добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	sa.jwks = k
	return sa, nil
}

// NewSessionAuthWithKeyfunc создаёт middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewSessionAuthWithKeyfunc(
	sessions *auth.SessionManager,
	kf keyfunc.Keyfunc,
	issuer string,
	leeway time.Duration,
	logger *slog.Logger,
) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		jwks:     kf,
		issuer:   issuer,
		leeway:   leeway,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// httpClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caCertPool,
			},
		},
	}, nil
}

// Middleware возвращает HTTP middleware аутентификации.
// Извлекает сессию из cookie, проверяет срок жизни токена,
// при настроенном JWKS валидирует подпись и помещает сессию в контекст.
func (sa *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sa.sessions.GetSessionFromRequest(r)
			if err != nil {
				sa.logger.Debug("Сессия не расшифрована",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидная сессия")
				return
			}
			if session == nil || session.AccessToken == "" {
				apierrors.Unauthorized(w, "Требуется вход")
				return
			}
			if session.IsExpired() {
				apierrors.Unauthorized(w, "Сессия истекла, требуется повторный вход")
				return
			}

			if sa.jwks != nil {
				parserOpts := []jwt.ParserOption{
					jwt.WithValidMethods([]string{"RS256"}),
					jwt.WithExpirationRequired(),
					jwt.WithLeeway(sa.leeway),
				}
				if sa.issuer != "" {
					parserOpts = append(parserOpts, jwt.WithIssuer(sa.issuer))
				}

				token, err := jwt.Parse(session.AccessToken, sa.jwks.KeyfuncCtx(r.Context()), parserOpts...)
				if err != nil || !token.Valid {
					sa.logger.Debug("JWT валидация не пройдена",
						slog.String("remote_addr", r.RemoteAddr),
					)
					apierrors.Unauthorized(w, "Невалидный или просроченный токен")
					return
				}
			}

			ctx := context.WithValue(r.Context(), contextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext возвращает аутентифицированную сессию из контекста.
// nil — middleware аутентификации не применялся.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(contextKeySession).(*auth.SessionData)
	return session
}
