// session.go — обработчики сессии пользователя.
//
// Получение токена — ответственность внешнего identity provider:
// SPA проходит вход на стороне IdP и передаёт готовый Bearer-токен
// в POST /api/v1/session. Web Module извлекает identity-claims
// (без проверки подписи — она выполняется в middleware при
// настроенном JWKS) и хранит токен в зашифрованном cookie.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/legalmitra/web-module/internal/api/errors"
	"github.com/legalmitra/web-module/internal/api/middleware"
	"github.com/legalmitra/web-module/internal/service"
	"github.com/legalmitra/web-module/internal/ui/auth"
	"github.com/legalmitra/web-module/internal/ui/i18n"
)

// SessionHandler — обработчик операций с сессией.
type SessionHandler struct {
	sessions *auth.SessionManager
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewSessionHandler создаёт обработчик сессий.
// bookings нужен для сброса кэша бронирований при logout (может быть nil).
func NewSessionHandler(sessions *auth.SessionManager, bookings *service.BookingService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		bookings: bookings,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// createSessionRequest — тело POST /api/v1/session.
type createSessionRequest struct {
	AccessToken string `json:"access_token"`
}

// sessionInfoResponse — публичное представление сессии.
type sessionInfoResponse struct {
	Subject  string `json:"subject"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// tokenClaims — identity-claims, извлекаемые из токена IdP.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
}

// Create обрабатывает POST /api/v1/session.
// Принимает Bearer-токен, извлекает claims и устанавливает
// зашифрованный session cookie.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		apierrors.ValidationError(w, "Ожидается тело {\"access_token\": \"...\"}")
		return
	}

	// Подпись здесь не проверяется: claims нужны только для отображения
	// и ключа кэша, авторизацию запросов выполняет middleware.
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(req.AccessToken, claims); err != nil {
		apierrors.ValidationError(w, "Токен не является валидным JWT")
		return
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		apierrors.ValidationError(w, "Отсутствует sub в токене")
		return
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Name
	}

	session := &auth.SessionData{
		AccessToken: req.AccessToken,
		Subject:     subject,
		Username:    username,
		Email:       claims.Email,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if session.IsExpired() {
		apierrors.Unauthorized(w, "Токен уже истёк")
		return
	}

	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось создать сессию")
		return
	}

	h.logger.Info("Сессия создана", slog.String("subject", subject))
	writeJSON(w, http.StatusCreated, sessionInfoResponse{
		Subject:  session.Subject,
		Username: session.Username,
		Email:    session.Email,
	})
}

// Me обрабатывает GET /api/v1/session/me (за middleware аутентификации).
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	writeJSON(w, http.StatusOK, sessionInfoResponse{
		Subject:  session.Subject,
		Username: session.Username,
		Email:    session.Email,
	})
}

// Delete обрабатывает DELETE /api/v1/session (logout).
// Удаляет session cookie и сбрасывает кэш бронирований пользователя.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessions.GetSessionFromRequest(r); err == nil && session != nil {
		if h.bookings != nil && session.Subject != "" {
			h.bookings.Invalidate(session.Subject)
		}
		h.logger.Info("Сессия завершена", slog.String("subject", session.Subject))
	}

	h.sessions.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": i18n.T(r.Context(), "session.signed_out"),
	})
}
