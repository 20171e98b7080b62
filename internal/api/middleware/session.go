// session.go — анонимная браузерная сессия для владения документами.
//
// Список документов принадлежит сессии браузера, а не аккаунту:
// загрузка и просмотр документов не требуют входа. Идентификатор
// сессии — случайный UUID в cookie; при рестарте процесса списки
// пропадают, но cookie остаётся и просто указывает на пустой список.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SIDCookieName — имя cookie анонимной сессии браузера.
const SIDCookieName = "legalmitra_sid"

// sidCookieMaxAge — максимальный возраст cookie сессии (24 часа).
const sidCookieMaxAge = 24 * 60 * 60

const contextKeySessionID contextKey = "session_id"

// BrowserSession возвращает middleware, гарантирующий наличие
// идентификатора сессии браузера: существующий берётся из cookie,
// отсутствующий — генерируется и устанавливается в ответ.
// Идентификатор помещается в контекст запроса.
func BrowserSession(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(SIDCookieName); err == nil && cookie.Value != "" {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					sid = cookie.Value
				}
			}

			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SIDCookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   sidCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), contextKeySessionID, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID возвращает идентификатор сессии браузера из контекста.
// Пустая строка — middleware BrowserSession не применялся.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(contextKeySessionID).(string)
	return sid
}
