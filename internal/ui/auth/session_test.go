package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager("test-secret-key", false)
	if err != nil {
		t.Fatalf("создание SessionManager: %v", err)
	}
	return sm
}

func testSession() *SessionData {
	return &SessionData{
		AccessToken: "header.payload.signature",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		Subject:     "user-42",
		Username:    "asharma",
		Email:       "asharma@example.com",
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	sm := newTestManager(t)
	data := testSession()

	encrypted, err := sm.Encrypt(data)
	if err != nil {
		t.Fatalf("Encrypt вернул ошибку: %v", err)
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt вернул ошибку: %v", err)
	}

	if decrypted.AccessToken != data.AccessToken {
		t.Errorf("ожидался токен %q, получен %q", data.AccessToken, decrypted.AccessToken)
	}
	if decrypted.Username != data.Username {
		t.Errorf("ожидался username %q, получен %q", data.Username, decrypted.Username)
	}
	if decrypted.Subject != data.Subject {
		t.Errorf("ожидался subject %q, получен %q", data.Subject, decrypted.Subject)
	}
}

func TestDecryptTamperedData(t *testing.T) {
	sm := newTestManager(t)

	encrypted, err := sm.Encrypt(testSession())
	if err != nil {
		t.Fatalf("Encrypt вернул ошибку: %v", err)
	}

	// Подмена последнего символа ломает GCM-аутентификацию.
	tampered := encrypted[:len(encrypted)-2] + "xx"
	if _, err := sm.Decrypt(tampered); err == nil {
		t.Error("ожидалась ошибка дешифрования изменённых данных")
	}
}

func TestDecryptWithDifferentKey(t *testing.T) {
	sm1 := newTestManager(t)
	sm2, err := NewSessionManager("another-secret", false)
	if err != nil {
		t.Fatalf("создание SessionManager: %v", err)
	}

	encrypted, err := sm1.Encrypt(testSession())
	if err != nil {
		t.Fatalf("Encrypt вернул ошибку: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("ожидалась ошибка дешифрования чужим ключом")
	}
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"токен без exp", 0, false},
		{"токен истекает через час", time.Now().Add(time.Hour).Unix(), false},
		{"токен истёк", time.Now().Add(-time.Hour).Unix(), true},
		{"токен истекает через 10 секунд (внутри буфера)", time.Now().Add(10 * time.Second).Unix(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionData{ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestSessionCookieRoundtrip(t *testing.T) {
	sm := newTestManager(t)
	data := testSession()

	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, data); err != nil {
		t.Fatalf("SetSessionCookie вернул ошибку: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("ожидался 1 cookie, получено %d", len(cookies))
	}
	if cookies[0].Name != SessionCookieName {
		t.Errorf("ожидалось имя cookie %q, получено %q", SessionCookieName, cookies[0].Name)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie должен быть HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	session, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("GetSessionFromRequest вернул ошибку: %v", err)
	}
	if session == nil {
		t.Fatal("ожидалась сессия из cookie")
	}
	if session.Email != data.Email {
		t.Errorf("ожидался email %q, получен %q", data.Email, session.Email)
	}
}

func TestGetSessionNoCookie(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("отсутствие cookie не должно быть ошибкой: %v", err)
	}
	if session != nil {
		t.Error("без cookie сессии быть не должно")
	}
}

func TestClearSessionCookie(t *testing.T) {
	sm := newTestManager(t)

	rec := httptest.NewRecorder()
	sm.ClearSessionCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("ожидался 1 cookie, получено %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("ожидался MaxAge -1 для удаления cookie, получен %d", cookies[0].MaxAge)
	}
}
