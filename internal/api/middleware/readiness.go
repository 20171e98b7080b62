// readiness.go — HTTP readiness checkers для внешних зависимостей.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const statusFail = "fail"

// HTTPReadinessChecker — проверка доступности HTTP-зависимости.
type HTTPReadinessChecker struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPReadinessChecker создаёт checker доступности HTTP-зависимости.
// url — проверяемый endpoint (обычно /health бэкенда).
func NewHTTPReadinessChecker(name, url, caCertPath string, timeout time.Duration) (*HTTPReadinessChecker, error) {
	client := &http.Client{Timeout: timeout}
	if caCertPath != "" {
		var err error
		client, err = httpClientWithCA(caCertPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA для readiness checker: %w", err)
		}
	}

	return &HTTPReadinessChecker{
		name:   name,
		url:    url,
		client: client,
	}, nil
}

// CheckReady проверяет доступность зависимости.
// Любой 2xx-ответ считается ok.
func (c *HTTPReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("%s недоступен: %v", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusFail, fmt.Sprintf("%s вернул статус %d", c.name, resp.StatusCode)
	}

	return "ok", fmt.Sprintf("%s доступен", c.name)
}

// JWKSReadinessChecker — проверка доступности JWKS endpoint IdP.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности IdP.
func NewJWKSReadinessChecker(jwksURL, caCertPath string, timeout time.Duration) (*JWKSReadinessChecker, error) {
	client := &http.Client{Timeout: timeout}
	if caCertPath != "" {
		var err error
		client, err = httpClientWithCA(caCertPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA для readiness checker: %w", err)
		}
	}

	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  client,
	}, nil
}

// CheckReady проверяет доступность JWKS endpoint IdP.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("IdP JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("IdP JWKS вернул статус %d", resp.StatusCode)
	}

	// Проверяем, что ответ — валидный JSON с ключами
	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("IdP JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return "degraded", "IdP JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
