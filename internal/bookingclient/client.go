// Пакет bookingclient — HTTP-клиент API бронирований консультаций.
// Операции: MyBookings (GET /api/booking/my-bookings),
// Cancel (DELETE /api/booking/booking/{booking_id}).
// Все операции требуют Bearer-авторизации; получение токена —
// ответственность внешнего identity provider.
package bookingclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/legalmitra/web-module/internal/domain/model"
)

// TokenProvider — функция, возвращающая Bearer-токен для авторизации запросов.
// Токен выдаётся внешним identity provider; Web Module его только хранит.
type TokenProvider func(ctx context.Context) (string, error)

// BookingListResponse — ответ бэкенда на GET /api/booking/my-bookings.
type BookingListResponse struct {
	Bookings []model.Booking `json:"bookings"`
}

// Client — HTTP-клиент API бронирований.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент API бронирований.
// httpClient может быть nil — тогда используется клиент с таймаутом 30s
// (передаётся снаружи, когда нужен кастомный CA).
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "booking_client")),
	}
}

// MyBookings запрашивает список бронирований текущего пользователя.
// GET /api/booking/my-bookings — Bearer-авторизация обязательна.
func (c *Client) MyBookings(ctx context.Context, tokenProvider TokenProvider) ([]model.Booking, error) {
	reqURL := c.baseURL + "/api/booking/my-bookings"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса MyBookings: %w", err)
	}

	if err := c.authorize(ctx, req, tokenProvider); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос MyBookings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("бэкенд бронирований вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var listResp BookingListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("декодирование списка бронирований: %w", err)
	}

	return listResp.Bookings, nil
}

// Cancel отменяет бронирование по серверному booking_id.
// DELETE /api/booking/booking/{booking_id} — 2xx означает успех.
func (c *Client) Cancel(ctx context.Context, bookingID string, tokenProvider TokenProvider) error {
	reqURL := fmt.Sprintf("%s/api/booking/booking/%s", c.baseURL, bookingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("создание запроса Cancel: %w", err)
	}

	if err := c.authorize(ctx, req, tokenProvider); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос Cancel бронирования %s: %w", bookingID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("бэкенд бронирований вернул статус %d при отмене %s: %s",
			resp.StatusCode, bookingID, string(body))
	}

	return nil
}

// authorize добавляет Bearer-заголовок в запрос.
func (c *Client) authorize(ctx context.Context, req *http.Request, tokenProvider TokenProvider) error {
	if tokenProvider == nil {
		return fmt.Errorf("отсутствует token provider для авторизации")
	}

	token, err := tokenProvider(ctx)
	if err != nil {
		return fmt.Errorf("получение токена: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
