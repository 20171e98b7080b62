package bookingclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockAPI создаёт mock HTTP-сервер API бронирований.
func setupMockAPI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// mockTokenProvider возвращает фиксированный токен.
func mockTokenProvider(token string) TokenProvider {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// TestClient_MyBookings проверяет получение списка бронирований.
func TestClient_MyBookings(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/booking/my-bookings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Проверяем авторизацию
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"bookings": [
				{
					"booking_id": "BK123",
					"lawyer_name": "Adv. Mehta",
					"specialization": "Criminal Law",
					"date": "2026-09-15",
					"time_slot": "10:00-10:30",
					"mode": "video",
					"status": "confirmed",
					"amount": 1500
				},
				{
					"booking_id": "BK124",
					"lawyer_name": "Adv. Iyer",
					"date": "2025-03-01",
					"status": "confirmed"
				}
			]
		}`))
	})

	client := New(server.URL, nil, testLogger())

	bookings, err := client.MyBookings(context.Background(), mockTokenProvider("test-token"))
	if err != nil {
		t.Fatalf("Ошибка MyBookings: %v", err)
	}

	if len(bookings) != 2 {
		t.Fatalf("ожидалось 2 бронирования, получено %d", len(bookings))
	}
	if bookings[0].BookingID != "BK123" {
		t.Errorf("ожидался booking_id=BK123, получен %s", bookings[0].BookingID)
	}
	if bookings[0].LawyerName != "Adv. Mehta" {
		t.Errorf("ожидался lawyer_name=Adv. Mehta, получен %s", bookings[0].LawyerName)
	}
	if bookings[0].Amount != 1500 {
		t.Errorf("ожидался amount=1500, получен %v", bookings[0].Amount)
	}
	if bookings[1].Status != "confirmed" {
		t.Errorf("ожидался status=confirmed, получен %s", bookings[1].Status)
	}
}

// TestClient_MyBookings_Unauthorized проверяет 401 от бэкенда.
func TestClient_MyBookings_Unauthorized(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"invalid token"}}`))
	})

	client := New(server.URL, nil, testLogger())

	_, err := client.MyBookings(context.Background(), mockTokenProvider("bad-token"))
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestClient_MyBookings_NoTokenProvider проверяет вызов без token provider.
func TestClient_MyBookings_NoTokenProvider(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("запрос не должен быть отправлен")
	})

	client := New(server.URL, nil, testLogger())

	_, err := client.MyBookings(context.Background(), nil)
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestClient_MyBookings_TokenError проверяет ошибку получения токена.
func TestClient_MyBookings_TokenError(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("запрос не должен быть отправлен")
	})

	client := New(server.URL, nil, testLogger())

	failing := func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("сессия истекла")
	}

	_, err := client.MyBookings(context.Background(), failing)
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestClient_Cancel проверяет успешную отмену бронирования.
func TestClient_Cancel(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/booking/booking/BK123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	client := New(server.URL, nil, testLogger())

	if err := client.Cancel(context.Background(), "BK123", mockTokenProvider("test-token")); err != nil {
		t.Fatalf("Ошибка Cancel: %v", err)
	}
}

// TestClient_Cancel_ServerError проверяет 500 при отмене.
func TestClient_Cancel_ServerError(t *testing.T) {
	server := setupMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := New(server.URL, nil, testLogger())

	err := client.Cancel(context.Background(), "BK123", mockTokenProvider("test-token"))
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}
