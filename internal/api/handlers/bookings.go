// bookings.go — обработчики дашборда бронирований.
// Требуют аутентификации (middleware.SessionAuth): токен из сессии
// передаётся бэкенду бронирований как Bearer.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/legalmitra/web-module/internal/api/errors"
	"github.com/legalmitra/web-module/internal/api/middleware"
	"github.com/legalmitra/web-module/internal/bookingclient"
	"github.com/legalmitra/web-module/internal/domain/model"
	"github.com/legalmitra/web-module/internal/service"
	"github.com/legalmitra/web-module/internal/ui/i18n"
)

// BookingsHandler — обработчик операций с бронированиями.
type BookingsHandler struct {
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewBookingsHandler создаёт обработчик бронирований.
func NewBookingsHandler(bookings *service.BookingService, logger *slog.Logger) *BookingsHandler {
	return &BookingsHandler{
		bookings: bookings,
		logger:   logger.With(slog.String("component", "bookings_handler")),
	}
}

// bookingView — бронирование с презентационной деривацией.
// display_status и can_cancel пересчитываются на каждый запрос
// и в хранимое состояние не попадают.
type bookingView struct {
	model.Booking
	DisplayStatus string `json:"display_status"`
	CanCancel     bool   `json:"can_cancel"`
}

// bookingListResponse — ответ со списком бронирований.
type bookingListResponse struct {
	Bookings []bookingView `json:"bookings"`
}

// cancelResponse — ответ на отмену бронирования.
type cancelResponse struct {
	BookingID string `json:"booking_id"`
	Message   string `json:"message"`
}

// sessionTokenProvider строит TokenProvider из аутентифицированной сессии.
func sessionTokenProvider(r *http.Request) bookingclient.TokenProvider {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		return nil
	}
	token := session.AccessToken
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// bookingOwner — ключ кэша бронирований: subject аутентифицированного
// пользователя.
func bookingOwner(r *http.Request) string {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		return ""
	}
	return session.Subject
}

// List обрабатывает GET /api/v1/bookings.
func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := bookingOwner(r)
	if owner == "" {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	bookings, err := h.bookings.List(r.Context(), owner, sessionTokenProvider(r))
	if err != nil {
		h.logger.Error("Ошибка загрузки бронирований",
			slog.String("error", err.Error()),
		)
		apierrors.BackendUnavailable(w, i18n.T(r.Context(), "booking.load.failed"))
		return
	}

	now := time.Now()
	views := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, bookingView{
			Booking:       b,
			DisplayStatus: b.DisplayStatus(now),
			CanCancel:     b.CanCancel(now),
		})
	}

	writeJSON(w, http.StatusOK, bookingListResponse{Bookings: views})
}

// Cancel обрабатывает DELETE /api/v1/bookings/{id}.
// Сбой бэкенда не меняет локальное состояние: пользователь получает
// локализованное уведомление, бронирование остаётся как было.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	owner := bookingOwner(r)
	if owner == "" {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	bookingID := chi.URLParam(r, "id")

	err := h.bookings.Cancel(r.Context(), owner, bookingID, sessionTokenProvider(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cancelResponse{
			BookingID: bookingID,
			Message:   i18n.T(r.Context(), "booking.cancel.success"),
		})
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Бронирование не найдено")
	case errors.Is(err, service.ErrNotCancellable):
		apierrors.Forbidden(w, i18n.T(r.Context(), "booking.cancel.not_allowed"))
	case errors.Is(err, service.ErrCancelInFlight):
		apierrors.Conflict(w, i18n.T(r.Context(), "booking.cancel.in_flight"))
	default:
		h.logger.Error("Ошибка отмены бронирования",
			slog.String("booking_id", bookingID),
			slog.String("error", err.Error()),
		)
		apierrors.BackendUnavailable(w, i18n.T(r.Context(), "booking.cancel.failed"))
	}
}
