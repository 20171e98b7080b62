// bookings.go — дашборд бронирований: список консультаций пользователя
// с TTL-кэшем и отмена с оптимистичной мутацией кэша.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/legalmitra/web-module/internal/bookingclient"
	"github.com/legalmitra/web-module/internal/domain/model"
)

var bookingCancellationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wm_booking_cancellations_total",
		Help: "Количество попыток отмены бронирований по результату",
	},
	[]string{"result"},
)

// BookingService — сервис дашборда бронирований.
//
// Список пользователя загружается с бэкенда один раз и живёт в
// TTL-кэше: повторные запросы в пределах TTL обслуживаются из кэша,
// успешная отмена мутирует кэш оптимистично (без пере-запроса), а
// расхождения с бэкендом самоустраняются по истечении TTL.
type BookingService struct {
	client *bookingclient.Client
	cache  *expirable.LRU[string, []model.Booking]
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool // owner+bookingID → отмена уже выполняется
}

// NewBookingService создаёт сервис бронирований.
// cacheSize — максимум пользователей в кэше, cacheTTL — время жизни списка.
func NewBookingService(client *bookingclient.Client, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *BookingService {
	return &BookingService{
		client:   client,
		cache:    expirable.NewLRU[string, []model.Booking](cacheSize, nil, cacheTTL),
		logger:   logger.With(slog.String("component", "booking_service")),
		inflight: make(map[string]bool),
	}
}

// List возвращает бронирования пользователя. Кэш-промах приводит
// к запросу на бэкенд; ошибка запроса наружу не схлопывается —
// обработчик отвечает на неё без частичных данных.
func (s *BookingService) List(ctx context.Context, owner string, tokenProvider bookingclient.TokenProvider) ([]model.Booking, error) {
	if cached, ok := s.cache.Get(owner); ok {
		return append([]model.Booking(nil), cached...), nil
	}

	bookings, err := s.client.MyBookings(ctx, tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("загрузка бронирований: %w", err)
	}

	s.cache.Add(owner, bookings)
	s.logger.Debug("Список бронирований загружен с бэкенда",
		slog.String("owner", owner),
		slog.Int("count", len(bookings)),
	)

	return append([]model.Booking(nil), bookings...), nil
}

// Invalidate сбрасывает кэш пользователя (вызывается при logout).
func (s *BookingService) Invalidate(owner string) {
	s.cache.Remove(owner)
}

// Cancel отменяет бронирование.
//
// Отмена допустима только для подтверждённых бронирований с датой
// не в прошлом. На одно бронирование — не более одной отмены в полёте.
// Сбой бэкенда не меняет локальное состояние: бронирование остаётся
// как было, пользователь получает уведомление об ошибке. Успех
// мутирует кэш оптимистично: только целевое бронирование переводится
// в cancelled, остальные записи не трогаются.
func (s *BookingService) Cancel(ctx context.Context, owner, bookingID string, tokenProvider bookingclient.TokenProvider) error {
	bookings, err := s.List(ctx, owner, tokenProvider)
	if err != nil {
		return err
	}

	var target *model.Booking
	for i := range bookings {
		if bookings[i].BookingID == bookingID {
			target = &bookings[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("бронирование %s: %w", bookingID, ErrNotFound)
	}
	if !target.CanCancel(time.Now()) {
		return fmt.Errorf("бронирование %s: %w", bookingID, ErrNotCancellable)
	}

	key := owner + "/" + bookingID
	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return fmt.Errorf("бронирование %s: %w", bookingID, ErrCancelInFlight)
	}
	s.inflight[key] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}()

	if err := s.client.Cancel(ctx, bookingID, tokenProvider); err != nil {
		bookingCancellationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("Ошибка отмены бронирования",
			slog.String("booking_id", bookingID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("отмена бронирования %s: %w", bookingID, err)
	}

	s.markCancelled(owner, bookingID)
	bookingCancellationsTotal.WithLabelValues("cancelled").Inc()
	s.logger.Info("Бронирование отменено", slog.String("booking_id", bookingID))
	return nil
}

// markCancelled оптимистично переводит бронирование в cancelled в кэше.
// Если запись из кэша уже выпала — следующий List загрузит
// актуальное состояние с бэкенда.
func (s *BookingService) markCancelled(owner, bookingID string) {
	cached, ok := s.cache.Get(owner)
	if !ok {
		return
	}

	updated := make([]model.Booking, 0, len(cached))
	for _, b := range cached {
		if b.BookingID == bookingID {
			b.Status = model.BookingStatusCancelled
		}
		updated = append(updated, b)
	}
	s.cache.Add(owner, updated)
}
