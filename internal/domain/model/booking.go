// booking.go — запись о консультации с юристом.
// Источник данных — бэкенд бронирований; клиент хранит запись как
// неизменяемое значение, единственная локальная мутация — статус
// "cancelled" после успешной отмены.
package model

import (
	"strings"
	"time"
)

// Статусы бронирования, приходящие от бэкенда.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Отображаемые статусы (деривация, не хранятся).
const (
	DisplayStatusCancelled = "cancelled"
	DisplayStatusCompleted = "completed"
	DisplayStatusUpcoming  = "upcoming"
)

// Booking — запись о консультации. booking_id — серверный ключ,
// используемый во всех мутирующих операциях.
type Booking struct {
	BookingID      string  `json:"booking_id"`
	LawyerName     string  `json:"lawyer_name"`
	Specialization string  `json:"specialization,omitempty"`
	Date           string  `json:"date"`
	TimeSlot       string  `json:"time_slot,omitempty"`
	Mode           string  `json:"mode,omitempty"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount,omitempty"`
}

// ParseDate разбирает дату бронирования.
// Бэкенд отдаёт RFC 3339 или дату без времени (YYYY-MM-DD).
func (b *Booking) ParseDate() (time.Time, bool) {
	raw := strings.TrimSpace(b.Date)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// IsPast сообщает, в прошлом ли дата бронирования относительно now.
// Нераспознанная дата считается будущей (бронирование остаётся видимым
// как предстоящее, а не молча "завершается").
func (b *Booking) IsPast(now time.Time) bool {
	t, ok := b.ParseDate()
	if !ok {
		return false
	}
	return t.Before(now)
}

// DisplayStatus — презентационная деривация статуса, пересчитывается
// на каждый запрос и не мутирует хранимое состояние:
// cancelled → cancelled; прошедшая дата → completed; иначе upcoming.
func (b *Booking) DisplayStatus(now time.Time) string {
	if b.Status == BookingStatusCancelled {
		return DisplayStatusCancelled
	}
	if b.IsPast(now) {
		return DisplayStatusCompleted
	}
	return DisplayStatusUpcoming
}

// CanCancel сообщает, допустима ли отмена: только подтверждённые
// бронирования с датой не в прошлом.
func (b *Booking) CanCancel(now time.Time) bool {
	return b.Status == BookingStatusConfirmed && !b.IsPast(now)
}
