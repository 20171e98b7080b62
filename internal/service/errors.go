package service

import "errors"

// Сентинельные ошибки сервисного слоя. Обработчики API сопоставляют их
// с кодами ответов через errors.Is.
var (
	// ErrNotFound - документ или бронирование не найдены.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFile - файл не прошёл фильтр по типу (принимаются только PDF).
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrNotCancellable - бронирование нельзя отменить (не confirmed или дата в прошлом).
	ErrNotCancellable = errors.New("booking is not cancellable")

	// ErrCancelInFlight - отмена этого бронирования уже выполняется.
	ErrCancelInFlight = errors.New("cancellation already in flight")
)
