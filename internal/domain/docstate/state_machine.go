// Пакет docstate — конечный автомат статусов документа в workflow анализа.
//
// Жизненный цикл документа:
//   - uploading → processing — загрузка успешно принята бэкендом
//   - uploading → error — сбой загрузки (терминальный)
//   - processing → completed — бэкенд вернул готовое резюме (терминальный)
//   - processing → error — бэкенд сообщил об ошибке анализа (терминальный)
//
// Из терминальных статусов (completed, error) переходы невозможны.
package docstate

import "fmt"

// Status — статус документа в workflow анализа.
type Status string

const (
	// StatusUploading — начальный статус: файл принят, идёт загрузка на бэкенд.
	StatusUploading Status = "uploading"
	// StatusProcessing — загрузка завершена, бэкенд анализирует документ.
	StatusProcessing Status = "processing"
	// StatusCompleted — анализ завершён, резюме получено (терминальный).
	StatusCompleted Status = "completed"
	// StatusError — сбой на любом этапе (терминальный).
	StatusError Status = "error"
)

// validTransitions — матрица допустимых переходов.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var validTransitions = map[Status]map[Status]bool{
	StatusUploading:  {StatusProcessing: true, StatusError: true},
	StatusProcessing: {StatusCompleted: true, StatusError: true},
	StatusCompleted:  {}, // Терминальный
	StatusError:      {}, // Терминальный
}

// IsTerminal сообщает, является ли статус терминальным:
// после него переходы для документа невозможны.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition проверяет допустимость перехода from → to.
func CanTransition(from, to Status) bool {
	transitions, ok := validTransitions[from]
	if !ok {
		return false
	}
	return transitions[to]
}

// Transition валидирует переход from → to и возвращает целевой статус
// или TransitionError, если переход недопустим.
func Transition(from, to Status) (Status, error) {
	if !isValidStatus(to) {
		return "", &TransitionError{
			Code:    "INVALID_STATUS",
			Message: fmt.Sprintf("недопустимый целевой статус: %q", to),
		}
	}
	if !CanTransition(from, to) {
		return "", &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
		}
	}
	return to, nil
}

// TransitionError — ошибка недопустимого перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_STATUS, INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// isValidStatus проверяет, является ли значение известным статусом.
func isValidStatus(s Status) bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// ParseStatus преобразует строку в Status.
// Возвращает ошибку для неизвестных значений.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !isValidStatus(st) {
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: uploading, processing, completed, error", s)
	}
	return st, nil
}
