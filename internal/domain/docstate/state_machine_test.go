package docstate

import (
	"errors"
	"testing"
)

// TestCanTransition проверяет матрицу допустимых переходов.
func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusUploading, StatusProcessing, true},
		{StatusUploading, StatusError, true},
		{StatusUploading, StatusCompleted, false}, // Нельзя пропустить processing
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusUploading, false},
		{StatusCompleted, StatusProcessing, false}, // Терминальный
		{StatusCompleted, StatusError, false},
		{StatusError, StatusProcessing, false}, // Терминальный
		{StatusError, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.to), func(t *testing.T) {
			got := CanTransition(tt.from, tt.to)
			if got != tt.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, ожидается %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

// TestTransition_Invalid проверяет ошибку недопустимого перехода.
func TestTransition_Invalid(t *testing.T) {
	_, err := Transition(StatusCompleted, StatusProcessing)
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("ожидался *TransitionError, получен %T", err)
	}
	if te.Code != "INVALID_TRANSITION" {
		t.Errorf("Code = %q, ожидается INVALID_TRANSITION", te.Code)
	}
}

// TestTransition_InvalidStatus проверяет ошибку неизвестного целевого статуса.
func TestTransition_InvalidStatus(t *testing.T) {
	_, err := Transition(StatusUploading, Status("done"))
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestTransition_Valid проверяет успешный переход.
func TestTransition_Valid(t *testing.T) {
	got, err := Transition(StatusProcessing, StatusCompleted)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != StatusCompleted {
		t.Errorf("получен статус %s, ожидается completed", got)
	}
}

// TestIsTerminal проверяет терминальность статусов.
func TestIsTerminal(t *testing.T) {
	if StatusUploading.IsTerminal() {
		t.Error("uploading не должен быть терминальным")
	}
	if StatusProcessing.IsTerminal() {
		t.Error("processing не должен быть терминальным")
	}
	if !StatusCompleted.IsTerminal() {
		t.Error("completed должен быть терминальным")
	}
	if !StatusError.IsTerminal() {
		t.Error("error должен быть терминальным")
	}
}

// TestParseStatus проверяет разбор строковых статусов.
func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"uploading", "processing", "completed", "error"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) вернул ошибку: %v", valid, err)
		}
	}

	if _, err := ParseStatus("pending"); err == nil {
		t.Error("ParseStatus(\"pending\") должен вернуть ошибку")
	}
}
