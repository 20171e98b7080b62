// Пакет model — доменные модели Web Module.
// document.go — загруженный документ и структурированное резюме анализа.
package model

import (
	"time"

	"github.com/legalmitra/web-module/internal/domain/docstate"
)

// UploadedDocument — документ, отправленный пользователем на анализ.
// Создаётся при приёме файла, мутируется по идентификатору по мере
// продвижения upload/poll workflow, удаляется при dismiss.
// Не персистентен: список документов живёт только в памяти процесса.
type UploadedDocument struct {
	// ID — клиентский идентификатор (UUID), стабильный на всё время жизни.
	ID string `json:"id"`
	// Name — имя файла, как его выбрал пользователь.
	Name string `json:"name"`
	// Size — размер файла в байтах.
	Size int64 `json:"size"`
	// Status — текущий статус workflow (uploading, processing, completed, error).
	Status docstate.Status `json:"status"`
	// Progress — прогресс загрузки 0-100. Осмыслен только в статусе uploading;
	// после успешной загрузки принудительно 100 (загрузка завершена, анализ — нет).
	Progress int `json:"progress"`
	// BackendID — серверный document_id, присвоенный бэкендом анализа.
	// Пустой до успешного завершения загрузки.
	BackendID string `json:"backend_id,omitempty"`
	// Summary — результат анализа. Присутствует только в статусе completed.
	Summary *DocumentSummary `json:"summary,omitempty"`
	// CreatedAt — время приёма файла.
	CreatedAt time.Time `json:"created_at"`
}

// Clone возвращает копию документа с копией Summary.
// Summary после создания не мутируется, но копия защищает
// вызывающий код от случайного изменения списка в store.
func (d *UploadedDocument) Clone() *UploadedDocument {
	clone := *d
	if d.Summary != nil {
		summary := *d.Summary
		summary.KeyArguments = append([]string(nil), d.Summary.KeyArguments...)
		summary.CitedSections = append([]CitedSection(nil), d.Summary.CitedSections...)
		clone.Summary = &summary
	}
	return &clone
}

// DocumentSummary — структурированное резюме юридического документа.
// Принадлежит исключительно родительскому UploadedDocument,
// никогда не разделяется и не мутируется после создания.
type DocumentSummary struct {
	// KeyArguments — упорядоченный список ключевых аргументов.
	KeyArguments []string `json:"key_arguments"`
	// Verdict — вердикт/заключение анализа.
	Verdict string `json:"verdict"`
	// CitedSections — упорядоченный список цитируемых статей законов.
	CitedSections []CitedSection `json:"cited_sections"`
	// Parties — стороны дела (опционально).
	Parties string `json:"parties,omitempty"`
	// CourtName — название суда (опционально).
	CourtName string `json:"court_name,omitempty"`
	// Date — дата документа (опционально, свободный текст).
	Date string `json:"date,omitempty"`
}

// CitedSection — ссылка на статью закона в резюме.
type CitedSection struct {
	// Act — название кодекса/закона (например, "IPC", "CrPC").
	Act string `json:"act"`
	// Section — номер статьи.
	Section string `json:"section"`
}
