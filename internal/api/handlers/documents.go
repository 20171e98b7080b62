// documents.go — обработчики workflow анализа документов.
// Владелец списка — анонимная сессия браузера (middleware.BrowserSession).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/legalmitra/web-module/internal/api/errors"
	"github.com/legalmitra/web-module/internal/api/middleware"
	"github.com/legalmitra/web-module/internal/domain/docstate"
	"github.com/legalmitra/web-module/internal/domain/model"
	"github.com/legalmitra/web-module/internal/service"
	"github.com/legalmitra/web-module/internal/ui/i18n"
)

// DocumentsHandler — обработчик операций с документами.
type DocumentsHandler struct {
	documents     *service.DocumentService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewDocumentsHandler создаёт обработчик документов.
// maxUploadSize — лимит размера загружаемого файла в байтах (WM_MAX_UPLOAD_SIZE).
func NewDocumentsHandler(documents *service.DocumentService, maxUploadSize int64, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		documents:     documents,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "documents_handler")),
	}
}

// uploadResponse — ответ на загрузку файла.
// Файл, не прошедший фильтр по типу, не создаёт документ:
// accepted=false с локализованным сообщением, HTTP-статус остаётся 200.
type uploadResponse struct {
	Accepted bool                    `json:"accepted"`
	Message  string                  `json:"message,omitempty"`
	Document *model.UploadedDocument `json:"document,omitempty"`
}

// documentListResponse — ответ со списком документов сессии.
type documentListResponse struct {
	Documents []*model.UploadedDocument `json:"documents"`
}

// documentResponse — документ с локализованным сообщением о результате
// анализа (заполняется только для терминальных статусов).
type documentResponse struct {
	*model.UploadedDocument
	Message string `json:"message,omitempty"`
}

// Upload обрабатывает POST /api/v1/documents.
// Multipart-форма с полем "file". Принятый документ сразу возвращается
// в статусе uploading; дальнейший прогресс клиент читает через GET.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := middleware.SessionID(r.Context())
	if owner == "" {
		apierrors.InternalError(w, "Отсутствует сессия браузера")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма или превышен размер файла")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Отсутствует поле file")
		return
	}
	defer file.Close()

	doc, err := h.documents.Submit(owner, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFile) {
			writeJSON(w, http.StatusOK, uploadResponse{
				Accepted: false,
				Message:  i18n.T(r.Context(), "document.unsupported_type"),
			})
			return
		}
		h.logger.Error("Ошибка приёма файла",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось принять файл")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Accepted: true,
		Message:  i18n.Tf(r.Context(), "document.upload.accepted", doc.Name),
		Document: doc,
	})
}

// List обрабатывает GET /api/v1/documents.
// Возвращает документы сессии в порядке добавления.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.SessionID(r.Context())
	docs := h.documents.List(owner)
	writeJSON(w, http.StatusOK, documentListResponse{Documents: docs})
}

// Get обрабатывает GET /api/v1/documents/{id}.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.SessionID(r.Context())
	id := chi.URLParam(r, "id")

	doc, err := h.documents.Get(owner, id)
	if err != nil {
		apierrors.NotFound(w, i18n.T(r.Context(), "document.not_found"))
		return
	}

	resp := documentResponse{UploadedDocument: doc}
	switch doc.Status {
	case docstate.StatusCompleted:
		resp.Message = i18n.T(r.Context(), "document.analysis.completed")
	case docstate.StatusError:
		resp.Message = i18n.T(r.Context(), "document.analysis.failed")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete обрабатывает DELETE /api/v1/documents/{id} (dismiss).
// Удаляет документ из списка и отменяет его задачу опроса.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.SessionID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.documents.Dismiss(owner, id); err != nil {
		apierrors.NotFound(w, i18n.T(r.Context(), "document.not_found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
