package service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/legalmitra/web-module/internal/analysisclient"
	"github.com/legalmitra/web-module/internal/domain/docstate"
	"github.com/legalmitra/web-module/internal/domain/model"
	"github.com/legalmitra/web-module/internal/repository"
)

// fakeBackend — мок бэкенда анализа: отдаёт processing заданное число
// раз, затем терминальный ответ. Считает запросы.
type fakeBackend struct {
	uploadCalls     atomic.Int64
	statusCalls     atomic.Int64
	processingPolls int64  // Сколько раз отвечать processing
	finalStatus     string // Терминальный ответ после processing
	failUpload      bool
	failStatus      bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
		f.uploadCalls.Add(1)
		if f.failUpload {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"document_id": "srv-doc-1"})
	})
	mux.HandleFunc("GET /api/documents/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := f.statusCalls.Add(1)
		if f.failStatus {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= f.processingPolls {
			json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
			return
		}
		switch f.finalStatus {
		case "error":
			json.NewEncoder(w).Encode(map[string]string{
				"status":        "error",
				"error_message": "analysis failed",
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"status": "completed",
				"summary": map[string]any{
					"key_arguments": []string{"argument one", "argument two"},
					"verdict":       "Appeal allowed",
					"cited_sections": []map[string]string{
						{"act": "CrPC", "section": "154"},
					},
					"parties":    "State vs. Sharma",
					"court_name": "Delhi High Court",
					"date":       "2024-03-12",
				},
			})
		}
	})
	return mux
}

func newTestService(t *testing.T, backendURL string, maxElapsed time.Duration) (*DocumentService, *repository.DocumentStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := analysisclient.New(backendURL, "", logger)
	if err != nil {
		t.Fatalf("создание клиента бэкенда: %v", err)
	}

	store := repository.NewDocumentStore()
	svc := NewDocumentService(store, backend, 10*time.Millisecond, maxElapsed, logger)
	t.Cleanup(svc.Stop)
	return svc, store
}

// waitForStatus ожидает перехода документа в указанный статус.
func waitForStatus(t *testing.T, store *repository.DocumentStore, owner, id string, want docstate.Status) *model.UploadedDocument {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := store.Get(owner, id)
		if err == nil && doc.Status == want {
			return doc
		}
		time.Sleep(5 * time.Millisecond)
	}
	doc, _ := store.Get(owner, id)
	t.Fatalf("документ не перешёл в статус %s, текущее состояние: %+v", want, doc)
	return nil
}

func TestDocumentServiceCompletesAfterProcessingPolls(t *testing.T) {
	backend := &fakeBackend{processingPolls: 3}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	doc, err := svc.Submit("sess-1", "petition.pdf", "application/pdf", strings.NewReader("%PDF-1.4 content"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}
	if doc.Status != docstate.StatusUploading {
		t.Errorf("ожидался статус uploading сразу после приёма, получен %s", doc.Status)
	}

	final := waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusCompleted)

	if got := backend.statusCalls.Load(); got != 4 {
		t.Errorf("ожидалось 4 опроса статуса (3 processing + 1 completed), получено %d", got)
	}
	if final.Progress != 100 {
		t.Errorf("ожидался прогресс 100 после загрузки, получен %d", final.Progress)
	}
	if final.BackendID != "srv-doc-1" {
		t.Errorf("ожидался backend_id srv-doc-1, получен %q", final.BackendID)
	}
	if final.Summary == nil {
		t.Fatal("ожидалось резюме в статусе completed")
	}
	if final.Summary.Verdict != "Appeal allowed" {
		t.Errorf("ожидался вердикт 'Appeal allowed', получен %q", final.Summary.Verdict)
	}
	if len(final.Summary.KeyArguments) != 2 {
		t.Errorf("ожидалось 2 ключевых аргумента, получено %d", len(final.Summary.KeyArguments))
	}
	if final.Summary.CourtName != "Delhi High Court" {
		t.Errorf("ожидался суд 'Delhi High Court', получен %q", final.Summary.CourtName)
	}
}

func TestDocumentServiceUploadFailure(t *testing.T) {
	backend := &fakeBackend{failUpload: true}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	doc, err := svc.Submit("sess-1", "petition.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}

	final := waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusError)

	if backend.statusCalls.Load() != 0 {
		t.Errorf("после сбоя загрузки опросов статуса быть не должно, выполнено %d", backend.statusCalls.Load())
	}
	if backend.uploadCalls.Load() != 1 {
		t.Errorf("загрузка не должна ретраиться, выполнено %d попыток", backend.uploadCalls.Load())
	}
	if final.Summary != nil {
		t.Error("у документа в статусе error не должно быть резюме")
	}
}

func TestDocumentServiceBackendError(t *testing.T) {
	backend := &fakeBackend{processingPolls: 1, finalStatus: "error"}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	doc, err := svc.Submit("sess-1", "contract.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}

	waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusError)

	// Опрос должен прекратиться после терминального ответа.
	calls := backend.statusCalls.Load()
	time.Sleep(50 * time.Millisecond)
	if backend.statusCalls.Load() != calls {
		t.Error("опрос продолжился после терминального статуса error")
	}
}

func TestDocumentServicePollRequestFailure(t *testing.T) {
	backend := &fakeBackend{failStatus: true}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	doc, err := svc.Submit("sess-1", "contract.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}

	waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusError)

	if got := backend.statusCalls.Load(); got != 1 {
		t.Errorf("ошибка опроса терминальна, ожидался ровно 1 опрос, выполнено %d", got)
	}
}

func TestDocumentServiceTypeFilter(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	_, err := svc.Submit("sess-1", "photo.jpg", "image/jpeg", strings.NewReader("data"))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("ожидалась ErrUnsupportedFile, получено %v", err)
	}

	if len(store.List("sess-1")) != 0 {
		t.Error("отброшенный файл не должен создавать документ")
	}
	if backend.uploadCalls.Load() != 0 {
		t.Error("отброшенный файл не должен приводить к сетевым вызовам")
	}
}

func TestDocumentServiceAcceptsByExtension(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	// MIME-тип неточный, но расширение .pdf — файл принимается.
	doc, err := svc.Submit("sess-1", "Scan.PDF", "application/octet-stream", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("файл с расширением .pdf должен приниматься: %v", err)
	}
	waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusCompleted)
}

func TestDocumentServiceDismissCancelsPolling(t *testing.T) {
	backend := &fakeBackend{processingPolls: 1000}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	doc, err := svc.Submit("sess-1", "petition.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}
	waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusProcessing)

	if err := svc.Dismiss("sess-1", doc.ID); err != nil {
		t.Fatalf("Dismiss вернул ошибку: %v", err)
	}

	if _, err := store.Get("sess-1", doc.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("документ должен быть удалён из списка")
	}

	// Опоздавший опрос не воскрешает документ.
	calls := backend.statusCalls.Load()
	time.Sleep(100 * time.Millisecond)
	if backend.statusCalls.Load() > calls+1 {
		t.Error("опрос не остановился после dismiss")
	}
	if _, err := store.Get("sess-1", doc.ID); err == nil {
		t.Error("удалённый документ воскрес после опоздавшего опроса")
	}
}

func TestDocumentServiceDismissUnknown(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, _ := newTestService(t, srv.URL, 0)

	if err := svc.Dismiss("sess-1", "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestDocumentServicePollDeadline(t *testing.T) {
	backend := &fakeBackend{processingPolls: 1000}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 50*time.Millisecond)

	doc, err := svc.Submit("sess-1", "petition.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}

	final := waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusError)
	if final.Summary != nil {
		t.Error("документ, снятый по потолку времени опроса, не должен иметь резюме")
	}
}

func TestDocumentServiceOnCompletedInvokedOnce(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, store := newTestService(t, srv.URL, 0)

	var callbackCalls atomic.Int64
	svc.SetOnCompleted(func(owner string, doc *model.UploadedDocument) {
		callbackCalls.Add(1)
		if doc.Summary == nil {
			t.Error("callback должен получать документ с резюме")
		}
	})

	doc, err := svc.Submit("sess-1", "petition.pdf", "application/pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit вернул ошибку: %v", err)
	}
	waitForStatus(t, store, "sess-1", doc.ID, docstate.StatusCompleted)

	time.Sleep(50 * time.Millisecond)
	if got := callbackCalls.Load(); got != 1 {
		t.Errorf("ожидался ровно 1 вызов callback завершения, получено %d", got)
	}
}

func TestIsSupportedFile(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        bool
	}{
		{"doc.pdf", "application/pdf", true},
		{"doc.pdf", "application/octet-stream", true},
		{"DOC.PDF", "", true},
		{"doc.docx", "application/pdf", true},
		{"doc.docx", "application/msword", false},
		{"photo.jpg", "image/jpeg", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		if got := isSupportedFile(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("isSupportedFile(%q, %q) = %v, ожидалось %v",
				tt.filename, tt.contentType, got, tt.want)
		}
	}
}
