// Пакет service — бизнес-логика Web Module.
// documents.go — workflow асинхронного анализа документов: приём файла,
// фоновая загрузка на бэкенд и опрос статуса до терминального состояния.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/legalmitra/web-module/internal/analysisclient"
	"github.com/legalmitra/web-module/internal/domain/docstate"
	"github.com/legalmitra/web-module/internal/domain/model"
	"github.com/legalmitra/web-module/internal/repository"
)

// Метрики workflow анализа документов.
var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wm_documents_total",
			Help: "Количество документов по итоговому статусу workflow",
		},
		[]string{"status"},
	)

	statusPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wm_status_polls_total",
			Help: "Количество опросов статуса по результату",
		},
		[]string{"result"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wm_analysis_duration_seconds",
			Help:    "Длительность анализа документа от приёма файла до терминального статуса",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// DocumentService — сервис workflow анализа документов.
//
// Приём файла синхронный, всё остальное — фоновые задачи:
// загрузка на бэкенд и цепочка опросов статуса. На документ
// существует не более одной задачи опроса, следующий опрос
// планируется только после завершения предыдущего.
type DocumentService struct {
	store   *repository.DocumentStore
	backend *analysisclient.Client
	logger  *slog.Logger

	pollInterval   time.Duration
	pollMaxElapsed time.Duration

	// onCompleted вызывается один раз при переходе документа в completed.
	onCompleted func(owner string, doc *model.UploadedDocument)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	watchers map[string]context.CancelFunc // docID → отмена задачи опроса
}

// NewDocumentService создаёт сервис workflow анализа.
// pollInterval — фиксированный интервал между опросами статуса.
// pollMaxElapsed — потолок общего времени опроса документа
// (0 — опрос не ограничен по времени).
func NewDocumentService(
	store *repository.DocumentStore,
	backend *analysisclient.Client,
	pollInterval, pollMaxElapsed time.Duration,
	logger *slog.Logger,
) *DocumentService {
	ctx, cancel := context.WithCancel(context.Background())
	return &DocumentService{
		store:          store,
		backend:        backend,
		logger:         logger.With(slog.String("component", "document_service")),
		pollInterval:   pollInterval,
		pollMaxElapsed: pollMaxElapsed,
		ctx:            ctx,
		cancel:         cancel,
		watchers:       make(map[string]context.CancelFunc),
	}
}

// SetOnCompleted устанавливает callback завершения анализа.
// Вызывается до начала приёма файлов.
func (s *DocumentService) SetOnCompleted(fn func(owner string, doc *model.UploadedDocument)) {
	s.onCompleted = fn
}

// Stop отменяет все фоновые задачи и дожидается их завершения.
func (s *DocumentService) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Сервис анализа документов остановлен")
}

// isSupportedFile проверяет фильтр по типу файла: принимаются только PDF
// (по MIME-типу или по расширению имени файла).
func isSupportedFile(filename, contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// Submit принимает файл на анализ.
//
// Файлы, не прошедшие фильтр по типу, отбрасываются без создания
// документа и без сетевых вызовов — возвращается ErrUnsupportedFile.
// Принятый файл сразу появляется в списке владельца в статусе uploading,
// загрузка на бэкенд выполняется в фоне. Ошибки загрузки не ретраятся:
// документ переходит в терминальный error.
func (s *DocumentService) Submit(owner, filename, contentType string, r io.Reader) (*model.UploadedDocument, error) {
	if !isSupportedFile(filename, contentType) {
		s.logger.Debug("Файл отброшен фильтром по типу",
			slog.String("filename", filename),
			slog.String("content_type", contentType),
		)
		return nil, fmt.Errorf("файл %q: %w", filename, ErrUnsupportedFile)
	}

	// Содержимое буферизуется до возврата из handler: multipart-файл
	// запроса закрывается вместе с запросом, а загрузка идёт в фоне.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("чтение файла %q: %w", filename, err)
	}

	doc := &model.UploadedDocument{
		ID:        uuid.NewString(),
		Name:      filename,
		Size:      int64(len(data)),
		Status:    docstate.StatusUploading,
		Progress:  0,
		CreatedAt: time.Now(),
	}
	s.store.Append(owner, doc)

	s.logger.Info("Документ принят на анализ",
		slog.String("doc_id", doc.ID),
		slog.String("filename", filename),
		slog.Int64("size", doc.Size),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.upload(owner, doc.ID, filename, contentType, data, doc.CreatedAt)
	}()

	return doc.Clone(), nil
}

// upload выполняет фоновую загрузку файла на бэкенд анализа
// и при успехе запускает задачу опроса статуса.
func (s *DocumentService) upload(owner, docID, filename, contentType string, data []byte, acceptedAt time.Time) {
	backendID, err := s.backend.Upload(s.ctx, filename, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("Ошибка загрузки документа на бэкенд",
			slog.String("doc_id", docID),
			slog.String("error", err.Error()),
		)
		s.markError(owner, docID, acceptedAt)
		return
	}

	s.store.UpdateByID(owner, docID, func(d *model.UploadedDocument) {
		if !docstate.CanTransition(d.Status, docstate.StatusProcessing) {
			return
		}
		d.Status = docstate.StatusProcessing
		d.Progress = 100
		d.BackendID = backendID
	})

	s.logger.Info("Документ загружен, бэкенд анализирует",
		slog.String("doc_id", docID),
		slog.String("backend_id", backendID),
	)

	s.startWatcher(owner, docID, backendID, acceptedAt)
}

// startWatcher запускает задачу опроса статуса документа.
// Задача отменяема: dismiss документа и остановка сервиса
// прерывают опрос через контекст.
func (s *DocumentService) startWatcher(owner, docID, backendID string, acceptedAt time.Time) {
	ctx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.watchers[docID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.removeWatcher(docID)
		s.watch(ctx, owner, docID, backendID, acceptedAt)
	}()
}

// removeWatcher снимает регистрацию задачи опроса и освобождает её контекст.
func (s *DocumentService) removeWatcher(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.watchers[docID]; ok {
		cancel()
		delete(s.watchers, docID)
	}
}

// watch — цикл опроса статуса документа. Первый опрос выполняется сразу,
// следующий планируется через pollInterval после завершения предыдущего —
// одновременно в полёте не более одного опроса на документ.
func (s *DocumentService) watch(ctx context.Context, owner, docID, backendID string, acceptedAt time.Time) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if s.pollMaxElapsed > 0 && time.Since(acceptedAt) > s.pollMaxElapsed {
			s.logger.Warn("Превышен потолок времени опроса, документ переводится в error",
				slog.String("doc_id", docID),
				slog.Duration("max_elapsed", s.pollMaxElapsed),
			)
			statusPollsTotal.WithLabelValues("deadline").Inc()
			s.markError(owner, docID, acceptedAt)
			return
		}

		if terminal := s.poll(ctx, owner, docID, backendID, acceptedAt); terminal {
			return
		}

		timer.Reset(s.pollInterval)
	}
}

// poll выполняет один опрос статуса. Возвращает true, когда документ
// достиг терминального состояния и опрос надо прекратить.
func (s *DocumentService) poll(ctx context.Context, owner, docID, backendID string, acceptedAt time.Time) bool {
	resp, err := s.backend.Status(ctx, backendID)
	if err != nil {
		if ctx.Err() != nil {
			// Опрос отменён (dismiss или остановка сервиса) — документ не трогаем.
			return true
		}
		s.logger.Error("Ошибка опроса статуса документа",
			slog.String("doc_id", docID),
			slog.String("error", err.Error()),
		)
		statusPollsTotal.WithLabelValues("failed").Inc()
		s.markError(owner, docID, acceptedAt)
		return true
	}

	switch resp.Status {
	case analysisclient.BackendStatusCompleted:
		statusPollsTotal.WithLabelValues("completed").Inc()
		s.markCompleted(owner, docID, resp, acceptedAt)
		return true

	case analysisclient.BackendStatusError:
		statusPollsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Бэкенд сообщил об ошибке анализа",
			slog.String("doc_id", docID),
			slog.String("error_message", resp.ErrorMessage),
		)
		s.markError(owner, docID, acceptedAt)
		return true

	default:
		// processing и любые неизвестные статусы — продолжаем опрос.
		statusPollsTotal.WithLabelValues("processing").Inc()
		return false
	}
}

// markCompleted переводит документ в completed и один раз
// вызывает callback завершения.
func (s *DocumentService) markCompleted(owner, docID string, resp *analysisclient.StatusResponse, acceptedAt time.Time) {
	summary := resp.DocumentSummary()
	transitioned := false

	s.store.UpdateByID(owner, docID, func(d *model.UploadedDocument) {
		if !docstate.CanTransition(d.Status, docstate.StatusCompleted) {
			return
		}
		d.Status = docstate.StatusCompleted
		d.Summary = summary
		transitioned = true
	})

	if !transitioned {
		return
	}

	documentsTotal.WithLabelValues(string(docstate.StatusCompleted)).Inc()
	analysisDuration.Observe(time.Since(acceptedAt).Seconds())
	s.logger.Info("Анализ документа завершён", slog.String("doc_id", docID))

	if s.onCompleted != nil {
		if doc, err := s.store.Get(owner, docID); err == nil {
			s.onCompleted(owner, doc)
		}
	}
}

// markError переводит документ в терминальный error.
// Для уже терминальных и удалённых документов — no-op.
func (s *DocumentService) markError(owner, docID string, acceptedAt time.Time) {
	transitioned := false
	s.store.UpdateByID(owner, docID, func(d *model.UploadedDocument) {
		if !docstate.CanTransition(d.Status, docstate.StatusError) {
			return
		}
		d.Status = docstate.StatusError
		transitioned = true
	})
	if transitioned {
		documentsTotal.WithLabelValues(string(docstate.StatusError)).Inc()
		analysisDuration.Observe(time.Since(acceptedAt).Seconds())
	}
}

// List возвращает документы владельца в порядке добавления.
func (s *DocumentService) List(owner string) []*model.UploadedDocument {
	return s.store.List(owner)
}

// Get возвращает документ по идентификатору.
func (s *DocumentService) Get(owner, id string) (*model.UploadedDocument, error) {
	doc, err := s.store.Get(owner, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Dismiss удаляет документ из списка владельца и отменяет его задачу
// опроса. Опоздавший ответ уже выполняющегося опроса не воскрешает
// документ: обновления по отсутствующему идентификатору — no-op.
func (s *DocumentService) Dismiss(owner, id string) error {
	s.mu.Lock()
	if cancel, ok := s.watchers[id]; ok {
		cancel()
	}
	s.mu.Unlock()

	if err := s.store.Remove(owner, id); err != nil {
		return ErrNotFound
	}

	s.logger.Info("Документ удалён из списка", slog.String("doc_id", id))
	return nil
}
