// Пакет analysisclient — HTTP-клиент бэкенда анализа документов.
// Поддерживает TLS с кастомным CA (WM_BACKEND_CA_CERT_PATH).
// Операции: Upload (POST /api/documents/upload, multipart),
// Status (GET /api/documents/status/{document_id}).
package analysisclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/legalmitra/web-module/internal/domain/model"
)

// Статусы обработки, возвращаемые бэкендом анализа.
const (
	BackendStatusProcessing = "processing"
	BackendStatusCompleted  = "completed"
	BackendStatusError      = "error"
)

// Значения по умолчанию для опциональных полей резюме.
const (
	// defaultVerdict — вердикт при отсутствии verdict в ответе.
	defaultVerdict = "Processing completed"
	// defaultAct — кодекс при отсутствии act в cited_sections.
	defaultAct = "IPC"
)

// UploadResponse — ответ бэкенда на загрузку документа.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
}

// StatusResponse — ответ бэкенда на запрос статуса обработки.
type StatusResponse struct {
	Status       string          `json:"status"`
	Summary      *backendSummary `json:"summary,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// backendSummary — сырой формат резюме от бэкенда (snake_case поля).
type backendSummary struct {
	KeyArguments  []string         `json:"key_arguments"`
	Verdict       string           `json:"verdict"`
	CitedSections []backendSection `json:"cited_sections"`
	Parties       string           `json:"parties"`
	CourtName     string           `json:"court_name"`
	Date          string           `json:"date"`
}

// backendSection — сырая ссылка на статью закона от бэкенда.
type backendSection struct {
	Act     string `json:"act"`
	Section string `json:"section"`
}

// DocumentSummary преобразует сырой ответ бэкенда в модель резюме.
// Поле summary в ответе может отсутствовать — тогда возвращается
// резюме с дефолтными значениями. Маппинг полей:
// key_arguments → KeyArguments, verdict → Verdict (default "Processing completed"),
// cited_sections[] → CitedSections[] (act default "IPC", section default ""),
// parties, court_name → CourtName, date.
func (r *StatusResponse) DocumentSummary() *model.DocumentSummary {
	summary := &model.DocumentSummary{
		Verdict: defaultVerdict,
	}

	raw := r.Summary
	if raw == nil {
		return summary
	}

	if len(raw.KeyArguments) > 0 {
		summary.KeyArguments = append([]string(nil), raw.KeyArguments...)
	}
	if raw.Verdict != "" {
		summary.Verdict = raw.Verdict
	}
	for _, s := range raw.CitedSections {
		act := s.Act
		if act == "" {
			act = defaultAct
		}
		summary.CitedSections = append(summary.CitedSections, model.CitedSection{
			Act:     act,
			Section: s.Section,
		})
	}
	summary.Parties = raw.Parties
	summary.CourtName = raw.CourtName
	summary.Date = raw.Date

	return summary
}

// Client — HTTP-клиент бэкенда анализа.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент бэкенда анализа.
// baseURL — базовый URL бэкенда (trailing slash убирается).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата бэкенда: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат бэкенда добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:    normalizeURL(baseURL),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "analysis_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// Upload отправляет файл на анализ.
// POST /api/documents/upload — multipart/form-data с полем "file".
// Возвращает серверный document_id. Non-2xx ответ — ошибка загрузки.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("создание multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("копирование файла в multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("финализация multipart: %w", err)
	}

	reqURL := c.baseURL + "/api/documents/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return "", fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос Upload к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("бэкенд анализа вернул статус %d при загрузке: %s", resp.StatusCode, string(respBody))
	}

	var uploadResp UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("декодирование ответа Upload: %w", err)
	}
	if uploadResp.DocumentID == "" {
		return "", fmt.Errorf("бэкенд анализа не вернул document_id")
	}

	return uploadResp.DocumentID, nil
}

// Status запрашивает статус обработки документа.
// GET /api/documents/status/{document_id}.
// Non-2xx ответ — ошибка проверки статуса (фатальная для документа).
func (c *Client) Status(ctx context.Context, documentID string) (*StatusResponse, error) {
	reqURL := fmt.Sprintf("%s/api/documents/status/%s", c.baseURL, documentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Status: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос Status документа %s: %w", documentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("бэкенд анализа вернул статус %d для документа %s: %s",
			resp.StatusCode, documentID, string(respBody))
	}

	var statusResp StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return nil, fmt.Errorf("декодирование ответа Status документа %s: %w", documentID, err)
	}

	return &statusResp, nil
}

// BaseURL возвращает базовый URL бэкенда (для dephealth-проверок).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}
