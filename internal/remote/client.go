package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/telemetry"
)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultUploadPath  = "/upload"
	DefaultAnalyzePath = "/analyze"
	DefaultTimeout     = 60 * time.Second

	maxErrorBody = 200
)

// Endpoint names for metrics.
const (
	EndpointUpload  = "upload"
	EndpointAnalyze = "analyze"
)

// Client — HTTP-клиент сервиса анализа.
type Client struct {
	baseURL     string
	uploadPath  string
	analyzePath string
	timeout     time.Duration
	httpClient  *http.Client
	metrics     *telemetry.Metrics
	logger      *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес сервиса (default: http://localhost:3000).
	BaseURL string

	// UploadPath и AnalyzePath — пути endpoint'ов.
	UploadPath  string
	AnalyzePath string

	// Timeout — таймаут одного запроса (default: 60s).
	Timeout time.Duration

	// HTTPClient — транспорт. Если nil, создаётся новый.
	HTTPClient *http.Client

	// Metrics — коллекторы Prometheus (опционально).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// NewClient создаёт клиент сервиса.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	uploadPath := cfg.UploadPath
	if uploadPath == "" {
		uploadPath = DefaultUploadPath
	}

	analyzePath := cfg.AnalyzePath
	if analyzePath == "" {
		analyzePath = DefaultAnalyzePath
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		uploadPath:  uploadPath,
		analyzePath: analyzePath,
		timeout:     timeout,
		httpClient:  httpClient,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// Upload отправляет оба файла одним multipart-запросом.
//
// Файлы переименовываются в канонические имена ролей
// независимо от исходных имён. Тело ответа не читается.
func (c *Client) Upload(ctx context.Context, primary, adjacency domain.InputPayload) error {
	if primary.Role != domain.RolePrimary {
		return fmt.Errorf("%w: expected %s, got %q", ErrInvalidPayload, domain.RolePrimary, primary.Role)
	}
	if adjacency.Role != domain.RoleAdjacency {
		return fmt.Errorf("%w: expected %s, got %q", ErrInvalidPayload, domain.RoleAdjacency, adjacency.Role)
	}

	body, contentType, err := encodeMultipart(primary, adjacency)
	if err != nil {
		return fmt.Errorf("encode multipart: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, EndpointUpload, c.uploadPath, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Тело не нужно, но дочитываем его, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Analyze запускает вычисление и возвращает полный текст ответа.
// Таймаут распространяется и на чтение тела.
func (c *Client) Analyze(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, EndpointAnalyze, c.analyzePath, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(ctx, c.analyzePath, fmt.Errorf("read response: %w", err))
	}
	return string(text), nil
}

// do выполняет POST и проверяет код ответа. ctx должен нести таймаут запроса.
// При успехе вызывающий обязан закрыть resp.Body.
func (c *Client) do(ctx context.Context, endpoint, path string, body []byte, contentType string) (*http.Response, error) {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, "transport_error", time.Since(start))
		return nil, c.transportError(ctx, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		c.metrics.ObserveRequest(endpoint, "rejected", time.Since(start))

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		c.logger.Warn("service rejected request",
			"endpoint", path,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(snippet)), maxErrorBody),
		}
	}

	c.metrics.ObserveRequest(endpoint, "ok", time.Since(start))
	c.logger.Debug("service request succeeded",
		"endpoint", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

// transportError оборачивает сетевую ошибку, отмечая таймаут.
func (c *Client) transportError(ctx context.Context, path string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s: %v", ErrTransport, ErrTimeout, path, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
}

// encodeMultipart собирает тело запроса /upload.
func encodeMultipart(payloads ...domain.InputPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range payloads {
		contentType := p.ContentType
		if contentType == "" {
			contentType = domain.DefaultContentType
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			p.Role.FormField(), p.CanonicalFilename()))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.Role.FormField(), err)
		}
		if _, err := part.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", p.Role.FormField(), err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
