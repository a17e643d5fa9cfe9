package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"stockaudit/internal/app/client/config"
	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/domain/rpc"
	"stockaudit/internal/domain/volume"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

var _ Remote = (*httpClient)(nil)

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	timeout := time.Duration(cfg.HTTPTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		userAgent: "StockAudit-Client/1.0",
	}, nil
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

func (h *httpClient) Login(ctx context.Context, login, password string) (*Session, error) {
	body := map[string]string{"login": login, "senha": password}

	var sess Session
	if err := h.call(ctx, "login", body, &sess); err != nil {
		return nil, err
	}

	h.token = sess.Token
	return &sess, nil
}

// ---- Записи аудита ----

func (h *httpClient) CreateRecord(ctx context.Context, rec *audit.Record) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := h.call(ctx, "aud_coleta_insert", rec, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (h *httpClient) UpdateRecord(ctx context.Context, rec *audit.Record) error {
	return h.call(ctx, "aud_coleta_update", rec, nil)
}

func (h *httpClient) DeleteRecord(ctx context.Context, remoteID string) error {
	body := map[string]string{"id": remoteID}
	return h.call(ctx, "aud_coleta_delete", body, nil)
}

// FindRecord ищет запись по натуральному ключу. Пустой ответ означает,
// что предыдущая вставка сервера не достигла.
func (h *httpClient) FindRecord(ctx context.Context, q audit.FindQuery) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := h.call(ctx, "aud_coleta_find", q, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (h *httpClient) FetchTodayRecords(ctx context.Context, location int) ([]*audit.Record, error) {
	body := map[string]int{"cd": location}

	var resp struct {
		Rows []*audit.Record `json:"rows"`
	}
	if err := h.call(ctx, "aud_coleta_today", body, &resp); err != nil {
		return nil, err
	}
	for _, r := range resp.Rows {
		r.SyncStatus = audit.StatusSynced
	}
	return resp.Rows, nil
}

func (h *httpClient) CollectReport(ctx context.Context, f audit.ReportFilters) ([]audit.ReportRow, error) {
	var resp struct {
		Rows []audit.ReportRow `json:"rows"`
	}
	if err := h.call(ctx, "aud_coleta_report", f, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// ---- Сессии конференции ----

func (h *httpClient) OpenVolume(ctx context.Context, req volume.OpenRequest) (*volume.RemoteVolume, error) {
	var resp volume.RemoteVolume
	if err := h.call(ctx, "conf_volume_open", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActiveVolume возвращает открытую сессию владельца или nil
func (h *httpClient) ActiveVolume(ctx context.Context) (*volume.RemoteVolume, error) {
	var resp struct {
		Active *volume.RemoteVolume `json:"active"`
	}
	if err := h.call(ctx, "conf_volume_get_active", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Active, nil
}

func (h *httpClient) SnapshotVolume(ctx context.Context, req volume.SnapshotRequest) error {
	return h.call(ctx, "conf_volume_sync_snapshot", req, nil)
}

func (h *httpClient) FinalizeVolume(ctx context.Context, req volume.FinalizeRequest) (*volume.FinalizeResult, error) {
	var resp volume.FinalizeResult
	if err := h.call(ctx, "conf_volume_finalize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) CancelVolume(ctx context.Context, remoteID string) error {
	body := map[string]string{"id": remoteID}
	return h.call(ctx, "conf_volume_cancel", body, nil)
}

// ---- Справочные данные ----

func (h *httpClient) ManifestMeta(ctx context.Context, location int) (*manifest.Meta, error) {
	body := map[string]int{"cd": location}

	var resp manifest.Meta
	if err := h.call(ctx, "manifest_meta", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) ManifestItemsPage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.Item], error) {
	body := map[string]any{"cd": location, "cursor": cursor, "page_size": size}

	var resp manifest.Page[manifest.Item]
	if err := h.call(ctx, "manifest_items_page", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) BarcodePage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error) {
	body := map[string]any{"cd": location, "cursor": cursor, "page_size": size}

	var resp manifest.Page[manifest.BarcodeRow]
	if err := h.call(ctx, "barcode_page", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) BarcodeDelta(ctx context.Context, location int, since time.Time, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error) {
	body := map[string]any{"cd": location, "since": since, "cursor": cursor, "page_size": size}

	var resp manifest.Page[manifest.BarcodeRow]
	if err := h.call(ctx, "barcode_delta", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) BarcodeLookup(ctx context.Context, location int, barcode string) (*manifest.BarcodeRow, error) {
	body := map[string]any{"cd": location, "barras": barcode}

	var resp manifest.BarcodeRow
	if err := h.call(ctx, "barcode_lookup", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *httpClient) LocationOptions(ctx context.Context) ([]audit.LocationOption, error) {
	var resp struct {
		Rows []audit.LocationOption `json:"rows"`
	}
	if err := h.call(ctx, "cd_options", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// ---- Транспорт ----

// call выполняет RPC-вызов и раскладывает конверт ответа.
// Все операции сервиса идут через POST /api/v1/rpc/{op}.
func (h *httpClient) call(ctx context.Context, op string, body, result any) error {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/rpc/"+op, body)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, result)
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	// Добавляем заголовки
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"body", string(body),
	)

	var env rpc.Envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			if resp.StatusCode >= 400 {
				return &rpc.Error{Message: string(body), HTTPStatus: resp.StatusCode}
			}
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	if resp.StatusCode >= 400 || env.Status == rpc.StatusError {
		return &rpc.Error{
			Code:       env.ErrorCode,
			Message:    env.Error,
			HTTPStatus: resp.StatusCode,
		}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("ошибка парсинга данных ответа: %w", err)
		}
	}

	return nil
}
