package client

import (
	"context"
	"time"

	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/domain/volume"
)

// Session — авторизованная сессия на удалённом сервисе
type Session struct {
	Token       string                 `json:"token"`
	UserID      string                 `json:"user_id"`
	AuditorMat  string                 `json:"mat_aud"`
	AuditorName string                 `json:"nome_aud"`
	Locations   []audit.LocationOption `json:"cds"`
}

// Remote — удалённый RPC-сервис склада. Все вызовы блокирующие
// и уважают контекст; классификацию ошибок делает пакет rpc.
type Remote interface {
	Login(ctx context.Context, login, password string) (*Session, error)
	HealthCheck(ctx context.Context) error
	SetToken(token string)

	// Записи аудита
	CreateRecord(ctx context.Context, rec *audit.Record) (string, error)
	UpdateRecord(ctx context.Context, rec *audit.Record) error
	DeleteRecord(ctx context.Context, remoteID string) error
	FindRecord(ctx context.Context, q audit.FindQuery) (string, error)
	FetchTodayRecords(ctx context.Context, location int) ([]*audit.Record, error)
	CollectReport(ctx context.Context, f audit.ReportFilters) ([]audit.ReportRow, error)

	// Сессии конференции объёмов
	OpenVolume(ctx context.Context, req volume.OpenRequest) (*volume.RemoteVolume, error)
	ActiveVolume(ctx context.Context) (*volume.RemoteVolume, error)
	SnapshotVolume(ctx context.Context, req volume.SnapshotRequest) error
	FinalizeVolume(ctx context.Context, req volume.FinalizeRequest) (*volume.FinalizeResult, error)
	CancelVolume(ctx context.Context, remoteID string) error

	// Справочные данные
	ManifestMeta(ctx context.Context, location int) (*manifest.Meta, error)
	ManifestItemsPage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.Item], error)
	BarcodePage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error)
	BarcodeDelta(ctx context.Context, location int, since time.Time, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error)
	BarcodeLookup(ctx context.Context, location int, barcode string) (*manifest.BarcodeRow, error)
	LocationOptions(ctx context.Context) ([]audit.LocationOption, error)
}
