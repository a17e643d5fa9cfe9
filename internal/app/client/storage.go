package client

import (
	"time"

	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/domain/volume"
)

// Storage — локальное хранилище устройства: очередь мутаций,
// проекции сессий и справочные кэши. Единственная реализация — SQLite,
// интерфейс нужен движку синхронизации и тестам.
type Storage interface {
	// Записи аудита
	SaveRecord(rec *audit.Record) error
	RemoveRecord(localID string) error
	GetRecord(localID string) (*audit.Record, error)
	ListRecords(ownerID string, location int) ([]*audit.Record, error)
	ListPendingRecords(ownerID string) ([]*audit.Record, error)
	PendingSummary(ownerID string) (audit.PendingSummary, error)

	// Сессии конференции объёмов
	SaveVolume(v *volume.LocalVolume) error
	RemoveVolume(localKey string) error
	GetVolume(localKey string) (*volume.LocalVolume, error)
	ListVolumes(ownerID string) ([]*volume.LocalVolume, error)
	ListPendingVolumes(ownerID string) ([]*volume.LocalVolume, error)

	// Кэш штрих-кодов
	ReplaceBarcodeCache(location int, rows []manifest.BarcodeRow, meta manifest.BarcodeMeta) error
	MergeBarcodeCache(location int, rows []manifest.BarcodeRow, meta manifest.BarcodeMeta) error
	GetBarcode(location int, barcode string) (*manifest.BarcodeRow, error)
	BarcodeCacheMeta(location int) (*manifest.BarcodeMeta, error)
	ClearBarcodeCache(location int) error

	// Манифест
	ReplaceManifest(meta manifest.Meta, items []manifest.Item) error
	ManifestMeta(location int) (*manifest.Meta, error)
	ListManifestItems(location int) ([]manifest.Item, error)

	// Настройки владельца
	GetPreferences(ownerID string) (audit.Preferences, error)
	SavePreferences(ownerID string, prefs audit.Preferences) error

	// Обслуживание
	EvictExpired(ownerID string, before time.Time) (int, error)
	ClearOwnerData(ownerID string) error

	Close() error
}
