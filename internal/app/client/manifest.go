package client

import (
	"context"
	"fmt"
	"time"

	"stockaudit/internal/domain/manifest"
)

// RefreshManifest обновляет локальный манифест ЦД. Совпадение
// content_hash с сервером означает, что качать нечего.
func (a *App) RefreshManifest(ctx context.Context) (*manifest.Meta, bool, error) {
	location := a.ActiveLocation()

	remoteMeta, err := a.remote.ManifestMeta(ctx, location)
	if err != nil {
		return nil, false, fmt.Errorf("метаданные манифеста: %w", err)
	}

	localMeta, err := a.storage.ManifestMeta(location)
	if err != nil {
		return nil, false, err
	}
	if localMeta.ContentHash != "" && localMeta.ContentHash == remoteMeta.ContentHash {
		a.log.Debug("Манифест не менялся", "cd", location, "hash", localMeta.ContentHash)
		return localMeta, false, nil
	}

	pageSize := a.config.BarcodePageSize
	var items []manifest.Item
	cursor := ""
	for {
		page, err := a.remote.ManifestItemsPage(ctx, location, cursor, pageSize)
		if err != nil {
			return nil, false, fmt.Errorf("страница манифеста: %w", err)
		}
		items = append(items, page.Rows...)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	meta := manifest.Meta{
		Location:    location,
		RefDate:     remoteMeta.RefDate,
		ContentHash: remoteMeta.ContentHash,
		ItemCount:   len(items),
		FetchedAt:   time.Now(),
	}
	if err := a.storage.ReplaceManifest(meta, items); err != nil {
		return nil, false, err
	}

	a.log.Info("Манифест обновлён", "cd", location, "items", len(items))
	return &meta, true, nil
}

// ManifestItems — локальная копия манифеста
func (a *App) ManifestItems() ([]manifest.Item, error) {
	return a.storage.ListManifestItems(a.ActiveLocation())
}

// RefreshBarcodeCache обновляет кэш штрих-кодов. Полная загрузка
// замещает кэш целиком; иначе берётся дельта от последнего обновления,
// а при слишком старом кэше всё равно выполняется полная.
func (a *App) RefreshBarcodeCache(ctx context.Context, full bool) (*manifest.BarcodeMeta, error) {
	location := a.ActiveLocation()

	meta, err := a.storage.BarcodeCacheMeta(location)
	if err != nil {
		return nil, err
	}

	maxAge := time.Duration(a.config.DeltaMaxAgeDays) * 24 * time.Hour
	stale := meta.LastFullAt.IsZero() ||
		(maxAge > 0 && time.Since(meta.LastFullAt) > maxAge && time.Since(meta.LastDeltaAt) > maxAge)
	if full || stale {
		return a.fullBarcodeRefresh(ctx, location)
	}
	return a.deltaBarcodeRefresh(ctx, location, meta)
}

func (a *App) fullBarcodeRefresh(ctx context.Context, location int) (*manifest.BarcodeMeta, error) {
	pageSize := a.config.BarcodePageSize
	var rows []manifest.BarcodeRow
	cursor := ""
	for {
		page, err := a.remote.BarcodePage(ctx, location, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("страница штрих-кодов: %w", err)
		}
		rows = append(rows, page.Rows...)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	meta := manifest.BarcodeMeta{
		Location:   location,
		LastFullAt: time.Now(),
		Cursor:     cursor,
	}
	if err := a.storage.ReplaceBarcodeCache(location, rows, meta); err != nil {
		return nil, err
	}

	a.log.Info("Полное обновление кэша штрих-кодов", "cd", location, "rows", len(rows))
	return a.storage.BarcodeCacheMeta(location)
}

func (a *App) deltaBarcodeRefresh(ctx context.Context, location int, meta *manifest.BarcodeMeta) (*manifest.BarcodeMeta, error) {
	since := meta.LastDeltaAt
	if since.IsZero() {
		since = meta.LastFullAt
	}

	pageSize := a.config.BarcodePageSize
	var rows []manifest.BarcodeRow
	cursor := ""
	for {
		page, err := a.remote.BarcodeDelta(ctx, location, since, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("дельта штрих-кодов: %w", err)
		}
		rows = append(rows, page.Rows...)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	newMeta := manifest.BarcodeMeta{
		Location:    location,
		LastDeltaAt: time.Now(),
		Cursor:      cursor,
	}
	if err := a.storage.MergeBarcodeCache(location, rows, newMeta); err != nil {
		return nil, err
	}

	a.log.Info("Дельта-обновление кэша штрих-кодов", "cd", location, "rows", len(rows))
	return a.storage.BarcodeCacheMeta(location)
}

// LookupBarcode ищет товар сперва в локальном кэше, затем на сервере.
// Серверный ответ дописывается в кэш для следующих сканов.
func (a *App) LookupBarcode(ctx context.Context, barcode string) (*manifest.BarcodeRow, error) {
	location := a.ActiveLocation()

	if row, err := a.storage.GetBarcode(location, barcode); err == nil {
		return row, nil
	}

	row, err := a.remote.BarcodeLookup(ctx, location, barcode)
	if err != nil {
		return nil, fmt.Errorf("штрих-код не найден: %w", err)
	}
	if row != nil {
		if err := a.storage.MergeBarcodeCache(location, []manifest.BarcodeRow{*row},
			manifest.BarcodeMeta{Location: location, Cursor: ""}); err != nil {
			a.log.Warn("Не удалось дописать штрих-код в кэш", "error", err)
		}
	}
	return row, nil
}

// BarcodeCacheStatus — состояние кэша для CLI
func (a *App) BarcodeCacheStatus() (*manifest.BarcodeMeta, error) {
	return a.storage.BarcodeCacheMeta(a.ActiveLocation())
}

// ManifestStatus — состояние манифеста для CLI
func (a *App) ManifestStatus() (*manifest.Meta, error) {
	return a.storage.ManifestMeta(a.ActiveLocation())
}
