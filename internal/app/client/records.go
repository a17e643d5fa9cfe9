package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockaudit/internal/domain/audit"
)

// AddRecordInput — данные одной позиции со сканера
type AddRecordInput struct {
	Label      string
	Barcode    string
	Qty        int
	Occurrence audit.Occurrence
	Lot        string
	Validity   string
}

// AddRecord ставит новую запись в очередь. Сеть не трогается:
// запись уйдёт на сервер следующим прогоном синхронизации.
func (a *App) AddRecord(in AddRecordInput) (*audit.Record, error) {
	barcode, err := audit.NormalizeBarcode(in.Barcode)
	if err != nil {
		return nil, err
	}
	validity, err := audit.NormalizeValidity(in.Validity)
	if err != nil {
		return nil, err
	}

	prefs, err := a.Preferences()
	if err != nil {
		return nil, err
	}

	label := in.Label
	if label == "" {
		label = prefs.FixedLabel
	}
	qty := in.Qty
	if qty == 0 {
		qty = prefs.DefaultMultiplier
	}

	location := a.ActiveLocation()
	now := time.Now()

	rec := &audit.Record{
		LocalID:     uuid.NewString(),
		OwnerID:     a.OwnerID(),
		Location:    location,
		Label:       label,
		Barcode:     barcode,
		Qty:         qty,
		Occurrence:  in.Occurrence,
		Lot:         in.Lot,
		Validity:    validity,
		AuditorMat:  a.state.AuditorMat,
		AuditorName: a.state.AuditorName,
		EventAt:     now,
		CreatedAt:   now,
		UpdatedAt:   now,
		SyncStatus:  audit.StatusPendingInsert,
	}

	// Описание товара из локального кэша; промах не блокирует сбор
	if row, err := a.storage.GetBarcode(location, barcode); err == nil {
		rec.ProductCode = row.ProductCode
		rec.Description = row.Description
		if in.Qty == 0 && row.Multiplier > 1 {
			rec.Qty = row.Multiplier
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := a.storage.SaveRecord(rec); err != nil {
		return nil, err
	}
	a.log.Debug("Запись поставлена в очередь", "local_id", rec.LocalID, "barras", barcode)
	return rec, nil
}

// EditRecordInput — правка существующей записи
type EditRecordInput struct {
	Qty        int
	Occurrence audit.Occurrence
	Lot        string
	Validity   string
}

// EditRecord правит запись локально с корректным переходом статуса:
// синхронизированная становится pending_update, ждущая вставки остаётся
// вставкой, припаркованная после ошибки возвращается в очередь.
func (a *App) EditRecord(localID string, in EditRecordInput) (*audit.Record, error) {
	rec, err := a.storage.GetRecord(localID)
	if err != nil {
		return nil, err
	}
	if rec.SyncStatus == audit.StatusPendingDelete || rec.ParkedFrom == audit.StatusPendingDelete {
		return nil, fmt.Errorf("%w: запись ждёт удаления", audit.ErrRecordReadOnly)
	}

	if in.Qty != 0 {
		rec.Qty = in.Qty
	}
	if in.Occurrence != rec.Occurrence {
		rec.Occurrence = in.Occurrence
	}
	if in.Lot != "" {
		rec.Lot = in.Lot
	}
	if in.Validity != "" {
		validity, err := audit.NormalizeValidity(in.Validity)
		if err != nil {
			return nil, err
		}
		rec.Validity = validity
	}

	switch rec.SyncStatus {
	case audit.StatusSynced:
		rec.SyncStatus = audit.StatusPendingUpdate
	case audit.StatusError:
		// Правка снимает парковку
		if rec.RemoteID == "" {
			rec.SyncStatus = audit.StatusPendingInsert
		} else {
			rec.SyncStatus = audit.StatusPendingUpdate
		}
		rec.SyncError = ""
		rec.Attempts = 0
		rec.ParkedFrom = ""
	}
	rec.UpdatedAt = time.Now()

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := a.storage.SaveRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord помечает запись к удалению. Запись, так и не попавшая
// на сервер, исчезает сразу без сетевой операции.
func (a *App) DeleteRecord(localID string) error {
	rec, err := a.storage.GetRecord(localID)
	if err != nil {
		return err
	}

	if rec.RemoteID == "" {
		return a.storage.RemoveRecord(localID)
	}

	// Удаление побеждает незаконченную правку
	rec.SyncStatus = audit.StatusPendingDelete
	rec.SyncError = ""
	rec.Attempts = 0
	rec.ParkedFrom = ""
	rec.UpdatedAt = time.Now()
	return a.storage.SaveRecord(rec)
}

// ListRecords строит читаемый список за сегодня: серверная выборка,
// наложенная на локальную очередь. Без сети показывается локальное.
func (a *App) ListRecords(ctx context.Context) ([]*audit.Record, error) {
	ownerID := a.OwnerID()
	location := a.ActiveLocation()

	local, err := a.storage.ListRecords(ownerID, location)
	if err != nil {
		return nil, err
	}

	remote, err := a.remote.FetchTodayRecords(ctx, location)
	if err != nil {
		a.log.Debug("Сервер недоступен, показываем локальные данные", "error", err)
		out := make([]*audit.Record, 0, len(local))
		for _, r := range local {
			if r.SyncStatus != audit.StatusPendingDelete {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return MergeRecords(remote, local), nil
}

// ListLocalRecords — только локальное хранилище, без сети
func (a *App) ListLocalRecords() ([]*audit.Record, error) {
	return a.storage.ListRecords(a.OwnerID(), a.ActiveLocation())
}

// CollectReport запрашивает серверный отчёт по сбору
func (a *App) CollectReport(ctx context.Context, f audit.ReportFilters) ([]audit.ReportRow, error) {
	if f.Location == 0 {
		f.Location = a.ActiveLocation()
	}
	return a.remote.CollectReport(ctx, f)
}
