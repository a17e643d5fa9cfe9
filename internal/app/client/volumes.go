package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/rpc"
	"stockaudit/internal/domain/volume"
)

// OpenVolume открывает сессию конференции объёма. При доступном сервере
// сессия открывается сразу, офлайн создаётся локально и дооткроется
// следующим прогоном синхронизации.
func (a *App) OpenVolume(ctx context.Context, volumeNo int) (*volume.LocalVolume, error) {
	if active, err := a.ActiveVolume(); err == nil && active != nil && !active.ReadOnly {
		return nil, fmt.Errorf("%w: объём %d", volume.ErrVolumeActive, active.VolumeNo)
	}

	ownerID := a.OwnerID()
	location := a.ActiveLocation()
	confDate := time.Now().Format("2006-01-02")
	key := volume.Key(ownerID, confDate, location, volumeNo)

	// Под этим ключом уже может лежать сессия с несинхронизированной
	// работой: её нельзя затирать свежей строкой
	if existing, err := a.storage.GetVolume(key); err == nil {
		if existing.Pending() || existing.ReadOnly {
			return nil, fmt.Errorf("%w: объём %d ждёт отправки на сервер",
				volume.ErrVolumeActive, existing.VolumeNo)
		}
		if existing.Status.Open() {
			a.mu.Lock()
			a.state.ActiveVolumeKey = existing.LocalKey
			saveErr := a.saveAppState()
			a.mu.Unlock()
			if saveErr != nil {
				return nil, saveErr
			}
			return existing, nil
		}
	} else if !errors.Is(err, volume.ErrVolumeNotFound) {
		return nil, err
	}

	v := &volume.LocalVolume{
		LocalKey:  key,
		OwnerID:   ownerID,
		ConfDate:  confDate,
		Location:  location,
		VolumeNo:  volumeNo,
		Status:    volume.StatusOpen,
		UpdatedAt: time.Now(),
	}

	rv, err := a.remote.OpenVolume(ctx, volume.OpenRequest{
		Location: location,
		VolumeNo: volumeNo,
		ConfDate: confDate,
	})
	switch {
	case err == nil:
		v.RemoteID = rv.RemoteID
	case rpc.Classify(err) == rpc.KindConflictInUse:
		return nil, fmt.Errorf("объём занят другим участником: %w", err)
	case rpc.Classify(err) == rpc.KindAuthExpired:
		return nil, err
	default:
		// Офлайн: работаем локально
		a.log.Info("Сервер недоступен, сессия открыта локально",
			"volume", volumeNo, "error", err)
	}

	if err := a.storage.SaveVolume(v); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.state.ActiveVolumeKey = v.LocalKey
	saveErr := a.saveAppState()
	a.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}
	return v, nil
}

// ActiveVolume возвращает локальную активную сессию или nil
func (a *App) ActiveVolume() (*volume.LocalVolume, error) {
	a.mu.RLock()
	key := a.state.ActiveVolumeKey
	a.mu.RUnlock()

	if key == "" {
		return nil, nil
	}
	v, err := a.storage.GetVolume(key)
	if errors.Is(err, volume.ErrVolumeNotFound) {
		return nil, nil
	}
	return v, err
}

// ScanVolumeItem добавляет отсканированную позицию в активную сессию
// и помечает снимок к отправке
func (a *App) ScanVolumeItem(barcode string, qty int) (*volume.LocalVolume, error) {
	v, err := a.ActiveVolume()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, volume.ErrNoActiveVolume
	}

	normalized, err := audit.NormalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		qty = 1
	}

	item := volume.Item{
		Barcode:   normalized,
		Qty:       qty,
		ScannedAt: time.Now(),
	}
	if row, err := a.storage.GetBarcode(v.Location, normalized); err == nil {
		item.ProductCode = row.ProductCode
		item.Description = row.Description
	}

	if err := v.AddItem(item); err != nil {
		return nil, err
	}
	v.MarkSnapshot()
	v.UpdatedAt = time.Now()

	if err := a.storage.SaveVolume(v); err != nil {
		return nil, err
	}
	return v, nil
}

// FinalizeVolume помечает активную сессию к финализации. Сессия сразу
// становится read-only, сама финализация уходит при синхронизации.
func (a *App) FinalizeVolume(shortReason string) (*volume.LocalVolume, error) {
	v, err := a.ActiveVolume()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, volume.ErrNoActiveVolume
	}
	if len(v.Items) == 0 && shortReason == "" {
		return nil, volume.ErrEmptyVolume
	}

	v.MarkFinalize(shortReason)
	v.UpdatedAt = time.Now()
	if err := a.storage.SaveVolume(v); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.state.ActiveVolumeKey = ""
	saveErr := a.saveAppState()
	a.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}
	return v, nil
}

// CancelVolume помечает активную сессию к отмене. Отмена побеждает все
// отложенные операции; сессия, не достигшая сервера, отменится без сети.
func (a *App) CancelVolume() (*volume.LocalVolume, error) {
	v, err := a.ActiveVolume()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, volume.ErrNoActiveVolume
	}

	v.MarkCancel()
	v.UpdatedAt = time.Now()
	if err := a.storage.SaveVolume(v); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.state.ActiveVolumeKey = ""
	saveErr := a.saveAppState()
	a.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}
	return v, nil
}

// RestoreActiveVolume восстанавливает активную сессию после перезапуска:
// сначала локальное хранилище, затем открытая сессия на сервере.
func (a *App) RestoreActiveVolume(ctx context.Context) (*volume.LocalVolume, error) {
	if v, err := a.ActiveVolume(); err != nil || v != nil {
		return v, err
	}

	// Указатель в state.json мог потеряться: активную сессию можно
	// собрать заново сканом локального хранилища по текущему скоупу
	if v, err := a.restoreFromStore(); err != nil || v != nil {
		return v, err
	}

	rv, err := a.remote.ActiveVolume(ctx)
	if err != nil || rv == nil || !rv.Status.Open() {
		// Без сети восстанавливать нечего
		return nil, nil
	}

	v := &volume.LocalVolume{
		LocalKey:  volume.Key(a.OwnerID(), rv.ConfDate, rv.Location, rv.VolumeNo),
		OwnerID:   a.OwnerID(),
		ConfDate:  rv.ConfDate,
		Location:  rv.Location,
		VolumeNo:  rv.VolumeNo,
		RemoteID:  rv.RemoteID,
		Status:    rv.Status,
		Items:     rv.Items,
		UpdatedAt: time.Now(),
	}
	if err := a.storage.SaveVolume(v); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.state.ActiveVolumeKey = v.LocalKey
	saveErr := a.saveAppState()
	a.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}

	a.log.Info("Активная сессия восстановлена с сервера",
		"volume", v.VolumeNo, "remote_id", v.RemoteID)
	return v, nil
}

func (a *App) restoreFromStore() (*volume.LocalVolume, error) {
	volumes, err := a.storage.ListVolumes(a.OwnerID())
	if err != nil {
		return nil, err
	}

	confDate := time.Now().Format("2006-01-02")
	location := a.ActiveLocation()
	for _, v := range volumes {
		if !v.Status.Open() || v.ReadOnly || v.ConfDate != confDate || v.Location != location {
			continue
		}

		a.mu.Lock()
		a.state.ActiveVolumeKey = v.LocalKey
		saveErr := a.saveAppState()
		a.mu.Unlock()
		if saveErr != nil {
			return nil, saveErr
		}

		a.log.Info("Активная сессия восстановлена из хранилища",
			"volume", v.VolumeNo)
		return v, nil
	}
	return nil, nil
}

// ListVolumes — все локальные сессии владельца, свежие первыми
func (a *App) ListVolumes() ([]*volume.LocalVolume, error) {
	return a.storage.ListVolumes(a.OwnerID())
}
