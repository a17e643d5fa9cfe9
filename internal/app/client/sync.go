// internal/app/client/sync.go
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"stockaudit/internal/app/client/config"
	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/rpc"
	"stockaudit/internal/domain/volume"
)

// ErrSyncInProgress — параллельный запуск отклонён; прогоны строго по одному
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrAuthExpired — сессия истекла, прогон прерван, очередь не тронута
var ErrAuthExpired = errors.New("auth session expired")

// SyncService проталкивает локальную очередь мутаций на сервер.
// Один прогон за раз: повторный вызов при работающем прогоне
// возвращает ErrSyncInProgress, очередь при этом не теряется.
type SyncService struct {
	storage Storage
	remote  Remote
	log     *slog.Logger
	cfg     *config.Config

	mu        sync.RWMutex
	isSyncing bool
	lastSync  time.Time
	stats     SyncStats
}

// SyncOptions — параметры одного прогона
type SyncOptions struct {
	OwnerID string
	// RetryErrors включает повтор записей, отложенных в error.
	// Фоновые прогоны их пропускают, явный запуск пользователем — нет.
	RetryErrors bool
}

// Notice — сообщение пользователю по итогам разрешения конфликта
type Notice struct {
	LocalID string `json:"local_id,omitempty"`
	Message string `json:"message"`
}

// SyncStats — накопительная статистика сервиса
type SyncStats struct {
	TotalRuns      int       `json:"total_runs"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
	TotalSynced    int       `json:"total_synced"`
	TotalErrors    int       `json:"total_errors"`
}

// SyncResult — итог одного прогона
type SyncResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	Evicted   int           `json:"evicted"`
	Notices   []Notice      `json:"notices,omitempty"`
}

// NewSyncService создает новый сервис синхронизации
func NewSyncService(storage Storage, remote Remote, cfg *config.Config, log *slog.Logger) *SyncService {
	return &SyncService{
		storage: storage,
		remote:  remote,
		cfg:     cfg,
		log:     log,
	}
}

// Run выполняет один прогон синхронизации: записи аудита в порядке
// создания, затем отложенные операции сессий, затем выселение устаревшего.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	result := &SyncResult{StartTime: time.Now()}
	s.log.Info("Начало синхронизации", "owner", opts.OwnerID, "retry_errors", opts.RetryErrors)

	// Снимок очереди на момент старта; добавленное во время прогона
	// уйдёт в следующий
	pending, err := s.storage.ListPendingRecords(opts.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}

	var authExpired bool
	for _, rec := range pending {
		if rec.SyncStatus == audit.StatusError && !opts.RetryErrors {
			continue
		}
		result.Processed++

		err := s.syncRecord(ctx, rec, result)
		switch {
		case err == nil:
			result.Synced++
		case rpc.Classify(err) == rpc.KindAuthExpired:
			authExpired = true
		default:
			result.Failed++
		}
		if authExpired || ctx.Err() != nil {
			break
		}
	}

	if !authExpired && ctx.Err() == nil {
		volumes, err := s.storage.ListPendingVolumes(opts.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения очереди сессий: %w", err)
		}
		for _, v := range volumes {
			result.Processed++
			err := s.syncVolume(ctx, v, result)
			switch {
			case err == nil:
				result.Synced++
			case rpc.Classify(err) == rpc.KindAuthExpired:
				authExpired = true
			default:
				result.Failed++
			}
			if authExpired || ctx.Err() != nil {
				break
			}
		}
	}

	if !authExpired && ctx.Err() == nil && s.cfg.RecordTTLDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -s.cfg.RecordTTLDays)
		if n, err := s.storage.EvictExpired(opts.OwnerID, cutoff); err != nil {
			s.log.Warn("Ошибка выселения устаревших данных", "error", err)
		} else {
			result.Evicted = n
		}
	}

	sum, err := s.storage.PendingSummary(opts.OwnerID)
	if err == nil {
		result.Pending = sum.PendingCount
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.updateStats(result)

	s.log.Info("Синхронизация завершена",
		"duration", result.Duration,
		"synced", result.Synced,
		"failed", result.Failed,
		"pending", result.Pending,
	)

	if authExpired {
		return result, ErrAuthExpired
	}
	return result, ctx.Err()
}

// syncRecord отправляет одну запись очереди в зависимости от её статуса
func (s *SyncService) syncRecord(ctx context.Context, rec *audit.Record, result *SyncResult) error {
	var err error
	switch rec.SyncStatus {
	case audit.StatusPendingInsert:
		err = s.pushInsert(ctx, rec)
	case audit.StatusPendingUpdate:
		err = s.pushUpdate(ctx, rec, result)
	case audit.StatusPendingDelete:
		err = s.pushDelete(ctx, rec)
	case audit.StatusError:
		// Явный повтор: возвращаем запись в исходную операцию
		err = s.retryParked(ctx, rec, result)
	default:
		return nil
	}

	if err != nil {
		return s.recordFailure(rec, err)
	}
	return nil
}

// pushInsert отправляет вставку. После неудачной попытки результат
// предыдущей вставки неизвестен, поэтому сперва ищем запись на сервере
// по натуральному ключу и только при промахе вставляем заново.
func (s *SyncService) pushInsert(ctx context.Context, rec *audit.Record) error {
	if rec.Attempts > 0 {
		remoteID, err := s.remote.FindRecord(ctx, audit.KeyOf(rec))
		if err != nil && rpc.Classify(err) != rpc.KindNotFoundOrClosed {
			return fmt.Errorf("поиск по натуральному ключу: %w", err)
		}
		if remoteID != "" {
			// Предыдущая вставка дошла, дубликат не создаём
			return s.markSynced(rec, remoteID)
		}
	}

	remoteID, err := s.remote.CreateRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("вставка записи: %w", err)
	}
	return s.markSynced(rec, remoteID)
}

func (s *SyncService) pushUpdate(ctx context.Context, rec *audit.Record, result *SyncResult) error {
	if rec.RemoteID == "" {
		// Правка записи, не успевшей на сервер, остаётся вставкой
		return s.pushInsert(ctx, rec)
	}

	err := s.remote.UpdateRecord(ctx, rec)
	if err == nil {
		return s.markSynced(rec, rec.RemoteID)
	}
	if rpc.Classify(err) != rpc.KindNotFoundOrClosed {
		return fmt.Errorf("обновление записи: %w", err)
	}

	// Запись исчезла на сервере: проверяем по натуральному ключу и,
	// если она ещё жива под другим id, повторяем один раз
	remoteID, findErr := s.remote.FindRecord(ctx, audit.KeyOf(rec))
	if findErr != nil && rpc.Classify(findErr) != rpc.KindNotFoundOrClosed {
		// Проверка не дала ответа, локальную правку не трогаем
		return fmt.Errorf("проверка записи после not_found: %w", findErr)
	}
	if findErr == nil && remoteID != "" {
		rec.RemoteID = remoteID
		retryErr := s.remote.UpdateRecord(ctx, rec)
		if retryErr == nil {
			return s.markSynced(rec, remoteID)
		}
		if rpc.Classify(retryErr) != rpc.KindNotFoundOrClosed {
			return fmt.Errorf("повтор обновления записи: %w", retryErr)
		}
	}

	// Сервер подтвердил: записи больше нет. Локальную копию
	// убираем и сообщаем пользователю
	if err := s.storage.RemoveRecord(rec.LocalID); err != nil {
		return fmt.Errorf("удаление осиротевшей записи: %w", err)
	}
	result.Notices = append(result.Notices, Notice{
		LocalID: rec.LocalID,
		Message: "запись изменена или удалена на сервере, локальная правка отброшена",
	})
	return nil
}

func (s *SyncService) pushDelete(ctx context.Context, rec *audit.Record) error {
	if rec.RemoteID != "" {
		err := s.remote.DeleteRecord(ctx, rec.RemoteID)
		if err != nil && rpc.Classify(err) != rpc.KindNotFoundOrClosed {
			return fmt.Errorf("удаление записи: %w", err)
		}
		// not_found при удалении — цель уже достигнута
	}
	return s.storage.RemoveRecord(rec.LocalID)
}

// retryParked возвращает error-запись к операции, которую она ждала
// до парковки: припаркованное удаление остаётся удалением.
func (s *SyncService) retryParked(ctx context.Context, rec *audit.Record, result *SyncResult) error {
	switch {
	case rec.ParkedFrom == audit.StatusPendingDelete:
		rec.SyncStatus = audit.StatusPendingDelete
		return s.pushDelete(ctx, rec)
	case rec.RemoteID == "":
		rec.SyncStatus = audit.StatusPendingInsert
		return s.pushInsert(ctx, rec)
	default:
		rec.SyncStatus = audit.StatusPendingUpdate
		return s.pushUpdate(ctx, rec, result)
	}
}

func (s *SyncService) markSynced(rec *audit.Record, remoteID string) error {
	rec.RemoteID = remoteID
	rec.SyncStatus = audit.StatusSynced
	rec.SyncError = ""
	rec.Attempts = 0
	rec.ParkedFrom = ""
	rec.UpdatedAt = time.Now()
	return s.storage.SaveRecord(rec)
}

// recordFailure фиксирует исход неудачной отправки. Ошибки валидации
// паркуют запись до явного вмешательства, временные сбои оставляют её
// в очереди до исчерпания лимита попыток.
func (s *SyncService) recordFailure(rec *audit.Record, sendErr error) error {
	kind := rpc.Classify(sendErr)
	if kind == rpc.KindAuthExpired {
		// Очередь не трогаем, прогон прервётся целиком
		return sendErr
	}

	rec.Attempts++
	rec.SyncError = sendErr.Error()

	parked := kind == rpc.KindValidation ||
		(s.cfg.MaxSyncAttempts > 0 && rec.Attempts >= s.cfg.MaxSyncAttempts)
	if parked && rec.SyncStatus != audit.StatusError {
		// Запоминаем исходную операцию: повтор отправит именно её
		rec.ParkedFrom = rec.SyncStatus
		rec.SyncStatus = audit.StatusError
	}

	s.log.Warn("Не удалось отправить запись",
		"local_id", rec.LocalID,
		"kind", kind.String(),
		"attempts", rec.Attempts,
		"error", sendErr,
	)

	if err := s.storage.SaveRecord(rec); err != nil {
		return fmt.Errorf("сохранение исхода отправки: %w", err)
	}
	return sendErr
}

// syncVolume отправляет отложенные операции сессии в фиксированном
// порядке: отмена вне очереди, иначе снимок перед финализацией.
func (s *SyncService) syncVolume(ctx context.Context, v *volume.LocalVolume, result *SyncResult) error {
	for {
		op, ok := v.NextOp()
		if !ok {
			return nil
		}
		if err := s.pushVolumeOp(ctx, v, op, result); err != nil {
			v.SyncError = err.Error()
			if saveErr := s.storage.SaveVolume(v); saveErr != nil {
				s.log.Error("Ошибка сохранения сессии", "error", saveErr)
			}
			return err
		}
		if err := s.storage.SaveVolume(v); err != nil {
			return fmt.Errorf("сохранение сессии: %w", err)
		}
	}
}

func (s *SyncService) pushVolumeOp(ctx context.Context, v *volume.LocalVolume, op volume.PendingOp, result *SyncResult) error {
	now := time.Now()

	switch op {
	case volume.OpCancel:
		// Сессия, не добравшаяся до сервера, отменяется без сети
		if v.RemoteID != "" {
			err := s.remote.CancelVolume(ctx, v.RemoteID)
			if err != nil && rpc.Classify(err) != rpc.KindNotFoundOrClosed {
				return fmt.Errorf("отмена сессии: %w", err)
			}
		}
		v.Status = volume.StatusCancelled
		v.ClearSynced(volume.OpCancel, now)
		return nil

	case volume.OpSnapshot:
		if err := s.ensureRemoteVolume(ctx, v, result); err != nil || v.RemoteID == "" {
			return err
		}
		err := s.remote.SnapshotVolume(ctx, volume.SnapshotRequest{
			RemoteID: v.RemoteID,
			Items:    v.Items,
			TakenAt:  now,
		})
		if err != nil {
			if rpc.Classify(err) == rpc.KindNotFoundOrClosed {
				return s.adoptRemoteClose(v, result)
			}
			return fmt.Errorf("отправка снимка: %w", err)
		}
		v.ClearSynced(volume.OpSnapshot, now)
		return nil

	case volume.OpFinalize:
		if err := s.ensureRemoteVolume(ctx, v, result); err != nil || v.RemoteID == "" {
			return err
		}
		res, err := s.remote.FinalizeVolume(ctx, volume.FinalizeRequest{
			RemoteID:    v.RemoteID,
			ShortReason: v.FinalizeReason,
		})
		if err != nil {
			if rpc.Classify(err) == rpc.KindNotFoundOrClosed {
				return s.adoptRemoteClose(v, result)
			}
			return fmt.Errorf("финализация сессии: %w", err)
		}
		v.Status = res.Status
		v.ShortReason = v.FinalizeReason
		v.ClearSynced(volume.OpFinalize, now)
		v.ReadOnly = true
		return nil
	}
	return nil
}

// ensureRemoteVolume дооткрывает на сервере сессию, созданную офлайн.
// Занятый другим участником объём снимает отложенные операции с уведомлением.
func (s *SyncService) ensureRemoteVolume(ctx context.Context, v *volume.LocalVolume, result *SyncResult) error {
	if v.RemoteID != "" {
		return nil
	}

	rv, err := s.remote.OpenVolume(ctx, volume.OpenRequest{
		Location: v.Location,
		VolumeNo: v.VolumeNo,
		ConfDate: v.ConfDate,
	})
	if err != nil {
		if rpc.Classify(err) == rpc.KindConflictInUse {
			v.PendingSnapshot = false
			v.PendingFinalize = false
			v.FinalizeReason = ""
			v.ReadOnly = true
			v.SyncError = ""
			result.Notices = append(result.Notices, Notice{
				LocalID: v.LocalKey,
				Message: fmt.Sprintf("объём %d занят другим участником, локальная сессия закрыта", v.VolumeNo),
			})
			return nil
		}
		return fmt.Errorf("открытие сессии: %w", err)
	}
	v.RemoteID = rv.RemoteID
	return nil
}

// adoptRemoteClose принимает закрытие сессии другим участником:
// отложенные операции снимаются, локальная копия остаётся только для чтения
func (s *SyncService) adoptRemoteClose(v *volume.LocalVolume, result *SyncResult) error {
	v.PendingSnapshot = false
	v.PendingFinalize = false
	v.FinalizeReason = ""
	v.PendingCancel = false
	v.ReadOnly = true
	if v.Status == volume.StatusOpen {
		v.Status = volume.StatusFinalizedOK
	}
	v.SyncError = ""
	result.Notices = append(result.Notices, Notice{
		LocalID: v.LocalKey,
		Message: fmt.Sprintf("объём %d закрыт другим участником, локальные операции отброшены", v.VolumeNo),
	})
	return nil
}

func (s *SyncService) updateStats(result *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalRuns++
	s.stats.TotalSynced += result.Synced
	s.stats.TotalErrors += result.Failed
	if result.Failed == 0 {
		s.stats.LastSuccessful = result.EndTime
	} else {
		s.stats.LastFailed = result.EndTime
	}
	s.lastSync = result.EndTime
}

// Stats возвращает копию накопительной статистики
func (s *SyncService) Stats() SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// IsSyncing сообщает, идёт ли прогон прямо сейчас
func (s *SyncService) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// StartAutoSync запускает фоновые прогоны по тикеру до отмены контекста.
// Ошибки фиксируются в логе, фоновый прогон никогда не роняет процесс.
func (s *SyncService) StartAutoSync(ctx context.Context, ownerID string) {
	interval := time.Duration(s.cfg.SyncInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := s.Run(ctx, SyncOptions{OwnerID: ownerID})
				if err != nil && !errors.Is(err, ErrSyncInProgress) && !errors.Is(err, context.Canceled) {
					s.log.Warn("Фоновая синхронизация завершилась с ошибкой", "error", err)
				}
			}
		}
	}()
}
