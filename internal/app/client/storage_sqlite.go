package client

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/domain/volume"
)

type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage открывает локальную базу устройства.
// Схему создаёт мигратор, здесь только подключение.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// SQLite не любит конкурентные писатели
	db.SetMaxOpenConns(1)

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// ---- Записи аудита ----

func (s *SQLiteStorage) SaveRecord(rec *audit.Record) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_records (local_id, remote_id, user_id, cd, etiqueta, barras,
		                           coddv, descricao, qtd, ocorrencia, lote, val_mmaa,
		                           mat_aud, nome_aud, data_hr, created_at, updated_at,
		                           sync_status, sync_error, sync_attempts, parked_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			remote_id = excluded.remote_id,
			etiqueta = excluded.etiqueta,
			barras = excluded.barras,
			coddv = excluded.coddv,
			descricao = excluded.descricao,
			qtd = excluded.qtd,
			ocorrencia = excluded.ocorrencia,
			lote = excluded.lote,
			val_mmaa = excluded.val_mmaa,
			data_hr = excluded.data_hr,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status,
			sync_error = excluded.sync_error,
			sync_attempts = excluded.sync_attempts,
			parked_from = excluded.parked_from
	`, rec.LocalID, rec.RemoteID, rec.OwnerID, rec.Location, rec.Label, rec.Barcode,
		rec.ProductCode, rec.Description, rec.Qty, string(rec.Occurrence), rec.Lot,
		rec.Validity, rec.AuditorMat, rec.AuditorName, rec.EventAt, rec.CreatedAt,
		rec.UpdatedAt, string(rec.SyncStatus), rec.SyncError, rec.Attempts,
		string(rec.ParkedFrom))
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) RemoveRecord(localID string) error {
	res, err := s.db.Exec(`DELETE FROM audit_records WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return audit.ErrRecordNotFound
	}
	return nil
}

const recordColumns = `local_id, remote_id, user_id, cd, etiqueta, barras, coddv,
	descricao, qtd, ocorrencia, lote, val_mmaa, mat_aud, nome_aud, data_hr,
	created_at, updated_at, sync_status, sync_error, sync_attempts, parked_from`

func scanRecord(row interface{ Scan(...any) error }) (*audit.Record, error) {
	var rec audit.Record
	var occurrence, status, parkedFrom string
	err := row.Scan(&rec.LocalID, &rec.RemoteID, &rec.OwnerID, &rec.Location,
		&rec.Label, &rec.Barcode, &rec.ProductCode, &rec.Description, &rec.Qty,
		&occurrence, &rec.Lot, &rec.Validity, &rec.AuditorMat, &rec.AuditorName,
		&rec.EventAt, &rec.CreatedAt, &rec.UpdatedAt, &status, &rec.SyncError,
		&rec.Attempts, &parkedFrom)
	if err != nil {
		return nil, err
	}
	rec.Occurrence = audit.Occurrence(occurrence)
	rec.SyncStatus = audit.SyncStatus(status)
	rec.ParkedFrom = audit.SyncStatus(parkedFrom)
	return &rec, nil
}

func (s *SQLiteStorage) GetRecord(localID string) (*audit.Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM audit_records WHERE local_id = ?`, localID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStorage) listRecords(query string, args ...any) ([]*audit.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записей: %w", err)
	}
	defer rows.Close()

	var out []*audit.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения записей: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListRecords возвращает записи владельца по ЦД, свежие первыми.
// При равном моменте события порядок фиксируется по local_id.
func (s *SQLiteStorage) ListRecords(ownerID string, location int) ([]*audit.Record, error) {
	return s.listRecords(`SELECT `+recordColumns+` FROM audit_records
		WHERE user_id = ? AND cd = ?
		ORDER BY data_hr DESC, local_id DESC`, ownerID, location)
}

// ListPendingRecords — очередь на отправку в порядке создания
func (s *SQLiteStorage) ListPendingRecords(ownerID string) ([]*audit.Record, error) {
	return s.listRecords(`SELECT `+recordColumns+` FROM audit_records
		WHERE user_id = ? AND sync_status != ?
		ORDER BY created_at ASC, local_id ASC`, ownerID, string(audit.StatusSynced))
}

func (s *SQLiteStorage) PendingSummary(ownerID string) (audit.PendingSummary, error) {
	var sum audit.PendingSummary
	err := s.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN sync_status IN (?, ?, ?) THEN 1 END),
			COUNT(CASE WHEN sync_status = ? THEN 1 END)
		FROM audit_records WHERE user_id = ?
	`, string(audit.StatusPendingInsert), string(audit.StatusPendingUpdate),
		string(audit.StatusPendingDelete), string(audit.StatusError), ownerID).
		Scan(&sum.PendingCount, &sum.ErrorCount)
	if err != nil {
		return sum, fmt.Errorf("ошибка подсчёта очереди: %w", err)
	}

	var volPending int
	err = s.db.QueryRow(`
		SELECT COUNT(1) FROM volume_sessions
		WHERE user_id = ? AND (pending_snapshot = 1 OR pending_finalize = 1 OR pending_cancel = 1)
	`, ownerID).Scan(&volPending)
	if err != nil {
		return sum, fmt.Errorf("ошибка подсчёта очереди сессий: %w", err)
	}
	sum.PendingCount += volPending
	return sum, nil
}

// ---- Сессии конференции ----

func (s *SQLiteStorage) SaveVolume(v *volume.LocalVolume) error {
	itemsJSON, err := json.Marshal(v.Items)
	if err != nil {
		return fmt.Errorf("ошибка сериализации позиций: %w", err)
	}

	var lastSynced any
	if !v.LastSyncedAt.IsZero() {
		lastSynced = v.LastSyncedAt
	}

	_, err = s.db.Exec(`
		INSERT INTO volume_sessions (local_key, user_id, data_conf, cd, volume,
			remote_id, status, motivo_falta, items_json, pending_snapshot,
			pending_finalize, finalize_reason, pending_cancel, is_read_only,
			sync_error, last_synced_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_key) DO UPDATE SET
			remote_id = excluded.remote_id,
			status = excluded.status,
			motivo_falta = excluded.motivo_falta,
			items_json = excluded.items_json,
			pending_snapshot = excluded.pending_snapshot,
			pending_finalize = excluded.pending_finalize,
			finalize_reason = excluded.finalize_reason,
			pending_cancel = excluded.pending_cancel,
			is_read_only = excluded.is_read_only,
			sync_error = excluded.sync_error,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at
	`, v.LocalKey, v.OwnerID, v.ConfDate, v.Location, v.VolumeNo, v.RemoteID,
		string(v.Status), v.ShortReason, string(itemsJSON), v.PendingSnapshot,
		v.PendingFinalize, v.FinalizeReason, v.PendingCancel, v.ReadOnly,
		v.SyncError, lastSynced, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) RemoveVolume(localKey string) error {
	res, err := s.db.Exec(`DELETE FROM volume_sessions WHERE local_key = ?`, localKey)
	if err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return volume.ErrVolumeNotFound
	}
	return nil
}

const volumeColumns = `local_key, user_id, data_conf, cd, volume, remote_id, status,
	motivo_falta, items_json, pending_snapshot, pending_finalize, finalize_reason,
	pending_cancel, is_read_only, sync_error, last_synced_at, updated_at`

func scanVolume(row interface{ Scan(...any) error }) (*volume.LocalVolume, error) {
	var v volume.LocalVolume
	var status, itemsJSON string
	var lastSynced sql.NullTime
	err := row.Scan(&v.LocalKey, &v.OwnerID, &v.ConfDate, &v.Location, &v.VolumeNo,
		&v.RemoteID, &status, &v.ShortReason, &itemsJSON, &v.PendingSnapshot,
		&v.PendingFinalize, &v.FinalizeReason, &v.PendingCancel, &v.ReadOnly,
		&v.SyncError, &lastSynced, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = volume.Status(status)
	if lastSynced.Valid {
		v.LastSyncedAt = lastSynced.Time
	}
	if err := json.Unmarshal([]byte(itemsJSON), &v.Items); err != nil {
		return nil, fmt.Errorf("ошибка парсинга позиций сессии: %w", err)
	}
	return &v, nil
}

func (s *SQLiteStorage) GetVolume(localKey string) (*volume.LocalVolume, error) {
	row := s.db.QueryRow(`SELECT `+volumeColumns+` FROM volume_sessions WHERE local_key = ?`, localKey)
	v, err := scanVolume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, volume.ErrVolumeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return v, nil
}

func (s *SQLiteStorage) listVolumes(query string, args ...any) ([]*volume.LocalVolume, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессий: %w", err)
	}
	defer rows.Close()

	var out []*volume.LocalVolume
	for rows.Next() {
		v, err := scanVolume(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения сессий: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListVolumes(ownerID string) ([]*volume.LocalVolume, error) {
	return s.listVolumes(`SELECT `+volumeColumns+` FROM volume_sessions
		WHERE user_id = ? ORDER BY updated_at DESC`, ownerID)
}

func (s *SQLiteStorage) ListPendingVolumes(ownerID string) ([]*volume.LocalVolume, error) {
	return s.listVolumes(`SELECT `+volumeColumns+` FROM volume_sessions
		WHERE user_id = ? AND (pending_snapshot = 1 OR pending_finalize = 1 OR pending_cancel = 1)
		ORDER BY updated_at ASC`, ownerID)
}

// ---- Кэш штрих-кодов ----

func (s *SQLiteStorage) ReplaceBarcodeCache(location int, rows []manifest.BarcodeRow, meta manifest.BarcodeMeta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM barcode_cache WHERE cd = ?`, location); err != nil {
		return fmt.Errorf("ошибка очистки кэша штрих-кодов: %w", err)
	}
	if err := upsertBarcodes(tx, location, rows); err != nil {
		return err
	}
	if err := saveBarcodeMeta(tx, location, meta); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) MergeBarcodeCache(location int, rows []manifest.BarcodeRow, meta manifest.BarcodeMeta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if err := upsertBarcodes(tx, location, rows); err != nil {
		return err
	}
	if err := saveBarcodeMeta(tx, location, meta); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertBarcodes(tx *sql.Tx, location int, rows []manifest.BarcodeRow) error {
	stmt, err := tx.Prepare(`
		INSERT INTO barcode_cache (cd, barras, coddv, descricao, multiplo)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cd, barras) DO UPDATE SET
			coddv = excluded.coddv,
			descricao = excluded.descricao,
			multiplo = excluded.multiplo
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		if _, err := stmt.Exec(location, r.Barcode, r.ProductCode, r.Description, r.Multiplier); err != nil {
			return fmt.Errorf("ошибка записи кэша штрих-кодов: %w", err)
		}
	}
	return nil
}

func saveBarcodeMeta(tx *sql.Tx, location int, meta manifest.BarcodeMeta) error {
	var lastFull, lastDelta any
	if !meta.LastFullAt.IsZero() {
		lastFull = meta.LastFullAt
	}
	if !meta.LastDeltaAt.IsZero() {
		lastDelta = meta.LastDeltaAt
	}
	var count int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM barcode_cache WHERE cd = ?`, location).Scan(&count); err != nil {
		return fmt.Errorf("ошибка подсчёта кэша: %w", err)
	}
	_, err := tx.Exec(`
		INSERT INTO barcode_meta (cd, row_count, last_full_at, last_delta_at, cursor)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cd) DO UPDATE SET
			row_count = excluded.row_count,
			last_full_at = COALESCE(excluded.last_full_at, barcode_meta.last_full_at),
			last_delta_at = COALESCE(excluded.last_delta_at, barcode_meta.last_delta_at),
			cursor = excluded.cursor
	`, location, count, lastFull, lastDelta, meta.Cursor)
	if err != nil {
		return fmt.Errorf("ошибка сохранения метаданных кэша: %w", err)
	}
	return nil
}

// ErrBarcodeNotCached — штрих-кода нет в локальном кэше
var ErrBarcodeNotCached = errors.New("barcode not in local cache")

func (s *SQLiteStorage) GetBarcode(location int, barcode string) (*manifest.BarcodeRow, error) {
	var r manifest.BarcodeRow
	err := s.db.QueryRow(`
		SELECT barras, coddv, descricao, multiplo FROM barcode_cache
		WHERE cd = ? AND barras = ?
	`, location, barcode).Scan(&r.Barcode, &r.ProductCode, &r.Description, &r.Multiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBarcodeNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска штрих-кода: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStorage) BarcodeCacheMeta(location int) (*manifest.BarcodeMeta, error) {
	meta := manifest.BarcodeMeta{Location: location}
	var lastFull, lastDelta sql.NullTime
	err := s.db.QueryRow(`
		SELECT row_count, last_full_at, last_delta_at, cursor FROM barcode_meta WHERE cd = ?
	`, location).Scan(&meta.RowCount, &lastFull, &lastDelta, &meta.Cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return &meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения метаданных кэша: %w", err)
	}
	if lastFull.Valid {
		meta.LastFullAt = lastFull.Time
	}
	if lastDelta.Valid {
		meta.LastDeltaAt = lastDelta.Time
	}
	return &meta, nil
}

func (s *SQLiteStorage) ClearBarcodeCache(location int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM barcode_cache WHERE cd = ?`, location); err != nil {
		return fmt.Errorf("ошибка очистки кэша штрих-кодов: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM barcode_meta WHERE cd = ?`, location); err != nil {
		return fmt.Errorf("ошибка очистки метаданных кэша: %w", err)
	}
	return tx.Commit()
}

// ---- Манифест ----

func (s *SQLiteStorage) ReplaceManifest(meta manifest.Meta, items []manifest.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM manifest_items WHERE cd = ?`, meta.Location); err != nil {
		return fmt.Errorf("ошибка очистки манифеста: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO manifest_items (cd, etiqueta, coddv, descricao, qtd_esperada)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		it := &items[i]
		if _, err := stmt.Exec(meta.Location, it.Label, it.ProductCode, it.Description, it.ExpectedQty); err != nil {
			return fmt.Errorf("ошибка записи манифеста: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO manifest_meta (cd, data_ref, content_hash, item_count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cd) DO UPDATE SET
			data_ref = excluded.data_ref,
			content_hash = excluded.content_hash,
			item_count = excluded.item_count,
			fetched_at = excluded.fetched_at
	`, meta.Location, meta.RefDate, meta.ContentHash, len(items), meta.FetchedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения метаданных манифеста: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStorage) ManifestMeta(location int) (*manifest.Meta, error) {
	meta := manifest.Meta{Location: location}
	var fetched sql.NullTime
	err := s.db.QueryRow(`
		SELECT data_ref, content_hash, item_count, fetched_at FROM manifest_meta WHERE cd = ?
	`, location).Scan(&meta.RefDate, &meta.ContentHash, &meta.ItemCount, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return &meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения метаданных манифеста: %w", err)
	}
	if fetched.Valid {
		meta.FetchedAt = fetched.Time
	}
	return &meta, nil
}

func (s *SQLiteStorage) ListManifestItems(location int) ([]manifest.Item, error) {
	rows, err := s.db.Query(`
		SELECT cd, etiqueta, coddv, descricao, qtd_esperada FROM manifest_items
		WHERE cd = ? ORDER BY etiqueta, coddv
	`, location)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения манифеста: %w", err)
	}
	defer rows.Close()

	var out []manifest.Item
	for rows.Next() {
		var it manifest.Item
		if err := rows.Scan(&it.Location, &it.Label, &it.ProductCode, &it.Description, &it.ExpectedQty); err != nil {
			return nil, fmt.Errorf("ошибка чтения манифеста: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ---- Настройки владельца ----

func (s *SQLiteStorage) GetPreferences(ownerID string) (audit.Preferences, error) {
	var prefsJSON string
	err := s.db.QueryRow(`SELECT prefs_json FROM owner_preferences WHERE user_id = ?`, ownerID).
		Scan(&prefsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.DefaultPreferences(), nil
	}
	if err != nil {
		return audit.Preferences{}, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	var prefs audit.Preferences
	if err := json.Unmarshal([]byte(prefsJSON), &prefs); err != nil {
		return audit.Preferences{}, fmt.Errorf("ошибка парсинга настроек: %w", err)
	}
	return prefs, nil
}

func (s *SQLiteStorage) SavePreferences(ownerID string, prefs audit.Preferences) error {
	b, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("ошибка сериализации настроек: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO owner_preferences (user_id, prefs_json) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET prefs_json = excluded.prefs_json
	`, ownerID, string(b))
	if err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}

// ---- Обслуживание ----

// EvictExpired удаляет устаревшие локальные данные владельца.
// Несинхронизированные записи никогда не выселяются.
func (s *SQLiteStorage) EvictExpired(ownerID string, before time.Time) (int, error) {
	var total int64

	res, err := s.db.Exec(`
		DELETE FROM audit_records
		WHERE user_id = ? AND sync_status = ? AND updated_at < ?
	`, ownerID, string(audit.StatusSynced), before)
	if err != nil {
		return 0, fmt.Errorf("ошибка выселения записей: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = s.db.Exec(`
		DELETE FROM volume_sessions
		WHERE user_id = ? AND updated_at < ?
		  AND pending_snapshot = 0 AND pending_finalize = 0 AND pending_cancel = 0
		  AND status != ?
	`, ownerID, before, string(volume.StatusOpen))
	if err != nil {
		return 0, fmt.Errorf("ошибка выселения сессий: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	return int(total), nil
}

// ClearOwnerData удаляет все локальные данные владельца при выходе
func (s *SQLiteStorage) ClearOwnerData(ownerID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM audit_records WHERE user_id = ?`,
		`DELETE FROM volume_sessions WHERE user_id = ?`,
		`DELETE FROM owner_preferences WHERE user_id = ?`,
	} {
		if _, err := tx.Exec(q, ownerID); err != nil {
			return fmt.Errorf("ошибка очистки данных владельца: %w", err)
		}
	}
	return tx.Commit()
}
