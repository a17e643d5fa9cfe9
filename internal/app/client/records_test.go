package client

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockaudit/internal/app/client/config"
	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/utils/logger"
)

func newTestApp(t *testing.T, remote Remote) (*App, *SQLiteStorage) {
	t.Helper()

	st := newTestStorage(t)
	cfg := &config.Config{
		StatePath:       filepath.Join(t.TempDir(), "state.json"),
		TokenPath:       filepath.Join(t.TempDir(), "token"),
		SyncInterval:    30,
		RecordTTLDays:   7,
		BarcodePageSize: 2,
		DeltaMaxAgeDays: 3,
		MaxSyncAttempts: 5,
	}
	app := &App{
		config:  cfg,
		log:     logger.New(config.EnvProd),
		remote:  remote,
		storage: st,
		state: &AppState{
			OwnerID:        "u1",
			AuditorMat:     "12345",
			AuditorName:    "MARIA",
			ActiveLocation: 3,
		},
	}
	app.syncService = NewSyncService(st, remote, cfg, app.log)
	return app, st
}

func TestApp_AddRecordQueuedWithoutNetwork(t *testing.T) {
	remote := &fakeRemote{}
	app, st := newTestApp(t, remote)

	rec, err := app.AddRecord(AddRecordInput{Barcode: " 789 1234 567895", Qty: 3})
	require.NoError(t, err)

	assert.Equal(t, "7891234567895", rec.Barcode, "штрих-код нормализован")
	assert.Equal(t, audit.StatusPendingInsert, rec.SyncStatus)
	assert.Empty(t, rec.RemoteID)
	assert.Equal(t, "12345", rec.AuditorMat)
	assert.Zero(t, remote.createCalls, "ввод не ходит в сеть")

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Qty)
}

func TestApp_AddRecordEnrichedFromCache(t *testing.T) {
	app, st := newTestApp(t, &fakeRemote{})

	require.NoError(t, st.ReplaceBarcodeCache(3, []manifest.BarcodeRow{
		{Barcode: "7891234567895", ProductCode: 77, Description: "SABONETE", Multiplier: 12},
	}, manifest.BarcodeMeta{}))

	rec, err := app.AddRecord(AddRecordInput{Barcode: "7891234567895"})
	require.NoError(t, err)
	assert.Equal(t, 77, rec.ProductCode)
	assert.Equal(t, "SABONETE", rec.Description)
	assert.Equal(t, 12, rec.Qty, "кратность упаковки из кэша")
}

func TestApp_AddRecordInvalidInput(t *testing.T) {
	app, _ := newTestApp(t, &fakeRemote{})

	_, err := app.AddRecord(AddRecordInput{Barcode: "12"})
	assert.ErrorIs(t, err, audit.ErrInvalidBarcode)

	_, err = app.AddRecord(AddRecordInput{Barcode: "7891234567895", Qty: 1, Validity: "1399"})
	assert.ErrorIs(t, err, audit.ErrInvalidValidity)
}

func TestApp_EditRecordTransitions(t *testing.T) {
	app, st := newTestApp(t, &fakeRemote{})

	// Синхронизированная запись становится pending_update
	synced := testRecord("u1")
	synced.RemoteID = "srv-1"
	synced.SyncStatus = audit.StatusSynced
	require.NoError(t, st.SaveRecord(synced))

	got, err := app.EditRecord(synced.LocalID, EditRecordInput{Qty: 7})
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingUpdate, got.SyncStatus)
	assert.Equal(t, 7, got.Qty)

	// Ждущая вставки остаётся вставкой
	ins := testRecord("u1")
	require.NoError(t, st.SaveRecord(ins))

	got, err = app.EditRecord(ins.LocalID, EditRecordInput{Qty: 4})
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingInsert, got.SyncStatus)

	// Правка снимает парковку после ошибки
	parked := testRecord("u1")
	parked.SyncStatus = audit.StatusError
	parked.SyncError = "VALIDACAO_QTD"
	parked.Attempts = 3
	require.NoError(t, st.SaveRecord(parked))

	got, err = app.EditRecord(parked.LocalID, EditRecordInput{Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingInsert, got.SyncStatus)
	assert.Empty(t, got.SyncError)
	assert.Zero(t, got.Attempts)
}

func TestApp_EditDeletedRecordRejected(t *testing.T) {
	app, st := newTestApp(t, &fakeRemote{})

	rec := testRecord("u1")
	rec.RemoteID = "srv-1"
	rec.SyncStatus = audit.StatusPendingDelete
	require.NoError(t, st.SaveRecord(rec))

	_, err := app.EditRecord(rec.LocalID, EditRecordInput{Qty: 2})
	assert.ErrorIs(t, err, audit.ErrRecordReadOnly)
}

func TestApp_DeleteRecord(t *testing.T) {
	app, st := newTestApp(t, &fakeRemote{})

	// Локальная вставка исчезает сразу
	ins := testRecord("u1")
	require.NoError(t, st.SaveRecord(ins))
	require.NoError(t, app.DeleteRecord(ins.LocalID))
	_, err := st.GetRecord(ins.LocalID)
	assert.ErrorIs(t, err, audit.ErrRecordNotFound)

	// Синхронизированная помечается к удалению; удаление побеждает правку
	upd := testRecord("u1")
	upd.RemoteID = "srv-1"
	upd.SyncStatus = audit.StatusPendingUpdate
	require.NoError(t, st.SaveRecord(upd))
	require.NoError(t, app.DeleteRecord(upd.LocalID))

	got, err := st.GetRecord(upd.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingDelete, got.SyncStatus)
}

func TestApp_ListRecordsOfflineFallback(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("dial tcp: network unreachable")}
	app, st := newTestApp(t, remote)

	visible := testRecord("u1")
	require.NoError(t, st.SaveRecord(visible))

	hidden := testRecord("u1")
	hidden.RemoteID = "srv-2"
	hidden.SyncStatus = audit.StatusPendingDelete
	require.NoError(t, st.SaveRecord(hidden))

	list, err := app.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, visible.LocalID, list[0].LocalID)
}

func TestApp_EditParkedDeleteRejected(t *testing.T) {
	app, st := newTestApp(t, &fakeRemote{})

	rec := testRecord("u1")
	rec.RemoteID = "srv-1"
	rec.SyncStatus = audit.StatusError
	rec.ParkedFrom = audit.StatusPendingDelete
	rec.SyncError = "ERRO_INTERNO"
	require.NoError(t, st.SaveRecord(rec))

	// Удаление удерживает приоритет и после парковки
	_, err := app.EditRecord(rec.LocalID, EditRecordInput{Qty: 5})
	assert.ErrorIs(t, err, audit.ErrRecordReadOnly)
}
