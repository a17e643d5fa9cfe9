package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockaudit/internal/app/client/config"
	"stockaudit/internal/domain/audit"
	"stockaudit/internal/domain/manifest"
	"stockaudit/internal/domain/rpc"
	"stockaudit/internal/domain/volume"
	"stockaudit/internal/utils/logger"
)

// fakeRemote — программируемая заглушка удалённого сервиса
type fakeRemote struct {
	mu sync.Mutex

	createFn   func(rec *audit.Record) (string, error)
	updateFn   func(rec *audit.Record) error
	deleteFn   func(remoteID string) error
	findFn     func(q audit.FindQuery) (string, error)
	snapshotFn func(req volume.SnapshotRequest) error
	finalizeFn func(req volume.FinalizeRequest) (*volume.FinalizeResult, error)
	cancelFn   func(remoteID string) error

	fetchErr  error
	openErr   error
	activeVol *volume.RemoteVolume

	createCalls   int
	updateCalls   int
	findCalls     int
	snapshotCalls int
	cancelCalls   int
}

var _ Remote = (*fakeRemote)(nil)

func (f *fakeRemote) Login(ctx context.Context, login, password string) (*Session, error) {
	return &Session{Token: "t", UserID: "u1"}, nil
}
func (f *fakeRemote) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeRemote) SetToken(token string)                 {}

func (f *fakeRemote) CreateRecord(ctx context.Context, rec *audit.Record) (string, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(rec)
	}
	return "srv-" + rec.LocalID, nil
}

func (f *fakeRemote) UpdateRecord(ctx context.Context, rec *audit.Record) error {
	f.mu.Lock()
	f.updateCalls++
	f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(rec)
	}
	return nil
}

func (f *fakeRemote) DeleteRecord(ctx context.Context, remoteID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(remoteID)
	}
	return nil
}

func (f *fakeRemote) FindRecord(ctx context.Context, q audit.FindQuery) (string, error) {
	f.mu.Lock()
	f.findCalls++
	f.mu.Unlock()
	if f.findFn != nil {
		return f.findFn(q)
	}
	return "", nil
}

func (f *fakeRemote) FetchTodayRecords(ctx context.Context, location int) ([]*audit.Record, error) {
	return nil, f.fetchErr
}
func (f *fakeRemote) CollectReport(ctx context.Context, fl audit.ReportFilters) ([]audit.ReportRow, error) {
	return nil, nil
}
func (f *fakeRemote) OpenVolume(ctx context.Context, req volume.OpenRequest) (*volume.RemoteVolume, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &volume.RemoteVolume{RemoteID: "vol-1", Status: volume.StatusOpen}, nil
}
func (f *fakeRemote) ActiveVolume(ctx context.Context) (*volume.RemoteVolume, error) {
	return f.activeVol, nil
}

func (f *fakeRemote) SnapshotVolume(ctx context.Context, req volume.SnapshotRequest) error {
	f.mu.Lock()
	f.snapshotCalls++
	f.mu.Unlock()
	if f.snapshotFn != nil {
		return f.snapshotFn(req)
	}
	return nil
}

func (f *fakeRemote) FinalizeVolume(ctx context.Context, req volume.FinalizeRequest) (*volume.FinalizeResult, error) {
	if f.finalizeFn != nil {
		return f.finalizeFn(req)
	}
	return &volume.FinalizeResult{RemoteID: req.RemoteID, Status: volume.StatusFinalizedOK}, nil
}

func (f *fakeRemote) CancelVolume(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
	if f.cancelFn != nil {
		return f.cancelFn(remoteID)
	}
	return nil
}

func (f *fakeRemote) ManifestMeta(ctx context.Context, location int) (*manifest.Meta, error) {
	return &manifest.Meta{Location: location}, nil
}
func (f *fakeRemote) ManifestItemsPage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.Item], error) {
	return &manifest.Page[manifest.Item]{}, nil
}
func (f *fakeRemote) BarcodePage(ctx context.Context, location int, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error) {
	return &manifest.Page[manifest.BarcodeRow]{}, nil
}
func (f *fakeRemote) BarcodeDelta(ctx context.Context, location int, since time.Time, cursor string, size int) (*manifest.Page[manifest.BarcodeRow], error) {
	return &manifest.Page[manifest.BarcodeRow]{}, nil
}
func (f *fakeRemote) BarcodeLookup(ctx context.Context, location int, barcode string) (*manifest.BarcodeRow, error) {
	return nil, nil
}
func (f *fakeRemote) LocationOptions(ctx context.Context) ([]audit.LocationOption, error) {
	return nil, nil
}

func newTestSync(t *testing.T, remote Remote) (*SyncService, *SQLiteStorage) {
	t.Helper()
	st := newTestStorage(t)
	cfg := &config.Config{SyncInterval: 30, RecordTTLDays: 7, MaxSyncAttempts: 5}
	svc := NewSyncService(st, remote, cfg, logger.New(config.EnvProd))
	return svc, st
}

func transientErr() error {
	return &rpc.Error{Code: "ERRO_INTERNO", HTTPStatus: 500}
}

func notFoundErr() error {
	return &rpc.Error{Code: "COLETA_NAO_ENCONTRADA", HTTPStatus: 404}
}

func TestSync_InsertSuccess(t *testing.T) {
	remote := &fakeRemote{}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Pending)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSynced, got.SyncStatus)
	assert.Equal(t, "srv-"+rec.LocalID, got.RemoteID)
	assert.Zero(t, remote.findCalls, "первая попытка без поиска дубликата")
}

func TestSync_InsertIdempotentAfterTimeout(t *testing.T) {
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) { return "", transientErr() },
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	require.NoError(t, st.SaveRecord(rec))

	// Первый прогон: вставка не дошла, запись остаётся в очереди
	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingInsert, got.SyncStatus)
	assert.Equal(t, 1, got.Attempts)

	// Второй прогон: сервер всё-таки применил вставку, дубликата не будет
	remote.findFn = func(q audit.FindQuery) (string, error) { return "srv-dup", nil }
	createsBefore := remote.createCalls

	res, err = svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, createsBefore, remote.createCalls, "повторной вставки не было")

	got, err = st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSynced, got.SyncStatus)
	assert.Equal(t, "srv-dup", got.RemoteID)
}

func TestSync_ValidationParksRecord(t *testing.T) {
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) {
			return "", &rpc.Error{Code: "VALIDACAO_QTD_INVALIDA", HTTPStatus: 422}
		},
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	require.NoError(t, st.SaveRecord(rec))

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusError, got.SyncStatus)
	assert.Contains(t, got.SyncError, "VALIDACAO_QTD_INVALIDA")

	// Фоновый прогон припаркованную запись не трогает
	processed := remote.createCalls + remote.findCalls
	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Equal(t, processed, remote.createCalls+remote.findCalls)

	// Явный повтор возвращает её в работу
	remote.createFn = nil
	res, err = svc.Run(context.Background(), SyncOptions{OwnerID: "u1", RetryErrors: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	got, err = st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSynced, got.SyncStatus)
}

func TestSync_UpdateOrphanRemoved(t *testing.T) {
	remote := &fakeRemote{
		updateFn: func(rec *audit.Record) error { return notFoundErr() },
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.RemoteID = "srv-9"
	rec.SyncStatus = audit.StatusPendingUpdate
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0].Message, "отброшена")

	_, err = st.GetRecord(rec.LocalID)
	assert.ErrorIs(t, err, audit.ErrRecordNotFound)
}

func TestSync_UpdateRetriesOnceUnderNewID(t *testing.T) {
	var updates int
	remote := &fakeRemote{}
	remote.updateFn = func(rec *audit.Record) error {
		updates++
		if updates == 1 {
			return notFoundErr()
		}
		return nil
	}
	remote.findFn = func(q audit.FindQuery) (string, error) { return "srv-new", nil }
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.RemoteID = "srv-old"
	rec.SyncStatus = audit.StatusPendingUpdate
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, res.Notices)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "srv-new", got.RemoteID)
	assert.Equal(t, audit.StatusSynced, got.SyncStatus)
}

func TestSync_DeleteAlreadyGone(t *testing.T) {
	remote := &fakeRemote{
		deleteFn: func(remoteID string) error { return notFoundErr() },
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.RemoteID = "srv-9"
	rec.SyncStatus = audit.StatusPendingDelete
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	_, err = st.GetRecord(rec.LocalID)
	assert.ErrorIs(t, err, audit.ErrRecordNotFound)
}

func TestSync_LocalOnlyDeleteNeverHitsNetwork(t *testing.T) {
	called := false
	remote := &fakeRemote{
		deleteFn: func(remoteID string) error { called = true; return nil },
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.SyncStatus = audit.StatusPendingDelete
	require.NoError(t, st.SaveRecord(rec))

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.False(t, called, "запись без remote_id удаляется локально")
}

func TestSync_VolumeSnapshotThenFinalize(t *testing.T) {
	var order []string
	remote := &fakeRemote{}
	remote.snapshotFn = func(req volume.SnapshotRequest) error {
		order = append(order, "snapshot")
		return nil
	}
	remote.finalizeFn = func(req volume.FinalizeRequest) (*volume.FinalizeResult, error) {
		order = append(order, "finalize")
		return &volume.FinalizeResult{Status: volume.StatusFinalizedGap}, nil
	}
	svc, st := newTestSync(t, remote)

	v := &volume.LocalVolume{
		LocalKey:  volume.Key("u1", "2026-09-01", 3, 1),
		OwnerID:   "u1",
		ConfDate:  "2026-09-01",
		Location:  3,
		VolumeNo:  1,
		RemoteID:  "vol-1",
		Status:    volume.StatusOpen,
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, v.AddItem(volume.Item{Barcode: "7891234567895", Qty: 2}))
	v.MarkSnapshot()
	v.MarkFinalize("falta parcial")
	require.NoError(t, st.SaveVolume(v))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, []string{"snapshot", "finalize"}, order)

	got, err := st.GetVolume(v.LocalKey)
	require.NoError(t, err)
	assert.False(t, got.Pending())
	assert.Equal(t, volume.StatusFinalizedGap, got.Status)
	assert.True(t, got.ReadOnly)
}

func TestSync_CancelWinsWithoutNetwork(t *testing.T) {
	remote := &fakeRemote{}
	svc, st := newTestSync(t, remote)

	// Сессия так и не добралась до сервера
	v := &volume.LocalVolume{
		LocalKey:  volume.Key("u1", "2026-09-01", 3, 2),
		OwnerID:   "u1",
		ConfDate:  "2026-09-01",
		Location:  3,
		VolumeNo:  2,
		Status:    volume.StatusOpen,
		UpdatedAt: time.Now().UTC(),
	}
	v.MarkSnapshot()
	v.MarkFinalize("falta")
	v.MarkCancel()
	require.NoError(t, st.SaveVolume(v))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, remote.cancelCalls, "отмена без remote_id не ходит в сеть")
	assert.Zero(t, remote.snapshotCalls, "отмена поглотила снимок и финализацию")

	got, err := st.GetVolume(v.LocalKey)
	require.NoError(t, err)
	assert.Equal(t, volume.StatusCancelled, got.Status)
	assert.False(t, got.Pending())
}

func TestSync_VolumeClosedElsewhere(t *testing.T) {
	remote := &fakeRemote{
		snapshotFn: func(req volume.SnapshotRequest) error {
			return &rpc.Error{Code: "CONFERENCIA_NAO_ENCONTRADA_OU_FINALIZADA", HTTPStatus: 404}
		},
	}
	svc, st := newTestSync(t, remote)

	v := &volume.LocalVolume{
		LocalKey:  volume.Key("u1", "2026-09-01", 3, 3),
		OwnerID:   "u1",
		ConfDate:  "2026-09-01",
		Location:  3,
		VolumeNo:  3,
		RemoteID:  "vol-3",
		Status:    volume.StatusOpen,
		UpdatedAt: time.Now().UTC(),
	}
	v.MarkSnapshot()
	require.NoError(t, st.SaveVolume(v))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, res.Notices, 1)

	got, err := st.GetVolume(v.LocalKey)
	require.NoError(t, err)
	assert.False(t, got.Pending())
	assert.True(t, got.ReadOnly)
}

func TestSync_AuthExpiredAbortsRun(t *testing.T) {
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) {
			return "", &rpc.Error{Code: "SESSAO_EXPIRADA", HTTPStatus: 401}
		},
	}
	svc, st := newTestSync(t, remote)

	first := testRecord("u1")
	second := testRecord("u1")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, st.SaveRecord(first))
	require.NoError(t, st.SaveRecord(second))

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, 1, remote.createCalls, "прогон прерван на первой записи")

	// Очередь не потеряна и не припаркована
	got, err := st.GetRecord(first.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingInsert, got.SyncStatus)
	assert.Zero(t, got.Attempts)
}

func TestSync_ConcurrentRunRejected(t *testing.T) {
	block := make(chan struct{})
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) {
			<-block
			return "srv-1", nil
		},
	}
	svc, st := newTestSync(t, remote)
	require.NoError(t, st.SaveRecord(testRecord("u1")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	}()

	require.Eventually(t, svc.IsSyncing, time.Second, 5*time.Millisecond)

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(block)
	<-done
	assert.False(t, svc.IsSyncing())
}

func TestSync_TransientExhaustionParks(t *testing.T) {
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) { return "", transientErr() },
	}
	svc, st := newTestSync(t, remote)
	svc.cfg.MaxSyncAttempts = 2

	rec := testRecord("u1")
	require.NoError(t, st.SaveRecord(rec))

	for i := 0; i < 2; i++ {
		_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
		require.NoError(t, err)
	}

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusError, got.SyncStatus)
	assert.Equal(t, 2, got.Attempts)
}

func TestSync_StatsAccumulate(t *testing.T) {
	remote := &fakeRemote{}
	svc, st := newTestSync(t, remote)
	require.NoError(t, st.SaveRecord(testRecord("u1")))

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)

	stats := svc.Stats()
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.TotalSynced)
	assert.False(t, stats.LastSuccessful.IsZero())
}

func TestSync_UnknownErrorIsTransient(t *testing.T) {
	remote := &fakeRemote{
		createFn: func(rec *audit.Record) (string, error) { return "", errors.New("dial tcp: network unreachable") },
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	require.NoError(t, st.SaveRecord(rec))

	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingInsert, got.SyncStatus, "сетевая ошибка не паркует запись")
	assert.Equal(t, 1, got.Attempts)
}

func TestSync_ParkedDeleteRetriesAsDelete(t *testing.T) {
	var deleteCalls int
	remote := &fakeRemote{}
	remote.deleteFn = func(remoteID string) error {
		deleteCalls++
		if deleteCalls == 1 {
			return transientErr()
		}
		return nil
	}
	svc, st := newTestSync(t, remote)
	svc.cfg.MaxSyncAttempts = 1

	rec := testRecord("u1")
	rec.RemoteID = "srv-9"
	rec.SyncStatus = audit.StatusPendingDelete
	require.NoError(t, st.SaveRecord(rec))

	// Первый прогон исчерпывает лимит попыток и паркует удаление
	_, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusError, got.SyncStatus)
	assert.Equal(t, audit.StatusPendingDelete, got.ParkedFrom, "парковка помнит исходную операцию")

	// Явный повтор отправляет именно удаление, а не обновление
	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1", RetryErrors: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 2, deleteCalls)
	assert.Zero(t, remote.updateCalls, "припаркованное удаление не превращается в правку")

	_, err = st.GetRecord(rec.LocalID)
	assert.ErrorIs(t, err, audit.ErrRecordNotFound)
}

func TestSync_UpdateKeptWhenRecheckUnavailable(t *testing.T) {
	remote := &fakeRemote{
		updateFn: func(rec *audit.Record) error { return notFoundErr() },
		findFn: func(q audit.FindQuery) (string, error) {
			return "", errors.New("dial tcp: network unreachable")
		},
	}
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.RemoteID = "srv-9"
	rec.SyncStatus = audit.StatusPendingUpdate
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, res.Notices)

	// Сбой проверки не подтверждает исчезновение: правка остаётся в очереди
	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingUpdate, got.SyncStatus)
	assert.Equal(t, 1, got.Attempts)
}

func TestSync_UpdateKeptWhenRetryTransient(t *testing.T) {
	var updates int
	remote := &fakeRemote{}
	remote.updateFn = func(rec *audit.Record) error {
		updates++
		if updates == 1 {
			return notFoundErr()
		}
		return transientErr()
	}
	remote.findFn = func(q audit.FindQuery) (string, error) { return "srv-new", nil }
	svc, st := newTestSync(t, remote)

	rec := testRecord("u1")
	rec.RemoteID = "srv-old"
	rec.SyncStatus = audit.StatusPendingUpdate
	require.NoError(t, st.SaveRecord(rec))

	res, err := svc.Run(context.Background(), SyncOptions{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got, err := st.GetRecord(rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusPendingUpdate, got.SyncStatus)
}
