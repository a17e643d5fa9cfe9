package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockaudit/internal/domain/audit"
)

func mergeRec(localID, remoteID string, status audit.SyncStatus, at time.Time) *audit.Record {
	return &audit.Record{
		LocalID:    localID,
		RemoteID:   remoteID,
		OwnerID:    "u1",
		Location:   3,
		Barcode:    "7891234567895",
		Qty:        1,
		EventAt:    at,
		SyncStatus: status,
	}
}

func TestMergeRecords_OverlayWins(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	remote := []*audit.Record{mergeRec("", "r1", audit.StatusSynced, at)}
	remote[0].Qty = 1

	local := mergeRec("l1", "r1", audit.StatusPendingUpdate, at)
	local.Qty = 9

	out := MergeRecords(remote, []*audit.Record{local})
	require.Len(t, out, 1)
	assert.Equal(t, 9, out[0].Qty, "локальная правка видна до отправки")
	assert.Equal(t, audit.StatusPendingUpdate, out[0].SyncStatus)
}

func TestMergeRecords_PendingDeleteSuppressed(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	remote := []*audit.Record{
		mergeRec("", "r1", audit.StatusSynced, at),
		mergeRec("", "r2", audit.StatusSynced, at.Add(time.Minute)),
	}
	local := []*audit.Record{
		mergeRec("l1", "r1", audit.StatusPendingDelete, at),
		mergeRec("l9", "", audit.StatusPendingDelete, at),
	}

	out := MergeRecords(remote, local)
	require.Len(t, out, 1)
	assert.Equal(t, "r2", out[0].RemoteID)
}

func TestMergeRecords_InsertsIncluded(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	remote := []*audit.Record{mergeRec("", "r1", audit.StatusSynced, at)}
	ins := mergeRec("l2", "", audit.StatusPendingInsert, at.Add(time.Hour))

	out := MergeRecords(remote, []*audit.Record{ins})
	require.Len(t, out, 2)
	assert.Equal(t, "l2", out[0].LocalID, "свежая вставка первой")
}

func TestMergeRecords_Ordering(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	remote := []*audit.Record{
		mergeRec("", "r1", audit.StatusSynced, base),
		mergeRec("", "r2", audit.StatusSynced, base.Add(2*time.Minute)),
	}
	local := []*audit.Record{
		mergeRec("lb", "", audit.StatusPendingInsert, base.Add(time.Minute)),
		mergeRec("la", "", audit.StatusPendingInsert, base.Add(time.Minute)),
	}

	out := MergeRecords(remote, local)
	require.Len(t, out, 4)
	assert.Equal(t, "r2", out[0].RemoteID)
	// Одинаковый момент события: порядок фиксируется по local_id
	assert.Equal(t, "lb", out[1].LocalID)
	assert.Equal(t, "la", out[2].LocalID)
	assert.Equal(t, "r1", out[3].RemoteID)
}

func TestMergeRecords_LocalEditOutsideRemoteWindow(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	// Серверная выборка не содержит r5, но локальная правка ещё не ушла
	local := mergeRec("l5", "r5", audit.StatusPendingUpdate, at)
	out := MergeRecords(nil, []*audit.Record{local})
	require.Len(t, out, 1)

	// Синхронизированная локальная копия вне выборки не показывается
	synced := mergeRec("l6", "r6", audit.StatusSynced, at)
	out = MergeRecords(nil, []*audit.Record{synced})
	assert.Empty(t, out)
}

func TestMergeRecords_Idempotent(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	remote := []*audit.Record{mergeRec("", "r1", audit.StatusSynced, at)}
	local := []*audit.Record{
		mergeRec("l1", "r1", audit.StatusPendingUpdate, at),
		mergeRec("l2", "", audit.StatusPendingInsert, at.Add(time.Minute)),
	}

	first := MergeRecords(remote, local)
	second := MergeRecords(remote, local)
	assert.Equal(t, first, second)
}
