package client

import (
	"sort"

	"stockaudit/internal/domain/audit"
)

// MergeRecords строит читаемый список из серверной выборки и локальной
// очереди. Чистая функция без побочных эффектов, повторный вызов с тем же
// входом даёт тот же результат.
//
// Правила:
//   - локальная версия с совпадающим remote_id замещает серверную
//   - записи, ждущие удаления, в списке не показываются
//   - локальные вставки без remote_id добавляются к серверным
//   - итог отсортирован от свежих к старым, при равенстве — по local_id
func MergeRecords(remote, local []*audit.Record) []*audit.Record {
	overlay := make(map[string]*audit.Record, len(local))
	for _, l := range local {
		if l.RemoteID != "" {
			overlay[l.RemoteID] = l
		}
	}

	out := make([]*audit.Record, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(local))

	for _, r := range remote {
		l, ok := overlay[r.RemoteID]
		if !ok {
			out = append(out, r)
			continue
		}
		seen[l.LocalID] = struct{}{}
		if l.SyncStatus == audit.StatusPendingDelete {
			continue
		}
		out = append(out, l)
	}

	for _, l := range local {
		if _, ok := seen[l.LocalID]; ok {
			continue
		}
		if l.SyncStatus == audit.StatusPendingDelete {
			continue
		}
		if l.RemoteID == "" {
			// Локальная вставка, сервера ещё не достигла
			out = append(out, l)
			continue
		}
		// Локальная правка записи вне серверной выборки: показываем,
		// пока синхронизация не разрешит её судьбу
		if l.SyncStatus.Pending() {
			out = append(out, l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].RecencyKey(), out[j].RecencyKey()
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return out[i].LocalID > out[j].LocalID
	})
	return out
}
