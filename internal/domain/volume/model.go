package volume

import (
	"fmt"
	"time"
)

// Status — серверный статус сессии конференции объёма
type Status string

const (
	StatusOpen         Status = "em_conferencia"
	StatusFinalizedOK  Status = "finalizado_ok"
	StatusFinalizedGap Status = "finalizado_falta"
	StatusCancelled    Status = "cancelada"
)

// Open сообщает, активна ли сессия на сервере
func (s Status) Open() bool {
	return s == StatusOpen
}

// Item — одна отсканированная позиция внутри сессии
type Item struct {
	Barcode     string    `json:"barras"`
	ProductCode int       `json:"coddv"`
	Description string    `json:"descricao"`
	Qty         int       `json:"qtd"`
	ScannedAt   time.Time `json:"data_hr"`
}

// LocalVolume — локальная проекция сессии конференции плюс отложенные
// операции. В отличие от записей аудита у сессии не один статус, а набор
// независимых флагов: снимок, финализация и отмена могут ждать отправки
// одновременно, отмена поглощает остальные.
type LocalVolume struct {
	LocalKey    string    `json:"local_key" db:"local_key"`
	OwnerID     string    `json:"user_id" db:"user_id"`
	ConfDate    string    `json:"data_conf" db:"data_conf"`
	Location    int       `json:"cd" db:"cd"`
	VolumeNo    int       `json:"volume" db:"volume"`
	RemoteID    string    `json:"remote_id,omitempty" db:"remote_id"`
	Status      Status    `json:"status" db:"status"`
	ShortReason string    `json:"motivo_falta,omitempty" db:"motivo_falta"`
	Items       []Item    `json:"itens" db:"-"`

	PendingSnapshot bool   `json:"pending_snapshot" db:"pending_snapshot"`
	PendingFinalize bool   `json:"pending_finalize" db:"pending_finalize"`
	FinalizeReason  string `json:"finalize_reason,omitempty" db:"finalize_reason"`
	PendingCancel   bool   `json:"pending_cancel" db:"pending_cancel"`

	ReadOnly     bool      `json:"is_read_only" db:"is_read_only"`
	SyncError    string    `json:"sync_error,omitempty" db:"sync_error"`
	LastSyncedAt time.Time `json:"last_synced_at" db:"last_synced_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Key строит локальный ключ сессии из натурального ключа сервера
func Key(ownerID, confDate string, location, volumeNo int) string {
	return fmt.Sprintf("%s:%s:%d:%d", ownerID, confDate, location, volumeNo)
}

// Pending сообщает, есть ли у сессии неотправленные операции
func (v *LocalVolume) Pending() bool {
	return v.PendingSnapshot || v.PendingFinalize || v.PendingCancel
}

// MarkSnapshot помечает необходимость отправить снимок позиций.
// После отмены или финализации снимки больше не ставятся.
func (v *LocalVolume) MarkSnapshot() {
	if v.PendingCancel || v.PendingFinalize || v.ReadOnly {
		return
	}
	v.PendingSnapshot = true
}

// MarkFinalize помечает отложенную финализацию. Сессия сразу становится
// read-only: новые сканы после решения о финализации запрещены.
func (v *LocalVolume) MarkFinalize(reason string) {
	if v.PendingCancel {
		return
	}
	v.PendingFinalize = true
	v.FinalizeReason = reason
	v.ReadOnly = true
}

// MarkCancel помечает отложенную отмену. Отмена побеждает: ожидающая
// финализация снимается и на сервер уже не уйдёт.
func (v *LocalVolume) MarkCancel() {
	v.PendingCancel = true
	v.PendingFinalize = false
	v.FinalizeReason = ""
	v.PendingSnapshot = false
	v.ReadOnly = true
}

// ClearSynced сбрасывает флаги после успешной отправки операции op
func (v *LocalVolume) ClearSynced(op PendingOp, now time.Time) {
	switch op {
	case OpSnapshot:
		v.PendingSnapshot = false
	case OpFinalize:
		v.PendingFinalize = false
		v.FinalizeReason = ""
	case OpCancel:
		v.PendingCancel = false
	}
	v.SyncError = ""
	v.LastSyncedAt = now
}

// PendingOp — вид отложенной операции над сессией
type PendingOp string

const (
	OpSnapshot PendingOp = "snapshot"
	OpFinalize PendingOp = "finalize"
	OpCancel   PendingOp = "cancel"
)

// NextOp возвращает операцию, которую нужно отправить первой.
// Порядок фиксированный: снимок перед финализацией, отмена вне очереди.
func (v *LocalVolume) NextOp() (PendingOp, bool) {
	switch {
	case v.PendingCancel:
		return OpCancel, true
	case v.PendingSnapshot:
		return OpSnapshot, true
	case v.PendingFinalize:
		return OpFinalize, true
	}
	return "", false
}

// AddItem добавляет или суммирует позицию по штрих-коду
func (v *LocalVolume) AddItem(it Item) error {
	if v.ReadOnly {
		return ErrVolumeReadOnly
	}
	for i := range v.Items {
		if v.Items[i].Barcode == it.Barcode {
			v.Items[i].Qty += it.Qty
			v.Items[i].ScannedAt = it.ScannedAt
			return nil
		}
	}
	v.Items = append(v.Items, it)
	return nil
}

// TotalQty — суммарное количество позиций в сессии
func (v *LocalVolume) TotalQty() int {
	var n int
	for i := range v.Items {
		n += v.Items[i].Qty
	}
	return n
}
