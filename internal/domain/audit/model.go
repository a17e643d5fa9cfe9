package audit

import "time"

// SyncStatus — статус синхронизации локальной записи аудита
type SyncStatus string

const (
	StatusSynced        SyncStatus = "synced"
	StatusPendingInsert SyncStatus = "pending_insert"
	StatusPendingUpdate SyncStatus = "pending_update"
	StatusPendingDelete SyncStatus = "pending_delete"
	StatusError         SyncStatus = "error"
)

// Pending сообщает, ждёт ли запись отправки на сервер
func (s SyncStatus) Pending() bool {
	return s != StatusSynced
}

// Occurrence — тип occurrence-отметки при сборе товара.
// Значения совпадают со словарём удалённого сервиса.
type Occurrence string

const (
	OccurrenceNone    Occurrence = ""
	OccurrenceDamaged Occurrence = "Avariado"
	OccurrenceExpired Occurrence = "Vencido"
)

// Valid проверяет значение на соответствие словарю
func (o Occurrence) Valid() bool {
	return o == OccurrenceNone || o == OccurrenceDamaged || o == OccurrenceExpired
}

// Record — одна локальная запись аудита (собранный товар).
// RemoteID пустой, пока сервер не подтвердил вставку; запись без RemoteID
// может находиться только в статусе pending_insert.
type Record struct {
	LocalID     string     `json:"local_id" db:"local_id"`
	RemoteID    string     `json:"remote_id,omitempty" db:"remote_id"`
	OwnerID     string     `json:"user_id" db:"user_id"`
	Location    int        `json:"cd" db:"cd"`
	Label       string     `json:"etiqueta,omitempty" db:"etiqueta"`
	Barcode     string     `json:"barras" db:"barras"`
	ProductCode int        `json:"coddv" db:"coddv"`
	Description string     `json:"descricao" db:"descricao"`
	Qty         int        `json:"qtd" db:"qtd"`
	Occurrence  Occurrence `json:"ocorrencia,omitempty" db:"ocorrencia"`
	Lot         string     `json:"lote,omitempty" db:"lote"`
	Validity    string     `json:"val_mmaa,omitempty" db:"val_mmaa"`
	AuditorMat  string     `json:"mat_aud" db:"mat_aud"`
	AuditorName string     `json:"nome_aud" db:"nome_aud"`
	EventAt     time.Time  `json:"data_hr" db:"data_hr"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	SyncStatus  SyncStatus `json:"sync_status" db:"sync_status"`
	SyncError   string     `json:"sync_error,omitempty" db:"sync_error"`
	Attempts    int        `json:"sync_attempts" db:"sync_attempts"`
	// ParkedFrom хранит операцию, которую запись ждала до парковки
	// в error: повтор должен отправить именно её, а не угадывать
	ParkedFrom SyncStatus `json:"parked_from,omitempty" db:"parked_from"`
}

// RecencyKey — ключ сортировки списков: момент события,
// при его отсутствии — момент последнего изменения
func (r *Record) RecencyKey() time.Time {
	if !r.EventAt.IsZero() {
		return r.EventAt
	}
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// PendingSummary — сводка несинхронизированных записей для бейджа в UI
// и планировщика синхронизации. Вычисляется сканом хранилища, не хранится.
type PendingSummary struct {
	PendingCount int `json:"pending_count"`
	ErrorCount   int `json:"error_count"`
}

// Preferences — локальные настройки владельца. На сервер не отправляются.
type Preferences struct {
	FixedLabel        string `json:"etiqueta_fixa"`
	DefaultMultiplier int    `json:"multiplo_padrao"`
	ActiveLocation    int    `json:"cd_ativo"`
	PreferOffline     bool   `json:"prefer_offline_mode"`
}

// DefaultPreferences — настройки нового владельца
func DefaultPreferences() Preferences {
	return Preferences{DefaultMultiplier: 1}
}

// LocationOption — доступный распределительный центр
type LocationOption struct {
	Location int    `json:"cd"`
	Name     string `json:"cd_nome"`
}
