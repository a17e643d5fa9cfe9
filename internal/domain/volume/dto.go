package volume

import "time"

// OpenRequest — запрос на открытие сессии конференции
type OpenRequest struct {
	Location int    `json:"cd"`
	VolumeNo int    `json:"volume"`
	ConfDate string `json:"data_conf"`
}

// RemoteVolume — представление сессии на сервере
type RemoteVolume struct {
	RemoteID string `json:"id"`
	OwnerID  string `json:"user_id"`
	Location int    `json:"cd"`
	VolumeNo int    `json:"volume"`
	ConfDate string `json:"data_conf"`
	Status   Status `json:"status"`
	Items    []Item `json:"itens,omitempty"`
}

// SnapshotRequest — полный снимок позиций сессии. Снимок замещает
// серверное состояние целиком, поэтому повторная отправка безопасна.
type SnapshotRequest struct {
	RemoteID string    `json:"id"`
	Items    []Item    `json:"itens"`
	TakenAt  time.Time `json:"data_hr"`
}

// FinalizeRequest — запрос на финализацию сессии
type FinalizeRequest struct {
	RemoteID    string `json:"id"`
	ShortReason string `json:"motivo_falta,omitempty"`
}

// FinalizeResult — итог финализации на сервере
type FinalizeResult struct {
	RemoteID string `json:"id"`
	Status   Status `json:"status"`
	TotalQty int    `json:"qtd_total"`
}
