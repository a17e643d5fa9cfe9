package audit

import "time"

// FindQuery — натуральный ключ записи, по которому сервер ищет дубликат
// при повторной вставке после неопределённого результата (таймаута)
type FindQuery struct {
	OwnerID  string    `json:"user_id"`
	Location int       `json:"cd"`
	Barcode  string    `json:"barras"`
	Qty      int       `json:"qtd"`
	EventAt  time.Time `json:"data_hr"`
}

// KeyOf строит натуральный ключ записи
func KeyOf(r *Record) FindQuery {
	return FindQuery{
		OwnerID:  r.OwnerID,
		Location: r.Location,
		Barcode:  r.Barcode,
		Qty:      r.Qty,
		EventAt:  r.EventAt,
	}
}

// ReportFilters — фильтры серверного отчёта по сбору
type ReportFilters struct {
	Location int    `json:"cd"`
	DateFrom string `json:"data_ini,omitempty"`
	DateTo   string `json:"data_fim,omitempty"`
	Auditor  string `json:"mat_aud,omitempty"`
}

// ReportRow — строка отчёта
type ReportRow struct {
	Location    int    `json:"cd"`
	ProductCode int    `json:"coddv"`
	Description string `json:"descricao"`
	Qty         int    `json:"qtd"`
	Occurrence  string `json:"ocorrencia,omitempty"`
	Auditor     string `json:"nome_aud"`
	EventAt     string `json:"data_hr"`
}
