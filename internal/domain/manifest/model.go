// Пакет manifest описывает справочные данные, которые устройство
// кэширует локально: манифест ожидаемых позиций и словарь штрих-кодов.
package manifest

import "time"

// Meta — метаданные манифеста. ContentHash позволяет пропустить
// перезагрузку, когда содержимое на сервере не менялось.
type Meta struct {
	Location    int       `json:"cd"`
	RefDate     string    `json:"data_ref"`
	ContentHash string    `json:"content_hash"`
	ItemCount   int       `json:"item_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Item — одна ожидаемая позиция манифеста
type Item struct {
	Location    int    `json:"cd"`
	Label       string `json:"etiqueta"`
	ProductCode int    `json:"coddv"`
	Description string `json:"descricao"`
	ExpectedQty int    `json:"qtd_esperada"`
}

// BarcodeRow — строка словаря штрих-кодов для офлайн-поиска товара
type BarcodeRow struct {
	Barcode     string `json:"barras"`
	ProductCode int    `json:"coddv"`
	Description string `json:"descricao"`
	Multiplier  int    `json:"multiplo"`
}

// BarcodeMeta — состояние локального кэша штрих-кодов
type BarcodeMeta struct {
	Location    int       `json:"cd"`
	RowCount    int       `json:"row_count"`
	LastFullAt  time.Time `json:"last_full_at"`
	LastDeltaAt time.Time `json:"last_delta_at"`
	Cursor      string    `json:"cursor"`
}

// Page — страница справочных данных при постраничной загрузке
type Page[T any] struct {
	Rows       []T    `json:"rows"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}
