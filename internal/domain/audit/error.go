package audit

import "errors"

var (
	// ErrRecordNotFound — запись не найдена в локальном хранилище
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidBarcode — штрих-код не прошёл нормализацию
	ErrInvalidBarcode = errors.New("invalid barcode")
	// ErrInvalidQty — количество вне допустимого диапазона
	ErrInvalidQty = errors.New("invalid quantity")
	// ErrInvalidValidity — срок годности не в формате MMYY
	ErrInvalidValidity = errors.New("invalid validity, expected MMYY")
	// ErrInvalidOccurrence — occurrence вне словаря
	ErrInvalidOccurrence = errors.New("invalid occurrence")
	// ErrRecordReadOnly — запись нельзя менять в текущем статусе
	ErrRecordReadOnly = errors.New("record is read-only")
)
