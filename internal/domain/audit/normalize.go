package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeBarcode приводит ввод со сканера к канонической форме:
// убирает пробелы и разделители, оставляет только цифры.
// Допустимая длина после очистки — от 7 до 14 символов.
func NormalizeBarcode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) < 7 || len(s) > 14 {
		return "", fmt.Errorf("%w: %q", ErrInvalidBarcode, raw)
	}
	return s, nil
}

// NormalizeValidity проверяет срок годности в формате MMYY.
// Принимает также "MM/YY" и "MM-YY", возвращает чистые 4 цифры.
func NormalizeValidity(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 4 {
		return "", fmt.Errorf("%w: %q", ErrInvalidValidity, raw)
	}
	mm, err := strconv.Atoi(s[:2])
	if err != nil || mm < 1 || mm > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidValidity, raw)
	}
	if _, err := strconv.Atoi(s[2:]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidValidity, raw)
	}
	return s, nil
}

// ValidityExpired сообщает, истёк ли срок MMYY к моменту now.
// Срок считается действующим до конца указанного месяца.
func ValidityExpired(mmYY string, now time.Time) bool {
	if len(mmYY) != 4 {
		return false
	}
	mm, err := strconv.Atoi(mmYY[:2])
	if err != nil || mm < 1 || mm > 12 {
		return false
	}
	yy, err := strconv.Atoi(mmYY[2:])
	if err != nil {
		return false
	}
	end := time.Date(2000+yy, time.Month(mm), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, 1, 0)
	return !now.Before(end)
}

// Validate проверяет запись перед постановкой в очередь
func (r *Record) Validate() error {
	if _, err := NormalizeBarcode(r.Barcode); err != nil {
		return err
	}
	if r.Qty <= 0 || r.Qty > 99999 {
		return fmt.Errorf("%w: %d", ErrInvalidQty, r.Qty)
	}
	if !r.Occurrence.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOccurrence, r.Occurrence)
	}
	if r.Validity != "" {
		if _, err := NormalizeValidity(r.Validity); err != nil {
			return err
		}
	}
	return nil
}
