package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBarcode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "ean13", raw: "7891234567895", want: "7891234567895"},
		{name: "with spaces", raw: " 789 1234 567895 ", want: "7891234567895"},
		{name: "with dashes", raw: "789-1234-567895", want: "7891234567895"},
		{name: "dun14", raw: "17891234567892", want: "17891234567892"},
		{name: "internal code", raw: "1234567", want: "1234567"},
		{name: "too short", raw: "123456", wantErr: true},
		{name: "too long", raw: "123456789012345", wantErr: true},
		{name: "letters only", raw: "abcdef", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBarcode(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidBarcode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeValidity(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "0926", want: "0926"},
		{name: "slash", raw: "09/26", want: "0926"},
		{name: "dash", raw: "09-26", want: "0926"},
		{name: "empty allowed", raw: "", want: ""},
		{name: "month zero", raw: "0026", wantErr: true},
		{name: "month 13", raw: "1326", wantErr: true},
		{name: "too short", raw: "926", wantErr: true},
		{name: "letters", raw: "ab26", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeValidity(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidValidity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidityExpired(t *testing.T) {
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, ValidityExpired("0826", now), "прошлый месяц истёк")
	assert.False(t, ValidityExpired("0926", now), "текущий месяц ещё действует")
	assert.False(t, ValidityExpired("0127", now))
	assert.False(t, ValidityExpired("", now))
	assert.False(t, ValidityExpired("xxxx", now))
}

func TestRecordValidate(t *testing.T) {
	base := Record{
		Barcode:    "7891234567895",
		Qty:        3,
		Occurrence: OccurrenceDamaged,
		Validity:   "0926",
	}

	require.NoError(t, base.Validate())

	bad := base
	bad.Qty = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidQty)

	bad = base
	bad.Occurrence = "Quebrado"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOccurrence)

	bad = base
	bad.Barcode = "12"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidBarcode)

	bad = base
	bad.Validity = "1399"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidValidity)
}

func TestRecencyKey(t *testing.T) {
	ev := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	up := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	r := Record{EventAt: ev, UpdatedAt: up}
	assert.Equal(t, ev, r.RecencyKey())

	r.EventAt = time.Time{}
	assert.Equal(t, up, r.RecencyKey())
}
