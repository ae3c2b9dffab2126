package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"10.50", "USD", 1050},
		{"10.5", "usd", 1050},
		{"1000", "JPY", 1000},
		{"1.2345", "KWD", 1235},
		{"0.005", "EUR", 1},
		{"0", "USD", 0},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, FromMinorUnits(1050, "usd").Equal(decimal.RequireFromString("10.50")))
	assert.True(t, FromMinorUnits(1000, "JPY").Equal(decimal.NewFromInt(1000)))
	assert.True(t, FromMinorUnits(1235, "KWD").Equal(decimal.RequireFromString("1.235")))
}
