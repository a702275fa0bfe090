package service

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name string
		in   any
		unit domain.AmountUnit
		want int64
	}{
		{"integer naira", 5000, domain.AmountUnitAuto, 500000},
		{"float naira", 19.99, domain.AmountUnitAuto, 1999},
		{"rounds half up", 10.005, domain.AmountUnitAuto, 1001},
		{"numeric string", "2500.50", domain.AmountUnitAuto, 250050},
		{"thousands separators", "1,250,000", domain.AmountUnitAuto, 125000000},
		{"json number", json.Number("150"), domain.AmountUnitAuto, 15000},
		{"decimal", decimal.RequireFromString("0.01"), domain.AmountUnitAuto, 1},
		{"between 100k and threshold still scales", 200_000, domain.AmountUnitAuto, 20_000_000},
		{"at threshold", 10_000_000, domain.AmountUnitAuto, 1_000_000_000},
		{"above threshold passes through", 10_000_001, domain.AmountUnitAuto, 10_000_001},
		{"above threshold rounds", "25,000,000.6", domain.AmountUnitAuto, 25_000_001},
		{"tagged major ignores threshold", 20_000_000, domain.AmountUnitMajor, 2_000_000_000},
		{"tagged minor", 500000, domain.AmountUnitMinor, 500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.in, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits_Invalid(t *testing.T) {
	inputs := []any{
		"abc",
		"",
		"12abc",
		true,
		nil,
		map[string]any{"amount": 1},
		math.NaN(),
		math.Inf(1),
		0,
		-50,
	}

	for _, in := range inputs {
		_, err := ToMinorUnits(in, domain.AmountUnitAuto)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %#v", in)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %#v", in)
	}
}

func TestToMinorUnits_UnknownUnit(t *testing.T) {
	_, err := ToMinorUnits(100, domain.AmountUnit("cents"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToMinorUnits_SmallAmountsScale(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		// two decimal places, up to 100,000
		a := decimal.New(r.Int64N(10_000_000)+1, -2)
		f, _ := a.Float64()

		got, err := ToMinorUnits(f, domain.AmountUnitAuto)
		require.NoError(t, err)
		assert.Equal(t, a.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), got, "amount %s", a)
	}
}

func TestCardFee(t *testing.T) {
	tests := []struct {
		amount string
		method string
		want   string
	}{
		{"2500", "card", "0"},
		{"5000", "card", "175"},
		{"200000", "card", "2000"},
		{"5000", "bank_transfer", "0"},
	}

	for _, tt := range tests {
		got := CardFee(decimal.RequireFromString(tt.amount), tt.method)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s via %s: got %s", tt.amount, tt.method, got)
	}
}
