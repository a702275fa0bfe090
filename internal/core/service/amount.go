package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// MinorUnitThreshold is the magnitude above which an untagged amount is taken
// to be in minor units already. The heuristic is lossy: a genuine major-unit
// amount above the threshold is misread, so callers that know the unit should
// tag it.
const MinorUnitThreshold = 10_000_000

var (
	hundred      = decimal.NewFromInt(100)
	minorCeiling = decimal.NewFromInt(MinorUnitThreshold)
)

// ToMinorUnits converts an amount supplied by a client into the integer minor
// units the gateway expects. Accepted inputs are Go numbers, json.Number,
// decimal.Decimal and numeric strings with optional thousands separators.
func ToMinorUnits(raw any, unit domain.AmountUnit) (int64, error) {
	amount, err := parseAmount(raw)
	if err != nil {
		return 0, err
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s is not positive", ErrInvalidAmount, amount)
	}

	switch unit {
	case domain.AmountUnitMinor:
		return amount.Round(0).IntPart(), nil
	case domain.AmountUnitMajor:
		return amount.Mul(hundred).Round(0).IntPart(), nil
	case domain.AmountUnitAuto:
		if amount.GreaterThan(minorCeiling) {
			return amount.Round(0).IntPart(), nil
		}
		return amount.Mul(hundred).Round(0).IntPart(), nil
	default:
		return 0, fmt.Errorf("%w: unknown amount unit %q", ErrInvalidInput, unit)
	}
}

func parseAmount(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return parseAmountString(v.String())
	case string:
		return parseAmountString(v)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, raw)
	}
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return decimal.NewFromFloat(f), nil
}

func parseAmountString(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

var (
	feeRate      = decimal.RequireFromString("0.015")
	feeFlat      = decimal.NewFromInt(100)
	feeCap       = decimal.NewFromInt(2000)
	feeThreshold = decimal.NewFromInt(2500)
)

// CardFee estimates the provider's local card fee in major units: 1.5% plus
// a flat 100 above 2,500, capped at 2,000. Other methods are free.
func CardFee(amount decimal.Decimal, method string) decimal.Decimal {
	if method != "card" || !amount.GreaterThan(feeThreshold) {
		return decimal.Zero
	}
	return decimal.Min(amount.Mul(feeRate).Add(feeFlat), feeCap)
}
