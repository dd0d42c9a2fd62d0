package fieldcodec

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NumberSpec declares an implied-decimal numeric field.
type NumberSpec struct {
	Name          string
	MaxLen        int
	DecimalPlaces int32
	// StripDecimals rounds to a whole number instead of scaling by
	// 10^DecimalPlaces.
	StripDecimals bool
	Pad           bool
}

// Number encodes a value as implied-decimal digits: the decimal point is
// removed and the value is scaled by 10^DecimalPlaces, rounding half away
// from zero. Numbers are never truncated; a result longer than MaxLen is an
// overflow.
func Number(value decimal.Decimal, spec NumberSpec) (string, error) {
	var digits string
	if spec.StripDecimals {
		digits = value.Round(0).StringFixed(0)
	} else {
		digits = value.Shift(spec.DecimalPlaces).Round(0).StringFixed(0)
	}
	if digits == "-0" {
		digits = "0"
	}

	if spec.MaxLen > 0 && len(digits) > spec.MaxLen {
		return "", &FieldError{Field: spec.Name, Value: value.String(), MaxLen: spec.MaxLen, Err: ErrOverflow}
	}
	if spec.Pad {
		digits = PadNumber(digits, spec.MaxLen)
	}
	return digits, nil
}

// OptionalNumber encodes a nil value as "" (or zeros when padded).
func OptionalNumber(value *decimal.Decimal, spec NumberSpec) (string, error) {
	if value == nil {
		if spec.Pad {
			return PadNumber("", spec.MaxLen), nil
		}
		return "", nil
	}
	return Number(*value, spec)
}

var (
	gramsPerKilogram  = decimal.NewFromInt(1000)
	kilogramsPerPound = decimal.RequireFromString("0.45359237")
)

// Weight normalizes a weight to kilograms rounded to 2 decimals. Nonzero
// weights under 1 kg round up to 1, since the wire format carries whole
// kilograms only.
//
// Supported units: "KG" (or ""), "G", "LB".
func Weight(value decimal.Decimal, unit string) (decimal.Decimal, error) {
	var kg decimal.Decimal
	switch unit {
	case "", "KG", "KGS":
		kg = value
	case "G", "GR", "GRM":
		kg = value.Div(gramsPerKilogram)
	case "LB", "LBS":
		kg = value.Mul(kilogramsPerPound)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}

	if kg.IsPositive() && kg.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1), nil
	}
	return kg.Round(2), nil
}
