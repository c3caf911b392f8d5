package number

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// WadDecimals decimals of a WAD fraction
const WadDecimals = 18

func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// FromDecimal scales d by 10^decimals and truncates the remaining fraction
func FromDecimal(d decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, ErrUnderflow
	}

	v, overflow := uint256.FromBig(d.Shift(decimals).Truncate(0).BigInt())
	if overflow {
		return nil, ErrOverflow
	}

	return v, nil
}

// ToDecimal x / 10^decimals
func ToDecimal(x *uint256.Int, decimals int32) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(x.ToBig(), -decimals)
}

// ParseWad parse a fraction like "0.8" into WAD scale
func ParseWad(v string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("parse wad %q: %w", v, err)
	}

	return FromDecimal(d, WadDecimals)
}

// MustParseWad like ParseWad but panics
func MustParseWad(v string) *uint256.Int {
	x, err := ParseWad(v)
	if err != nil {
		panic(err)
	}

	return x
}

// WadString render a WAD value as a plain fraction
func WadString(x *uint256.Int) string {
	return ToDecimal(x, WadDecimals).String()
}

// Integer parse a base-10 integer amount
func Integer(v string) (*uint256.Int, error) {
	if v == "" {
		return Zero(), nil
	}

	x, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("parse integer %q: %w", v, err)
	}

	return x, nil
}
