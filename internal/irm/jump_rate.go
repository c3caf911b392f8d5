package irm

import (
	"context"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// SecondsPerYear annual rates in config are divided by this
var SecondsPerYear = uint256.NewInt(365 * 24 * 3600)

// JumpRate kinked utilization curve, all rates per second in WAD
type JumpRate struct {
	BaseRate       *uint256.Int
	Multiplier     *uint256.Int
	JumpMultiplier *uint256.Int
	Kink           *uint256.Int
}

// NewJumpRate build from annual rates
func NewJumpRate(baseRate, multiplier, jumpMultiplier, kink decimal.Decimal) (*JumpRate, error) {
	m := &JumpRate{}

	var err error
	if m.BaseRate, err = PerSecond(baseRate); err != nil {
		return nil, err
	}
	if m.Multiplier, err = PerSecond(multiplier); err != nil {
		return nil, err
	}
	if m.JumpMultiplier, err = PerSecond(jumpMultiplier); err != nil {
		return nil, err
	}
	if m.Kink, err = number.FromDecimal(kink, number.WadDecimals); err != nil {
		return nil, err
	}

	return m, nil
}

// BorrowRate borrow rate at the market's current utilization
func (m *JumpRate) BorrowRate(ctx context.Context, params core.MarketParams, market *core.Market) (*uint256.Int, error) {
	return m.Rate(market.Utilization())
}

// Rate borrow rate per second for utilization u
//
//	u <= kink: u * multiplier + base
//	u >  kink: kink * multiplier + base + (u - kink) * jump
func (m *JumpRate) Rate(u *uint256.Int) (*uint256.Int, error) {
	if m.Kink.IsZero() || u.Cmp(m.Kink) <= 0 {
		r, err := number.WMulDown(u, m.Multiplier)
		if err != nil {
			return nil, err
		}

		return number.Add(r, m.BaseRate)
	}

	normal, err := number.WMulDown(m.Kink, m.Multiplier)
	if err != nil {
		return nil, err
	}

	if normal, err = number.Add(normal, m.BaseRate); err != nil {
		return nil, err
	}

	excess, err := number.WMulDown(new(uint256.Int).Sub(u, m.Kink), m.JumpMultiplier)
	if err != nil {
		return nil, err
	}

	return number.Add(excess, normal)
}

// PerSecond annual fraction to per second WAD rate
func PerSecond(annual decimal.Decimal) (*uint256.Int, error) {
	r, err := number.FromDecimal(annual, number.WadDecimals)
	if err != nil {
		return nil, err
	}

	return r.Div(r, SecondsPerYear), nil
}

// SupplyRate rate earned by suppliers: borrowRate * utilization * (1 - fee)
func SupplyRate(borrowRate, utilization, fee *uint256.Int) *uint256.Int {
	r, err := number.WMulDown(borrowRate, utilization)
	if err != nil {
		return number.Zero()
	}

	r, err = number.WMulDown(r, number.ZeroFloorSub(number.WAD, fee))
	if err != nil {
		return number.Zero()
	}

	return r
}

// Annual per second rate to an annual fraction
func Annual(perSecond *uint256.Int) decimal.Decimal {
	return number.ToDecimal(new(uint256.Int).Mul(perSecond, SecondsPerYear), number.WadDecimals)
}
