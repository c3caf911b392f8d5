package irm

import (
	"context"
	"fmt"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	KindFixed = "fixed"
	KindJump  = "jump"
)

// Fixed constant per second rate
type Fixed struct {
	Rate *uint256.Int
}

// BorrowRate ignores utilization
func (m *Fixed) BorrowRate(ctx context.Context, params core.MarketParams, market *core.Market) (*uint256.Int, error) {
	return m.Rate.Clone(), nil
}

// New rate model from config
func New(cfg core.RateModelConfig) (core.IRateModel, error) {
	switch cfg.Kind {
	case KindFixed:
		r, err := PerSecond(number.Decimal(cfg.Rate))
		if err != nil {
			return nil, fmt.Errorf("rate model %s: %w", cfg.Name, err)
		}

		return &Fixed{Rate: r}, nil
	case KindJump, "":
		m, err := NewJumpRate(
			parse(cfg.BaseRate),
			parse(cfg.Multiplier),
			parse(cfg.JumpMultiplier),
			parse(cfg.Kink),
		)
		if err != nil {
			return nil, fmt.Errorf("rate model %s: %w", cfg.Name, err)
		}

		return m, nil
	default:
		return nil, fmt.Errorf("rate model %s: unknown kind %q", cfg.Name, cfg.Kind)
	}
}

func parse(v string) decimal.Decimal {
	if v == "" {
		return decimal.Zero
	}

	return number.Decimal(v)
}
