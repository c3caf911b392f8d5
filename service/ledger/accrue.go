package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/shares"

	"github.com/holiman/uint256"
)

// accrueMarket adds the interest since m.LastUpdate to the market totals and
// mints the fee shares into TotalSupplyShares. Crediting the fee shares to a
// position is left to the caller.
func (l *Ledger) accrueMarket(ctx context.Context, m *core.Market, feeRecipient string) (interest, feeShares *uint256.Int, err error) {
	interest, feeShares = number.Zero(), number.Zero()

	now := l.now().Unix()
	elapsed := now - m.LastUpdate
	if elapsed <= 0 {
		return interest, feeShares, nil
	}

	if m.TotalBorrowAssets.IsZero() {
		m.LastUpdate = now
		return interest, feeShares, nil
	}

	irm, err := l.rateModel(m.Params.RateModel)
	if err != nil {
		return nil, nil, err
	}

	rate, err := irm.BorrowRate(ctx, m.Params, m)
	if err != nil {
		return nil, nil, err
	}

	growth, err := number.Mul(rate, number.Int(uint64(elapsed)))
	if err != nil {
		return nil, nil, err
	}

	if interest, err = number.WMulDown(m.TotalBorrowAssets, growth); err != nil {
		return nil, nil, err
	}

	tba, err := number.Add(m.TotalBorrowAssets, interest)
	if err != nil {
		return nil, nil, err
	}

	tsa, err := number.Add(m.TotalSupplyAssets, interest)
	if err != nil {
		return nil, nil, err
	}

	if !m.Fee.IsZero() && feeRecipient != "" {
		feeAmount, err := number.WMulDown(interest, m.Fee)
		if err != nil {
			return nil, nil, err
		}

		// the fee is taken out of the supply side before pricing its shares
		if feeShares, err = shares.ToSharesDown(feeAmount, number.ZeroFloorSub(tsa, feeAmount), m.TotalSupplyShares); err != nil {
			return nil, nil, err
		}

		if m.TotalSupplyShares, err = number.Add(m.TotalSupplyShares, feeShares); err != nil {
			return nil, nil, err
		}
	}

	m.TotalBorrowAssets, m.TotalSupplyAssets = tba, tsa
	m.LastUpdate = now
	return interest, feeShares, nil
}

// accrue applies accrueMarket to a working market and credits the fee shares
func (s *session) accrue(ctx context.Context, m *core.Market) error {
	recipient, err := s.feeRecipientOf(ctx)
	if err != nil {
		return err
	}

	interest, feeShares, err := s.l.accrueMarket(ctx, m, recipient)
	if err != nil {
		return err
	}

	if interest.IsZero() {
		return nil
	}

	if !feeShares.IsZero() {
		p, err := s.position(ctx, m.ID, recipient)
		if err != nil {
			return err
		}

		if p.SupplyShares, err = number.Add(p.SupplyShares, feeShares); err != nil {
			return err
		}
	}

	extra := core.NewTransactionExtra()
	extra.Put(core.TransactionKeyInterest, number.ToDecimal(interest, 0))
	extra.Put(core.TransactionKeyFeeShares, number.ToDecimal(feeShares, 0))
	s.record(&core.Transaction{
		Action:   core.ActionTypeAccrueInterest,
		MarketID: m.ID.String(),
		OnBehalf: recipient,
		Assets:   number.ToDecimal(interest, 0),
		Shares:   number.ToDecimal(feeShares, 0),
	}, extra)

	return nil
}

// AccrueInterest accrue interest on a market, anyone may call it
func (l *Ledger) AccrueInterest(ctx context.Context, params core.MarketParams) error {
	return l.run(ctx, core.ActionTypeAccrueInterest, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		return s.accrue(ctx, m)
	})
}
