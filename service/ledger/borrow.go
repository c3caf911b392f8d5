package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/shares"

	"github.com/holiman/uint256"
)

// Borrow borrow loan assets against onBehalf's collateral and send them to
// receiver
func (l *Ledger) Borrow(ctx context.Context, sender string, params core.MarketParams, amount core.Amount, onBehalf, receiver string) (*uint256.Int, *uint256.Int, error) {
	var assets, minted *uint256.Int

	err := l.run(ctx, core.ActionTypeBorrow, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		amount, err := checkAmount(amount)
		if err != nil {
			return err
		}

		if err := checkAddress(onBehalf, receiver); err != nil {
			return err
		}

		if err := s.requireAuthorized(ctx, sender, onBehalf); err != nil {
			return err
		}

		if err := s.accrue(ctx, m); err != nil {
			return err
		}

		if !amount.Assets.IsZero() {
			assets = amount.Assets.Clone()
			minted, err = shares.ToSharesUp(assets, m.TotalBorrowAssets, m.TotalBorrowShares)
		} else {
			minted = amount.Shares.Clone()
			assets, err = shares.ToAssetsDown(minted, m.TotalBorrowAssets, m.TotalBorrowShares)
		}

		if err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.BorrowShares, err = number.Add(p.BorrowShares, minted); err != nil {
			return err
		}

		if m.TotalBorrowShares, err = number.Add(m.TotalBorrowShares, minted); err != nil {
			return err
		}

		if m.TotalBorrowAssets, err = number.Add(m.TotalBorrowAssets, assets); err != nil {
			return err
		}

		if err := s.checkHealth(ctx, m, p); err != nil {
			return err
		}

		if !m.Solvent() {
			return core.ErrInsufficientLiquidity.With(core.ReasonInsufficientLiquidity)
		}

		s.record(amountTx(core.ActionTypeBorrow, m, sender, onBehalf, receiver, assets, minted), nil)
		s.transfer(m.Params.LoanAsset, l.account, receiver, assets)
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	return assets, minted, nil
}

// Repay repay onBehalf's debt with the sender's loan assets. The sender's
// IRepayCallback runs before its assets are pulled when data is set.
func (l *Ledger) Repay(ctx context.Context, sender string, params core.MarketParams, amount core.Amount, onBehalf string, data []byte) (*uint256.Int, *uint256.Int, error) {
	var assets, burned *uint256.Int

	err := l.run(ctx, core.ActionTypeRepay, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		amount, err := checkAmount(amount)
		if err != nil {
			return err
		}

		if err := checkAddress(onBehalf); err != nil {
			return err
		}

		if err := s.accrue(ctx, m); err != nil {
			return err
		}

		if !amount.Assets.IsZero() {
			assets = amount.Assets.Clone()
			burned, err = shares.ToSharesDown(assets, m.TotalBorrowAssets, m.TotalBorrowShares)
		} else {
			burned = amount.Shares.Clone()
			assets, err = shares.ToAssetsUp(burned, m.TotalBorrowAssets, m.TotalBorrowShares)
		}

		if err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.BorrowShares, err = sub(p.BorrowShares, burned, core.ErrValidation, "repay exceeds borrow"); err != nil {
			return err
		}

		if m.TotalBorrowShares, err = number.Sub(m.TotalBorrowShares, burned); err != nil {
			return err
		}

		// rounding may leave the last repayment a unit above the total
		m.TotalBorrowAssets = number.ZeroFloorSub(m.TotalBorrowAssets, assets)

		s.record(amountTx(core.ActionTypeRepay, m, sender, onBehalf, "", assets, burned), nil)

		if err := l.invoke(sender, data, func(h interface{}) (bool, error) {
			cb, ok := h.(core.IRepayCallback)
			if !ok {
				return false, nil
			}

			return true, cb.OnRepay(ctx, assets, data)
		}); err != nil {
			return err
		}

		s.transfer(m.Params.LoanAsset, sender, l.account, assets)
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	return assets, burned, nil
}
