package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

// SupplyCollateral post collateral for onBehalf. Collateral earns nothing.
func (l *Ledger) SupplyCollateral(ctx context.Context, sender string, params core.MarketParams, assets *uint256.Int, onBehalf string, data []byte) error {
	return l.run(ctx, core.ActionTypeSupplyCollateral, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		if assets == nil || assets.IsZero() {
			return core.ErrValidation.With(core.ReasonZeroAssets)
		}

		if err := checkAddress(onBehalf); err != nil {
			return err
		}

		if err := s.accrue(ctx, m); err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.Collateral, err = number.Add(p.Collateral, assets); err != nil {
			return err
		}

		s.record(amountTx(core.ActionTypeSupplyCollateral, m, sender, onBehalf, "", assets, nil), nil)

		if err := l.invoke(sender, data, func(h interface{}) (bool, error) {
			cb, ok := h.(core.ISupplyCollateralCallback)
			if !ok {
				return false, nil
			}

			return true, cb.OnSupplyCollateral(ctx, assets, data)
		}); err != nil {
			return err
		}

		s.transfer(m.Params.CollateralAsset, sender, l.account, assets)
		return nil
	})
}

// WithdrawCollateral withdraw onBehalf's collateral to receiver, the position
// must stay healthy
func (l *Ledger) WithdrawCollateral(ctx context.Context, sender string, params core.MarketParams, assets *uint256.Int, onBehalf, receiver string) error {
	return l.run(ctx, core.ActionTypeWithdrawCollateral, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		if assets == nil || assets.IsZero() {
			return core.ErrValidation.With(core.ReasonZeroAssets)
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

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.Collateral, err = sub(p.Collateral, assets, core.ErrValidation, "insufficient collateral balance"); err != nil {
			return err
		}

		if err := s.checkHealth(ctx, m, p); err != nil {
			return err
		}

		s.record(amountTx(core.ActionTypeWithdrawCollateral, m, sender, onBehalf, receiver, assets, nil), nil)
		s.transfer(m.Params.CollateralAsset, l.account, receiver, assets)
		return nil
	})
}
