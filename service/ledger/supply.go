package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/shares"

	"github.com/holiman/uint256"
)

// Supply supply loan assets to params' market on behalf of onBehalf. The
// sender's ISupplyCallback runs before its assets are pulled when data is set.
func (l *Ledger) Supply(ctx context.Context, sender string, params core.MarketParams, amount core.Amount, onBehalf string, data []byte) (*uint256.Int, *uint256.Int, error) {
	var assets, minted *uint256.Int

	err := l.run(ctx, core.ActionTypeSupply, func(ctx context.Context, s *session) error {
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
			minted, err = shares.ToSharesDown(assets, m.TotalSupplyAssets, m.TotalSupplyShares)
		} else {
			minted = amount.Shares.Clone()
			assets, err = shares.ToAssetsUp(minted, m.TotalSupplyAssets, m.TotalSupplyShares)
		}

		if err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.SupplyShares, err = number.Add(p.SupplyShares, minted); err != nil {
			return err
		}

		if m.TotalSupplyShares, err = number.Add(m.TotalSupplyShares, minted); err != nil {
			return err
		}

		if m.TotalSupplyAssets, err = number.Add(m.TotalSupplyAssets, assets); err != nil {
			return err
		}

		s.record(amountTx(core.ActionTypeSupply, m, sender, onBehalf, "", assets, minted), nil)

		if err := l.invoke(sender, data, func(h interface{}) (bool, error) {
			cb, ok := h.(core.ISupplyCallback)
			if !ok {
				return false, nil
			}

			return true, cb.OnSupply(ctx, assets, data)
		}); err != nil {
			return err
		}

		s.transfer(m.Params.LoanAsset, sender, l.account, assets)
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	return assets, minted, nil
}

// Withdraw withdraw loan assets supplied by onBehalf to receiver
func (l *Ledger) Withdraw(ctx context.Context, sender string, params core.MarketParams, amount core.Amount, onBehalf, receiver string) (*uint256.Int, *uint256.Int, error) {
	var assets, burned *uint256.Int

	err := l.run(ctx, core.ActionTypeWithdraw, func(ctx context.Context, s *session) error {
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
			burned, err = shares.ToSharesUp(assets, m.TotalSupplyAssets, m.TotalSupplyShares)
		} else {
			burned = amount.Shares.Clone()
			assets, err = shares.ToAssetsDown(burned, m.TotalSupplyAssets, m.TotalSupplyShares)
		}

		if err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, onBehalf)
		if err != nil {
			return err
		}

		if p.SupplyShares, err = sub(p.SupplyShares, burned, core.ErrValidation, "insufficient supply shares"); err != nil {
			return err
		}

		if m.TotalSupplyShares, err = number.Sub(m.TotalSupplyShares, burned); err != nil {
			return err
		}

		if m.TotalSupplyAssets, err = sub(m.TotalSupplyAssets, assets, core.ErrInsufficientLiquidity, core.ReasonInsufficientLiquidity); err != nil {
			return err
		}

		if !m.Solvent() {
			return core.ErrInsufficientLiquidity.With(core.ReasonInsufficientLiquidity)
		}

		s.record(amountTx(core.ActionTypeWithdraw, m, sender, onBehalf, receiver, assets, burned), nil)
		s.transfer(m.Params.LoanAsset, l.account, receiver, assets)
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	return assets, burned, nil
}
