package ledger

import (
	"context"
	"errors"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

// FlashLoan lend assets of asset to sender for the duration of its
// IFlashBorrower callback. The loan is fee-free and must be returned in full.
func (l *Ledger) FlashLoan(ctx context.Context, sender, asset string, assets *uint256.Int, data []byte) error {
	return l.run(ctx, core.ActionTypeFlashLoan, func(ctx context.Context, s *session) error {
		if assets == nil || assets.IsZero() {
			return core.ErrValidation.With(core.ReasonZeroAssets)
		}

		if err := checkAddress(sender, asset); err != nil {
			return err
		}

		borrower, ok := l.callback(sender).(core.IFlashBorrower)
		if !ok {
			return core.ErrValidation.With("flash borrower not registered: " + sender)
		}

		idle, err := s.balance(ctx, asset, l.account)
		if err != nil {
			return err
		}

		if idle.Lt(assets) {
			return core.ErrInsufficientLiquidity.With(core.ReasonInsufficientLiquidity)
		}

		extra := core.NewTransactionExtra()
		extra.Put(core.TransactionKeyAsset, asset)
		s.record(&core.Transaction{
			Action:   core.ActionTypeFlashLoan,
			Sender:   sender,
			Receiver: sender,
			Assets:   number.ToDecimal(assets, 0),
		}, extra)

		s.transfer(asset, l.account, sender, assets)

		if err := borrower.OnFlashLoan(ctx, assets, data); err != nil {
			var e *core.Error
			if errors.As(err, &e) {
				return err
			}

			return core.ErrValidation.Wrap("flash loan callback failed", err)
		}

		s.transfer(asset, sender, l.account, assets)
		return nil
	})
}
