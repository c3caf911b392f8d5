package ledger

import (
	"context"
	"errors"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/shares"

	"github.com/holiman/uint256"
)

// healthy reports whether the collateral of p, valued at price and capped by
// lltv, covers its debt rounded up
func healthy(m *core.Market, p *core.Position, price *uint256.Int) (bool, error) {
	if p.BorrowShares.IsZero() {
		return true, nil
	}

	borrowed, err := shares.ToAssetsUp(p.BorrowShares, m.TotalBorrowAssets, m.TotalBorrowShares)
	if err != nil {
		return false, err
	}

	value, err := number.MulDivDown(p.Collateral, price, core.PriceScale)
	if err != nil {
		return false, err
	}

	maxBorrow, err := number.WMulDown(value, m.Params.LLTV)
	if err != nil {
		return false, err
	}

	return maxBorrow.Cmp(borrowed) >= 0, nil
}

// checkHealth reads a fresh price unless p has no debt
func (s *session) checkHealth(ctx context.Context, m *core.Market, p *core.Position) error {
	if p.BorrowShares.IsZero() {
		return nil
	}

	price, err := s.l.price(ctx, m.Params)
	if err != nil {
		return err
	}

	ok, err := healthy(m, p, price)
	if err != nil {
		return err
	}

	if !ok {
		return core.ErrHealthCheckFailed.With(core.ReasonInsufficientCollateral)
	}

	return nil
}

func (s *session) requireAuthorized(ctx context.Context, sender, onBehalf string) error {
	ok, err := s.isAuthorized(ctx, onBehalf, sender)
	if err != nil {
		return err
	}

	if !ok {
		return core.ErrUnauthorized.With(core.ReasonUnauthorized)
	}

	return nil
}

func checkAmount(amount core.Amount) (core.Amount, error) {
	amount = amount.Normalize()
	if !amount.Valid() {
		return amount, core.ErrValidation.With(core.ReasonInconsistentInput)
	}

	return amount, nil
}

func checkAddress(accounts ...string) error {
	for _, a := range accounts {
		if a == "" {
			return core.ErrValidation.With(core.ReasonZeroAddress)
		}
	}

	return nil
}

// invoke runs the callback registered for account when data is not empty.
// call reports false when the registered handler lacks the callback.
func (l *Ledger) invoke(account string, data []byte, call func(handler interface{}) (bool, error)) error {
	if len(data) == 0 {
		return nil
	}

	h := l.callback(account)
	if h == nil {
		return core.ErrValidation.With("no callback registered for " + account)
	}

	ok, err := call(h)
	if !ok {
		return core.ErrValidation.With("callback not implemented by " + account)
	}

	if err != nil {
		var e *core.Error
		if errors.As(err, &e) {
			return err
		}

		return core.ErrValidation.Wrap("callback failed", err)
	}

	return nil
}

func sub(x, y *uint256.Int, code core.ErrorCode, reason string) (*uint256.Int, error) {
	z, err := number.Sub(x, y)
	if err != nil {
		return nil, code.With(reason)
	}

	return z, nil
}

func amountTx(action core.ActionType, m *core.Market, sender, onBehalf, receiver string, assets, sh *uint256.Int) *core.Transaction {
	return &core.Transaction{
		Action:   action,
		MarketID: m.ID.String(),
		Sender:   sender,
		OnBehalf: onBehalf,
		Receiver: receiver,
		Assets:   number.ToDecimal(assets, 0),
		Shares:   number.ToDecimal(sh, 0),
	}
}
