package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

// CreateMarket create the market of params, anyone may do it once
func (l *Ledger) CreateMarket(ctx context.Context, sender string, params core.MarketParams) (core.ID, error) {
	id := params.ID()

	err := l.run(ctx, core.ActionTypeCreateMarket, func(ctx context.Context, s *session) error {
		if err := checkAddress(params.LoanAsset, params.CollateralAsset, params.Oracle, params.RateModel); err != nil {
			return err
		}

		if params.LLTV == nil {
			return core.ErrValidation.With("lltv not set")
		}

		if !params.LLTV.Lt(number.WAD) {
			return core.ErrValidation.With("max lltv exceeded")
		}

		if _, err := l.rateModel(params.RateModel); err != nil {
			return err
		}

		m, err := s.market(ctx, id)
		if err != nil {
			return err
		}

		if m.Created() {
			return core.ErrValidation.With(core.ReasonMarketAlreadyCreated)
		}

		params.LLTV = params.LLTV.Clone()
		m = core.NewMarket(params, l.now().Unix())
		s.create(m)

		extra := core.NewTransactionExtra()
		extra.Put(core.TransactionKeyParams, params)
		s.record(&core.Transaction{
			Action:   core.ActionTypeCreateMarket,
			MarketID: id.String(),
			Sender:   sender,
		}, extra)

		return nil
	})

	if err != nil {
		return core.ID{}, err
	}

	return id, nil
}

// SetAuthorization let operator manage sender's positions, or revoke it
func (l *Ledger) SetAuthorization(ctx context.Context, sender, operator string, authorized bool) error {
	return l.run(ctx, core.ActionTypeSetAuthorization, func(ctx context.Context, s *session) error {
		if err := checkAddress(sender, operator); err != nil {
			return err
		}

		current, err := s.authorization(ctx, sender, operator)
		if err != nil {
			return err
		}

		if current == authorized {
			return core.ErrValidation.With("already set")
		}

		s.authorize(sender, operator, authorized)

		extra := core.NewTransactionExtra()
		extra.Put(core.TransactionKeyAuthorized, authorized)
		s.record(&core.Transaction{
			Action:   core.ActionTypeSetAuthorization,
			Sender:   sender,
			OnBehalf: sender,
			Receiver: operator,
		}, extra)

		return nil
	})
}

// SetFee set the protocol cut of params' market interest, owners only.
// Interest up to now is accrued at the old fee.
func (l *Ledger) SetFee(ctx context.Context, sender string, params core.MarketParams, fee *uint256.Int) error {
	return l.run(ctx, core.ActionTypeSetFee, func(ctx context.Context, s *session) error {
		if !l.isOwner(sender) {
			return core.ErrUnauthorized.With(core.ReasonUnauthorized)
		}

		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		if fee == nil {
			fee = number.Zero()
		}

		if fee.Eq(m.Fee) {
			return core.ErrValidation.With("already set")
		}

		if fee.Gt(MaxFee) {
			return core.ErrValidation.With("max fee exceeded")
		}

		if err := s.accrue(ctx, m); err != nil {
			return err
		}

		m.Fee = fee.Clone()

		extra := core.NewTransactionExtra()
		extra.Put(core.TransactionKeyFee, number.WadString(fee))
		s.record(&core.Transaction{
			Action:   core.ActionTypeSetFee,
			MarketID: m.ID.String(),
			Sender:   sender,
		}, extra)

		return nil
	})
}

// SetFeeRecipient set the account fee shares are minted to, owners only
func (l *Ledger) SetFeeRecipient(ctx context.Context, sender, recipient string) error {
	return l.run(ctx, core.ActionTypeSetFeeRecipient, func(ctx context.Context, s *session) error {
		if !l.isOwner(sender) {
			return core.ErrUnauthorized.With(core.ReasonUnauthorized)
		}

		current, err := s.feeRecipientOf(ctx)
		if err != nil {
			return err
		}

		if current == recipient {
			return core.ErrValidation.With("already set")
		}

		s.feeRecipient = &recipient
		s.record(&core.Transaction{
			Action:   core.ActionTypeSetFeeRecipient,
			Sender:   sender,
			Receiver: recipient,
		}, nil)

		return nil
	})
}
