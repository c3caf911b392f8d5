package ledger

import (
	"context"

	"lending/core"
	"lending/pkg/number"
	"lending/pkg/shares"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// LiquidationIncentiveFactor min(1.15, 1 + 0.15 * lltv), grows with lltv
func LiquidationIncentiveFactor(lltv *uint256.Int) (*uint256.Int, error) {
	bonus, err := number.WMulDown(new(uint256.Int).Sub(MaxLiquidationIncentiveFactor, number.WAD), lltv)
	if err != nil {
		return nil, err
	}

	lif, err := number.Add(number.WAD, bonus)
	if err != nil {
		return nil, err
	}

	return number.Min(lif, MaxLiquidationIncentiveFactor), nil
}

// seizedToRepaidShares borrow shares worth seized collateral at price, net of
// the incentive
func seizedToRepaidShares(m *core.Market, seized, price, lif *uint256.Int) (*uint256.Int, error) {
	quoted, err := number.MulDivUp(seized, price, core.PriceScale)
	if err != nil {
		return nil, err
	}

	repaid, err := number.WDivUp(quoted, lif)
	if err != nil {
		return nil, err
	}

	return shares.ToSharesUp(repaid, m.TotalBorrowAssets, m.TotalBorrowShares)
}

// repaidSharesToSeized collateral released for repaid borrow shares at price,
// incentive included
func repaidSharesToSeized(m *core.Market, repaidShares, price, lif *uint256.Int) (*uint256.Int, error) {
	repaid, err := shares.ToAssetsDown(repaidShares, m.TotalBorrowAssets, m.TotalBorrowShares)
	if err != nil {
		return nil, err
	}

	value, err := number.WMulDown(repaid, lif)
	if err != nil {
		return nil, err
	}

	return number.MulDivDown(value, core.PriceScale, price)
}

// Liquidate repay part of an unhealthy borrower's debt in exchange for
// discounted collateral. Exactly one of seizedAssets and repaidShares is set.
// Debt left without collateral is written off against the suppliers.
func (l *Ledger) Liquidate(ctx context.Context, sender string, params core.MarketParams, borrower string, seizedAssets, repaidShares *uint256.Int, data []byte) (*core.LiquidationResult, error) {
	var result *core.LiquidationResult

	err := l.run(ctx, core.ActionTypeLiquidate, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, params.ID())
		if err != nil {
			return err
		}

		amount, err := checkAmount(core.Amount{Assets: seizedAssets, Shares: repaidShares})
		if err != nil {
			return err
		}

		if err := checkAddress(borrower); err != nil {
			return err
		}

		if err := s.accrue(ctx, m); err != nil {
			return err
		}

		price, err := l.price(ctx, m.Params)
		if err != nil {
			return err
		}

		p, err := s.position(ctx, m.ID, borrower)
		if err != nil {
			return err
		}

		ok, err := healthy(m, p, price)
		if err != nil {
			return err
		}

		if ok {
			return core.ErrValidation.With(core.ReasonHealthyPosition)
		}

		lif, err := LiquidationIncentiveFactor(m.Params.LLTV)
		if err != nil {
			return err
		}

		seized, repaid := amount.Assets.Clone(), amount.Shares.Clone()
		if !seized.IsZero() {
			repaid, err = seizedToRepaidShares(m, seized, price, lif)
		} else {
			seized, err = repaidSharesToSeized(m, repaid, price, lif)
		}

		if err != nil {
			return err
		}

		repaidAssets, err := shares.ToAssetsUp(repaid, m.TotalBorrowAssets, m.TotalBorrowShares)
		if err != nil {
			return err
		}

		if p.BorrowShares, err = sub(p.BorrowShares, repaid, core.ErrValidation, "repay exceeds borrow"); err != nil {
			return err
		}

		if m.TotalBorrowShares, err = number.Sub(m.TotalBorrowShares, repaid); err != nil {
			return err
		}

		m.TotalBorrowAssets = number.ZeroFloorSub(m.TotalBorrowAssets, repaidAssets)

		if p.Collateral, err = sub(p.Collateral, seized, core.ErrValidation, "insufficient collateral balance"); err != nil {
			return err
		}

		badDebtAssets, badDebtShares := number.Zero(), number.Zero()
		if p.Collateral.IsZero() && !p.BorrowShares.IsZero() {
			badDebtShares = p.BorrowShares.Clone()
			owed, err := shares.ToAssetsUp(badDebtShares, m.TotalBorrowAssets, m.TotalBorrowShares)
			if err != nil {
				return err
			}

			badDebtAssets = number.Min(m.TotalBorrowAssets, owed)

			if m.TotalBorrowAssets, err = number.Sub(m.TotalBorrowAssets, badDebtAssets); err != nil {
				return err
			}

			if m.TotalSupplyAssets, err = number.Sub(m.TotalSupplyAssets, badDebtAssets); err != nil {
				return err
			}

			if m.TotalBorrowShares, err = number.Sub(m.TotalBorrowShares, badDebtShares); err != nil {
				return err
			}

			p.BorrowShares = number.Zero()
		}

		result = &core.LiquidationResult{
			SeizedAssets:  seized,
			RepaidAssets:  repaidAssets,
			RepaidShares:  repaid,
			BadDebtAssets: badDebtAssets,
			BadDebtShares: badDebtShares,
		}

		extra := core.NewTransactionExtra()
		extra.Put(core.TransactionKeyPrice, number.ToDecimal(price, 0))
		extra.Put(core.TransactionKeySeized, number.ToDecimal(seized, 0))
		extra.Put(core.TransactionKeyBadDebtAssets, number.ToDecimal(badDebtAssets, 0))
		extra.Put(core.TransactionKeyBadDebtShares, number.ToDecimal(badDebtShares, 0))
		s.record(amountTx(core.ActionTypeLiquidate, m, sender, borrower, sender, repaidAssets, repaid), extra)
		s.liquidations = append(s.liquidations, liquidation{id: m.ID, result: result})

		s.transfer(m.Params.CollateralAsset, l.account, sender, seized)

		if err := l.invoke(sender, data, func(h interface{}) (bool, error) {
			cb, ok := h.(core.ILiquidateCallback)
			if !ok {
				return false, nil
			}

			return true, cb.OnLiquidate(ctx, repaidAssets, data)
		}); err != nil {
			return err
		}

		s.transfer(m.Params.LoanAsset, sender, l.account, repaidAssets)
		return nil
	})

	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"market":   params.ID().String(),
		"borrower": borrower,
		"seized":   result.SeizedAssets.Dec(),
		"repaid":   result.RepaidAssets.Dec(),
	})

	if !result.BadDebtAssets.IsZero() {
		log.WithField("bad_debt", result.BadDebtAssets.Dec()).Infoln("ledger: bad debt socialized")
	} else {
		log.Infoln("ledger: liquidated")
	}

	return result, nil
}

// MaxLiquidation the largest liquidation of borrower allowed right now: seize
// all collateral when the debt covers it, otherwise repay every borrow share
func (l *Ledger) MaxLiquidation(ctx context.Context, id core.ID, borrower string) (*core.LiquidationPlan, error) {
	var plan *core.LiquidationPlan

	err := l.view(ctx, func(ctx context.Context, s *session) error {
		m, err := s.expectedMarket(ctx, id)
		if err != nil {
			return err
		}

		p, err := s.position(ctx, id, borrower)
		if err != nil {
			return err
		}

		if p.BorrowShares.IsZero() {
			plan = &core.LiquidationPlan{Healthy: true}
			return nil
		}

		price, err := l.price(ctx, m.Params)
		if err != nil {
			return err
		}

		ok, err := healthy(m, p, price)
		if err != nil {
			return err
		}

		if ok {
			plan = &core.LiquidationPlan{Healthy: true}
			return nil
		}

		lif, err := LiquidationIncentiveFactor(m.Params.LLTV)
		if err != nil {
			return err
		}

		if !p.Collateral.IsZero() {
			repaid, err := seizedToRepaidShares(m, p.Collateral, price, lif)
			if err != nil {
				return err
			}

			if repaid.Cmp(p.BorrowShares) <= 0 {
				plan = &core.LiquidationPlan{SeizedAssets: p.Collateral.Clone()}
				return nil
			}
		}

		plan = &core.LiquidationPlan{RepaidShares: p.BorrowShares.Clone()}
		return nil
	})

	return plan, err
}
