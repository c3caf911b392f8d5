package liquidator

import (
	"context"
	"time"

	"lending/core"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

const (
	// PausedKey property switch, a true value skips every sweep
	PausedKey = "liquidator_paused"
	// CheckpointKey property holding the time of the last finished sweep
	CheckpointKey = "liquidator_checkpoint"
)

// Worker sweeps every market for unhealthy positions and liquidates them
// as far as allowed, paying with the liquidator account
type Worker struct {
	worker.BaseJob
	ledger     core.ILedgerService
	property   property.Store
	liquidator string
}

// New new liquidation worker
func New(location, spec string, ledger core.ILedgerService, property property.Store, liquidator string) (*Worker, error) {
	w := &Worker{
		ledger:     ledger,
		property:   property,
		liquidator: liquidator,
	}

	if err := w.Init("liquidator", location, spec, w.onWork); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	v, err := w.property.Get(ctx, PausedKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get", PausedKey)
		return err
	}

	if cast.ToBool(v.String()) {
		log.Debugln("paused")
		return nil
	}

	markets, err := w.ledger.Markets(ctx)
	if err != nil {
		log.WithError(err).Errorln("ledger.Markets")
		return err
	}

	var g errgroup.Group
	for _, m := range markets {
		if m.TotalBorrowShares.IsZero() {
			continue
		}

		m := m
		g.Go(func() error {
			return w.sweep(ctx, m)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := w.property.Save(ctx, CheckpointKey, time.Now()); err != nil {
		log.WithError(err).Errorln("property.Save", CheckpointKey)
		return err
	}

	return nil
}

func (w *Worker) sweep(ctx context.Context, m *core.Market) error {
	log := logger.FromContext(ctx).WithField("market", m.ID.String())

	positions, err := w.ledger.Positions(ctx, m.ID)
	if err != nil {
		log.WithError(err).Errorln("ledger.Positions")
		return err
	}

	for _, p := range positions {
		if p.BorrowShares.IsZero() || p.User == w.liquidator {
			continue
		}

		plan, err := w.ledger.MaxLiquidation(ctx, m.ID, p.User)
		if err != nil {
			// a broken oracle stops this market only
			if core.CodeOf(err) != core.ErrUnknown {
				log.WithError(err).Warnln("ledger.MaxLiquidation")
				return nil
			}

			return err
		}

		if plan.Healthy {
			continue
		}

		result, err := w.ledger.Liquidate(ctx, w.liquidator, m.Params, p.User, plan.SeizedAssets, plan.RepaidShares, nil)
		if err != nil {
			log.WithError(err).WithField("borrower", p.User).Errorln("ledger.Liquidate")
			continue
		}

		log.WithField("borrower", p.User).
			WithField("seized", result.SeizedAssets.Dec()).
			WithField("repaid", result.RepaidAssets.Dec()).
			Infoln("liquidated")
	}

	return nil
}
