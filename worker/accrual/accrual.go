package accrual

import (
	"context"

	"lending/core"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

// Worker accrues interest on markets with outstanding debt so that idle
// markets do not lag behind
type Worker struct {
	worker.BaseJob
	ledger core.ILedgerService
}

// New new accrual worker
func New(location, spec string, ledger core.ILedgerService) (*Worker, error) {
	w := &Worker{ledger: ledger}
	if err := w.Init("accrual", location, spec, w.onWork); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	markets, err := w.ledger.Markets(ctx)
	if err != nil {
		log.WithError(err).Errorln("ledger.Markets")
		return err
	}

	for _, m := range markets {
		if m.TotalBorrowAssets.IsZero() {
			continue
		}

		if err := w.ledger.AccrueInterest(ctx, m.Params); err != nil {
			log.WithError(err).WithField("market", m.ID.String()).Errorln("ledger.AccrueInterest")
		}
	}

	return nil
}
