package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/views"

	"github.com/go-chi/chi"
)

func positionsHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := marketID(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		m, err := ledger.ExpectedMarket(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		positions, err := ledger.Positions(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		items := make([]views.Position, 0, len(positions))
		for _, p := range positions {
			items = append(items, views.PositionView(m, p))
		}

		render.JSON(w, items)
	}
}

func positionHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := chi.URLParam(r, "user")

		id, err := marketID(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		m, err := ledger.ExpectedMarket(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		p, err := ledger.Position(ctx, id, user)
		if err != nil {
			render.Error(w, err)
			return
		}

		view := views.PositionView(m, p)
		if healthy, err := ledger.IsHealthy(ctx, id, user); err == nil {
			view.Healthy = &healthy
		}

		render.JSON(w, view)
	}
}

func userPositionsHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		positions, err := ledger.UserPositions(ctx, chi.URLParam(r, "account"))
		if err != nil {
			render.Error(w, err)
			return
		}

		items := make([]views.Position, 0, len(positions))
		for _, p := range positions {
			m, err := ledger.ExpectedMarket(ctx, p.MarketID)
			if err != nil {
				render.Error(w, err)
				return
			}

			items = append(items, views.PositionView(m, p))
		}

		render.JSON(w, items)
	}
}

func liquidationPlanHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := marketID(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		plan, err := ledger.MaxLiquidation(ctx, id, chi.URLParam(r, "user"))
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, plan)
	}
}

func balancesHandler(balances core.WalletStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := balances.ListBalances(r.Context(), chi.URLParam(r, "account"))
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, items)
	}
}
