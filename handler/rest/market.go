package rest

import (
	"context"
	"net/http"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/request"
	"lending/handler/views"
	"lending/internal/irm"
	"lending/pkg/number"

	"github.com/go-chi/chi"
	"github.com/twitchtv/twirp"
)

func marketsHandler(ledger core.ILedgerService, rateModels map[string]core.IRateModel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets, err := ledger.Markets(ctx)
		if err != nil {
			render.Error(w, err)
			return
		}

		items := make([]views.Market, 0, len(markets))
		for _, m := range markets {
			items = append(items, marketView(ctx, m, rateModels))
		}

		render.JSON(w, items)
	}
}

// marketHandler market with interest accrued up to now
func marketHandler(ledger core.ILedgerService, rateModels map[string]core.IRateModel) http.HandlerFunc {
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

		render.JSON(w, marketView(ctx, m, rateModels))
	}
}

func createMarketHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sender, _ := request.AccountFrom(ctx)

		var body struct {
			LoanAsset       string `json:"loan_asset" valid:"required"`
			CollateralAsset string `json:"collateral_asset" valid:"required"`
			Oracle          string `json:"oracle" valid:"required"`
			RateModel       string `json:"rate_model" valid:"required"`
			LLTV            string `json:"lltv" valid:"required,float"`
		}

		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		lltv, err := number.ParseWad(body.LLTV)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		id, err := ledger.CreateMarket(ctx, sender, core.MarketParams{
			LoanAsset:       body.LoanAsset,
			CollateralAsset: body.CollateralAsset,
			Oracle:          body.Oracle,
			RateModel:       body.RateModel,
			LLTV:            lltv,
		})
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"id": id.String()})
	}
}

func accrueHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		m, err := findMarket(r, ledger)
		if err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.AccrueInterest(ctx, m.Params); err != nil {
			render.Error(w, err)
			return
		}

		m, err = ledger.Market(ctx, m.ID)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.MarketView(m))
	}
}

func marketView(ctx context.Context, m *core.Market, rateModels map[string]core.IRateModel) views.Market {
	view := views.MarketView(m)

	model, ok := rateModels[m.Params.RateModel]
	if !ok {
		return view
	}

	rate, err := model.BorrowRate(ctx, m.Params, m)
	if err != nil {
		return view
	}

	view.BorrowAPY = irm.Annual(rate)
	view.SupplyAPY = irm.Annual(irm.SupplyRate(rate, m.Utilization(), m.Fee))
	return view
}

func marketID(r *http.Request) (core.ID, error) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		return id, twirp.InvalidArgumentError("id", err.Error())
	}

	return id, nil
}

func findMarket(r *http.Request, ledger core.ILedgerService) (*core.Market, error) {
	id, err := marketID(r)
	if err != nil {
		return nil, err
	}

	return ledger.Market(r.Context(), id)
}
