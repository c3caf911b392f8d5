package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(ledger core.ILedgerService, balances core.WalletStore, rateModels map[string]core.IRateModel) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFound(w, "not found")
	})

	router.Get("/transactions", transactionsHandler(ledger))
	router.Get("/markets", marketsHandler(ledger, rateModels))
	router.Get("/accounts/{account}/balances", balancesHandler(balances))
	router.Get("/accounts/{account}/positions", userPositionsHandler(ledger))

	router.With(request.RequireAccount).Post("/markets", createMarketHandler(ledger))
	router.With(request.RequireAccount).Post("/authorizations", setAuthorizationHandler(ledger))
	router.With(request.RequireAccount).Post("/fee-recipient", setFeeRecipientHandler(ledger))

	router.Route("/markets/{id}", func(r chi.Router) {
		r.Get("/", marketHandler(ledger, rateModels))
		r.Get("/positions", positionsHandler(ledger))
		r.Get("/positions/{user}", positionHandler(ledger))
		r.Get("/liquidations/{user}", liquidationPlanHandler(ledger))

		r.Group(func(r chi.Router) {
			r.Use(request.RequireAccount)

			r.Post("/accrue", accrueHandler(ledger))
			r.Post("/fee", setFeeHandler(ledger))
			r.Post("/supply", supplyHandler(ledger))
			r.Post("/withdraw", withdrawHandler(ledger))
			r.Post("/borrow", borrowHandler(ledger))
			r.Post("/repay", repayHandler(ledger))
			r.Post("/collateral/supply", supplyCollateralHandler(ledger))
			r.Post("/collateral/withdraw", withdrawCollateralHandler(ledger))
			r.Post("/liquidate", liquidateHandler(ledger))
		})
	})

	return router
}
