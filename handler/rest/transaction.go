package rest

import (
	"net/http"
	"time"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/views"
)

// response ledger journal after offset
func transactionsHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			Offset string `json:"offset"`
			Limit  int    `json:"limit"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		limit := params.Limit
		if limit <= 0 || limit > 500 {
			limit = 500
		}

		offset, err := time.Parse(time.RFC3339Nano, params.Offset)
		if err != nil {
			offset = time.Time{}
		}

		transactions, err := ledger.Transactions(ctx, offset, limit)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.TransactionViews(transactions))
	}
}
