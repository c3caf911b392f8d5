package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/request"
	"lending/pkg/number"
)

func setAuthorizationHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sender, _ := request.AccountFrom(ctx)

		var body struct {
			Operator   string `json:"operator" valid:"required"`
			Authorized bool   `json:"authorized"`
		}

		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		if err := ledger.SetAuthorization(ctx, sender, body.Operator, body.Authorized); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, core.Authorization{
			Owner:      sender,
			Operator:   body.Operator,
			Authorized: body.Authorized,
		})
	}
}

func setFeeHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sender, _ := request.AccountFrom(ctx)

		var body struct {
			Fee string `json:"fee" valid:"required,float"`
		}

		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		fee, err := number.ParseWad(body.Fee)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		m, err := findMarket(r, ledger)
		if err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.SetFee(ctx, sender, m.Params, fee); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"fee": number.WadString(fee)})
	}
}

func setFeeRecipientHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sender, _ := request.AccountFrom(ctx)

		var body struct {
			Recipient string `json:"recipient"`
		}

		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		if err := ledger.SetFeeRecipient(ctx, sender, body.Recipient); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"fee_recipient": body.Recipient})
	}
}
