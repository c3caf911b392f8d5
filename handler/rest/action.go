package rest

import (
	"net/http"

	"lending/core"
	"lending/handler/param"
	"lending/handler/render"
	"lending/handler/request"
	"lending/pkg/number"

	"github.com/holiman/uint256"
	"github.com/twitchtv/twirp"
)

type amountBody struct {
	Assets   string `json:"assets" valid:"int,optional"`
	Shares   string `json:"shares" valid:"int,optional"`
	OnBehalf string `json:"on_behalf"`
	Receiver string `json:"receiver"`
}

func (b amountBody) amount() (core.Amount, error) {
	assets, err := integer("assets", b.Assets)
	if err != nil {
		return core.Amount{}, err
	}

	shares, err := integer("shares", b.Shares)
	if err != nil {
		return core.Amount{}, err
	}

	return core.Amount{Assets: assets, Shares: shares}, nil
}

// onBehalf defaults to the sender
func (b amountBody) onBehalf(sender string) string {
	if b.OnBehalf == "" {
		return sender
	}

	return b.OnBehalf
}

// receiver defaults to the sender
func (b amountBody) receiver(sender string) string {
	if b.Receiver == "" {
		return sender
	}

	return b.Receiver
}

type amountOperation func(r *http.Request, sender string, params core.MarketParams, body amountBody, amount core.Amount) (assets, shares *uint256.Int, err error)

// amountHandler shared flow of supply, withdraw, borrow and repay
func amountHandler(ledger core.ILedgerService, op amountOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sender, _ := request.AccountFrom(r.Context())

		var body amountBody
		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		amount, err := body.amount()
		if err != nil {
			render.Error(w, err)
			return
		}

		m, err := findMarket(r, ledger)
		if err != nil {
			render.Error(w, err)
			return
		}

		assets, shares, err := op(r, sender, m.Params, body, amount)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{
			"assets": assets.Dec(),
			"shares": shares.Dec(),
		})
	}
}

func supplyHandler(ledger core.ILedgerService) http.HandlerFunc {
	return amountHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, amount core.Amount) (*uint256.Int, *uint256.Int, error) {
		return ledger.Supply(r.Context(), sender, params, amount, body.onBehalf(sender), nil)
	})
}

func withdrawHandler(ledger core.ILedgerService) http.HandlerFunc {
	return amountHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, amount core.Amount) (*uint256.Int, *uint256.Int, error) {
		return ledger.Withdraw(r.Context(), sender, params, amount, body.onBehalf(sender), body.receiver(sender))
	})
}

func borrowHandler(ledger core.ILedgerService) http.HandlerFunc {
	return amountHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, amount core.Amount) (*uint256.Int, *uint256.Int, error) {
		return ledger.Borrow(r.Context(), sender, params, amount, body.onBehalf(sender), body.receiver(sender))
	})
}

func repayHandler(ledger core.ILedgerService) http.HandlerFunc {
	return amountHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, amount core.Amount) (*uint256.Int, *uint256.Int, error) {
		return ledger.Repay(r.Context(), sender, params, amount, body.onBehalf(sender), nil)
	})
}

func supplyCollateralHandler(ledger core.ILedgerService) http.HandlerFunc {
	return collateralHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, assets *uint256.Int) error {
		return ledger.SupplyCollateral(r.Context(), sender, params, assets, body.onBehalf(sender), nil)
	})
}

func withdrawCollateralHandler(ledger core.ILedgerService) http.HandlerFunc {
	return collateralHandler(ledger, func(r *http.Request, sender string, params core.MarketParams, body amountBody, assets *uint256.Int) error {
		return ledger.WithdrawCollateral(r.Context(), sender, params, assets, body.onBehalf(sender), body.receiver(sender))
	})
}

func collateralHandler(ledger core.ILedgerService, op func(r *http.Request, sender string, params core.MarketParams, body amountBody, assets *uint256.Int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sender, _ := request.AccountFrom(r.Context())

		var body amountBody
		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		assets, err := integer("assets", body.Assets)
		if err != nil {
			render.Error(w, err)
			return
		}

		m, err := findMarket(r, ledger)
		if err != nil {
			render.Error(w, err)
			return
		}

		if err := op(r, sender, m.Params, body, assets); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"assets": assets.Dec()})
	}
}

func liquidateHandler(ledger core.ILedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sender, _ := request.AccountFrom(ctx)

		var body struct {
			Borrower     string `json:"borrower" valid:"required"`
			SeizedAssets string `json:"seized_assets" valid:"int,optional"`
			RepaidShares string `json:"repaid_shares" valid:"int,optional"`
		}

		if err := param.Binding(r, &body); err != nil {
			render.BadRequest(w, err)
			return
		}

		seized, err := integer("seized_assets", body.SeizedAssets)
		if err != nil {
			render.Error(w, err)
			return
		}

		repaid, err := integer("repaid_shares", body.RepaidShares)
		if err != nil {
			render.Error(w, err)
			return
		}

		m, err := findMarket(r, ledger)
		if err != nil {
			render.Error(w, err)
			return
		}

		result, err := ledger.Liquidate(ctx, sender, m.Params, body.Borrower, seized, repaid, nil)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, result)
	}
}

func integer(name, v string) (*uint256.Int, error) {
	x, err := number.Integer(v)
	if err != nil {
		return nil, twirp.InvalidArgumentError(name, err.Error())
	}

	return x, nil
}
