package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lending/core"
	"lending/handler/codes"
	"lending/internal/irm"
	"lending/internal/oracle"
	"lending/pkg/number"
	"lending/service/ledger"
	"lending/service/session"
	"lending/service/wallet"
	"lending/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Data json.RawMessage `json:"data"`
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (int, response) {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestRestAPI(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := wallet.New(store)

	rate := &irm.Fixed{Rate: number.Zero()}
	l := ledger.New(store, w, ledger.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	l.RegisterOracle("oracle", oracle.NewStatic(core.PriceScale))
	l.RegisterRateModel("irm", rate)

	sessions, err := session.New(session.Config{Secret: "test secret", Issuer: "ledger"})
	require.NoError(t, err)

	h := New(Config{
		Version:    "test",
		RateModels: map[string]core.IRateModel{"irm": rate},
	}, l, store, sessions).Handler()

	tokens := map[string]string{}
	for _, account := range []string{"creator", "lender", "borrower", "attacker"} {
		tokens[account], err = sessions.Issue(ctx, account, time.Hour)
		require.NoError(t, err)
	}

	code, _ := call(t, h, http.MethodGet, "/hc", "", "")
	assert.Equal(t, http.StatusOK, code)

	market := `{"loan_asset":"usd","collateral_asset":"eth","oracle":"oracle","rate_model":"irm","lltv":"0.8"}`

	code, _ = call(t, h, http.MethodPost, "/api/markets", "", market)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := call(t, h, http.MethodPost, "/api/markets", tokens["creator"], market)
	require.Equal(t, http.StatusOK, code, resp.Msg)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	code, resp = call(t, h, http.MethodPost, "/api/markets", tokens["creator"], market)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int(core.ErrValidation), resp.Code)

	require.NoError(t, w.Deposit(ctx, "usd", "lender", number.Int(1000)))

	code, resp = call(t, h, http.MethodPost, "/api/markets/"+created.ID+"/supply", tokens["lender"], `{"assets":"1000"}`)
	require.Equal(t, http.StatusOK, code, resp.Msg)

	var supplied struct {
		Assets string `json:"assets"`
		Shares string `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &supplied))
	assert.Equal(t, "1000", supplied.Assets)
	assert.Equal(t, "1000000000", supplied.Shares)

	code, resp = call(t, h, http.MethodPost, "/api/markets/"+created.ID+"/supply", tokens["lender"], `{"assets":"10","shares":"10"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int(core.ErrValidation), resp.Code)

	code, resp = call(t, h, http.MethodPost, "/api/markets/"+created.ID+"/borrow", tokens["borrower"], `{"assets":"100"}`)
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, int(core.ErrHealthCheckFailed), resp.Code)

	// the acting account comes from the token only
	code, resp = call(t, h, http.MethodPost, "/api/markets/"+created.ID+"/withdraw", tokens["attacker"], `{"assets":"1000","on_behalf":"lender","receiver":"attacker"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, int(core.ErrUnauthorized), resp.Code)

	r := httptest.NewRequest(http.MethodPost, "/api/markets/"+created.ID+"/withdraw", strings.NewReader(`{"assets":"1000","receiver":"attacker"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Account", "lender")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, r)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	forged, err := session.New(session.Config{Secret: "other secret", Issuer: "ledger"})
	require.NoError(t, err)
	forgedToken, err := forged.Issue(ctx, "lender", time.Hour)
	require.NoError(t, err)

	code, _ = call(t, h, http.MethodPost, "/api/markets/"+created.ID+"/withdraw", forgedToken, `{"assets":"1000","receiver":"attacker"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	balance, err := w.BalanceOf(ctx, "usd", "attacker")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	code, resp = call(t, h, http.MethodGet, "/api/markets/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, code, resp.Msg)

	var view struct {
		TotalSupplyAssets string `json:"total_supply_assets"`
		LLTV              string `json:"lltv"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "1000", view.TotalSupplyAssets)
	assert.Equal(t, "0.8", view.LLTV)

	code, resp = call(t, h, http.MethodGet, "/api/markets/"+created.ID+"/positions/lender", "", "")
	require.Equal(t, http.StatusOK, code, resp.Msg)

	var position struct {
		SupplyAssets string `json:"supply_assets"`
		Healthy      *bool  `json:"healthy"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &position))
	assert.Equal(t, "1000", position.SupplyAssets)
	require.NotNil(t, position.Healthy)
	assert.True(t, *position.Healthy)

	code, _ = call(t, h, http.MethodGet, "/api/markets/0x12", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	var unknown core.ID
	unknown[0] = 1
	code, _ = call(t, h, http.MethodGet, "/api/markets/"+unknown.String(), "", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = call(t, h, http.MethodGet, "/api/transactions", "", "")
	require.Equal(t, http.StatusOK, code, resp.Msg)

	var txs []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, "create_market", txs[0].Action)
	assert.Equal(t, "supply", txs[1].Action)
}

func TestCodes(t *testing.T) {
	err := codes.From(core.ErrInsufficientLiquidity.With(core.ReasonInsufficientLiquidity))
	assert.Equal(t, int(core.ErrInsufficientLiquidity), codes.Get(err))

	err = codes.From(core.ErrValidation.With(core.ReasonMarketNotCreated))
	assert.Equal(t, "not_found", string(err.Code()))

	err = codes.From(core.ErrConflict.With(core.ReasonStaleWrite))
	assert.Equal(t, "aborted", string(err.Code()))
	assert.Equal(t, int(core.ErrConflict), codes.Get(err))
}
