package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lending/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerFeed(t *testing.T) {
	var hits int32
	updatedAt := time.Now().UTC().Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/api/v2/tickers/BTC" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 404, "msg": "unknown symbol"})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol":     "BTC",
			"price":      "65000.5",
			"updated_at": updatedAt.Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	client := NewTickerClient(srv.URL, time.Minute)
	feed := client.Feed("BTC")

	r, err := feed.LatestRound(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "65000.5", r.Decimal().String())
	assert.True(t, updatedAt.Equal(r.UpdatedAt))

	_, err = feed.LatestRound(context.Background())
	require.Nil(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = client.Feed("DOGE").LatestRound(context.Background())
	assert.NotNil(t, err)
}

func TestNewFromConfig(t *testing.T) {
	o, err := New(core.OracleConfig{
		Name:          "eth-usdc",
		Base:          core.FeedConfig{Price: "2000"},
		BaseDecimals:  18,
		QuoteDecimals: 6,
	}, nil)
	require.Nil(t, err)

	p, err := o.Price(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "2000000000000000000000000000", p.Dec())

	_, err = New(core.OracleConfig{Name: "broken", Base: core.FeedConfig{Symbol: "ETH"}}, nil)
	assert.NotNil(t, err)

	// a staleness limit on fixed prices could never fire
	_, err = New(core.OracleConfig{
		Name:         "fixed",
		Base:         core.FeedConfig{Price: "2000"},
		Quote:        &core.FeedConfig{Price: "1"},
		MaxStaleness: 60,
	}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	tickers := NewTickerClient("http://127.0.0.1:0", time.Second)
	_, err = New(core.OracleConfig{
		Name:         "eth-usdc",
		Base:         core.FeedConfig{Symbol: "ETH"},
		Quote:        &core.FeedConfig{Price: "1"},
		MaxStaleness: 60,
	}, tickers)
	assert.Nil(t, err)
}
