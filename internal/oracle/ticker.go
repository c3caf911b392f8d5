package oracle

import (
	"context"
	"fmt"
	"time"

	"lending/pkg/resthttp"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Ticker price ticker served by the price endpoint
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TickerClient pulls tickers over http and caches them for ttl
type TickerClient struct {
	endpoint string
	cache    gcache.Cache
	sf       *singleflight.Group
}

// NewTickerClient ticker client, a non-positive ttl disables caching
func NewTickerClient(endpoint string, ttl time.Duration) *TickerClient {
	c := &TickerClient{
		endpoint: endpoint,
		sf:       &singleflight.Group{},
	}

	if ttl > 0 {
		c.cache = gcache.New(256).LRU().Expiration(ttl).Build()
	}

	return c
}

// Feed price feed of symbol
func (c *TickerClient) Feed(symbol string) Feed {
	return &tickerFeed{client: c, symbol: symbol}
}

// Ticker latest ticker of symbol
func (c *TickerClient) Ticker(ctx context.Context, symbol string) (*Ticker, error) {
	if c.cache != nil {
		if v, err := c.cache.Get(symbol); err == nil {
			if t, ok := v.(*Ticker); ok {
				return t, nil
			}
		}
	}

	v, err, _ := c.sf.Do(symbol, func() (interface{}, error) {
		t, err := c.pull(ctx, symbol)
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			_ = c.cache.Set(symbol, t)
		}

		return t, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Ticker), nil
}

func (c *TickerClient) pull(ctx context.Context, symbol string) (*Ticker, error) {
	url := fmt.Sprintf("%s/api/v2/tickers/%s", c.endpoint, symbol)
	logger.FromContext(ctx).Debugln("pull price:", url)

	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var ticker Ticker
	if err := resthttp.ParseResponse(resp, &ticker); err != nil {
		return nil, err
	}

	if ticker.Symbol == "" {
		ticker.Symbol = symbol
	}

	return &ticker, nil
}

type tickerFeed struct {
	client *TickerClient
	symbol string
}

func (f *tickerFeed) LatestRound(ctx context.Context) (*Round, error) {
	t, err := f.client.Ticker(ctx, f.symbol)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", f.symbol, err)
	}

	return RoundFromDecimal(t.Price, t.UpdatedAt), nil
}
