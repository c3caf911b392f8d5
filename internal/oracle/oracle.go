// Package oracle adapts third-party price feeds to core.IOracle.
package oracle

import (
	"fmt"
	"time"

	"lending/core"
	"lending/pkg/number"
)

// New oracle from config; legs with a configured price are static, the rest
// are pulled from the ticker client. Static legs never go stale, so a
// staleness limit on an oracle made only of static legs is rejected.
func New(cfg core.OracleConfig, tickers *TickerClient) (*FeedOracle, error) {
	if cfg.MaxStaleness > 0 && cfg.Base.Price != "" && (cfg.Quote == nil || cfg.Quote.Price != "") {
		return nil, core.ErrValidation.With(fmt.Sprintf("oracle %s: max staleness set on static feeds", cfg.Name))
	}

	base, err := feed(cfg.Base, tickers)
	if err != nil {
		return nil, fmt.Errorf("oracle %s base: %w", cfg.Name, err)
	}

	var quote Feed
	if cfg.Quote != nil {
		if quote, err = feed(*cfg.Quote, tickers); err != nil {
			return nil, fmt.Errorf("oracle %s quote: %w", cfg.Name, err)
		}
	}

	staleness := time.Duration(cfg.MaxStaleness) * time.Second
	return NewFeedOracle(base, quote, cfg.BaseDecimals, cfg.QuoteDecimals, staleness), nil
}

func feed(cfg core.FeedConfig, tickers *TickerClient) (Feed, error) {
	if cfg.Price != "" {
		price := number.Decimal(cfg.Price)
		if !price.IsPositive() {
			return nil, core.ErrInvalidPrice.With(fmt.Sprintf("static price %q", cfg.Price))
		}

		return NewStaticFeed(price), nil
	}

	if tickers == nil || cfg.Symbol == "" {
		return nil, core.ErrValidation.With("feed needs a price or a ticker symbol")
	}

	return tickers.Feed(cfg.Symbol), nil
}
