package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"lending/core"

	"github.com/holiman/uint256"
)

// intermediate precision both legs are normalized to
const feedDecimals = 18

var ten = big.NewInt(10)

// FeedOracle prices collateral in loan asset units from a base (collateral)
// feed and an optional quote (loan) feed. Without a quote feed the loan asset
// is a stable unit worth exactly 1.
type FeedOracle struct {
	Base  Feed
	Quote Feed
	// token decimals of the collateral and loan asset
	BaseTokenDecimals  int32
	QuoteTokenDecimals int32
	// MaxStaleness zero disables the check
	MaxStaleness time.Duration

	now func() time.Time
}

// NewFeedOracle oracle over base and quote, quote may be nil
func NewFeedOracle(base, quote Feed, baseDecimals, quoteDecimals int32, maxStaleness time.Duration) *FeedOracle {
	return &FeedOracle{
		Base:               base,
		Quote:              quote,
		BaseTokenDecimals:  baseDecimals,
		QuoteTokenDecimals: quoteDecimals,
		MaxStaleness:       maxStaleness,
		now:                time.Now,
	}
}

// WithClock replace time.Now
func (o *FeedOracle) WithClock(now func() time.Time) *FeedOracle {
	o.now = now
	return o
}

// Price base * 10^(36 + quoteDecimals - baseDecimals) / quote
func (o *FeedOracle) Price(ctx context.Context) (*uint256.Int, error) {
	base, err := o.read(ctx, o.Base)
	if err != nil {
		return nil, err
	}

	quote := new(big.Int).Exp(ten, big.NewInt(feedDecimals), nil)
	if o.Quote != nil {
		if quote, err = o.read(ctx, o.Quote); err != nil {
			return nil, err
		}
	}

	price := new(big.Int)
	if e := 36 + int64(o.QuoteTokenDecimals) - int64(o.BaseTokenDecimals); e >= 0 {
		price.Mul(base, new(big.Int).Exp(ten, big.NewInt(e), nil))
		price.Quo(price, quote)
	} else {
		price.Quo(base, new(big.Int).Mul(quote, new(big.Int).Exp(ten, big.NewInt(-e), nil)))
	}

	if price.Sign() <= 0 {
		return nil, core.ErrInvalidPrice.With("price rounds to zero")
	}

	v, overflow := uint256.FromBig(price)
	if overflow {
		return nil, core.ErrInvalidPrice.With("price overflows")
	}

	return v, nil
}

// read one leg normalized to feedDecimals
func (o *FeedOracle) read(ctx context.Context, feed Feed) (*big.Int, error) {
	r, err := feed.LatestRound(ctx)
	if err != nil {
		return nil, err
	}

	if r.Answer == nil || r.Answer.Sign() <= 0 {
		return nil, core.ErrInvalidPrice.With("non-positive answer")
	}

	if o.MaxStaleness > 0 {
		if age := o.now().Sub(r.UpdatedAt); age > o.MaxStaleness {
			return nil, core.ErrStalePrice.With(fmt.Sprintf("price updated %s ago", age.Truncate(time.Second)))
		}
	}

	v := new(big.Int).Set(r.Answer)
	if shift := int64(feedDecimals) + int64(r.Exponent); shift >= 0 {
		v.Mul(v, new(big.Int).Exp(ten, big.NewInt(shift), nil))
	} else {
		v.Quo(v, new(big.Int).Exp(ten, big.NewInt(-shift), nil))
	}

	if v.Sign() == 0 {
		return nil, core.ErrInvalidPrice.With("answer below feed precision")
	}

	return v, nil
}
