package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config ledger config
type Config struct {
	App         App               `json:"app"`
	DB          db.Config         `json:"db"`
	Ledger      Ledger            `json:"ledger"`
	PriceOracle PriceOracle       `json:"price_oracle"`
	Oracles     []OracleConfig    `json:"oracles"`
	RateModels  []RateModelConfig `json:"rate_models"`
	Keeper      Keeper            `json:"keeper"`
	Auth        Auth              `json:"auth"`
	Admins      []string          `json:"admins"`
}

// Auth access token config
type Auth struct {
	// Secret HS256 signing key, the api server refuses to start without it
	Secret string `json:"secret"`
	Issuer string `json:"issuer"`
	// TokenTTL default lifetime of issued tokens, seconds
	TokenTTL int64 `json:"token_ttl"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	Location string `json:"location"`
}

// Ledger ledger config
type Ledger struct {
	// Account custody account holding pooled assets
	Account      string `json:"account"`
	FeeRecipient string `json:"fee_recipient"`
	// Faucet initial balances credited by the in-memory wallet
	Faucet []FaucetBalance `json:"faucet"`
}

// FaucetBalance balance credited at startup, integer units
type FaucetBalance struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// PriceOracle price oracle config
type PriceOracle struct {
	EndPoint string `json:"end_point"`
	// CacheTTL seconds a fetched ticker is reused
	CacheTTL int64 `json:"cache_ttl"`
}

// OracleConfig oracle adapter combining a base and an optional quote feed
type OracleConfig struct {
	Name          string      `json:"name"`
	Base          FeedConfig  `json:"base"`
	Quote         *FeedConfig `json:"quote,omitempty"`
	BaseDecimals  int32       `json:"base_decimals"`
	QuoteDecimals int32       `json:"quote_decimals"`
	// MaxStaleness seconds
	MaxStaleness int64 `json:"max_staleness"`
}

// FeedConfig feed config, static when Price is set, ticker otherwise
type FeedConfig struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// RateModelConfig interest rate model config, annual rates
type RateModelConfig struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Rate           string `json:"rate"`
	BaseRate       string `json:"base_rate"`
	Multiplier     string `json:"multiplier"`
	JumpMultiplier string `json:"jump_multiplier"`
	Kink           string `json:"kink"`
}

// Keeper background worker config
type Keeper struct {
	AccrueSpec    string `json:"accrue_spec"`
	LiquidateSpec string `json:"liquidate_spec"`
	Liquidator    string `json:"liquidator"`
}
