package config

import (
	"lending/core"

	configUtil "github.com/fox-one/pkg/config"
)

const (
	defaultAccrueSpec    = "@every 10m"
	defaultLiquidateSpec = "@every 30s"
	defaultIssuer        = "ledger"
	defaultTokenTTL      = 24 * 60 * 60
)

// Load load config file, LEDGER_ prefixed env vars override file values
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("LEDGER")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaults(config)
	return nil
}

func defaults(cfg *core.Config) {
	if cfg.App.Location == "" {
		cfg.App.Location = "UTC"
	}

	if cfg.Keeper.AccrueSpec == "" {
		cfg.Keeper.AccrueSpec = defaultAccrueSpec
	}

	if cfg.Keeper.LiquidateSpec == "" {
		cfg.Keeper.LiquidateSpec = defaultLiquidateSpec
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = defaultIssuer
	}

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}

	if cfg.PriceOracle.CacheTTL <= 0 {
		cfg.PriceOracle.CacheTTL = 10
	}
}
