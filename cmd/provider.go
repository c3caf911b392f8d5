package cmd

import (
	"context"
	"time"

	"lending/core"
	"lending/internal/irm"
	"lending/internal/oracle"
	"lending/service/ledger"
	"lending/service/session"
	"lending/service/wallet"
	ledgerstore "lending/store/ledger"
	walletstore "lending/store/wallet"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideLedgerStore(db *db.DB) core.LedgerStore {
	return ledgerstore.Cache(ledgerstore.New(db), time.Minute)
}

func provideWalletStore(db *db.DB) core.WalletStore {
	return walletstore.New(db)
}

// ------------------service------------------------------------

func provideWallet(store core.WalletStore) *wallet.Wallet {
	return wallet.New(store)
}

func provideSession() core.Session {
	s, err := session.New(session.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Capacity: 1024,
	})
	if err != nil {
		panic(err)
	}

	return s
}

func provideTickerClient() *oracle.TickerClient {
	if cfg.PriceOracle.EndPoint == "" {
		return nil
	}

	ttl := time.Duration(cfg.PriceOracle.CacheTTL) * time.Second
	return oracle.NewTickerClient(cfg.PriceOracle.EndPoint, ttl)
}

func provideOracles(tickers *oracle.TickerClient) map[string]core.IOracle {
	oracles := make(map[string]core.IOracle, len(cfg.Oracles))
	for _, c := range cfg.Oracles {
		o, err := oracle.New(c, tickers)
		if err != nil {
			panic(err)
		}

		oracles[c.Name] = o
	}

	return oracles
}

func provideRateModels() map[string]core.IRateModel {
	models := make(map[string]core.IRateModel, len(cfg.RateModels))
	for _, c := range cfg.RateModels {
		m, err := irm.New(c)
		if err != nil {
			panic(err)
		}

		models[c.Name] = m
	}

	return models
}

func provideLedger(store core.LedgerStore, w core.IAssetTransfer, oracles map[string]core.IOracle, rateModels map[string]core.IRateModel) *ledger.Ledger {
	l := ledger.New(store, w,
		ledger.WithAccount(cfg.Ledger.Account),
		ledger.WithOwners(cfg.Admins...),
		ledger.WithFeeRecipient(cfg.Ledger.FeeRecipient),
	)

	for name, o := range oracles {
		l.RegisterOracle(name, o)
	}

	for name, m := range rateModels {
		l.RegisterRateModel(name, m)
	}

	return l
}

// provideDBCheck health check pinging the database
func provideDBCheck(database *db.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.View().DB().PingContext(ctx)
	}
}
