package wallet

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// ErrInsufficientBalance a transfer exceeds the sender's balance
var ErrInsufficientBalance = core.ErrInsufficientBalance

// New new in-process wallet over store
func New(store core.WalletStore) *Wallet {
	return &Wallet{store: store}
}

// Wallet custody of asset balances; implements core.IAssetTransfer
type Wallet struct {
	store core.WalletStore
}

// BalanceOf balance of account in asset
func (w *Wallet) BalanceOf(ctx context.Context, asset, account string) (*uint256.Int, error) {
	return w.store.FindBalance(ctx, asset, account)
}

// Deposit credit amount out of thin air, used by the faucet and tests
func (w *Wallet) Deposit(ctx context.Context, asset, account string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	return w.store.Deposit(ctx, asset, account, amount)
}

// Transfer a single transfer outside of any ledger call
func (w *Wallet) Transfer(ctx context.Context, asset, from, to string, amount *uint256.Int) error {
	return w.Settle(ctx, []*core.Transfer{{Asset: asset, From: from, To: to, Amount: amount}})
}

// Settle apply transfers in order; balances are checked at every step by the
// store and nothing is written unless all of them succeed
func (w *Wallet) Settle(ctx context.Context, transfers []*core.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	if err := w.store.Transfer(ctx, transfers); err != nil {
		logger.FromContext(ctx).WithError(err).Debugf("wallet: settle %d transfers", len(transfers))
		return err
	}

	return nil
}
