package core

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
)

// AssetBalance balance of one asset held by an account
type AssetBalance struct {
	Asset   string       `json:"asset"`
	Account string       `json:"account"`
	Amount  *uint256.Int `json:"amount"`
}

// ErrInsufficientBalance a transfer exceeds the sender's balance
var ErrInsufficientBalance = errors.New("wallet: insufficient balance")

// WalletStore balances behind the in-process wallet
type WalletStore interface {
	// FindBalance zero if the account never held the asset
	FindBalance(ctx context.Context, asset, account string) (*uint256.Int, error)
	ListBalances(ctx context.Context, account string) ([]*AssetBalance, error)
	// Transfer applies transfers in order as relative updates, all or none.
	// A debit larger than the balance at its turn fails with ErrInsufficientBalance.
	Transfer(ctx context.Context, transfers []*Transfer) error
	// Deposit credits amount to account
	Deposit(ctx context.Context, asset, account string, amount *uint256.Int) error
}
