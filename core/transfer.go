package core

import (
	"context"

	"github.com/holiman/uint256"
)

// Transfer a single asset movement requested by the ledger
type Transfer struct {
	Asset  string       `json:"asset"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Amount *uint256.Int `json:"amount"`
}

// Reverse the compensating transfer
func (t *Transfer) Reverse() *Transfer {
	return &Transfer{
		Asset:  t.Asset,
		From:   t.To,
		To:     t.From,
		Amount: t.Amount.Clone(),
	}
}

// IAssetTransfer moves assets in and out of the ledger's custody
type IAssetTransfer interface {
	// Settle applies transfers in order, either all of them or none
	Settle(ctx context.Context, transfers []*Transfer) error
	BalanceOf(ctx context.Context, asset, account string) (*uint256.Int, error)
}
