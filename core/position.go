package core

import (
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

// Position balances of one account in one market
type Position struct {
	MarketID     ID           `json:"market_id"`
	User         string       `json:"user"`
	SupplyShares *uint256.Int `json:"supply_shares"`
	BorrowShares *uint256.Int `json:"borrow_shares"`
	Collateral   *uint256.Int `json:"collateral"`
	// Version zero until the position is first stored
	Version int64 `json:"version"`
}

// NewPosition the all-zero position an account starts with
func NewPosition(id ID, user string) *Position {
	return &Position{
		MarketID:     id,
		User:         user,
		SupplyShares: number.Zero(),
		BorrowShares: number.Zero(),
		Collateral:   number.Zero(),
	}
}

// Clone deep copy
func (p *Position) Clone() *Position {
	c := *p
	c.SupplyShares = cloneInt(p.SupplyShares)
	c.BorrowShares = cloneInt(p.BorrowShares)
	c.Collateral = cloneInt(p.Collateral)
	return &c
}

// IsZero nothing supplied, borrowed or posted
func (p *Position) IsZero() bool {
	return p.SupplyShares.IsZero() && p.BorrowShares.IsZero() && p.Collateral.IsZero()
}

// Authorization lets Operator manage Owner's positions
type Authorization struct {
	Owner      string `json:"owner"`
	Operator   string `json:"operator"`
	Authorized bool   `json:"authorized"`
}
