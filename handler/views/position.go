package views

import (
	"lending/core"
	"lending/pkg/shares"
)

// Position position view, assets are valued against the given market
type Position struct {
	MarketID     string `json:"market_id"`
	User         string `json:"user"`
	SupplyShares string `json:"supply_shares"`
	BorrowShares string `json:"borrow_shares"`
	Collateral   string `json:"collateral"`
	SupplyAssets string `json:"supply_assets"`
	BorrowAssets string `json:"borrow_assets"`
	Healthy      *bool  `json:"healthy,omitempty"`
}

// PositionView supply assets round down, borrow assets round up
func PositionView(m *core.Market, p *core.Position) Position {
	view := Position{
		MarketID:     p.MarketID.String(),
		User:         p.User,
		SupplyShares: p.SupplyShares.Dec(),
		BorrowShares: p.BorrowShares.Dec(),
		Collateral:   p.Collateral.Dec(),
	}

	if v, err := shares.ToAssetsDown(p.SupplyShares, m.TotalSupplyAssets, m.TotalSupplyShares); err == nil {
		view.SupplyAssets = v.Dec()
	}

	if v, err := shares.ToAssetsUp(p.BorrowShares, m.TotalBorrowAssets, m.TotalBorrowShares); err == nil {
		view.BorrowAssets = v.Dec()
	}

	return view
}
