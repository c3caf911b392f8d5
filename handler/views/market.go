package views

import (
	"lending/core"
	"lending/pkg/number"

	"github.com/shopspring/decimal"
)

// Market market view
type Market struct {
	ID                string          `json:"id"`
	LoanAsset         string          `json:"loan_asset"`
	CollateralAsset   string          `json:"collateral_asset"`
	Oracle            string          `json:"oracle"`
	RateModel         string          `json:"rate_model"`
	LLTV              decimal.Decimal `json:"lltv"`
	Fee               decimal.Decimal `json:"fee"`
	TotalSupplyAssets string          `json:"total_supply_assets"`
	TotalSupplyShares string          `json:"total_supply_shares"`
	TotalBorrowAssets string          `json:"total_borrow_assets"`
	TotalBorrowShares string          `json:"total_borrow_shares"`
	Liquidity         string          `json:"liquidity"`
	Utilization       decimal.Decimal `json:"utilization"`
	LastUpdate        int64           `json:"last_update"`
	BorrowAPY         decimal.Decimal `json:"borrow_apy"`
	SupplyAPY         decimal.Decimal `json:"supply_apy"`
}

// MarketView market view without rates
func MarketView(m *core.Market) Market {
	return Market{
		ID:                m.ID.String(),
		LoanAsset:         m.Params.LoanAsset,
		CollateralAsset:   m.Params.CollateralAsset,
		Oracle:            m.Params.Oracle,
		RateModel:         m.Params.RateModel,
		LLTV:              number.ToDecimal(m.Params.LLTV, number.WadDecimals),
		Fee:               number.ToDecimal(m.Fee, number.WadDecimals),
		TotalSupplyAssets: m.TotalSupplyAssets.Dec(),
		TotalSupplyShares: m.TotalSupplyShares.Dec(),
		TotalBorrowAssets: m.TotalBorrowAssets.Dec(),
		TotalBorrowShares: m.TotalBorrowShares.Dec(),
		Liquidity:         m.Liquidity().Dec(),
		Utilization:       number.ToDecimal(m.Utilization(), number.WadDecimals),
		LastUpdate:        m.LastUpdate,
	}
}
