package ledger

import (
	"time"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Market market row, integers are stored as decimal(78,0)
type Market struct {
	ID                string          `sql:"size:66;PRIMARY_KEY"`
	LoanAsset         string          `sql:"size:64"`
	CollateralAsset   string          `sql:"size:64"`
	Oracle            string          `sql:"size:64"`
	RateModel         string          `sql:"size:64"`
	LLTV              decimal.Decimal `sql:"type:decimal(78,0)" gorm:"column:lltv"`
	TotalSupplyAssets decimal.Decimal `sql:"type:decimal(78,0)"`
	TotalSupplyShares decimal.Decimal `sql:"type:decimal(78,0)"`
	TotalBorrowAssets decimal.Decimal `sql:"type:decimal(78,0)"`
	TotalBorrowShares decimal.Decimal `sql:"type:decimal(78,0)"`
	LastUpdate        int64
	Fee               decimal.Decimal `sql:"type:decimal(78,0)"`
	Version           int64           `sql:"NOT NULL;default:0"`
	CreatedAt         time.Time       `sql:"default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time       `sql:"default:CURRENT_TIMESTAMP"`
}

// Position position row
type Position struct {
	ID           int64           `sql:"PRIMARY_KEY;AUTO_INCREMENT"`
	MarketID     string          `sql:"size:66"`
	User         string          `sql:"size:64" gorm:"column:account"`
	SupplyShares decimal.Decimal `sql:"type:decimal(78,0)"`
	BorrowShares decimal.Decimal `sql:"type:decimal(78,0)"`
	Collateral   decimal.Decimal `sql:"type:decimal(78,0)"`
	Version      int64           `sql:"NOT NULL;default:0"`
	UpdatedAt    time.Time       `sql:"default:CURRENT_TIMESTAMP"`
}

// Authorization delegation row
type Authorization struct {
	ID         int64  `sql:"PRIMARY_KEY;AUTO_INCREMENT"`
	Owner      string `sql:"size:64"`
	Operator   string `sql:"size:64"`
	Authorized bool
}

// Setting ledger wide key value
type Setting struct {
	Key   string `sql:"size:64;PRIMARY_KEY"`
	Value string `sql:"size:255"`
}

const settingFeeRecipient = "fee_recipient"

func toDecimal(x *uint256.Int) decimal.Decimal {
	return number.ToDecimal(x, 0)
}

func toInt(d decimal.Decimal) (*uint256.Int, error) {
	return number.FromDecimal(d, 0)
}

func fromMarket(m *core.Market) *Market {
	return &Market{
		ID:                m.ID.String(),
		LoanAsset:         m.Params.LoanAsset,
		CollateralAsset:   m.Params.CollateralAsset,
		Oracle:            m.Params.Oracle,
		RateModel:         m.Params.RateModel,
		LLTV:              toDecimal(m.Params.LLTV),
		TotalSupplyAssets: toDecimal(m.TotalSupplyAssets),
		TotalSupplyShares: toDecimal(m.TotalSupplyShares),
		TotalBorrowAssets: toDecimal(m.TotalBorrowAssets),
		TotalBorrowShares: toDecimal(m.TotalBorrowShares),
		LastUpdate:        m.LastUpdate,
		Fee:               toDecimal(m.Fee),
		Version:           m.Version,
	}
}

func (r *Market) toMarket() (*core.Market, error) {
	id, err := core.ParseID(r.ID)
	if err != nil {
		return nil, err
	}

	m := &core.Market{
		ID: id,
		Params: core.MarketParams{
			LoanAsset:       r.LoanAsset,
			CollateralAsset: r.CollateralAsset,
			Oracle:          r.Oracle,
			RateModel:       r.RateModel,
		},
		LastUpdate: r.LastUpdate,
		Version:    r.Version,
	}

	for _, f := range []struct {
		dst **uint256.Int
		src decimal.Decimal
	}{
		{&m.Params.LLTV, r.LLTV},
		{&m.TotalSupplyAssets, r.TotalSupplyAssets},
		{&m.TotalSupplyShares, r.TotalSupplyShares},
		{&m.TotalBorrowAssets, r.TotalBorrowAssets},
		{&m.TotalBorrowShares, r.TotalBorrowShares},
		{&m.Fee, r.Fee},
	} {
		if *f.dst, err = toInt(f.src); err != nil {
			return nil, err
		}
	}

	// the params hash guards against rows edited by hand
	if m.Params.ID() != id {
		return nil, core.ErrValidation.With("market params do not match id " + r.ID)
	}

	return m, nil
}

func fromPosition(p *core.Position) *Position {
	return &Position{
		MarketID:     p.MarketID.String(),
		User:         p.User,
		SupplyShares: toDecimal(p.SupplyShares),
		BorrowShares: toDecimal(p.BorrowShares),
		Collateral:   toDecimal(p.Collateral),
		Version:      p.Version,
	}
}

func (r *Position) toPosition() (*core.Position, error) {
	id, err := core.ParseID(r.MarketID)
	if err != nil {
		return nil, err
	}

	p := core.NewPosition(id, r.User)
	p.Version = r.Version
	if p.SupplyShares, err = toInt(r.SupplyShares); err != nil {
		return nil, err
	}

	if p.BorrowShares, err = toInt(r.BorrowShares); err != nil {
		return nil, err
	}

	if p.Collateral, err = toInt(r.Collateral); err != nil {
		return nil, err
	}

	return p, nil
}
