package core

import (
	"context"
	"time"

	"github.com/holiman/uint256"
)

// ChangeSet everything one ledger call writes
type ChangeSet struct {
	Created        []*Market
	Markets        []*Market
	Positions      []*Position
	Authorizations []*Authorization
	Transactions   []*Transaction
	// FeeRecipient set when the call changed it
	FeeRecipient *string
}

// IsEmpty nothing to write
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Created) == 0 &&
		len(cs.Markets) == 0 &&
		len(cs.Positions) == 0 &&
		len(cs.Authorizations) == 0 &&
		len(cs.Transactions) == 0 &&
		cs.FeeRecipient == nil
}

// Bump advance versions of everything written, stores call it once the
// change set is durable
func (cs *ChangeSet) Bump() {
	for _, m := range cs.Created {
		m.Version = 1
	}

	for _, m := range cs.Markets {
		m.Version++
	}

	for _, p := range cs.Positions {
		p.Version++
	}
}

// LedgerStore persistence of markets, positions and the journal
type LedgerStore interface {
	// FindMarket returns the empty market if id was never created
	FindMarket(ctx context.Context, id ID) (*Market, error)
	ListMarkets(ctx context.Context) ([]*Market, error)
	// FindPosition returns the zero position if user never touched the market
	FindPosition(ctx context.Context, id ID, user string) (*Position, error)
	ListPositions(ctx context.Context, id ID) ([]*Position, error)
	ListUserPositions(ctx context.Context, user string) ([]*Position, error)
	IsAuthorized(ctx context.Context, owner, operator string) (bool, error)
	FeeRecipient(ctx context.Context) (string, error)
	TransactionStore
	// Commit writes the change set atomically. A market or position whose
	// version moved since it was loaded fails the whole commit with ErrConflict.
	Commit(ctx context.Context, cs *ChangeSet) error
}

// Amount exactly one of Assets and Shares must be non-zero
type Amount struct {
	Assets *uint256.Int `json:"assets"`
	Shares *uint256.Int `json:"shares"`
}

// AssetsAmount amount by exact assets
func AssetsAmount(assets *uint256.Int) Amount {
	return Amount{Assets: assets, Shares: new(uint256.Int)}
}

// SharesAmount amount by exact shares
func SharesAmount(shares *uint256.Int) Amount {
	return Amount{Assets: new(uint256.Int), Shares: shares}
}

// Normalize replace nil with zero
func (a Amount) Normalize() Amount {
	if a.Assets == nil {
		a.Assets = new(uint256.Int)
	}

	if a.Shares == nil {
		a.Shares = new(uint256.Int)
	}

	return a
}

// Valid exactly one side is set
func (a Amount) Valid() bool {
	a = a.Normalize()
	return a.Assets.IsZero() != a.Shares.IsZero()
}

// LiquidationResult outcome of a liquidation
type LiquidationResult struct {
	SeizedAssets  *uint256.Int `json:"seized_assets"`
	RepaidAssets  *uint256.Int `json:"repaid_assets"`
	RepaidShares  *uint256.Int `json:"repaid_shares"`
	BadDebtAssets *uint256.Int `json:"bad_debt_assets"`
	BadDebtShares *uint256.Int `json:"bad_debt_shares"`
}

// LiquidationPlan largest liquidation a borrower is exposed to right now
type LiquidationPlan struct {
	Healthy bool `json:"healthy"`
	// exactly one of SeizedAssets and RepaidShares is set on an unhealthy position
	SeizedAssets *uint256.Int `json:"seized_assets"`
	RepaidShares *uint256.Int `json:"repaid_shares"`
}

// ILedgerService the lending ledger
type ILedgerService interface {
	CreateMarket(ctx context.Context, sender string, params MarketParams) (ID, error)
	Supply(ctx context.Context, sender string, params MarketParams, amount Amount, onBehalf string, data []byte) (assets, shares *uint256.Int, err error)
	Withdraw(ctx context.Context, sender string, params MarketParams, amount Amount, onBehalf, receiver string) (assets, shares *uint256.Int, err error)
	Borrow(ctx context.Context, sender string, params MarketParams, amount Amount, onBehalf, receiver string) (assets, shares *uint256.Int, err error)
	Repay(ctx context.Context, sender string, params MarketParams, amount Amount, onBehalf string, data []byte) (assets, shares *uint256.Int, err error)
	SupplyCollateral(ctx context.Context, sender string, params MarketParams, assets *uint256.Int, onBehalf string, data []byte) error
	WithdrawCollateral(ctx context.Context, sender string, params MarketParams, assets *uint256.Int, onBehalf, receiver string) error
	Liquidate(ctx context.Context, sender string, params MarketParams, borrower string, seizedAssets, repaidShares *uint256.Int, data []byte) (*LiquidationResult, error)
	FlashLoan(ctx context.Context, sender, asset string, assets *uint256.Int, data []byte) error
	AccrueInterest(ctx context.Context, params MarketParams) error
	SetAuthorization(ctx context.Context, sender, operator string, authorized bool) error
	SetFee(ctx context.Context, sender string, params MarketParams, fee *uint256.Int) error
	SetFeeRecipient(ctx context.Context, sender, recipient string) error

	MarketExists(ctx context.Context, id ID) (bool, error)
	Market(ctx context.Context, id ID) (*Market, error)
	Markets(ctx context.Context) ([]*Market, error)
	ExpectedMarket(ctx context.Context, id ID) (*Market, error)
	Position(ctx context.Context, id ID, user string) (*Position, error)
	Positions(ctx context.Context, id ID) ([]*Position, error)
	UserPositions(ctx context.Context, user string) ([]*Position, error)
	IsHealthy(ctx context.Context, id ID, user string) (bool, error)
	MaxLiquidation(ctx context.Context, id ID, borrower string) (*LiquidationPlan, error)
	Transactions(ctx context.Context, offset time.Time, limit int) ([]*Transaction, error)
}
