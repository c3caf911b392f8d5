package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"lending/core"
	"lending/internal/irm"
	"lending/internal/oracle"
	"lending/pkg/number"
	"lending/service/wallet"
	ledgerstore "lending/store/ledger"
	"lending/store/memory"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usd = "usd"
	eth = "eth"
)

type fixture struct {
	ctx    context.Context
	now    time.Time
	store  *memory.Store
	wallet *wallet.Wallet
	oracle *oracle.Static
	rate   *irm.Fixed
	ledger *Ledger
	params core.MarketParams
	id     core.ID
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ctx:    context.Background(),
		now:    time.Unix(1700000000, 0),
		store:  memory.New(),
		oracle: oracle.NewStatic(core.PriceScale),
		rate:   &irm.Fixed{Rate: number.Zero()},
	}

	f.wallet = wallet.New(f.store)
	f.ledger = New(f.store, f.wallet,
		WithClock(func() time.Time { return f.now }),
		WithOwners("owner"),
	)
	f.ledger.RegisterOracle("oracle", f.oracle)
	f.ledger.RegisterRateModel("irm", f.rate)

	f.params = core.MarketParams{
		LoanAsset:       usd,
		CollateralAsset: eth,
		Oracle:          "oracle",
		RateModel:       "irm",
		LLTV:            number.MustParseWad("0.8"),
	}

	id, err := f.ledger.CreateMarket(f.ctx, "creator", f.params)
	require.NoError(t, err)
	f.id = id
	return f
}

func (f *fixture) fund(t *testing.T, asset, account string, amount uint64) {
	require.NoError(t, f.wallet.Deposit(f.ctx, asset, account, number.Int(amount)))
}

func (f *fixture) balance(t *testing.T, asset, account string) uint64 {
	b, err := f.wallet.BalanceOf(f.ctx, asset, account)
	require.NoError(t, err)
	return b.Uint64()
}

func (f *fixture) market(t *testing.T) *core.Market {
	m, err := f.ledger.Market(f.ctx, f.id)
	require.NoError(t, err)
	return m
}

func (f *fixture) position(t *testing.T, user string) *core.Position {
	p, err := f.ledger.Position(f.ctx, f.id, user)
	require.NoError(t, err)
	return p
}

// lender supplies 1000 usd, borrower posts 1000 eth and borrows
func (f *fixture) openBorrow(t *testing.T, borrow uint64) {
	f.fund(t, usd, "lender", 1000)
	f.fund(t, eth, "borrower", 1000)

	_, _, err := f.ledger.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(1000)), "lender", nil)
	require.NoError(t, err)
	require.NoError(t, f.ledger.SupplyCollateral(f.ctx, "borrower", f.params, number.Int(1000), "borrower", nil))

	if borrow > 0 {
		_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(borrow)), "borrower", "borrower")
		require.NoError(t, err)
	}
}

func (f *fixture) transactions(t *testing.T) []*core.Transaction {
	txs, err := f.ledger.Transactions(f.ctx, time.Time{}, 0)
	require.NoError(t, err)
	return txs
}

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, f.params.ID(), f.id)

	exists, err := f.ledger.MarketExists(f.ctx, f.id)
	require.NoError(t, err)
	assert.True(t, exists)

	m := f.market(t)
	assert.Equal(t, f.now.Unix(), m.LastUpdate)
	assert.True(t, m.TotalSupplyAssets.IsZero())
	assert.True(t, m.Fee.IsZero())

	_, err = f.ledger.CreateMarket(f.ctx, "creator", f.params)
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonMarketAlreadyCreated))

	t.Run("invalid params", func(t *testing.T) {
		for name, mutate := range map[string]func(p *core.MarketParams){
			"lltv 100%":      func(p *core.MarketParams) { p.LLTV = number.WAD },
			"missing lltv":   func(p *core.MarketParams) { p.LLTV = nil },
			"missing oracle": func(p *core.MarketParams) { p.Oracle = "" },
			"missing irm":    func(p *core.MarketParams) { p.RateModel = "" },
			"irm disabled":   func(p *core.MarketParams) { p.RateModel = "unknown" },
		} {
			params := f.params
			params.LLTV = number.MustParseWad("0.5")
			mutate(&params)

			_, err := f.ledger.CreateMarket(f.ctx, "creator", params)
			assert.ErrorIs(t, err, core.ErrValidation, name)
		}
	})

	exists, err = f.ledger.MarketExists(f.ctx, core.ID{1})
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = f.ledger.Supply(f.ctx, "lender", core.MarketParams{LoanAsset: usd, LLTV: number.Zero()}, core.AssetsAmount(number.Int(1)), "lender", nil)
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonMarketNotCreated))
}

func TestSupplyWithdraw(t *testing.T) {
	f := newFixture(t)
	f.fund(t, usd, "alice", 1000)

	assets, shares, err := f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(1000)), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), assets.Uint64())
	assert.Equal(t, uint64(1000000000), shares.Uint64())

	assert.Equal(t, uint64(0), f.balance(t, usd, "alice"))
	assert.Equal(t, uint64(1000), f.balance(t, usd, f.ledger.Account()))
	assert.Equal(t, uint64(1000000000), f.position(t, "alice").SupplyShares.Uint64())

	t.Run("operator needs authorization", func(t *testing.T) {
		_, _, err := f.ledger.Withdraw(f.ctx, "bob", f.params, core.AssetsAmount(number.Int(10)), "alice", "bob")
		assert.ErrorIs(t, err, core.ErrUnauthorized)

		require.NoError(t, f.ledger.SetAuthorization(f.ctx, "alice", "bob", true))
		assert.ErrorIs(t, f.ledger.SetAuthorization(f.ctx, "alice", "bob", true), core.ErrValidation)

		assets, _, err := f.ledger.Withdraw(f.ctx, "bob", f.params, core.AssetsAmount(number.Int(10)), "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, uint64(10), assets.Uint64())
		assert.Equal(t, uint64(10), f.balance(t, usd, "bob"))

		require.NoError(t, f.ledger.SetAuthorization(f.ctx, "alice", "bob", false))
		_, _, err = f.ledger.Withdraw(f.ctx, "bob", f.params, core.AssetsAmount(number.Int(10)), "alice", "bob")
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("withdraw every share", func(t *testing.T) {
		p := f.position(t, "alice")
		assets, shares, err := f.ledger.Withdraw(f.ctx, "alice", f.params, core.SharesAmount(p.SupplyShares), "alice", "alice")
		require.NoError(t, err)
		assert.Equal(t, p.SupplyShares.Uint64(), shares.Uint64())
		assert.Equal(t, uint64(990), assets.Uint64())

		assert.True(t, f.position(t, "alice").IsZero())
		assert.True(t, f.market(t).TotalSupplyShares.IsZero())
		assert.Equal(t, uint64(990), f.balance(t, usd, "alice"))
	})

	_, _, err = f.ledger.Withdraw(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(1)), "alice", "alice")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestAmountValidation(t *testing.T) {
	f := newFixture(t)
	f.fund(t, usd, "alice", 100)

	for name, amount := range map[string]core.Amount{
		"neither": {},
		"both":    {Assets: number.Int(1), Shares: number.Int(1)},
	} {
		_, _, err := f.ledger.Supply(f.ctx, "alice", f.params, amount, "alice", nil)
		assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonInconsistentInput), name)

		_, _, err = f.ledger.Borrow(f.ctx, "alice", f.params, amount, "alice", "alice")
		assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonInconsistentInput), name)
	}

	_, _, err := f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(1)), "", nil)
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonZeroAddress))

	_, _, err = f.ledger.Withdraw(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(1)), "alice", "")
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonZeroAddress))

	assert.ErrorIs(t, f.ledger.SupplyCollateral(f.ctx, "alice", f.params, number.Zero(), "alice", nil), core.ErrValidation.With(core.ReasonZeroAssets))

	t.Run("unfunded sender", func(t *testing.T) {
		_, _, err := f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(101)), "alice", nil)
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.True(t, errors.Is(err, wallet.ErrInsufficientBalance))
		assert.True(t, f.market(t).TotalSupplyAssets.IsZero())
		assert.Equal(t, uint64(100), f.balance(t, usd, "alice"))
	})
}

func TestBorrowHealthCheck(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 700)

	assert.Equal(t, uint64(700), f.balance(t, usd, "borrower"))
	assert.Equal(t, uint64(700000000), f.position(t, "borrower").BorrowShares.Uint64())

	_, _, err := f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(150)), "borrower", "borrower")
	assert.ErrorIs(t, err, core.ErrHealthCheckFailed)

	// the failed call leaves nothing behind
	assert.Equal(t, uint64(700000000), f.position(t, "borrower").BorrowShares.Uint64())
	assert.Equal(t, uint64(700), f.market(t).TotalBorrowAssets.Uint64())
	assert.Equal(t, uint64(700), f.balance(t, usd, "borrower"))

	// exactly at lltv
	_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(100)), "borrower", "borrower")
	require.NoError(t, err)

	healthy, err := f.ledger.IsHealthy(f.ctx, f.id, "borrower")
	require.NoError(t, err)
	assert.True(t, healthy)

	assert.ErrorIs(t, f.ledger.WithdrawCollateral(f.ctx, "borrower", f.params, number.Int(1), "borrower", "borrower"), core.ErrHealthCheckFailed)
	assert.Equal(t, uint64(1000), f.position(t, "borrower").Collateral.Uint64())
}

func TestWithdrawCollateral(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 700)

	err := f.ledger.WithdrawCollateral(f.ctx, "borrower", f.params, number.Int(200), "borrower", "borrower")
	assert.ErrorIs(t, err, core.ErrHealthCheckFailed)

	require.NoError(t, f.ledger.WithdrawCollateral(f.ctx, "borrower", f.params, number.Int(100), "borrower", "borrower"))
	assert.Equal(t, uint64(900), f.position(t, "borrower").Collateral.Uint64())
	assert.Equal(t, uint64(100), f.balance(t, eth, "borrower"))

	err = f.ledger.WithdrawCollateral(f.ctx, "borrower", f.params, number.Int(901), "borrower", "borrower")
	assert.ErrorIs(t, err, core.ErrValidation)

	err = f.ledger.WithdrawCollateral(f.ctx, "stranger", f.params, number.Int(1), "borrower", "stranger")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	t.Run("no debt skips the oracle", func(t *testing.T) {
		f.fund(t, eth, "saver", 10)
		require.NoError(t, f.ledger.SupplyCollateral(f.ctx, "saver", f.params, number.Int(10), "saver", nil))

		f.oracle.Fail(core.ErrStalePrice.With("down"))
		defer f.oracle.Set(core.PriceScale)

		require.NoError(t, f.ledger.WithdrawCollateral(f.ctx, "saver", f.params, number.Int(10), "saver", "saver"))
		assert.Equal(t, uint64(10), f.balance(t, eth, "saver"))
	})
}

func TestBorrowInsufficientLiquidity(t *testing.T) {
	f := newFixture(t)
	f.fund(t, usd, "lender", 100)
	f.fund(t, eth, "borrower", 1000)

	_, _, err := f.ledger.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(100)), "lender", nil)
	require.NoError(t, err)
	require.NoError(t, f.ledger.SupplyCollateral(f.ctx, "borrower", f.params, number.Int(1000), "borrower", nil))

	_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(200)), "borrower", "borrower")
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)

	_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(100)), "borrower", "borrower")
	require.NoError(t, err)

	_, _, err = f.ledger.Withdraw(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(1)), "lender", "lender")
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)
}

func TestRepay(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 700)

	_, _, err := f.ledger.Repay(f.ctx, "borrower", f.params, core.SharesAmount(number.Int(700000001)), "borrower", nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	assets, shares, err := f.ledger.Repay(f.ctx, "borrower", f.params, core.SharesAmount(number.Int(700000000)), "borrower", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), assets.Uint64())
	assert.Equal(t, uint64(700000000), shares.Uint64())

	m := f.market(t)
	assert.True(t, m.TotalBorrowAssets.IsZero())
	assert.True(t, m.TotalBorrowShares.IsZero())
	assert.Equal(t, uint64(0), f.balance(t, usd, "borrower"))
	assert.Equal(t, uint64(1000), f.balance(t, usd, f.ledger.Account()))
}

func TestAccrueInterest(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.ledger.SetFee(f.ctx, "lender", f.params, number.MustParseWad("0.1")), core.ErrUnauthorized)
	assert.ErrorIs(t, f.ledger.SetFee(f.ctx, "owner", f.params, number.MustParseWad("0.3")), core.ErrValidation)

	require.NoError(t, f.ledger.SetFeeRecipient(f.ctx, "owner", "treasury"))
	require.NoError(t, f.ledger.SetFee(f.ctx, "owner", f.params, number.MustParseWad("0.1")))
	assert.ErrorIs(t, f.ledger.SetFee(f.ctx, "owner", f.params, number.MustParseWad("0.1")), core.ErrValidation)

	f.openBorrow(t, 500)

	// 1% a second for 10 seconds
	f.rate.Rate = number.MustParseWad("0.01")
	f.now = f.now.Add(10 * time.Second)

	expected, err := f.ledger.ExpectedMarket(f.ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, uint64(550), expected.TotalBorrowAssets.Uint64())
	assert.Equal(t, uint64(500), f.market(t).TotalBorrowAssets.Uint64())

	require.NoError(t, f.ledger.AccrueInterest(f.ctx, f.params))

	m := f.market(t)
	assert.Equal(t, uint64(550), m.TotalBorrowAssets.Uint64())
	assert.Equal(t, uint64(1050), m.TotalSupplyAssets.Uint64())
	assert.Equal(t, uint64(1000000000+4784894), m.TotalSupplyShares.Uint64())
	assert.Equal(t, f.now.Unix(), m.LastUpdate)
	assert.Equal(t, uint64(4784894), f.position(t, "treasury").SupplyShares.Uint64())
	assert.Equal(t, expected.TotalSupplyShares.Uint64(), m.TotalSupplyShares.Uint64())

	txs := f.transactions(t)
	last := txs[len(txs)-1]
	assert.Equal(t, core.ActionTypeAccrueInterest, last.Action)
	assert.Equal(t, "50", last.Assets.String())
	assert.Equal(t, "treasury", last.OnBehalf)

	// nothing elapsed, nothing recorded
	require.NoError(t, f.ledger.AccrueInterest(f.ctx, f.params))
	assert.Len(t, f.transactions(t), len(txs))
}

func TestDonationDoesNotDiluteLaterSuppliers(t *testing.T) {
	f := newFixture(t)
	f.fund(t, usd, "first", 1)
	f.fund(t, usd, "donor", 1000000)
	f.fund(t, usd, "third", 1)

	_, first, err := f.ledger.Supply(f.ctx, "first", f.params, core.AssetsAmount(number.Int(1)), "first", nil)
	require.NoError(t, err)

	require.NoError(t, f.wallet.Transfer(f.ctx, usd, "donor", f.ledger.Account(), number.Int(1000000)))

	_, third, err := f.ledger.Supply(f.ctx, "third", f.params, core.AssetsAmount(number.Int(1)), "third", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1000000), first.Uint64())
	assert.Equal(t, first.Uint64(), third.Uint64())
}

func TestStaleOracle(t *testing.T) {
	f := newFixture(t)

	feed := oracle.NewStaticFeed(decimal.NewFromInt(1))
	feed.Set(decimal.NewFromInt(1), f.now.Add(-2*time.Hour))
	stale := oracle.NewFeedOracle(feed, nil, 0, 0, time.Hour).WithClock(func() time.Time { return f.now })
	f.ledger.RegisterOracle("oracle", stale)

	f.fund(t, usd, "lender", 1000)
	f.fund(t, eth, "borrower", 1000)
	_, _, err := f.ledger.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(1000)), "lender", nil)
	require.NoError(t, err)
	require.NoError(t, f.ledger.SupplyCollateral(f.ctx, "borrower", f.params, number.Int(1000), "borrower", nil))

	before := f.market(t)
	txs := len(f.transactions(t))

	_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(100)), "borrower", "borrower")
	assert.ErrorIs(t, err, core.ErrStalePrice)

	assert.Equal(t, before, f.market(t))
	assert.True(t, f.position(t, "borrower").BorrowShares.IsZero())
	assert.Equal(t, uint64(0), f.balance(t, usd, "borrower"))
	assert.Len(t, f.transactions(t), txs)

	feed.Set(decimal.NewFromInt(1), f.now)
	_, _, err = f.ledger.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(100)), "borrower", "borrower")
	require.NoError(t, err)
}

func TestLiquidationIncentiveFactor(t *testing.T) {
	lif, err := LiquidationIncentiveFactor(number.MustParseWad("0.8"))
	require.NoError(t, err)
	assert.Equal(t, "1.12", number.WadString(lif))

	prev := number.Zero()
	for _, v := range []string{"0", "0.1", "0.5", "0.77", "0.86", "0.915", "0.945", "0.965", "0.98", "0.999999"} {
		lif, err := LiquidationIncentiveFactor(number.MustParseWad(v))
		require.NoError(t, err)
		assert.False(t, lif.Lt(prev), v)
		assert.False(t, lif.Gt(MaxLiquidationIncentiveFactor), v)
		assert.False(t, lif.Lt(number.WAD), v)
		prev = lif
	}
}

func TestLiquidate(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 800)
	f.fund(t, usd, "liquidator", 1000)

	_, err := f.ledger.Liquidate(f.ctx, "liquidator", f.params, "borrower", nil, number.Int(400000000), nil)
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonHealthyPosition))

	plan, err := f.ledger.MaxLiquidation(f.ctx, f.id, "borrower")
	require.NoError(t, err)
	assert.True(t, plan.Healthy)

	// collateral now worth 900, borrowing power 720
	f.oracle.Set(new(uint256.Int).Div(new(uint256.Int).Mul(core.PriceScale, number.Int(9)), number.Int(10)))

	_, err = f.ledger.Liquidate(f.ctx, "liquidator", f.params, "borrower", number.Int(1), number.Int(1), nil)
	assert.ErrorIs(t, err, core.ErrValidation.With(core.ReasonInconsistentInput))

	result, err := f.ledger.Liquidate(f.ctx, "liquidator", f.params, "borrower", nil, number.Int(400000000), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(497), result.SeizedAssets.Uint64())
	assert.Equal(t, uint64(400), result.RepaidAssets.Uint64())
	assert.True(t, result.BadDebtAssets.IsZero())

	p := f.position(t, "borrower")
	assert.Equal(t, uint64(503), p.Collateral.Uint64())
	assert.Equal(t, uint64(400000000), p.BorrowShares.Uint64())

	m := f.market(t)
	assert.Equal(t, uint64(400), m.TotalBorrowAssets.Uint64())
	assert.Equal(t, uint64(1000), m.TotalSupplyAssets.Uint64())

	assert.Equal(t, uint64(497), f.balance(t, eth, "liquidator"))
	assert.Equal(t, uint64(600), f.balance(t, usd, "liquidator"))
	assert.Equal(t, uint64(503), f.balance(t, eth, f.ledger.Account()))
}

func TestLiquidateBadDebt(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 800)
	f.fund(t, usd, "liquidator", 1000)

	// collateral now worth 500 against 800 of debt
	f.oracle.Set(new(uint256.Int).Div(core.PriceScale, number.Int(2)))

	plan, err := f.ledger.MaxLiquidation(f.ctx, f.id, "borrower")
	require.NoError(t, err)
	assert.False(t, plan.Healthy)
	require.NotNil(t, plan.SeizedAssets)
	assert.Equal(t, uint64(1000), plan.SeizedAssets.Uint64())

	result, err := f.ledger.Liquidate(f.ctx, "liquidator", f.params, "borrower", plan.SeizedAssets, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), result.SeizedAssets.Uint64())
	assert.Equal(t, uint64(447), result.RepaidAssets.Uint64())
	assert.Equal(t, uint64(447000000), result.RepaidShares.Uint64())
	assert.Equal(t, uint64(353), result.BadDebtAssets.Uint64())
	assert.Equal(t, uint64(353000000), result.BadDebtShares.Uint64())

	p := f.position(t, "borrower")
	assert.True(t, p.IsZero())

	m := f.market(t)
	assert.True(t, m.TotalBorrowAssets.IsZero())
	assert.True(t, m.TotalBorrowShares.IsZero())
	assert.Equal(t, uint64(647), m.TotalSupplyAssets.Uint64())
	assert.Equal(t, uint64(647), f.balance(t, usd, f.ledger.Account()))

	// suppliers absorb the loss
	assets, _, err := f.ledger.Withdraw(f.ctx, "lender", f.params, core.SharesAmount(f.position(t, "lender").SupplyShares), "lender", "lender")
	require.NoError(t, err)
	assert.Equal(t, uint64(647), assets.Uint64())
}

type flashBorrower struct {
	onFlashLoan func(ctx context.Context, assets *uint256.Int, data []byte) error
}

func (b *flashBorrower) OnFlashLoan(ctx context.Context, assets *uint256.Int, data []byte) error {
	return b.onFlashLoan(ctx, assets, data)
}

func TestFlashLoan(t *testing.T) {
	f := newFixture(t)
	f.openBorrow(t, 0)

	assert.ErrorIs(t, f.ledger.FlashLoan(f.ctx, "flasher", usd, number.Int(100), nil), core.ErrValidation)

	var lent uint64
	f.ledger.RegisterCallback("flasher", &flashBorrower{onFlashLoan: func(ctx context.Context, assets *uint256.Int, data []byte) error {
		lent = assets.Uint64()
		return nil
	}})

	require.NoError(t, f.ledger.FlashLoan(f.ctx, "flasher", usd, number.Int(1000), []byte("x")))
	assert.Equal(t, uint64(1000), lent)
	assert.Equal(t, uint64(1000), f.balance(t, usd, f.ledger.Account()))

	err := f.ledger.FlashLoan(f.ctx, "flasher", usd, number.Int(1001), nil)
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)

	t.Run("callback failure", func(t *testing.T) {
		f.ledger.RegisterCallback("flasher", &flashBorrower{onFlashLoan: func(ctx context.Context, assets *uint256.Int, data []byte) error {
			return errors.New("boom")
		}})

		err := f.ledger.FlashLoan(f.ctx, "flasher", usd, number.Int(10), nil)
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.Equal(t, uint64(1000), f.balance(t, usd, f.ledger.Account()))
	})

	t.Run("loan not returned", func(t *testing.T) {
		// the borrower spends the loan on a supply and cannot pay it back
		f.ledger.RegisterCallback("flasher", &flashBorrower{onFlashLoan: func(ctx context.Context, assets *uint256.Int, data []byte) error {
			_, _, err := f.ledger.Supply(ctx, "flasher", f.params, core.AssetsAmount(assets), "flasher", nil)
			return err
		}})

		txs := len(f.transactions(t))
		err := f.ledger.FlashLoan(f.ctx, "flasher", usd, number.Int(500), nil)
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.True(t, errors.Is(err, wallet.ErrInsufficientBalance))

		assert.Equal(t, uint64(1000), f.market(t).TotalSupplyAssets.Uint64())
		assert.True(t, f.position(t, "flasher").IsZero())
		assert.Equal(t, uint64(1000), f.balance(t, usd, f.ledger.Account()))
		assert.Equal(t, uint64(0), f.balance(t, usd, "flasher"))
		assert.Len(t, f.transactions(t), txs)
	})
}

type supplier struct {
	onSupply func(ctx context.Context, assets *uint256.Int, data []byte) error
}

func (s *supplier) OnSupply(ctx context.Context, assets *uint256.Int, data []byte) error {
	return s.onSupply(ctx, assets, data)
}

func TestSupplyCallback(t *testing.T) {
	f := newFixture(t)
	f.fund(t, usd, "alice", 100)
	f.fund(t, eth, "alice", 100)

	_, _, err := f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(100)), "alice", []byte("cb"))
	assert.ErrorIs(t, err, core.ErrValidation)

	var nested error
	f.ledger.RegisterCallback("alice", &supplier{onSupply: func(ctx context.Context, assets *uint256.Int, data []byte) error {
		// the nested borrow sees the staged supply but lacks collateral
		_, _, nested = f.ledger.Borrow(ctx, "alice", f.params, core.AssetsAmount(number.Int(10)), "alice", "alice")

		return f.ledger.SupplyCollateral(ctx, "alice", f.params, number.Int(100), "alice", nil)
	}})

	_, _, err = f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(100)), "alice", []byte("cb"))
	require.NoError(t, err)
	assert.ErrorIs(t, nested, core.ErrHealthCheckFailed)

	p := f.position(t, "alice")
	assert.Equal(t, uint64(100000000), p.SupplyShares.Uint64())
	assert.Equal(t, uint64(100), p.Collateral.Uint64())
	assert.True(t, p.BorrowShares.IsZero())
	assert.True(t, f.market(t).TotalBorrowShares.IsZero())
	assert.Equal(t, uint64(0), f.balance(t, usd, "alice"))
	assert.Equal(t, uint64(0), f.balance(t, eth, "alice"))

	t.Run("failed callback aborts the call", func(t *testing.T) {
		f.fund(t, usd, "alice", 100)
		f.ledger.RegisterCallback("alice", &supplier{onSupply: func(ctx context.Context, assets *uint256.Int, data []byte) error {
			return core.ErrValidation.With("rejected")
		}})

		_, _, err := f.ledger.Supply(f.ctx, "alice", f.params, core.AssetsAmount(number.Int(100)), "alice", []byte("cb"))
		assert.ErrorIs(t, err, core.ErrValidation.With("rejected"))
		assert.Equal(t, uint64(100000000), f.position(t, "alice").SupplyShares.Uint64())
		assert.Equal(t, uint64(100), f.balance(t, usd, "alice"))
	})
}

func TestShareConservation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.SetFeeRecipient(f.ctx, "owner", "treasury"))
	require.NoError(t, f.ledger.SetFee(f.ctx, "owner", f.params, number.MustParseWad("0.2")))
	f.rate.Rate = number.MustParseWad("0.0001")

	users := []string{"a", "b", "c", "d"}
	for _, u := range users {
		f.fund(t, usd, u, 1000000)
		f.fund(t, eth, u, 1000000)
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 300; i++ {
		user := users[r.Intn(len(users))]
		amount := core.AssetsAmount(number.Int(uint64(r.Intn(5000) + 1)))

		var err error
		switch r.Intn(6) {
		case 0:
			_, _, err = f.ledger.Supply(f.ctx, user, f.params, amount, user, nil)
		case 1:
			_, _, err = f.ledger.Withdraw(f.ctx, user, f.params, amount, user, user)
		case 2:
			_, _, err = f.ledger.Borrow(f.ctx, user, f.params, amount, user, user)
		case 3:
			_, _, err = f.ledger.Repay(f.ctx, user, f.params, amount, user, nil)
		case 4:
			err = f.ledger.SupplyCollateral(f.ctx, user, f.params, amount.Assets, user, nil)
		case 5:
			err = f.ledger.WithdrawCollateral(f.ctx, user, f.params, amount.Assets, user, user)
		}

		assert.False(t, errors.Is(err, core.ErrArithmetic), "step %d: %v", i, err)

		f.now = f.now.Add(time.Duration(r.Intn(60)) * time.Second)

		m := f.market(t)
		positions, err := f.ledger.Positions(f.ctx, f.id)
		require.NoError(t, err)

		supplyShares, borrowShares := number.Zero(), number.Zero()
		for _, p := range positions {
			supplyShares.Add(supplyShares, p.SupplyShares)
			borrowShares.Add(borrowShares, p.BorrowShares)
		}

		require.True(t, supplyShares.Eq(m.TotalSupplyShares), "step %d", i)
		require.True(t, borrowShares.Eq(m.TotalBorrowShares), "step %d", i)
		require.True(t, m.Solvent(), "step %d", i)
	}
}

// two ledgers over one store, each with its own market cache, as the api
// server and the keeper run
func TestConcurrentWriters(t *testing.T) {
	f := newFixture(t)

	ledgers := make([]*Ledger, 2)
	for idx := range ledgers {
		l := New(ledgerstore.Cache(f.store, time.Minute), f.wallet,
			WithClock(func() time.Time { return f.now }),
		)
		l.RegisterOracle("oracle", f.oracle)
		l.RegisterRateModel("irm", f.rate)
		ledgers[idx] = l
	}

	server, keeper := ledgers[0], ledgers[1]

	f.fund(t, usd, "lender", 1010)
	f.fund(t, eth, "borrower", 1000)
	f.fund(t, usd, "liquidator", 1000)

	_, _, err := server.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(1000)), "lender", nil)
	require.NoError(t, err)
	require.NoError(t, server.SupplyCollateral(f.ctx, "borrower", f.params, number.Int(1000), "borrower", nil))
	_, _, err = server.Borrow(f.ctx, "borrower", f.params, core.AssetsAmount(number.Int(800)), "borrower", "borrower")
	require.NoError(t, err)

	f.oracle.Set(new(uint256.Int).Div(new(uint256.Int).Mul(core.PriceScale, number.Int(9)), number.Int(10)))

	_, err = keeper.Liquidate(f.ctx, "liquidator", f.params, "borrower", nil, number.Int(400000000), nil)
	require.NoError(t, err)

	// the server still caches the market as it was before the liquidation
	f.now = f.now.Add(time.Second)
	_, _, err = server.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(10)), "lender", nil)
	require.NoError(t, err)

	m, err := f.store.FindMarket(f.ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), m.TotalBorrowAssets.Uint64())
	assert.Equal(t, uint64(400000000), m.TotalBorrowShares.Uint64())
	assert.Equal(t, uint64(1010), m.TotalSupplyAssets.Uint64())

	positions, err := f.store.ListPositions(f.ctx, f.id)
	require.NoError(t, err)

	borrowShares := number.Zero()
	for _, p := range positions {
		borrowShares.Add(borrowShares, p.BorrowShares)
	}
	assert.True(t, borrowShares.Eq(m.TotalBorrowShares))

	assert.Equal(t, uint64(0), f.balance(t, usd, "lender"))
	assert.Equal(t, uint64(600), f.balance(t, usd, "liquidator"))
}

func TestCommitConflict(t *testing.T) {
	f := newFixture(t)

	stale, err := f.store.FindMarket(f.ctx, f.id)
	require.NoError(t, err)

	f.fund(t, usd, "lender", 1000)
	_, _, err = f.ledger.Supply(f.ctx, "lender", f.params, core.AssetsAmount(number.Int(1000)), "lender", nil)
	require.NoError(t, err)

	stale.TotalSupplyAssets = number.Int(1)
	err = f.store.Commit(f.ctx, &core.ChangeSet{Markets: []*core.Market{stale}})
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, uint64(1000), f.market(t).TotalSupplyAssets.Uint64())
}
