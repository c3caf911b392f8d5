// Package ledger is the bookkeeping authority of isolated lending markets.
//
// Every exported call runs as one atomic unit: a single writer lock
// serializes top-level calls, state changes are staged on working copies,
// transfers are queued and settled together before the store commit. Calls
// made from inside a callback with the context the callback received join the
// running unit and see its staged state.
package ledger

import (
	"context"
	"sync"
	"time"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

var (
	// MaxFee max protocol cut of interest, 25%
	MaxFee = number.MustParseWad("0.25")
	// MaxLiquidationIncentiveFactor upper bound of the liquidation incentive, 115%
	MaxLiquidationIncentiveFactor = number.MustParseWad("1.15")
)

// DefaultAccount custody account used when none is configured
const DefaultAccount = "ledger"

// Option ledger option
type Option func(l *Ledger)

// WithClock replace time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithAccount custody account holding pooled assets
func WithAccount(account string) Option {
	return func(l *Ledger) {
		if account != "" {
			l.account = account
		}
	}
}

// WithOwners accounts allowed to set fees and the fee recipient
func WithOwners(owners ...string) Option {
	return func(l *Ledger) {
		l.owners = append(l.owners, owners...)
	}
}

// WithFeeRecipient fee recipient used until one is set through SetFeeRecipient
func WithFeeRecipient(recipient string) Option {
	return func(l *Ledger) {
		l.feeRecipient = recipient
	}
}

// Ledger lending ledger
type Ledger struct {
	store  core.LedgerStore
	wallet core.IAssetTransfer

	account      string
	owners       []string
	feeRecipient string
	now          func() time.Time

	// mu serializes top-level calls
	mu sync.Mutex

	regMu      sync.RWMutex
	oracles    map[string]core.IOracle
	rateModels map[string]core.IRateModel
	callbacks  map[string]interface{}
}

// New new ledger
func New(store core.LedgerStore, wallet core.IAssetTransfer, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		wallet:     wallet,
		account:    DefaultAccount,
		now:        time.Now,
		oracles:    make(map[string]core.IOracle),
		rateModels: make(map[string]core.IRateModel),
		callbacks:  make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Account custody account
func (l *Ledger) Account() string {
	return l.account
}

// RegisterOracle make oracle available to markets referencing name
func (l *Ledger) RegisterOracle(name string, oracle core.IOracle) {
	l.regMu.Lock()
	defer l.regMu.Unlock()

	l.oracles[name] = oracle
}

// RegisterRateModel enable a rate model for market creation
func (l *Ledger) RegisterRateModel(name string, model core.IRateModel) {
	l.regMu.Lock()
	defer l.regMu.Unlock()

	l.rateModels[name] = model
}

// RegisterCallback set the callback receiver of account; handler implements
// any of the core callback interfaces
func (l *Ledger) RegisterCallback(account string, handler interface{}) {
	l.regMu.Lock()
	defer l.regMu.Unlock()

	if handler == nil {
		delete(l.callbacks, account)
		return
	}

	l.callbacks[account] = handler
}

func (l *Ledger) oracle(name string) (core.IOracle, error) {
	l.regMu.RLock()
	defer l.regMu.RUnlock()

	o, ok := l.oracles[name]
	if !ok {
		return nil, core.ErrValidation.With("oracle not registered: " + name)
	}

	return o, nil
}

func (l *Ledger) rateModel(name string) (core.IRateModel, error) {
	l.regMu.RLock()
	defer l.regMu.RUnlock()

	m, ok := l.rateModels[name]
	if !ok {
		return nil, core.ErrValidation.With("irm not enabled: " + name)
	}

	return m, nil
}

func (l *Ledger) callback(account string) interface{} {
	l.regMu.RLock()
	defer l.regMu.RUnlock()

	return l.callbacks[account]
}

func (l *Ledger) isOwner(account string) bool {
	for _, o := range l.owners {
		if o == account {
			return true
		}
	}

	return false
}

// price one fresh oracle read
func (l *Ledger) price(ctx context.Context, params core.MarketParams) (*uint256.Int, error) {
	o, err := l.oracle(params.Oracle)
	if err != nil {
		return nil, err
	}

	p, err := o.Price(ctx)
	if err != nil {
		return nil, err
	}

	if p == nil || p.IsZero() {
		return nil, core.ErrInvalidPrice.With("zero price")
	}

	return p, nil
}

var _ core.ILedgerService = (*Ledger)(nil)
