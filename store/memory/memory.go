// Package memory keeps ledger and wallet state in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lending/core"
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

type positionKey struct {
	id   core.ID
	user string
}

type authKey struct {
	owner    string
	operator string
}

type balanceKey struct {
	asset   string
	account string
}

// Store in-memory core.LedgerStore and core.WalletStore
type Store struct {
	mu             sync.RWMutex
	markets        map[core.ID]*core.Market
	positions      map[positionKey]*core.Position
	authorizations map[authKey]bool
	balances       map[balanceKey]*uint256.Int
	transactions   []*core.Transaction
	feeRecipient   string
	seq            int64
}

// New empty store
func New() *Store {
	return &Store{
		markets:        make(map[core.ID]*core.Market),
		positions:      make(map[positionKey]*core.Position),
		authorizations: make(map[authKey]bool),
		balances:       make(map[balanceKey]*uint256.Int),
	}
}

func (s *Store) FindMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.markets[id]; ok {
		return m.Clone(), nil
	}

	return &core.Market{}, nil
}

func (s *Store) ListMarkets(ctx context.Context) ([]*core.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]*core.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, m.Clone())
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID.String() < markets[j].ID.String()
	})

	return markets, nil
}

func (s *Store) FindPosition(ctx context.Context, id core.ID, user string) (*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[positionKey{id: id, user: user}]; ok {
		return p.Clone(), nil
	}

	return core.NewPosition(id, user), nil
}

func (s *Store) ListPositions(ctx context.Context, id core.ID) ([]*core.Position, error) {
	return s.listPositions(func(p *core.Position) bool { return p.MarketID == id })
}

func (s *Store) ListUserPositions(ctx context.Context, user string) ([]*core.Position, error) {
	return s.listPositions(func(p *core.Position) bool { return p.User == user })
}

func (s *Store) listPositions(match func(p *core.Position) bool) ([]*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []*core.Position
	for _, p := range s.positions {
		if match(p) {
			positions = append(positions, p.Clone())
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].MarketID != positions[j].MarketID {
			return positions[i].MarketID.String() < positions[j].MarketID.String()
		}

		return positions[i].User < positions[j].User
	})

	return positions, nil
}

func (s *Store) IsAuthorized(ctx context.Context, owner, operator string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authorizations[authKey{owner: owner, operator: operator}], nil
}

func (s *Store) FeeRecipient(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.feeRecipient, nil
}

func (s *Store) ListTransactions(ctx context.Context, offset time.Time, limit int) ([]*core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 500
	}

	var out []*core.Transaction
	for _, tx := range s.transactions {
		if tx.CreatedAt.Before(offset) {
			continue
		}

		c := *tx
		out = append(out, &c)
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (s *Store) Commit(ctx context.Context, cs *core.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range cs.Created {
		if _, ok := s.markets[m.ID]; ok {
			return core.ErrValidation.With(core.ReasonMarketAlreadyCreated)
		}
	}

	for _, m := range cs.Markets {
		if stored, ok := s.markets[m.ID]; !ok || stored.Version != m.Version {
			return core.ErrConflict.With(core.ReasonStaleWrite)
		}
	}

	for _, p := range cs.Positions {
		var version int64
		if stored, ok := s.positions[positionKey{id: p.MarketID, user: p.User}]; ok {
			version = stored.Version
		}

		if version != p.Version {
			return core.ErrConflict.With(core.ReasonStaleWrite)
		}
	}

	cs.Bump()

	for _, m := range cs.Created {
		s.markets[m.ID] = m.Clone()
	}

	for _, m := range cs.Markets {
		s.markets[m.ID] = m.Clone()
	}

	for _, p := range cs.Positions {
		s.positions[positionKey{id: p.MarketID, user: p.User}] = p.Clone()
	}

	for _, a := range cs.Authorizations {
		s.authorizations[authKey{owner: a.Owner, operator: a.Operator}] = a.Authorized
	}

	if cs.FeeRecipient != nil {
		s.feeRecipient = *cs.FeeRecipient
	}

	for _, tx := range cs.Transactions {
		s.seq++
		c := *tx
		c.ID = s.seq
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}

		s.transactions = append(s.transactions, &c)
	}

	return nil
}

func (s *Store) FindBalance(ctx context.Context, asset, account string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.balances[balanceKey{asset: asset, account: account}]; ok {
		return b.Clone(), nil
	}

	return number.Zero(), nil
}

func (s *Store) ListBalances(ctx context.Context, account string) ([]*core.AssetBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.AssetBalance
	for key, b := range s.balances {
		if key.account == account {
			out = append(out, &core.AssetBalance{Asset: key.asset, Account: key.account, Amount: b.Clone()})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (s *Store) Transfer(ctx context.Context, transfers []*core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[balanceKey]*uint256.Int)
	balance := func(asset, account string) *uint256.Int {
		key := balanceKey{asset: asset, account: account}
		if b, ok := staged[key]; ok {
			return b
		}

		b := number.Zero()
		if stored, ok := s.balances[key]; ok {
			b = stored.Clone()
		}

		staged[key] = b
		return b
	}

	for _, t := range transfers {
		if t.Amount == nil || t.Amount.IsZero() || t.From == t.To {
			continue
		}

		from, to := balance(t.Asset, t.From), balance(t.Asset, t.To)
		if from.Lt(t.Amount) {
			return fmt.Errorf("transfer %s %s from %s: %w", t.Amount, t.Asset, t.From, core.ErrInsufficientBalance)
		}

		sum, err := number.Add(to, t.Amount)
		if err != nil {
			return err
		}

		from.Sub(from, t.Amount)
		to.Set(sum)
	}

	for key, b := range staged {
		s.balances[key] = b
	}

	return nil
}

func (s *Store) Deposit(ctx context.Context, asset, account string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{asset: asset, account: account}
	b := number.Zero()
	if stored, ok := s.balances[key]; ok {
		b = stored
	}

	sum, err := number.Add(b, amount)
	if err != nil {
		return err
	}

	s.balances[key] = sum
	return nil
}
