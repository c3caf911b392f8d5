package ledger

import (
	"context"
	"sort"
	"time"

	"lending/core"

	"github.com/holiman/uint256"
)

// expectedMarket copy of the market with interest accrued up to now
func (s *session) expectedMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	m, err := s.createdMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	recipient, err := s.feeRecipientOf(ctx)
	if err != nil {
		return nil, err
	}

	m = m.Clone()
	if _, _, err := s.l.accrueMarket(ctx, m, recipient); err != nil {
		return nil, err
	}

	return m, nil
}

// MarketExists whether the market of id was created
func (l *Ledger) MarketExists(ctx context.Context, id core.ID) (bool, error) {
	var exists bool
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		m, err := s.market(ctx, id)
		if err != nil {
			return err
		}

		exists = m.Created()
		return nil
	})

	return exists, err
}

// Market stored state of a created market, interest not accrued
func (l *Ledger) Market(ctx context.Context, id core.ID) (*core.Market, error) {
	var market *core.Market
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		m, err := s.createdMarket(ctx, id)
		if err != nil {
			return err
		}

		market = m.Clone()
		return nil
	})

	return market, err
}

// ExpectedMarket market state as if interest were accrued now
func (l *Ledger) ExpectedMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	var market *core.Market
	err := l.view(ctx, func(ctx context.Context, s *session) (err error) {
		market, err = s.expectedMarket(ctx, id)
		return
	})

	return market, err
}

// Markets all created markets
func (l *Ledger) Markets(ctx context.Context) ([]*core.Market, error) {
	var markets []*core.Market
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		stored, err := l.store.ListMarkets(ctx)
		if err != nil {
			return err
		}

		seen := make(map[core.ID]bool, len(stored))
		for _, m := range stored {
			seen[m.ID] = true
			if staged, ok := s.markets[m.ID]; ok {
				m = staged
			}

			markets = append(markets, m.Clone())
		}

		for _, id := range s.created {
			if m, ok := s.markets[id]; ok && !seen[id] {
				markets = append(markets, m.Clone())
			}
		}

		return nil
	})

	return markets, err
}

// Position position of user in the market of id, zero if never touched
func (l *Ledger) Position(ctx context.Context, id core.ID, user string) (*core.Position, error) {
	var position *core.Position
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		p, err := s.position(ctx, id, user)
		if err != nil {
			return err
		}

		position = p.Clone()
		return nil
	})

	return position, err
}

// Positions every non-zero position of a market
func (l *Ledger) Positions(ctx context.Context, id core.ID) ([]*core.Position, error) {
	var positions []*core.Position
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		stored, err := l.store.ListPositions(ctx, id)
		if err != nil {
			return err
		}

		positions = s.overlay(stored, func(key positionKey) bool {
			return key.id == id
		})
		return nil
	})

	return positions, err
}

// UserPositions every non-zero position of user
func (l *Ledger) UserPositions(ctx context.Context, user string) ([]*core.Position, error) {
	var positions []*core.Position
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		stored, err := l.store.ListUserPositions(ctx, user)
		if err != nil {
			return err
		}

		positions = s.overlay(stored, func(key positionKey) bool {
			return key.user == user
		})
		return nil
	})

	return positions, err
}

// overlay replaces stored positions with staged ones and drops zero positions
func (s *session) overlay(stored []*core.Position, match func(key positionKey) bool) []*core.Position {
	merged := make(map[positionKey]*core.Position, len(stored))
	for _, p := range stored {
		merged[positionKey{id: p.MarketID, user: p.User}] = p
	}

	for key, p := range s.positions {
		if match(key) {
			merged[key] = p
		}
	}

	positions := make([]*core.Position, 0, len(merged))
	for _, p := range merged {
		if !p.IsZero() {
			positions = append(positions, p.Clone())
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].MarketID != positions[j].MarketID {
			return positions[i].MarketID.String() < positions[j].MarketID.String()
		}

		return positions[i].User < positions[j].User
	})

	return positions
}

// IsHealthy health of user's position against the accrued market and a fresh
// price. Positions without debt are healthy and skip the oracle.
func (l *Ledger) IsHealthy(ctx context.Context, id core.ID, user string) (bool, error) {
	var ok bool
	err := l.view(ctx, func(ctx context.Context, s *session) error {
		m, err := s.expectedMarket(ctx, id)
		if err != nil {
			return err
		}

		p, err := s.position(ctx, id, user)
		if err != nil {
			return err
		}

		if p.BorrowShares.IsZero() {
			ok = true
			return nil
		}

		price, err := l.price(ctx, m.Params)
		if err != nil {
			return err
		}

		ok, err = healthy(m, p, price)
		return err
	})

	return ok, err
}

// TotalSupplyAssets stored total supply assets of a market
func (l *Ledger) TotalSupplyAssets(ctx context.Context, id core.ID) (*uint256.Int, error) {
	m, err := l.Market(ctx, id)
	if err != nil {
		return nil, err
	}

	return m.TotalSupplyAssets, nil
}

// TotalBorrowAssets stored total borrow assets of a market
func (l *Ledger) TotalBorrowAssets(ctx context.Context, id core.ID) (*uint256.Int, error) {
	m, err := l.Market(ctx, id)
	if err != nil {
		return nil, err
	}

	return m.TotalBorrowAssets, nil
}

// SupplyShares supply shares of user
func (l *Ledger) SupplyShares(ctx context.Context, id core.ID, user string) (*uint256.Int, error) {
	p, err := l.Position(ctx, id, user)
	if err != nil {
		return nil, err
	}

	return p.SupplyShares, nil
}

// BorrowShares borrow shares of user
func (l *Ledger) BorrowShares(ctx context.Context, id core.ID, user string) (*uint256.Int, error) {
	p, err := l.Position(ctx, id, user)
	if err != nil {
		return nil, err
	}

	return p.BorrowShares, nil
}

// Collateral collateral posted by user
func (l *Ledger) Collateral(ctx context.Context, id core.ID, user string) (*uint256.Int, error) {
	p, err := l.Position(ctx, id, user)
	if err != nil {
		return nil, err
	}

	return p.Collateral, nil
}

// Transactions journal entries created after offset
func (l *Ledger) Transactions(ctx context.Context, offset time.Time, limit int) ([]*core.Transaction, error) {
	return l.store.ListTransactions(ctx, offset, limit)
}
