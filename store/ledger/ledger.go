// Package ledger persists markets, positions and delegations in postgres
// through gorm. A change set is written in one database transaction.
package ledger

import (
	"context"
	"errors"
	"time"

	"lending/core"
	"lending/store/transaction"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(Market{})
		if err := tx.AutoMigrate(Market{}).Error; err != nil {
			return err
		}

		tx = db.Update().Model(Position{})
		if err := tx.AutoMigrate(Position{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_positions_market_user", "market_id", "account").Error; err != nil {
			return err
		}

		if err := tx.AddIndex("idx_positions_account", "account").Error; err != nil {
			return err
		}

		tx = db.Update().Model(Authorization{})
		if err := tx.AutoMigrate(Authorization{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_authorizations_owner_operator", "owner", "operator").Error; err != nil {
			return err
		}

		tx = db.Update().Model(Setting{})
		if err := tx.AutoMigrate(Setting{}).Error; err != nil {
			return err
		}

		return nil
	})
}

type ledgerStore struct {
	db           *db.DB
	transactions *transaction.Store
}

// New new ledger store
func New(db *db.DB) core.LedgerStore {
	return &ledgerStore{
		db:           db,
		transactions: transaction.New(db),
	}
}

func (s *ledgerStore) FindMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	var row Market
	if err := s.db.View().Where("id = ?", id.String()).First(&row).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Market{}, nil
		}

		return nil, err
	}

	return row.toMarket()
}

func (s *ledgerStore) ListMarkets(ctx context.Context) ([]*core.Market, error) {
	var rows []*Market
	if err := s.db.View().Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	markets := make([]*core.Market, 0, len(rows))
	for _, row := range rows {
		m, err := row.toMarket()
		if err != nil {
			return nil, err
		}

		markets = append(markets, m)
	}

	return markets, nil
}

func (s *ledgerStore) FindPosition(ctx context.Context, id core.ID, user string) (*core.Position, error) {
	var row Position
	if err := s.db.View().Where("market_id = ? AND account = ?", id.String(), user).First(&row).Error; err != nil {
		if store.IsErrNotFound(err) {
			return core.NewPosition(id, user), nil
		}

		return nil, err
	}

	return row.toPosition()
}

func (s *ledgerStore) ListPositions(ctx context.Context, id core.ID) ([]*core.Position, error) {
	return s.listPositions(s.db.View().Where("market_id = ?", id.String()))
}

func (s *ledgerStore) ListUserPositions(ctx context.Context, user string) ([]*core.Position, error) {
	return s.listPositions(s.db.View().Where("account = ?", user))
}

func (s *ledgerStore) listPositions(query *gorm.DB) ([]*core.Position, error) {
	var rows []*Position
	if err := query.Order("market_id, account").Find(&rows).Error; err != nil {
		return nil, err
	}

	positions := make([]*core.Position, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPosition()
		if err != nil {
			return nil, err
		}

		if !p.IsZero() {
			positions = append(positions, p)
		}
	}

	return positions, nil
}

func (s *ledgerStore) IsAuthorized(ctx context.Context, owner, operator string) (bool, error) {
	var row Authorization
	if err := s.db.View().Where("owner = ? AND operator = ?", owner, operator).First(&row).Error; err != nil {
		if store.IsErrNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return row.Authorized, nil
}

func (s *ledgerStore) FeeRecipient(ctx context.Context) (string, error) {
	var row Setting
	if err := s.db.View().Where("key = ?", settingFeeRecipient).First(&row).Error; err != nil {
		if store.IsErrNotFound(err) {
			return "", nil
		}

		return "", err
	}

	return row.Value, nil
}

func (s *ledgerStore) ListTransactions(ctx context.Context, offset time.Time, limit int) ([]*core.Transaction, error) {
	return s.transactions.ListTransactions(ctx, offset, limit)
}

// Commit writes cs in one database transaction. Markets and positions are
// written only if their version still matches the one they were loaded with,
// otherwise core.ErrConflict is returned and nothing is written.
func (s *ledgerStore) Commit(ctx context.Context, cs *core.ChangeSet) error {
	err := s.db.Tx(func(tx *db.DB) error {
		for _, m := range cs.Created {
			row := fromMarket(m)
			row.Version = 1
			if err := tx.Update().Create(row).Error; err != nil {
				if isUniqueViolation(err) {
					return core.ErrValidation.With(core.ReasonMarketAlreadyCreated)
				}

				return err
			}
		}

		for _, m := range cs.Markets {
			if err := updateMarket(tx, m); err != nil {
				return err
			}
		}

		for _, p := range cs.Positions {
			if err := savePosition(tx, p); err != nil {
				return err
			}
		}

		for _, a := range cs.Authorizations {
			if err := saveAuthorization(tx, a); err != nil {
				return err
			}
		}

		if cs.FeeRecipient != nil {
			if err := saveSetting(tx, settingFeeRecipient, *cs.FeeRecipient); err != nil {
				return err
			}
		}

		for _, t := range cs.Transactions {
			if err := s.transactions.Create(ctx, tx, t); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	cs.Bump()
	return nil
}

func updateMarket(tx *db.DB, m *core.Market) error {
	row := fromMarket(m)
	update := tx.Update().Table("markets").
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(map[string]interface{}{
			"total_supply_assets": row.TotalSupplyAssets,
			"total_supply_shares": row.TotalSupplyShares,
			"total_borrow_assets": row.TotalBorrowAssets,
			"total_borrow_shares": row.TotalBorrowShares,
			"last_update":         row.LastUpdate,
			"fee":                 row.Fee,
			"version":             row.Version + 1,
			"updated_at":          time.Now(),
		})

	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return core.ErrConflict.Wrap(core.ReasonStaleWrite, db.ErrOptimisticLock)
	}

	return nil
}

// savePosition inserts positions never stored before, a concurrent insert of
// the same position is a conflict
func savePosition(tx *db.DB, p *core.Position) error {
	row := fromPosition(p)
	if row.Version == 0 {
		row.Version = 1
		if err := tx.Update().Create(row).Error; err != nil {
			if isUniqueViolation(err) {
				return core.ErrConflict.Wrap(core.ReasonStaleWrite, err)
			}

			return err
		}

		return nil
	}

	update := tx.Update().Table("positions").
		Where("market_id = ? AND account = ? AND version = ?", row.MarketID, row.User, row.Version).
		Updates(map[string]interface{}{
			"supply_shares": row.SupplyShares,
			"borrow_shares": row.BorrowShares,
			"collateral":    row.Collateral,
			"version":       row.Version + 1,
			"updated_at":    time.Now(),
		})

	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return core.ErrConflict.Wrap(core.ReasonStaleWrite, db.ErrOptimisticLock)
	}

	return nil
}

func saveAuthorization(tx *db.DB, a *core.Authorization) error {
	row := &Authorization{Owner: a.Owner, Operator: a.Operator, Authorized: a.Authorized}
	update := tx.Update().Table("authorizations").
		Where("owner = ? AND operator = ?", row.Owner, row.Operator).
		Updates(map[string]interface{}{
			"authorized": row.Authorized,
		})

	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return tx.Update().Create(row).Error
	}

	return nil
}

func saveSetting(tx *db.DB, key, value string) error {
	update := tx.Update().Table("settings").Where("key = ?", key).Updates(map[string]interface{}{
		"value": value,
	})

	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return tx.Update().Create(&Setting{Key: key, Value: value}).Error
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var e *pq.Error
	if errors.As(err, &e) {
		return e.Code == "23505"
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
