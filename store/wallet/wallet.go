package wallet

import (
	"context"
	"fmt"
	"time"

	"lending/core"
	"lending/pkg/number"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(Balance{})

		if err := tx.AutoMigrate(Balance{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_balances_asset_account", "asset", "account").Error; err != nil {
			return err
		}

		if err := tx.AddIndex("idx_balances_account", "account").Error; err != nil {
			return err
		}

		return nil
	})
}

// Balance balance row
type Balance struct {
	ID        int64           `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	Asset     string          `sql:"size:64" json:"asset"`
	Account   string          `sql:"size:64" json:"account"`
	Amount    decimal.Decimal `sql:"type:decimal(78,0)" json:"amount"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type walletStore struct {
	db *db.DB
}

// New new wallet store
func New(db *db.DB) core.WalletStore {
	return &walletStore{db: db}
}

func (s *walletStore) FindBalance(ctx context.Context, asset, account string) (*uint256.Int, error) {
	var row Balance
	if err := s.db.View().Where("asset = ? AND account = ?", asset, account).First(&row).Error; err != nil {
		if store.IsErrNotFound(err) {
			return number.Zero(), nil
		}

		return nil, err
	}

	return number.FromDecimal(row.Amount, 0)
}

func (s *walletStore) ListBalances(ctx context.Context, account string) ([]*core.AssetBalance, error) {
	var rows []*Balance
	if err := s.db.View().Where("account = ?", account).Order("asset").Find(&rows).Error; err != nil {
		return nil, err
	}

	balances := make([]*core.AssetBalance, 0, len(rows))
	for _, row := range rows {
		amount, err := number.FromDecimal(row.Amount, 0)
		if err != nil {
			return nil, err
		}

		balances = append(balances, &core.AssetBalance{
			Asset:   row.Asset,
			Account: row.Account,
			Amount:  amount,
		})
	}

	return balances, nil
}

// Transfer debits are guarded by the row's own amount, so concurrent writers
// never overwrite each other's balance
func (s *walletStore) Transfer(ctx context.Context, transfers []*core.Transfer) error {
	return s.db.Tx(func(tx *db.DB) error {
		for _, t := range transfers {
			if t.Amount == nil || t.Amount.IsZero() || t.From == t.To {
				continue
			}

			amount := number.ToDecimal(t.Amount, 0)
			debit := tx.Update().Table("balances").
				Where("asset = ? AND account = ? AND amount >= ?", t.Asset, t.From, amount).
				Updates(map[string]interface{}{
					"amount":     gorm.Expr("amount - ?", amount),
					"updated_at": time.Now(),
				})

			if debit.Error != nil {
				return debit.Error
			}

			if debit.RowsAffected == 0 {
				return fmt.Errorf("transfer %s %s from %s: %w", t.Amount, t.Asset, t.From, core.ErrInsufficientBalance)
			}

			if err := credit(tx, t.Asset, t.To, amount); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *walletStore) Deposit(ctx context.Context, asset, account string, amount *uint256.Int) error {
	return s.db.Tx(func(tx *db.DB) error {
		return credit(tx, asset, account, number.ToDecimal(amount, 0))
	})
}

func credit(tx *db.DB, asset, account string, amount decimal.Decimal) error {
	update := tx.Update().Table("balances").
		Where("asset = ? AND account = ?", asset, account).
		Updates(map[string]interface{}{
			"amount":     gorm.Expr("amount + ?", amount),
			"updated_at": time.Now(),
		})

	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		row := &Balance{Asset: asset, Account: account, Amount: amount}
		return tx.Update().Create(row).Error
	}

	return nil
}
