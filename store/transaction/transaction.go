package transaction

import (
	"context"
	"time"

	"lending/core"

	"github.com/fox-one/pkg/store/db"
)

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Transaction{})
		if err := tx.AutoMigrate(core.Transaction{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Store journal of committed ledger actions
type Store struct {
	db *db.DB
}

// New new transaction store
func New(db *db.DB) *Store {
	return &Store{
		db: db,
	}
}

// Create append transaction inside tx, replays of the same trace id are ignored
func (s *Store) Create(ctx context.Context, tx *db.DB, transaction *core.Transaction) error {
	return tx.Update().Where("trace_id=?", transaction.TraceID).FirstOrCreate(transaction).Error
}

// ListTransactions transactions created at or after offset, oldest first
func (s *Store) ListTransactions(ctx context.Context, offset time.Time, limit int) ([]*core.Transaction, error) {
	var transactions []*core.Transaction
	if limit <= 0 {
		limit = 500
	}

	if err := s.db.View().Where("created_at >=?", offset).Order("created_at ASC, id ASC").Limit(limit).Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}
