package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	// TransactionKeyInterest interest accrued before the action
	TransactionKeyInterest = "interest"
	// TransactionKeyFeeShares shares minted to the fee recipient
	TransactionKeyFeeShares = "fee_shares"
	// TransactionKeyPrice oracle price used by the action
	TransactionKeyPrice = "price"
	// TransactionKeySeized seized collateral
	TransactionKeySeized = "seized"
	// TransactionKeyBadDebtAssets socialized assets
	TransactionKeyBadDebtAssets = "bad_debt_assets"
	// TransactionKeyBadDebtShares burned borrow shares
	TransactionKeyBadDebtShares = "bad_debt_shares"
	// TransactionKeyAsset asset of a flash loan
	TransactionKeyAsset = "asset"
	// TransactionKeyFee new fee
	TransactionKeyFee = "fee"
	// TransactionKeyAuthorized authorization flag
	TransactionKeyAuthorized = "authorized"
	// TransactionKeyParams market params
	TransactionKeyParams = "params"
)

// TransactionExtraData extra data
type TransactionExtraData map[string]interface{}

// NewTransactionExtra new transaction extra instance
func NewTransactionExtra() TransactionExtraData {
	d := make(TransactionExtraData)
	return d
}

// Put put data
func (t TransactionExtraData) Put(key string, value interface{}) {
	t[key] = value
}

// Format format as []byte by default
func (t TransactionExtraData) Format() []byte {
	bs, e := json.Marshal(t)
	if e != nil {
		return []byte("{}")
	}

	return bs
}

// Transaction journal entry of a committed ledger action
type Transaction struct {
	ID        int64           `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	TraceID   string          `sql:"size:36;unique_index:idx_transactions_trace_id" json:"trace_id,omitempty"`
	Action    ActionType      `json:"action,omitempty"`
	MarketID  string          `sql:"size:66;index:idx_transactions_market_id" json:"market_id,omitempty"`
	Sender    string          `sql:"size:64" json:"sender,omitempty"`
	OnBehalf  string          `sql:"size:64;index:idx_transactions_on_behalf" json:"on_behalf,omitempty"`
	Receiver  string          `sql:"size:64" json:"receiver,omitempty"`
	Assets    decimal.Decimal `sql:"type:decimal(78,0)" json:"assets"`
	Shares    decimal.Decimal `sql:"type:decimal(78,0)" json:"shares"`
	Data      types.JSONText  `sql:"type:TEXT" json:"data,omitempty"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP;index:idx_transactions_created_at" json:"created_at,omitempty"`
}

// SetExtraData attach extra data
func (t *Transaction) SetExtraData(extra TransactionExtraData) {
	data := []byte("{}")
	if extra != nil {
		data = extra.Format()
	}

	t.Data = data
}

// TransactionStore read side of the journal
type TransactionStore interface {
	ListTransactions(ctx context.Context, offset time.Time, limit int) ([]*Transaction, error)
}
