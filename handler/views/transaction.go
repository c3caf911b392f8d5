package views

import (
	"encoding/json"
	"time"

	"lending/core"
)

type Transaction struct {
	ID        int64           `json:"id"`
	TraceID   string          `json:"trace_id"`
	Action    string          `json:"action"`
	MarketID  string          `json:"market_id,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	OnBehalf  string          `json:"on_behalf,omitempty"`
	Receiver  string          `json:"receiver,omitempty"`
	Assets    string          `json:"assets"`
	Shares    string          `json:"shares"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func TransactionViews(txs []*core.Transaction) []Transaction {
	items := make([]Transaction, len(txs))
	for i, t := range txs {
		items[i] = Transaction{
			ID:        t.ID,
			TraceID:   t.TraceID,
			Action:    t.Action.String(),
			MarketID:  t.MarketID,
			Sender:    t.Sender,
			OnBehalf:  t.OnBehalf,
			Receiver:  t.Receiver,
			Assets:    t.Assets.String(),
			Shares:    t.Shares.String(),
			Data:      json.RawMessage(t.Data),
			CreatedAt: t.CreatedAt,
		}
	}

	return items
}
