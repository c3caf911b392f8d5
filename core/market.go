package core

import (
	"context"
	"database/sql/driver"
	"fmt"

	"lending/pkg/number"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/spf13/cast"
)

// ID market id, keccak256 of the market params
type ID [32]byte

// ParseID parse a 0x prefixed hex id
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, err
	}

	if len(b) != len(id) {
		return id, fmt.Errorf("invalid market id length %d", len(b))
	}

	copy(id[:], b)
	return id, nil
}

func (id ID) String() string {
	return hexutil.Encode(id[:])
}

// IsZero true for the empty id
func (id ID) IsZero() bool {
	return id == ID{}
}

// MarshalText hex encoding
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText hex decoding
func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}

	*id = v
	return nil
}

// Value sql driver value
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan sql scanner
func (id *ID) Scan(src interface{}) error {
	return id.UnmarshalText([]byte(cast.ToString(src)))
}

// MarketParams immutable identity of a market
type MarketParams struct {
	LoanAsset       string       `json:"loan_asset"`
	CollateralAsset string       `json:"collateral_asset"`
	Oracle          string       `json:"oracle"`
	RateModel       string       `json:"rate_model"`
	LLTV            *uint256.Int `json:"lltv"`
}

// ID keccak256 over the four hashed references followed by the 32 byte lltv
func (p *MarketParams) ID() ID {
	lltv := p.LLTV
	if lltv == nil {
		lltv = number.Zero()
	}

	word := lltv.Bytes32()
	hash := crypto.Keccak256(
		crypto.Keccak256([]byte(p.LoanAsset)),
		crypto.Keccak256([]byte(p.CollateralAsset)),
		crypto.Keccak256([]byte(p.Oracle)),
		crypto.Keccak256([]byte(p.RateModel)),
		word[:],
	)

	var id ID
	copy(id[:], hash)
	return id
}

// Market aggregate state of one isolated market
type Market struct {
	ID                ID           `json:"id"`
	Params            MarketParams `json:"params"`
	TotalSupplyAssets *uint256.Int `json:"total_supply_assets"`
	TotalSupplyShares *uint256.Int `json:"total_supply_shares"`
	TotalBorrowAssets *uint256.Int `json:"total_borrow_assets"`
	TotalBorrowShares *uint256.Int `json:"total_borrow_shares"`
	// LastUpdate unix seconds of the last accrual
	LastUpdate int64 `json:"last_update"`
	// Fee protocol cut of interest, WAD
	Fee *uint256.Int `json:"fee"`
	// Version bumped by the store on every write, zero until created
	Version int64 `json:"version"`
}

// NewMarket empty market created at now
func NewMarket(params MarketParams, now int64) *Market {
	return &Market{
		ID:                params.ID(),
		Params:            params,
		TotalSupplyAssets: number.Zero(),
		TotalSupplyShares: number.Zero(),
		TotalBorrowAssets: number.Zero(),
		TotalBorrowShares: number.Zero(),
		LastUpdate:        now,
		Fee:               number.Zero(),
	}
}

// Created markets are never deleted, an unknown id yields the empty market
func (m *Market) Created() bool {
	return m != nil && !m.ID.IsZero()
}

// Clone deep copy, the empty market included
func (m *Market) Clone() *Market {
	c := *m
	c.Params.LLTV = cloneInt(m.Params.LLTV)
	c.TotalSupplyAssets = cloneInt(m.TotalSupplyAssets)
	c.TotalSupplyShares = cloneInt(m.TotalSupplyShares)
	c.TotalBorrowAssets = cloneInt(m.TotalBorrowAssets)
	c.TotalBorrowShares = cloneInt(m.TotalBorrowShares)
	c.Fee = cloneInt(m.Fee)
	return &c
}

func cloneInt(x *uint256.Int) *uint256.Int {
	if x == nil {
		return nil
	}

	return x.Clone()
}

// Liquidity idle loan assets
func (m *Market) Liquidity() *uint256.Int {
	return number.ZeroFloorSub(m.TotalSupplyAssets, m.TotalBorrowAssets)
}

// Utilization total borrow / total supply, WAD
func (m *Market) Utilization() *uint256.Int {
	if m.TotalSupplyAssets.IsZero() {
		return number.Zero()
	}

	u, err := number.WDivDown(m.TotalBorrowAssets, m.TotalSupplyAssets)
	if err != nil {
		return number.Zero()
	}

	return u
}

// Solvent total borrow assets never exceed total supply assets
func (m *Market) Solvent() bool {
	return m.TotalBorrowAssets.Cmp(m.TotalSupplyAssets) <= 0
}

// IRateModel interest rate model
type IRateModel interface {
	// BorrowRate per second borrow rate, WAD
	BorrowRate(ctx context.Context, params MarketParams, market *Market) (*uint256.Int, error)
}
