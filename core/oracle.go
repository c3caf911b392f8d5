package core

import (
	"context"

	"lending/pkg/number"

	"github.com/holiman/uint256"
)

// PriceScale scale of oracle prices, 1e36
var PriceScale = number.Pow10(36)

// IOracle collateral price quoted in loan asset units
type IOracle interface {
	// Price collateral -> loan price scaled by PriceScale
	Price(ctx context.Context) (*uint256.Int, error)
}
