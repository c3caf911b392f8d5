package core

import (
	"context"

	"github.com/holiman/uint256"
)

// Callbacks are looked up by the account that sends the call and only invoked
// when the call carries non-empty data. They receive the ctx of the running
// call; nested ledger calls must reuse it to join the same atomic unit.

// ISupplyCallback invoked by Supply before the supplied assets are pulled
type ISupplyCallback interface {
	OnSupply(ctx context.Context, assets *uint256.Int, data []byte) error
}

// IRepayCallback invoked by Repay before the repaid assets are pulled
type IRepayCallback interface {
	OnRepay(ctx context.Context, assets *uint256.Int, data []byte) error
}

// ISupplyCollateralCallback invoked by SupplyCollateral before the collateral is pulled
type ISupplyCollateralCallback interface {
	OnSupplyCollateral(ctx context.Context, assets *uint256.Int, data []byte) error
}

// ILiquidateCallback invoked by Liquidate after seized collateral is sent out
type ILiquidateCallback interface {
	OnLiquidate(ctx context.Context, repaidAssets *uint256.Int, data []byte) error
}

// IFlashBorrower invoked by FlashLoan while the loan is outstanding
type IFlashBorrower interface {
	OnFlashLoan(ctx context.Context, assets *uint256.Int, data []byte) error
}
