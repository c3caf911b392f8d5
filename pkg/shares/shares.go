// Package shares converts between asset amounts and proportional shares.
//
// Every conversion adds VirtualAssets and VirtualShares to the totals, so an
// empty pool starts at 1e6 shares per asset unit and a donation to the pool
// cannot push the share price high enough to round later deposits to zero.
package shares

import (
	"lending/pkg/number"

	"github.com/holiman/uint256"
)

var (
	// VirtualShares phantom shares added to every conversion
	VirtualShares = uint256.NewInt(1e6)
	// VirtualAssets phantom assets added to every conversion
	VirtualAssets = uint256.NewInt(1)
)

func offsets(totalAssets, totalShares *uint256.Int) (assets, shares *uint256.Int, err error) {
	if assets, err = number.Add(totalAssets, VirtualAssets); err != nil {
		return nil, nil, err
	}

	if shares, err = number.Add(totalShares, VirtualShares); err != nil {
		return nil, nil, err
	}

	return assets, shares, nil
}

// ToSharesDown assets to shares, rounded down
func ToSharesDown(assets, totalAssets, totalShares *uint256.Int) (*uint256.Int, error) {
	ta, ts, err := offsets(totalAssets, totalShares)
	if err != nil {
		return nil, err
	}

	return number.MulDivDown(assets, ts, ta)
}

// ToSharesUp assets to shares, rounded up
func ToSharesUp(assets, totalAssets, totalShares *uint256.Int) (*uint256.Int, error) {
	ta, ts, err := offsets(totalAssets, totalShares)
	if err != nil {
		return nil, err
	}

	return number.MulDivUp(assets, ts, ta)
}

// ToAssetsDown shares to assets, rounded down
func ToAssetsDown(shares, totalAssets, totalShares *uint256.Int) (*uint256.Int, error) {
	ta, ts, err := offsets(totalAssets, totalShares)
	if err != nil {
		return nil, err
	}

	return number.MulDivDown(shares, ta, ts)
}

// ToAssetsUp shares to assets, rounded up
func ToAssetsUp(shares, totalAssets, totalShares *uint256.Int) (*uint256.Int, error) {
	ta, ts, err := offsets(totalAssets, totalShares)
	if err != nil {
		return nil, err
	}

	return number.MulDivUp(shares, ta, ts)
}
