package irm

import (
	"context"
	"testing"

	"lending/core"
	"lending/pkg/number"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpRate(t *testing.T) {
	m := &JumpRate{
		BaseRate:       number.Int(10),
		Multiplier:     number.Int(100),
		JumpMultiplier: number.Int(1000),
		Kink:           number.MustParseWad("0.8"),
	}

	data := map[string]uint64{
		"0":   10,
		"0.5": 60,
		"0.8": 90,
		"0.9": 190,
		"1":   290,
	}

	for u, want := range data {
		t.Run(u, func(t *testing.T) {
			r, err := m.Rate(number.MustParseWad(u))
			require.Nil(t, err)
			assert.Equal(t, want, r.Uint64())
		})
	}
}

func TestJumpRateUsesMarketUtilization(t *testing.T) {
	m, err := New(core.RateModelConfig{
		Kind:           KindJump,
		BaseRate:       "0.02",
		Multiplier:     "0.1",
		JumpMultiplier: "1",
		Kink:           "0.8",
	})
	require.Nil(t, err)

	market := core.NewMarket(core.MarketParams{LLTV: number.MustParseWad("0.8")}, 1)
	market.TotalSupplyAssets = number.Int(1000)

	idle, err := m.BorrowRate(context.Background(), market.Params, market)
	require.Nil(t, err)

	market.TotalBorrowAssets = number.Int(500)
	busy, err := m.BorrowRate(context.Background(), market.Params, market)
	require.Nil(t, err)

	assert.True(t, busy.Gt(idle))
	assert.Equal(t, "0.02", Annual(idle).Round(2).String())
}

func TestFixed(t *testing.T) {
	m, err := New(core.RateModelConfig{Kind: KindFixed, Rate: "0.1"})
	require.Nil(t, err)

	r, err := m.BorrowRate(context.Background(), core.MarketParams{}, nil)
	require.Nil(t, err)
	assert.Equal(t, "0.1", Annual(r).Round(4).String())

	_, err = New(core.RateModelConfig{Kind: "curve"})
	assert.NotNil(t, err)
}

func TestSupplyRate(t *testing.T) {
	r := SupplyRate(number.Wad(1), number.MustParseWad("0.5"), number.MustParseWad("0.1"))
	assert.Equal(t, "0.45", number.WadString(r))
}
