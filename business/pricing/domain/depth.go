package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// PoolDepth is a snapshot of a pool's available liquidity.
// BaseLiquidity is the base-asset side expressed in whole base units
// (decimal-adjusted), which is what trade sizing operates on.
type PoolDepth struct {
	Pool          common.Address
	Liquidity     *big.Int
	BaseLiquidity decimal.Decimal
	Price         decimal.Decimal
	Tick          int32
	Venue         VenueKind
}

// SafeTradeSize converts pool depth into a maximum trade size: a fixed
// percentage of the smaller leg's base-side liquidity.
//
// This is a deliberate approximation. It does not model tick-range
// slippage on concentrated-liquidity pools; the market-impact cap is a
// sizing heuristic, not an execution guarantee. The on-chain minOut
// parameter remains the real backstop.
func SafeTradeSize(buy, sell *PoolDepth, maxImpactPercent decimal.Decimal) (decimal.Decimal, bool) {
	if buy == nil || sell == nil {
		return decimal.Zero, false
	}
	if maxImpactPercent.Sign() <= 0 {
		return decimal.Zero, false
	}

	smaller := buy.BaseLiquidity
	if sell.BaseLiquidity.LessThan(smaller) {
		smaller = sell.BaseLiquidity
	}
	if smaller.Sign() <= 0 {
		return decimal.Zero, false
	}

	return smaller.Mul(maxImpactPercent).Div(oneHundred), true
}
