package univ3

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSqrtPriceX96ToPrice(t *testing.T) {
	tests := []struct {
		name      string
		sqrt      *big.Int
		want      string
		tolerance string
	}{
		{
			name:      "unit_price",
			sqrt:      new(big.Int).Set(q96), // sqrt(1) in Q64.96
			want:      "1",
			tolerance: "0",
		},
		{
			name:      "price_four",
			sqrt:      new(big.Int).Mul(q96, big.NewInt(2)), // sqrt(4)
			want:      "4",
			tolerance: "0",
		},
		{
			name: "half_q96",
			sqrt: new(big.Int).Rsh(q96, 1), // sqrt(0.25)
			want: "0.25",
			tolerance: "0",
		},
		{
			// Realistic USDC/WETH value: the raw ratio is inflated by the
			// 12-decimal gap between the tokens; the shift happens later.
			name:      "realistic_usdc_weth",
			sqrt:      mustBig("1349867372402072232717068742151923"),
			want:      "290283955.858718",
			tolerance: "0.001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqrtPriceX96ToPrice(tt.sqrt)
			want := decimal.RequireFromString(tt.want)
			tolerance := decimal.RequireFromString(tt.tolerance)

			if got.Sub(want).Abs().GreaterThan(tolerance) {
				t.Errorf("price = %s, want %s (tolerance %s)", got, want, tolerance)
			}
		})
	}
}

func TestSqrtPriceX96ToPrice_ShiftRecoversHumanPrice(t *testing.T) {
	// For a USDC(6)/WETH(18) pool the raw ratio carries a 10^12 decimal
	// gap; a -12 shift recovers the human WETH-per-USDC price, here with
	// ETH around $3445.
	raw := sqrtPriceX96ToPrice(mustBig("1349867372402072232717068742151923"))
	human := raw.Shift(-12)

	low := decimal.RequireFromString("0.000290")
	high := decimal.RequireFromString("0.000291")
	if human.LessThan(low) || human.GreaterThan(high) {
		t.Errorf("shifted price = %s, want within [%s, %s]", human, low, high)
	}
}

func TestBaseLiquidityFromL(t *testing.T) {
	// amount0 = L * 2^96 / sqrtPriceX96. With sqrtPriceX96 = 2*2^96 the
	// raw amount is L/2; 18 base decimals scale it down.
	liquidity := new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
	sqrt := new(big.Int).Mul(q96, big.NewInt(2))

	got := baseLiquidityFromL(liquidity, sqrt, 18)
	want := decimal.NewFromInt(5)
	if !got.Equal(want) {
		t.Errorf("base liquidity = %s, want %s", got, want)
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big.Int literal: " + s)
	}
	return v
}
