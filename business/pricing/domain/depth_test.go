package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSafeTradeSize(t *testing.T) {
	tests := []struct {
		name      string
		buyBase   string
		sellBase  string
		impactPct string
		wantSize  string
		wantOK    bool
	}{
		{
			name:      "smaller_leg_wins",
			buyBase:   "500",
			sellBase:  "120",
			impactPct: "1",
			wantSize:  "1.2", // 1% of 120
			wantOK:    true,
		},
		{
			name:      "equal_legs",
			buyBase:   "200",
			sellBase:  "200",
			impactPct: "2",
			wantSize:  "4",
			wantOK:    true,
		},
		{
			name:      "zero_liquidity_leg",
			buyBase:   "0",
			sellBase:  "500",
			impactPct: "1",
			wantOK:    false,
		},
		{
			name:      "zero_impact_cap",
			buyBase:   "500",
			sellBase:  "500",
			impactPct: "0",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy := &PoolDepth{BaseLiquidity: decimal.RequireFromString(tt.buyBase)}
			sell := &PoolDepth{BaseLiquidity: decimal.RequireFromString(tt.sellBase)}
			impact := decimal.RequireFromString(tt.impactPct)

			size, ok := SafeTradeSize(buy, sell, impact)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}

			want := decimal.RequireFromString(tt.wantSize)
			if !size.Equal(want) {
				t.Errorf("size = %s, want %s", size, want)
			}
		})
	}
}

func TestSafeTradeSize_NilLegs(t *testing.T) {
	depth := &PoolDepth{BaseLiquidity: decimal.NewFromInt(100)}
	if _, ok := SafeTradeSize(nil, depth, decimal.NewFromInt(1)); ok {
		t.Error("nil buy leg should not produce a size")
	}
	if _, ok := SafeTradeSize(depth, nil, decimal.NewFromInt(1)); ok {
		t.Error("nil sell leg should not produce a size")
	}
}
