package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/oxarb/flasharb/business/blockchain/domain"
	pricingDomain "github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/asset"
	"github.com/oxarb/flasharb/internal/logger"
)

var (
	testWETH = asset.NewAsset(asset.NewTokenAssetID(42161,
		common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")), "WETH", 18)
	testUSDC = asset.NewAsset(asset.NewTokenAssetID(42161,
		common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")), "USDC", 6)

	buyPool  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	sellPool = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

func testGroup() pricingDomain.ScanGroup {
	return pricingDomain.ScanGroup{
		Name:  "weth-usdc",
		Base:  testWETH,
		Quote: testUSDC,
		Pools: []pricingDomain.PoolRef{
			{Address: buyPool, Venue: pricingDomain.VenueConstantProduct},
			{Address: sellPool, Venue: pricingDomain.VenueConcentratedLiquidity},
		},
	}
}

type fakePrices struct {
	scan pricingDomain.GroupScan
}

func (f *fakePrices) ScanGroup(ctx context.Context, group pricingDomain.ScanGroup) pricingDomain.GroupScan {
	return f.scan
}

func (f *fakePrices) BestOpportunity(ctx context.Context) (pricingDomain.GroupScan, bool) {
	return f.scan, f.scan.HasOpportunity
}

func (f *fakePrices) GroupByName(name string) (pricingDomain.ScanGroup, error) {
	if name != "weth-usdc" {
		return pricingDomain.ScanGroup{}, apperror.New(apperror.CodeNotFound)
	}
	return testGroup(), nil
}

type fakeDepth struct {
	size decimal.Decimal
	ok   bool
}

func (f *fakeDepth) SafeSizeForLegs(ctx context.Context, group pricingDomain.ScanGroup, buy, sell common.Address) (decimal.Decimal, bool) {
	return f.size, f.ok
}

type fakeRef struct {
	price decimal.Decimal
	err   error
}

func (f *fakeRef) ReferencePrice(ctx context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type fakeGas struct {
	gwei float64
	err  error
}

func (f *fakeGas) GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	wei := decimal.NewFromFloat(f.gwei).Shift(9).BigInt()
	return blockchainDomain.NewGasPrice(wei), nil
}

type fakeBlocks struct {
	head uint64
}

func (f *fakeBlocks) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func goodScan() pricingDomain.GroupScan {
	return pricingDomain.GroupScan{
		Group:          "weth-usdc",
		BuyPool:        buyPool,
		SellPool:       sellPool,
		BuyPrice:       decimal.NewFromInt(3000),
		SellPrice:      decimal.NewFromInt(3060),
		GrossBps:       decimal.NewFromInt(200),
		NetBps:         decimal.NewFromInt(156),
		PricedPools:    2,
		BlockNumber:    1200,
		HasOpportunity: true,
	}
}

func defaultConfig() ScannerConfig {
	return ScannerConfig{
		Group:                 "weth-usdc",
		MinSpreadBps:          decimal.NewFromInt(20),
		MinProfitUSD:          decimal.NewFromInt(5),
		MaxNotional:           decimal.NewFromInt(1),
		ExceptionalSpreadBps:  decimal.NewFromInt(300),
		ExceptionalMultiplier: decimal.NewFromInt(2),
		MaxGasPriceGwei:       decimal.NewFromInt(1),
	}
}

func newTestScanner(prices *fakePrices, depth *fakeDepth, ref *fakeRef, gas *fakeGas, cfg ScannerConfig) *Scanner {
	return NewScanner(prices, depth, ref, gas, &fakeBlocks{head: 1500}, cfg, testLogger())
}

func TestScanner_EmitsOpportunity(t *testing.T) {
	s := newTestScanner(
		&fakePrices{scan: goodScan()},
		&fakeDepth{size: decimal.NewFromInt(10), ok: true},
		&fakeRef{price: decimal.NewFromInt(3000)},
		&fakeGas{gwei: 0.1},
		defaultConfig(),
	)

	opp, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error = %v", err)
	}
	if opp == nil {
		t.Fatal("Scan returned no opportunity")
	}

	if opp.Group != "weth-usdc" {
		t.Errorf("Group = %s, want weth-usdc", opp.Group)
	}
	if opp.Pair != "WETH/USDC" {
		t.Errorf("Pair = %s, want WETH/USDC", opp.Pair)
	}
	if !opp.Notional.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Notional = %s, want 1 (global cap)", opp.Notional)
	}
	if opp.DepthCapped {
		t.Error("DepthCapped = true, want false (depth above cap)")
	}

	// est profit = 1 * 3000 * 156 / 10000 = 46.8
	want := decimal.RequireFromString("46.8")
	if !opp.EstProfitUSD.Equal(want) {
		t.Errorf("EstProfitUSD = %s, want %s", opp.EstProfitUSD, want)
	}
	if opp.BlockNumber != 1200 {
		t.Errorf("BlockNumber = %d, want 1200", opp.BlockNumber)
	}
	if opp.ID == "" {
		t.Error("ID is empty")
	}
}

func TestScanner_GasCeilingIsAbsenceOfSignal(t *testing.T) {
	s := newTestScanner(
		&fakePrices{scan: goodScan()},
		&fakeDepth{size: decimal.NewFromInt(10), ok: true},
		&fakeRef{price: decimal.NewFromInt(3000)},
		&fakeGas{gwei: 5}, // ceiling is 1
		defaultConfig(),
	)

	opp, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error = %v, want nil (gas gate is not a failure)", err)
	}
	if opp != nil {
		t.Error("Scan returned an opportunity above the gas ceiling")
	}
}

func TestScanner_ReferencePriceFailureIsAnError(t *testing.T) {
	s := newTestScanner(
		&fakePrices{scan: goodScan()},
		&fakeDepth{size: decimal.NewFromInt(10), ok: true},
		&fakeRef{err: errors.New("api down")},
		&fakeGas{gwei: 0.1},
		defaultConfig(),
	)

	_, err := s.Scan(context.Background())
	if err == nil {
		t.Fatal("Scan error = nil, want reference-price failure")
	}
	if apperror.GetCode(err) != apperror.CodeReferencePriceFailed {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeReferencePriceFailed)
	}
}

func TestScanner_SpreadFloorIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		netBps  string
		wantOpp bool
	}{
		{"below_floor", "19", false},
		{"exactly_at_floor", "20", false},
		{"just_above_floor", "20.01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scan := goodScan()
			scan.NetBps = decimal.RequireFromString(tt.netBps)

			s := newTestScanner(
				&fakePrices{scan: scan},
				&fakeDepth{size: decimal.NewFromInt(10), ok: true},
				&fakeRef{price: decimal.NewFromInt(3000)},
				&fakeGas{gwei: 0.1},
				defaultConfig(),
			)

			opp, err := s.Scan(context.Background())
			if err != nil {
				t.Fatalf("Scan error = %v", err)
			}
			if (opp != nil) != tt.wantOpp {
				t.Errorf("opportunity = %v, want %v", opp != nil, tt.wantOpp)
			}
		})
	}
}

func TestScanner_ProfitFloorIsStrict(t *testing.T) {
	cfg := defaultConfig()
	// notional 1 * ref 3000 * 156 bps = $46.80 estimated
	tests := []struct {
		name     string
		floorUSD string
		wantOpp  bool
	}{
		{"below_floor", "40", true},
		{"exactly_at_floor", "46.8", false},
		{"above_floor", "50", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.MinProfitUSD = decimal.RequireFromString(tt.floorUSD)

			s := newTestScanner(
				&fakePrices{scan: goodScan()},
				&fakeDepth{size: decimal.NewFromInt(10), ok: true},
				&fakeRef{price: decimal.NewFromInt(3000)},
				&fakeGas{gwei: 0.1},
				cfg,
			)

			opp, err := s.Scan(context.Background())
			if err != nil {
				t.Fatalf("Scan error = %v", err)
			}
			if (opp != nil) != tt.wantOpp {
				t.Errorf("opportunity = %v, want %v", opp != nil, tt.wantOpp)
			}
		})
	}
}

func TestScanner_ExceptionalSpreadScalesUpThenDepthCaps(t *testing.T) {
	scan := goodScan()
	scan.NetBps = decimal.NewFromInt(400) // above the 300 bps threshold

	cfg := defaultConfig()
	cfg.MaxNotional = decimal.NewFromInt(2)

	tests := []struct {
		name         string
		depthSize    string
		depthOK      bool
		wantNotional string
		wantCapped   bool
	}{
		{"depth_above_scaled_size", "10", true, "4", false}, // 2 * 2x multiplier
		{"depth_below_scaled_size", "3", true, "3", true},   // depth wins over scale-up
		{"depth_below_base_cap", "1", true, "1", true},
		// Unknown liquidity never gets the multiplier: bare cap only.
		{"depth_unavailable_falls_back_to_cap", "0", false, "2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(
				&fakePrices{scan: scan},
				&fakeDepth{size: decimal.RequireFromString(tt.depthSize), ok: tt.depthOK},
				&fakeRef{price: decimal.NewFromInt(3000)},
				&fakeGas{gwei: 0.1},
				cfg,
			)

			opp, err := s.Scan(context.Background())
			if err != nil {
				t.Fatalf("Scan error = %v", err)
			}
			if opp == nil {
				t.Fatal("Scan returned no opportunity")
			}

			want := decimal.RequireFromString(tt.wantNotional)
			if !opp.Notional.Equal(want) {
				t.Errorf("Notional = %s, want %s", opp.Notional, want)
			}
			if opp.DepthCapped != tt.wantCapped {
				t.Errorf("DepthCapped = %v, want %v", opp.DepthCapped, tt.wantCapped)
			}
		})
	}
}

func TestScanner_ReentrantScanIsRejected(t *testing.T) {
	s := newTestScanner(
		&fakePrices{scan: goodScan()},
		&fakeDepth{size: decimal.NewFromInt(10), ok: true},
		&fakeRef{price: decimal.NewFromInt(3000)},
		&fakeGas{gwei: 0.1},
		defaultConfig(),
	)

	s.inFlight.Store(true)
	_, err := s.Scan(context.Background())
	if apperror.GetCode(err) != apperror.CodeScanInFlight {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeScanInFlight)
	}

	s.inFlight.Store(false)
	if _, err := s.Scan(context.Background()); err != nil {
		t.Errorf("Scan after release error = %v, want nil", err)
	}
}

func TestScanner_NoSignalYieldsNothing(t *testing.T) {
	scan := goodScan()
	scan.HasOpportunity = false

	s := newTestScanner(
		&fakePrices{scan: scan},
		&fakeDepth{size: decimal.NewFromInt(10), ok: true},
		&fakeRef{price: decimal.NewFromInt(3000)},
		&fakeGas{gwei: 0.1},
		defaultConfig(),
	)

	opp, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error = %v", err)
	}
	if opp != nil {
		t.Error("Scan returned an opportunity with no signal")
	}
}
