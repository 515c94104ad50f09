package app

import (
	"context"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/asset"
	"github.com/oxarb/flasharb/internal/logger"
)

// fakeReader serves canned prices and depths keyed by pool address.
type fakeReader struct {
	kind   domain.VenueKind
	prices map[common.Address]*domain.PoolPrice
	depths map[common.Address]*domain.PoolDepth
}

func (f *fakeReader) Kind() domain.VenueKind { return f.kind }

func (f *fakeReader) Metadata(ctx context.Context, pool common.Address) (*domain.PoolMetadata, error) {
	return &domain.PoolMetadata{Address: pool, Venue: f.kind}, nil
}

func (f *fakeReader) Price(ctx context.Context, pool common.Address, decimalShift int32) (*domain.PoolPrice, error) {
	price, ok := f.prices[pool]
	if !ok {
		return nil, apperror.New(apperror.CodePoolReadFailed, apperror.WithContext(pool.Hex()))
	}
	return price, nil
}

func (f *fakeReader) Depth(ctx context.Context, pool common.Address, baseDecimals int32) (*domain.PoolDepth, error) {
	depth, ok := f.depths[pool]
	if !ok {
		return nil, apperror.New(apperror.CodeDepthUnavailable, apperror.WithContext(pool.Hex()))
	}
	return depth, nil
}

var (
	testWETH = asset.NewAsset(asset.NewTokenAssetID(42161,
		common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")), "WETH", 18)
	testUSDC = asset.NewAsset(asset.NewTokenAssetID(42161,
		common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")), "USDC", 6)

	poolV2 = common.HexToAddress("0x0000000000000000000000000000000000000011")
	poolV3 = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

func testGroup() domain.ScanGroup {
	return domain.ScanGroup{
		Name:  "weth-usdc",
		Base:  testWETH,
		Quote: testUSDC,
		Pools: []domain.PoolRef{
			{Address: poolV2, Venue: domain.VenueConstantProduct},
			{Address: poolV3, Venue: domain.VenueConcentratedLiquidity},
		},
		DecimalShift: -12,
	}
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func poolPrice(pool common.Address, price, feeBps string, venue domain.VenueKind) *domain.PoolPrice {
	return &domain.PoolPrice{
		Pool:   pool,
		Price:  decimal.RequireFromString(price),
		FeeBps: decimal.RequireFromString(feeBps),
		Venue:  venue,
	}
}

func testReaders(v2, v3 *fakeReader) map[domain.VenueKind]VenueReader {
	return map[domain.VenueKind]VenueReader{
		domain.VenueConstantProduct:       v2,
		domain.VenueConcentratedLiquidity: v3,
	}
}

func TestOracle_ScanGroup(t *testing.T) {
	v2 := &fakeReader{
		kind:   domain.VenueConstantProduct,
		prices: map[common.Address]*domain.PoolPrice{poolV2: poolPrice(poolV2, "3000", "30", domain.VenueConstantProduct)},
	}
	v3 := &fakeReader{
		kind:   domain.VenueConcentratedLiquidity,
		prices: map[common.Address]*domain.PoolPrice{poolV3: poolPrice(poolV3, "3060", "5", domain.VenueConcentratedLiquidity)},
	}

	oracle := NewOracle([]domain.ScanGroup{testGroup()}, testReaders(v2, v3), nil, OracleConfig{
		FlashPremiumBps: decimal.NewFromInt(9),
		EpsilonBps:      decimal.NewFromInt(1),
	}, testLogger())

	scan := oracle.ScanGroup(context.Background(), testGroup())

	if scan.PricedPools != 2 {
		t.Fatalf("PricedPools = %d, want 2", scan.PricedPools)
	}
	if scan.BuyPool != poolV2 {
		t.Errorf("BuyPool = %s, want %s", scan.BuyPool.Hex(), poolV2.Hex())
	}
	if scan.SellPool != poolV3 {
		t.Errorf("SellPool = %s, want %s", scan.SellPool.Hex(), poolV3.Hex())
	}

	// gross = 60/3000*10000 = 200; net = 200 - 30 - 5 - 9 = 156
	wantNet := decimal.NewFromInt(156)
	if !scan.NetBps.Equal(wantNet) {
		t.Errorf("NetBps = %s, want %s", scan.NetBps, wantNet)
	}
	if !scan.HasOpportunity {
		t.Error("HasOpportunity = false, want true")
	}
}

func TestOracle_ScanGroup_FailedPoolIsExcluded(t *testing.T) {
	// V3 pool read fails; the group drops below quorum and yields no signal.
	v2 := &fakeReader{
		kind:   domain.VenueConstantProduct,
		prices: map[common.Address]*domain.PoolPrice{poolV2: poolPrice(poolV2, "3000", "30", domain.VenueConstantProduct)},
	}
	v3 := &fakeReader{kind: domain.VenueConcentratedLiquidity}

	oracle := NewOracle([]domain.ScanGroup{testGroup()}, testReaders(v2, v3), nil, OracleConfig{
		FlashPremiumBps: decimal.NewFromInt(9),
		EpsilonBps:      decimal.NewFromInt(1),
	}, testLogger())

	scan := oracle.ScanGroup(context.Background(), testGroup())

	if scan.PricedPools != 1 {
		t.Fatalf("PricedPools = %d, want 1", scan.PricedPools)
	}
	if scan.HasOpportunity {
		t.Error("HasOpportunity = true below quorum, want false")
	}
}

func TestOracle_ScanGroup_UnknownVenueIsExcluded(t *testing.T) {
	group := testGroup()
	group.Pools = append(group.Pools, domain.PoolRef{
		Address: common.HexToAddress("0x0000000000000000000000000000000000000033"),
		Venue:   domain.VenueKind("balancer"),
	})

	v2 := &fakeReader{
		kind:   domain.VenueConstantProduct,
		prices: map[common.Address]*domain.PoolPrice{poolV2: poolPrice(poolV2, "3000", "30", domain.VenueConstantProduct)},
	}
	v3 := &fakeReader{
		kind:   domain.VenueConcentratedLiquidity,
		prices: map[common.Address]*domain.PoolPrice{poolV3: poolPrice(poolV3, "3010", "5", domain.VenueConcentratedLiquidity)},
	}

	oracle := NewOracle([]domain.ScanGroup{group}, testReaders(v2, v3), nil, OracleConfig{}, testLogger())

	scan := oracle.ScanGroup(context.Background(), group)
	if scan.PricedPools != 2 {
		t.Errorf("PricedPools = %d, want 2 (unknown venue excluded)", scan.PricedPools)
	}
}

func TestOracle_BestOpportunity(t *testing.T) {
	groupA := testGroup()

	poolB1 := common.HexToAddress("0x0000000000000000000000000000000000000044")
	poolB2 := common.HexToAddress("0x0000000000000000000000000000000000000055")
	groupB := domain.ScanGroup{
		Name:  "weth-usdt",
		Base:  testWETH,
		Quote: testUSDC,
		Pools: []domain.PoolRef{
			{Address: poolB1, Venue: domain.VenueConstantProduct},
			{Address: poolB2, Venue: domain.VenueConcentratedLiquidity},
		},
	}

	v2 := &fakeReader{
		kind: domain.VenueConstantProduct,
		prices: map[common.Address]*domain.PoolPrice{
			poolV2: poolPrice(poolV2, "3000", "30", domain.VenueConstantProduct),
			poolB1: poolPrice(poolB1, "3000", "30", domain.VenueConstantProduct),
		},
	}
	v3 := &fakeReader{
		kind: domain.VenueConcentratedLiquidity,
		prices: map[common.Address]*domain.PoolPrice{
			poolV3: poolPrice(poolV3, "3030", "5", domain.VenueConcentratedLiquidity),
			poolB2: poolPrice(poolB2, "3090", "5", domain.VenueConcentratedLiquidity),
		},
	}

	oracle := NewOracle([]domain.ScanGroup{groupA, groupB}, testReaders(v2, v3), nil, OracleConfig{
		FlashPremiumBps: decimal.NewFromInt(9),
		EpsilonBps:      decimal.NewFromInt(1),
	}, testLogger())

	best, found := oracle.BestOpportunity(context.Background())
	if !found {
		t.Fatal("no opportunity found, want one")
	}
	if best.Group != "weth-usdt" {
		t.Errorf("best group = %s, want weth-usdt", best.Group)
	}
}

func TestOracle_GroupByName(t *testing.T) {
	oracle := NewOracle([]domain.ScanGroup{testGroup()}, nil, nil, OracleConfig{}, testLogger())

	if _, err := oracle.GroupByName("weth-usdc"); err != nil {
		t.Errorf("GroupByName(weth-usdc) error = %v", err)
	}

	_, err := oracle.GroupByName("missing")
	if err == nil {
		t.Fatal("GroupByName(missing) error = nil, want not-found")
	}
	if apperror.GetCode(err) != apperror.CodeNotFound {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeNotFound)
	}
}
