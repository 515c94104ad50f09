package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/internal/asset"
)

var tenThousand = decimal.NewFromInt(10000)

// PoolRef points at one pool quoting a scan group's pair.
type PoolRef struct {
	Address common.Address
	Venue   VenueKind
}

// ScanGroup is a tradable pair plus every pool (any venue) quoting it.
// Static, defined at configuration time.
type ScanGroup struct {
	Name  string
	Base  *asset.Asset
	Quote *asset.Asset
	Pools []PoolRef

	// DecimalShift adjusts raw pool ratios into human price terms:
	// price = rawRatio * 10^DecimalShift. Fixed at config time.
	DecimalShift int32
}

// GroupScan is the outcome of pricing one scan group for one cycle.
type GroupScan struct {
	Group       string
	BuyPool     common.Address
	SellPool    common.Address
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	BuyFeeBps   decimal.Decimal
	SellFeeBps  decimal.Decimal
	GrossBps    decimal.Decimal
	NetBps      decimal.Decimal
	PricedPools int
	BlockNumber uint64

	// HasOpportunity is true when NetBps is strictly above the
	// configured epsilon floor.
	HasOpportunity bool
}

// CompareGroup reduces a set of successful pool prices for one group into
// a GroupScan. Fewer than two prices is absence of signal, not an error:
// the result carries HasOpportunity=false and zeroed spreads.
//
// Gross spread (bps) = (maxPrice - minPrice) / minPrice * 10000.
// Net spread subtracts both legs' fee tiers and the flash-loan premium.
func CompareGroup(group string, prices []PoolPrice, premiumBps, epsilonBps decimal.Decimal) GroupScan {
	scan := GroupScan{Group: group, PricedPools: len(prices)}
	if len(prices) < 2 {
		return scan
	}

	buy, sell := prices[0], prices[0]
	scan.BlockNumber = prices[0].BlockNumber
	for _, p := range prices[1:] {
		if p.Price.LessThan(buy.Price) {
			buy = p
		}
		if p.Price.GreaterThan(sell.Price) {
			sell = p
		}
		if p.BlockNumber > scan.BlockNumber {
			scan.BlockNumber = p.BlockNumber
		}
	}

	scan.BuyPool = buy.Pool
	scan.SellPool = sell.Pool
	scan.BuyPrice = buy.Price
	scan.SellPrice = sell.Price
	scan.BuyFeeBps = buy.FeeBps
	scan.SellFeeBps = sell.FeeBps

	if buy.Price.Sign() <= 0 {
		return scan
	}

	scan.GrossBps = sell.Price.Sub(buy.Price).Div(buy.Price).Mul(tenThousand)
	scan.NetBps = scan.GrossBps.Sub(buy.FeeBps).Sub(sell.FeeBps).Sub(premiumBps)
	scan.HasOpportunity = scan.NetBps.GreaterThan(epsilonBps)

	return scan
}
