package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var opportunitySeq atomic.Uint64

// NewOpportunityID produces an id that is unique within the process and
// sorts roughly by discovery time: unix millis plus a monotonic counter.
func NewOpportunityID(now time.Time) string {
	return fmt.Sprintf("%d-%d", now.UnixMilli(), opportunitySeq.Add(1))
}

// Opportunity is one executable arbitrage candidate that cleared every
// scanner gate. Notional is in whole base units; EstProfitUSD already
// accounts for fees and the flash premium via the net spread.
type Opportunity struct {
	ID    string
	Group string
	Pair  string

	BuyPool   common.Address
	SellPool  common.Address
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal

	GrossBps decimal.Decimal
	NetBps   decimal.Decimal

	BaseAsset    common.Address
	BaseDecimals uint8
	Notional     decimal.Decimal
	DepthCapped  bool

	RefPrice     decimal.Decimal
	EstProfitUSD decimal.Decimal

	BlockNumber uint64
	Timestamp   time.Time
}

// NotionalRaw converts the whole-unit notional into raw token units.
func (o *Opportunity) NotionalRaw() decimal.Decimal {
	return o.Notional.Shift(int32(o.BaseDecimals))
}
