// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/business/pricing/domain"
)

// VenueReader reads a single pool on a single AMM family.
// Implementations cache immutable metadata internally; Price and Depth
// always hit the chain.
type VenueReader interface {
	// Kind returns the AMM family this reader understands.
	Kind() domain.VenueKind

	// Metadata returns the pool's immutable facts, cached after first read.
	Metadata(ctx context.Context, pool common.Address) (*domain.PoolMetadata, error)

	// Price reads the instantaneous price and liquidity. decimalShift is
	// the scan group's configured adjustment (price *= 10^decimalShift).
	Price(ctx context.Context, pool common.Address, decimalShift int32) (*domain.PoolPrice, error)

	// Depth reads the pool's current depth for trade sizing. baseDecimals
	// is the base token's decimals, used to express BaseLiquidity in
	// whole base units.
	Depth(ctx context.Context, pool common.Address, baseDecimals int32) (*domain.PoolDepth, error)
}

// ReferencePricer supplies the base asset's price in quote-currency terms,
// used to convert bps spreads into absolute profit estimates.
type ReferencePricer interface {
	ReferencePrice(ctx context.Context) (decimal.Decimal, error)
}
