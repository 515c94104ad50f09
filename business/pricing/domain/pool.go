// Package domain contains the core domain types for the pricing context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// VenueKind identifies the AMM family a pool belongs to.
type VenueKind string

const (
	// VenueConstantProduct is a x*y=k pool (Uniswap V2 style).
	VenueConstantProduct VenueKind = "constant_product"

	// VenueConcentratedLiquidity is a tick-based pool (Uniswap V3 style).
	VenueConcentratedLiquidity VenueKind = "concentrated_liquidity"
)

// Valid reports whether the venue kind is known.
func (v VenueKind) Valid() bool {
	return v == VenueConstantProduct || v == VenueConcentratedLiquidity
}

// PoolMetadata holds the immutable facts about an on-chain pool.
// Safe to cache for the process lifetime, keyed by pool address.
type PoolMetadata struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	FeeBps  decimal.Decimal
	Venue   VenueKind
}

// PoolPrice is one point-in-time price observation for a pool.
// Price is the quote/base ratio after decimal adjustment; it is
// only constructed for successful reads, so Price is always > 0.
type PoolPrice struct {
	Pool        common.Address
	Price       decimal.Decimal
	FeeBps      decimal.Decimal
	Liquidity   *big.Int
	Venue       VenueKind
	BlockNumber uint64
	Timestamp   time.Time
}
