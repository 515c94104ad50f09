// Package domain contains the core domain types for the execution context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FlashLoanRequest describes one two-leg arbitrage to execute atomically:
// borrow Amount of Asset, buy on BuyPool, sell on SellPool, repay plus
// premium, keep the difference.
type FlashLoanRequest struct {
	Asset    common.Address // borrowed token
	Amount   *big.Int       // borrow size in raw token units
	BuyPool  common.Address // cheaper leg
	SellPool common.Address // richer leg
	MinOut   *big.Int       // minimum acceptable proceeds, reverts below this
}
