package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var weiPerGwei = decimal.New(1, 9)

// GasPrice represents a gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei as a float, for metrics and logs.
func (p *GasPrice) Gwei() float64 {
	gwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(p.Wei),
		big.NewFloat(1e9),
	).Float64()
	return gwei
}

// GweiDecimal returns the price in gwei with full precision, for
// comparisons against configured ceilings.
func (p *GasPrice) GweiDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(p.Wei, 0).Div(weiPerGwei)
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total gas cost at the given price.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: price,
		TotalWei: new(big.Int).Mul(price.Wei, new(big.Int).SetUint64(gasLimit)),
	}
}

// TotalGwei returns the total cost in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	total, _ := new(big.Float).Quo(
		new(big.Float).SetInt(e.TotalWei),
		big.NewFloat(1e9),
	).Float64()
	return total
}
