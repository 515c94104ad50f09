// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oxarb/flasharb/business/blockchain/domain"
)

// HeadSource supplies the most recently observed chain head, fed by the
// node's websocket head stream with HTTP polling as fallback.
type HeadSource interface {
	// Head returns the last observed head. ok is false before the first
	// head arrives.
	Head() (domain.Head, bool)

	// State returns the current feed connection state.
	State() domain.ConnectionState
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested priority fee (EIP-1559).
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, data []byte, to string) (uint64, error)
}

// ChainReader answers point-in-time chain queries.
type ChainReader interface {
	// BlockNumber returns the current chain head height.
	BlockNumber(ctx context.Context) (uint64, error)

	// Balance returns an account's native-token balance in wei.
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}
