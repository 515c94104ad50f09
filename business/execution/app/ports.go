// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/oxarb/flasharb/business/execution/domain"
)

// ContractGateway talks to the deployed flash-loan arbitrage contract.
type ContractGateway interface {
	// Contract returns the current target contract address.
	Contract() common.Address

	// SetContract repoints the gateway at a new deployment. Takes effect
	// on the next call; in-flight calls finish against the old address.
	SetContract(addr common.Address)

	// Paused reads the contract's emergency pause flag.
	Paused(ctx context.Context) (bool, error)

	// IsExecutor reports whether the account is on the contract allowlist.
	IsExecutor(ctx context.Context, account common.Address) (bool, error)

	// ContractBalance reads the contract's holdings of a token.
	ContractBalance(ctx context.Context, token common.Address) (*big.Int, error)

	// EstimateFlashLoan dry-runs the request and returns the gas needed.
	// A revert during estimation surfaces here, before any funds move.
	EstimateFlashLoan(ctx context.Context, from common.Address, req *domain.FlashLoanRequest) (uint64, error)

	// SubmitFlashLoan signs and broadcasts the request.
	SubmitFlashLoan(ctx context.Context, req *domain.FlashLoanRequest, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)

	// WaitMined blocks until the transaction is included or ctx expires.
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// GasPricer supplies the current gas price in wei.
type GasPricer interface {
	GasPriceWei(ctx context.Context) (*big.Int, error)
}

// BalanceReader supplies an account's native-token balance in wei.
type BalanceReader interface {
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}
