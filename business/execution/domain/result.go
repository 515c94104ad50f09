package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Reason classifies why an execution attempt ended the way it did.
type Reason string

const (
	ReasonFilled Reason = "filled"

	// Pre-flight rejections; nothing was submitted.
	ReasonWalletNotConfigured Reason = "wallet_not_configured"
	ReasonContractPaused      Reason = "contract_paused"
	ReasonNotAuthorized       Reason = "not_authorized"
	ReasonGasAboveCeiling     Reason = "gas_above_ceiling"
	ReasonInsufficientFunds   Reason = "insufficient_gas_funds"

	// ReasonPreflightReadFailed means a pre-flight RPC read (pause flag,
	// allowlist, gas price, balance) could not complete. Infrastructure
	// failure, not a verdict on the trade.
	ReasonPreflightReadFailed Reason = "preflight_read_failed"

	// ReasonEstimateFailed means the dry-run itself reverted: the chain
	// evaluated the trade and said no.
	ReasonEstimateFailed Reason = "estimate_failed"

	// Post-submission failures; a transaction exists on chain or in the pool.
	ReasonSubmitFailed Reason = "submit_failed"
	ReasonReverted     Reason = "reverted"
	ReasonNotIncluded  Reason = "not_included"
)

// Result is the outcome of one execution attempt. Submitted distinguishes
// pre-flight rejections (no transaction ever left the process) from
// failures after broadcast, which may still have cost gas.
type Result struct {
	Success   bool
	Submitted bool
	Reason    Reason
	TxHash    common.Hash
	GasUsed   uint64
	GasCost   *big.Int // wei actually spent, zero unless Submitted
	Block     uint64
	Timestamp time.Time
}

// Rejected builds a pre-flight rejection result.
func Rejected(reason Reason) *Result {
	return &Result{
		Success:   false,
		Submitted: false,
		Reason:    reason,
		GasCost:   new(big.Int),
		Timestamp: time.Now(),
	}
}
