package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/RPC errors
	CodeRPCConnectionFailed: "Failed to connect to RPC endpoint",
	CodeRPCError:            "RPC call failed",
	CodeContractCallFailed:  "Smart contract call failed",
	CodeGasEstimationFailed: "Gas estimation failed",

	// Pool / pricing errors
	CodePoolReadFailed:       "Failed to read pool state",
	CodePoolMetadataFailed:   "Failed to read pool metadata",
	CodePoolEmptyReserves:    "Pool has empty reserves",
	CodeUnknownVenue:         "Unknown venue kind",
	CodeReferencePriceFailed: "Failed to fetch reference price",
	CodeDepthUnavailable:     "Pool depth unavailable",

	// Scan errors
	CodeScanInFlight:     "A scan is already in flight",
	CodeGasAboveCeiling:  "Gas price above configured ceiling",
	CodeSpreadBelowFloor: "Net spread below minimum threshold",
	CodeProfitBelowFloor: "Estimated profit below minimum threshold",

	// Execution pre-flight errors
	CodeWalletNotConfigured:  "Executor wallet not configured",
	CodeInvalidSigningKey:    "Signing key is malformed",
	CodeContractPaused:       "Contract is paused",
	CodeNotAuthorized:        "Caller is not an authorized executor",
	CodeInsufficientGasFunds: "Insufficient native balance for gas",

	// Execution outcome errors
	CodeTxSubmitFailed: "Transaction submission failed",
	CodeTxReverted:     "Transaction reverted on-chain",
	CodeTxNotIncluded:  "Transaction was not included",

	// Strategy errors
	CodeStrategyNotFound: "Strategy not found",
	CodeStrategyHalted:   "Strategy halted by circuit breaker",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
