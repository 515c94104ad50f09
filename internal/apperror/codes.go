package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Domain-specific error codes
const (
	// Blockchain/RPC errors
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCError            Code = "RPC_ERROR"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed Code = "GAS_ESTIMATION_FAILED"

	// Pool / pricing errors
	CodePoolReadFailed       Code = "POOL_READ_FAILED"
	CodePoolMetadataFailed   Code = "POOL_METADATA_FAILED"
	CodePoolEmptyReserves    Code = "POOL_EMPTY_RESERVES"
	CodeUnknownVenue         Code = "UNKNOWN_VENUE"
	CodeReferencePriceFailed Code = "REFERENCE_PRICE_FAILED"
	CodeDepthUnavailable     Code = "DEPTH_UNAVAILABLE"

	// Scan errors
	CodeScanInFlight     Code = "SCAN_IN_FLIGHT"
	CodeGasAboveCeiling  Code = "GAS_ABOVE_CEILING"
	CodeSpreadBelowFloor Code = "SPREAD_BELOW_FLOOR"
	CodeProfitBelowFloor Code = "PROFIT_BELOW_FLOOR"

	// Execution pre-flight errors
	CodeWalletNotConfigured  Code = "WALLET_NOT_CONFIGURED"
	CodeInvalidSigningKey    Code = "INVALID_SIGNING_KEY"
	CodeContractPaused       Code = "CONTRACT_PAUSED"
	CodeNotAuthorized        Code = "NOT_AUTHORIZED"
	CodeInsufficientGasFunds Code = "INSUFFICIENT_GAS_FUNDS"

	// Execution outcome errors
	CodeTxSubmitFailed Code = "TX_SUBMIT_FAILED"
	CodeTxReverted     Code = "TX_REVERTED"
	CodeTxNotIncluded  Code = "TX_NOT_INCLUDED"

	// Strategy errors
	CodeStrategyNotFound Code = "STRATEGY_NOT_FOUND"
	CodeStrategyHalted   Code = "STRATEGY_HALTED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
