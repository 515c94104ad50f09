package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/business/execution/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	tracerName = "execution"
	meterName  = "execution"
)

var weiPerGwei = big.NewInt(1_000_000_000)

// ClientConfig holds execution settings.
type ClientConfig struct {
	// ExecutorKey is the signing key as 64 hex characters, with or
	// without a 0x prefix. Empty means dry-run only.
	ExecutorKey string

	// MaxGasPriceGwei aborts execution when the network is dearer.
	MaxGasPriceGwei decimal.Decimal

	// GasBufferPercent pads the gas estimate before submission.
	GasBufferPercent float64

	// SlippageBps is the tolerated shortfall on the sell leg.
	SlippageBps decimal.Decimal

	// FlashPremiumBps is the loan premium that must be repaid on top.
	FlashPremiumBps decimal.Decimal

	// MinWalletReserveWei is the gas-money floor the wallet must keep.
	MinWalletReserveWei *big.Int

	// TxTimeout bounds the wait for inclusion after broadcast.
	TxTimeout time.Duration
}

type clientMetrics struct {
	attempts   metric.Int64Counter
	rejections metric.Int64Counter
	fills      metric.Int64Counter
	reverts    metric.Int64Counter
}

// Client submits flash-loan arbitrage transactions after a series of
// pre-flight checks. Every check that fails rejects the attempt without
// broadcasting anything.
type Client struct {
	gateway ContractGateway
	gas     GasPricer
	balance BalanceReader
	config  ClientConfig
	logger  logger.LoggerInterface

	wallet     common.Address
	keyErr     error
	privateKey *ecdsa.PrivateKey

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates an execution client. An invalid signing key is not a
// constructor error: it surfaces as a rejection on the first attempt so
// the process can still run read-only.
func NewClient(
	gateway ContractGateway,
	gas GasPricer,
	balance BalanceReader,
	cfg ClientConfig,
	log logger.LoggerInterface,
) (*Client, error) {
	c := &Client{
		gateway: gateway,
		gas:     gas,
		balance: balance,
		config:  cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.ExecutorKey != "" {
		key, err := ParseSigningKey(cfg.ExecutorKey)
		if err != nil {
			c.keyErr = err
		} else {
			c.privateKey = key
			c.wallet = crypto.PubkeyToAddress(key.PublicKey)
		}
	}

	if err := c.initMetrics(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.attempts, err = meter.Int64Counter(
		"execution_attempts_total",
		metric.WithDescription("Total execution attempts"),
	)
	if err != nil {
		return err
	}

	c.metrics.rejections, err = meter.Int64Counter(
		"execution_rejections_total",
		metric.WithDescription("Attempts rejected before broadcast"),
	)
	if err != nil {
		return err
	}

	c.metrics.fills, err = meter.Int64Counter(
		"execution_fills_total",
		metric.WithDescription("Successfully mined executions"),
	)
	if err != nil {
		return err
	}

	c.metrics.reverts, err = meter.Int64Counter(
		"execution_reverts_total",
		metric.WithDescription("Executions mined but reverted"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Wallet returns the executor address, zero when no valid key is loaded.
func (c *Client) Wallet() common.Address {
	return c.wallet
}

// CanSign reports whether a valid signing key is loaded.
func (c *Client) CanSign() bool {
	return c.privateKey != nil
}

// MinOut computes the minimum acceptable proceeds for a borrow amount:
// the loan plus premium plus slippage allowance. Anything below reverts
// on chain instead of settling at a loss.
func (c *Client) MinOut(amount *big.Int) *big.Int {
	markup := decimal.New(1, 0).
		Add(c.config.FlashPremiumBps.Add(c.config.SlippageBps).Div(decimal.New(1, 4)))
	return decimal.NewFromBigInt(amount, 0).Mul(markup).BigInt()
}

// Execute runs the pre-flight checks and, if they all pass, submits the
// request and waits for inclusion. The returned Result is never nil; the
// error carries the same failure for callers that track error streaks.
func (c *Client) Execute(ctx context.Context, req *domain.FlashLoanRequest) (*domain.Result, error) {
	ctx, span := c.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("asset", req.Asset.Hex()),
			attribute.String("amount", req.Amount.String()),
		),
	)
	defer span.End()

	c.metrics.attempts.Add(ctx, 1)

	gasLimit, gasPrice, rejection, err := c.preflight(ctx, req)
	if rejection != nil {
		c.metrics.rejections.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", string(rejection.Reason))))
		span.SetAttributes(attribute.String("rejection", string(rejection.Reason)))
		return rejection, err
	}

	return c.submit(ctx, req, gasLimit, gasPrice)
}

// preflight validates the attempt end to end without moving funds. It
// returns the gas limit and price to submit with, or a rejection result
// paired with the error explaining it.
func (c *Client) preflight(ctx context.Context, req *domain.FlashLoanRequest) (uint64, *big.Int, *domain.Result, error) {
	// Gate 1: signing key present and valid.
	if c.config.ExecutorKey == "" {
		return 0, nil, domain.Rejected(domain.ReasonWalletNotConfigured),
			apperror.New(apperror.CodeWalletNotConfigured)
	}
	if c.keyErr != nil {
		return 0, nil, domain.Rejected(domain.ReasonWalletNotConfigured),
			apperror.New(apperror.CodeInvalidSigningKey, apperror.WithCause(c.keyErr))
	}

	// Gate 2: contract not paused.
	paused, err := c.gateway.Paused(ctx)
	if err != nil {
		return 0, nil, domain.Rejected(domain.ReasonPreflightReadFailed),
			apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
				apperror.WithContext("paused check"))
	}
	if paused {
		return 0, nil, domain.Rejected(domain.ReasonContractPaused),
			apperror.New(apperror.CodeContractPaused)
	}

	// Gate 3: wallet on the executor allowlist.
	authorized, err := c.gateway.IsExecutor(ctx, c.wallet)
	if err != nil {
		return 0, nil, domain.Rejected(domain.ReasonPreflightReadFailed),
			apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
				apperror.WithContext("isExecutor check"))
	}
	if !authorized {
		return 0, nil, domain.Rejected(domain.ReasonNotAuthorized),
			apperror.New(apperror.CodeNotAuthorized,
				apperror.WithContext(c.wallet.Hex()))
	}

	// Gate 4: gas price under the ceiling.
	gasPrice, err := c.gas.GasPriceWei(ctx)
	if err != nil {
		return 0, nil, domain.Rejected(domain.ReasonPreflightReadFailed),
			apperror.New(apperror.CodeRPCError, apperror.WithCause(err),
				apperror.WithContext("gas price"))
	}
	ceiling := c.config.MaxGasPriceGwei.Mul(decimal.NewFromBigInt(weiPerGwei, 0)).BigInt()
	if ceiling.Sign() > 0 && gasPrice.Cmp(ceiling) > 0 {
		c.logger.Warn(ctx, "gas price above ceiling, skipping execution",
			"gas_price_wei", gasPrice.String(),
			"ceiling_wei", ceiling.String(),
		)
		return 0, nil, domain.Rejected(domain.ReasonGasAboveCeiling),
			apperror.New(apperror.CodeGasAboveCeiling)
	}

	// Gate 5: wallet keeps its gas reserve.
	balance, err := c.balance.Balance(ctx, c.wallet)
	if err != nil {
		return 0, nil, domain.Rejected(domain.ReasonPreflightReadFailed),
			apperror.New(apperror.CodeRPCError, apperror.WithCause(err),
				apperror.WithContext("wallet balance"))
	}
	if c.config.MinWalletReserveWei != nil && balance.Cmp(c.config.MinWalletReserveWei) < 0 {
		return 0, nil, domain.Rejected(domain.ReasonInsufficientFunds),
			apperror.New(apperror.CodeInsufficientGasFunds,
				apperror.WithContext("balance "+balance.String()+" wei"))
	}

	// Gate 6: the request simulates cleanly. A revert here costs nothing.
	estimate, err := c.gateway.EstimateFlashLoan(ctx, c.wallet, req)
	if err != nil {
		return 0, nil, domain.Rejected(domain.ReasonEstimateFailed),
			apperror.New(apperror.CodeGasEstimationFailed, apperror.WithCause(err))
	}

	buffered := estimate + uint64(float64(estimate)*c.config.GasBufferPercent/100)
	return buffered, gasPrice, nil, nil
}

func (c *Client) submit(ctx context.Context, req *domain.FlashLoanRequest, gasLimit uint64, gasPrice *big.Int) (*domain.Result, error) {
	txHash, err := c.gateway.SubmitFlashLoan(ctx, req, gasLimit, gasPrice)
	if err != nil {
		c.logger.Error(ctx, "flash loan submission failed", "error", err)
		result := domain.Rejected(domain.ReasonSubmitFailed)
		return result, apperror.New(apperror.CodeTxSubmitFailed, apperror.WithCause(err))
	}

	c.logger.Info(ctx, "flash loan submitted",
		"tx", txHash.Hex(),
		"gas_limit", gasLimit,
		"gas_price_wei", gasPrice.String(),
	)

	waitCtx := ctx
	if c.config.TxTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.config.TxTimeout)
		defer cancel()
	}

	receipt, err := c.gateway.WaitMined(waitCtx, txHash)
	if err != nil {
		// The transaction is out there; it may still land after we stop
		// waiting. Callers must treat this as unknown, not as a clean miss.
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn(ctx, "transaction not included before timeout", "tx", txHash.Hex())
			return &domain.Result{
				Submitted: true,
				Reason:    domain.ReasonNotIncluded,
				TxHash:    txHash,
				GasCost:   new(big.Int),
				Timestamp: time.Now(),
			}, apperror.New(apperror.CodeTxNotIncluded, apperror.WithContext(txHash.Hex()))
		}
		return &domain.Result{
			Submitted: true,
			Reason:    domain.ReasonNotIncluded,
			TxHash:    txHash,
			GasCost:   new(big.Int),
			Timestamp: time.Now(),
		}, apperror.New(apperror.CodeTxNotIncluded, apperror.WithCause(err))
	}

	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(receipt.GasUsed))

	if receipt.Status == 0 {
		c.metrics.reverts.Add(ctx, 1)
		c.logger.Error(ctx, "flash loan reverted on chain",
			"tx", txHash.Hex(),
			"gas_used", receipt.GasUsed,
			"gas_cost_wei", gasCost.String(),
		)
		return &domain.Result{
			Submitted: true,
			Reason:    domain.ReasonReverted,
			TxHash:    txHash,
			GasUsed:   receipt.GasUsed,
			GasCost:   gasCost,
			Block:     receipt.BlockNumber.Uint64(),
			Timestamp: time.Now(),
		}, apperror.New(apperror.CodeTxReverted, apperror.WithContext(txHash.Hex()))
	}

	c.metrics.fills.Add(ctx, 1)
	c.logger.Info(ctx, "flash loan filled",
		"tx", txHash.Hex(),
		"block", receipt.BlockNumber.Uint64(),
		"gas_used", receipt.GasUsed,
	)

	return &domain.Result{
		Success:   true,
		Submitted: true,
		Reason:    domain.ReasonFilled,
		TxHash:    txHash,
		GasUsed:   receipt.GasUsed,
		GasCost:   gasCost,
		Block:     receipt.BlockNumber.Uint64(),
		Timestamp: time.Now(),
	}, nil
}

// ParseSigningKey accepts a 64-hex-character secp256k1 key, with or
// without a 0x prefix.
func ParseSigningKey(raw string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(raw, "0x")
	if len(trimmed) != 64 {
		return nil, apperror.New(apperror.CodeInvalidSigningKey,
			apperror.WithContext("key must be 64 hex characters"))
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidSigningKey, apperror.WithCause(err))
	}
	return key, nil
}
