package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/business/execution/app"
	"github.com/oxarb/flasharb/business/execution/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/circuitbreaker"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	tracerName = "execution-gateway"

	// receiptPollInterval is how often WaitMined checks for inclusion.
	// L2 blocks land sub-second; polling faster just burns RPC quota.
	receiptPollInterval = 500 * time.Millisecond
)

// Ensure Gateway implements ContractGateway.
var _ app.ContractGateway = (*Gateway)(nil)

// Gateway talks to the deployed flash-loan arbitrage contract.
type Gateway struct {
	client     *ethclient.Client
	contract   common.Address
	contractMu sync.RWMutex
	chainID    *big.Int
	key        *ecdsa.PrivateKey
	wallet     common.Address

	abi    abi.ABI
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewGateway creates a contract gateway. key may be nil for read-only use;
// SubmitFlashLoan then fails, but the safety reads still work.
func NewGateway(
	client *ethclient.Client,
	contract common.Address,
	chainID uint64,
	key *ecdsa.PrivateKey,
	log logger.LoggerInterface,
) (*Gateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(FlashArbABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	g := &Gateway{
		client:   client,
		contract: contract,
		chainID:  new(big.Int).SetUint64(chainID),
		key:      key,
		abi:      parsedABI,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("flasharb-contract")),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if key != nil {
		g.wallet = crypto.PubkeyToAddress(key.PublicKey)
	}

	return g, nil
}

// Contract returns the current target contract address.
func (g *Gateway) Contract() common.Address {
	g.contractMu.RLock()
	defer g.contractMu.RUnlock()
	return g.contract
}

// SetContract repoints the gateway at a new deployment.
func (g *Gateway) SetContract(addr common.Address) {
	g.contractMu.Lock()
	g.contract = addr
	g.contractMu.Unlock()
}

// Paused reads the contract's emergency pause flag.
func (g *Gateway) Paused(ctx context.Context) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "contract.paused")
	defer span.End()

	var paused bool
	if err := g.read(ctx, "paused", &paused); err != nil {
		span.SetStatus(codes.Error, "read failed")
		return false, err
	}

	span.SetAttributes(attribute.Bool("paused", paused))
	return paused, nil
}

// IsExecutor reports whether the account is on the contract allowlist.
func (g *Gateway) IsExecutor(ctx context.Context, account common.Address) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "contract.is_executor",
		trace.WithAttributes(attribute.String("account", account.Hex())),
	)
	defer span.End()

	var authorized bool
	if err := g.read(ctx, "isExecutor", &authorized, account); err != nil {
		span.SetStatus(codes.Error, "read failed")
		return false, err
	}

	span.SetAttributes(attribute.Bool("authorized", authorized))
	return authorized, nil
}

// ContractBalance reads the contract's holdings of a token.
func (g *Gateway) ContractBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "contract.balance",
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	callData, err := g.abi.Pack("getBalance", token)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	result, err := g.call(ctx, callData)
	if err != nil {
		span.SetStatus(codes.Error, "read failed")
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext("getBalance"))
	}

	outputs, err := g.abi.Unpack("getBalance", result)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}
	balance, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected getBalance output type"))
	}

	return balance, nil
}

// EstimateFlashLoan dry-runs the request and returns the gas needed.
func (g *Gateway) EstimateFlashLoan(ctx context.Context, from common.Address, req *domain.FlashLoanRequest) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "contract.estimate_flash_loan",
		trace.WithAttributes(
			attribute.String("asset", req.Asset.Hex()),
			attribute.String("amount", req.Amount.String()),
		),
	)
	defer span.End()

	callData, err := g.packRequest(req)
	if err != nil {
		return 0, err
	}

	contract := g.Contract()
	gas, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: callData,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("requestFlashLoan simulation"))
	}

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	return gas, nil
}

// SubmitFlashLoan signs and broadcasts the request.
func (g *Gateway) SubmitFlashLoan(ctx context.Context, req *domain.FlashLoanRequest, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	ctx, span := g.tracer.Start(ctx, "contract.submit_flash_loan",
		trace.WithAttributes(
			attribute.String("asset", req.Asset.Hex()),
			attribute.String("amount", req.Amount.String()),
			attribute.Int64("gas_limit", int64(gasLimit)),
		),
	)
	defer span.End()

	if g.key == nil {
		return common.Hash{}, apperror.New(apperror.CodeWalletNotConfigured)
	}

	callData, err := g.packRequest(req)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := g.client.PendingNonceAt(ctx, g.wallet)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.New(apperror.CodeTxSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext("pending nonce"))
	}

	contract := g.Contract()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     callData,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.New(apperror.CodeTxSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext("sign"))
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return common.Hash{}, apperror.New(apperror.CodeTxSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext("broadcast"))
	}

	hash := signed.Hash()
	span.SetAttributes(attribute.String("tx", hash.Hex()))
	span.SetStatus(codes.Ok, "submitted")

	return hash, nil
}

// WaitMined polls for the transaction receipt until inclusion or ctx expiry.
func (g *Gateway) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, span := g.tracer.Start(ctx, "contract.wait_mined",
		trace.WithAttributes(attribute.String("tx", txHash.Hex())),
	)
	defer span.End()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			span.SetAttributes(attribute.Int64("block", receipt.BlockNumber.Int64()))
			return receipt, nil
		}
		if err != ethereum.NotFound {
			g.logger.Debug(ctx, "receipt poll failed, retrying", "tx", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "wait aborted")
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gateway) packRequest(req *domain.FlashLoanRequest) ([]byte, error) {
	callData, err := g.abi.Pack("requestFlashLoan",
		req.Asset, req.Amount, req.BuyPool, req.SellPool, req.MinOut)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("encode requestFlashLoan"))
	}
	return callData, nil
}

func (g *Gateway) read(ctx context.Context, method string, out interface{}, args ...interface{}) error {
	callData, err := g.abi.Pack(method, args...)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	result, err := g.call(ctx, callData)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	outputs, err := g.abi.Unpack(method, result)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	switch target := out.(type) {
	case *bool:
		value, ok := outputs[0].(bool)
		if !ok {
			return apperror.New(apperror.CodeContractCallFailed,
				apperror.WithContext("unexpected "+method+" output type"))
		}
		*target = value
	default:
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unsupported output target for "+method))
	}

	return nil
}

func (g *Gateway) call(ctx context.Context, callData []byte) ([]byte, error) {
	contract := g.Contract()
	return g.cb.Execute(func() ([]byte, error) {
		return g.client.CallContract(ctx, ethereum.CallMsg{
			To:   &contract,
			Data: callData,
		}, nil)
	})
}
