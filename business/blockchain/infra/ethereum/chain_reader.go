package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/circuitbreaker"
	"github.com/oxarb/flasharb/internal/logger"
)

// ChainReader answers point-in-time chain queries over the shared RPC
// client: current block height and account balances.
type ChainReader struct {
	client *ethclient.Client
	logger logger.LoggerInterface

	blockCB   *circuitbreaker.CircuitBreaker[uint64]
	balanceCB *circuitbreaker.CircuitBreaker[*big.Int]

	tracer trace.Tracer
}

// NewChainReader creates a chain reader over an already-connected client.
func NewChainReader(client *ethclient.Client, log logger.LoggerInterface) *ChainReader {
	return &ChainReader{
		client:    client,
		logger:    log,
		blockCB:   circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("chain-reader-block")),
		balanceCB: circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("chain-reader-balance")),
		tracer:    otel.Tracer(tracerName),
	}
}

// BlockNumber returns the current chain head height.
func (r *ChainReader) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, span := r.tracer.Start(ctx, "chain.block_number")
	defer span.End()

	number, err := r.blockCB.Execute(func() (uint64, error) {
		return r.client.BlockNumber(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return 0, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get block number"))
	}

	span.SetAttributes(attribute.Int64("block", int64(number)))
	span.SetStatus(codes.Ok, "fetched")
	return number, nil
}

// Balance returns the native-token balance of an account in wei.
func (r *ChainReader) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "chain.balance",
		trace.WithAttributes(attribute.String("account", account.Hex())),
	)
	defer span.End()

	balance, err := r.balanceCB.Execute(func() (*big.Int, error) {
		return r.client.BalanceAt(ctx, account, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get balance for "+account.Hex()))
	}

	span.SetStatus(codes.Ok, "fetched")
	return balance, nil
}
