// Package univ2 implements the VenueReader interface for constant-product pools.
package univ2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/business/pricing/app"
	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/cache"
	"github.com/oxarb/flasharb/internal/circuitbreaker"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	tracerName = "univ2"
	meterName  = "univ2"
)

// Ensure Reader implements VenueReader.
var _ app.VenueReader = (*Reader)(nil)

// readerMetrics holds OTEL metric instruments.
type readerMetrics struct {
	readsTotal  metric.Int64Counter
	readErrors  metric.Int64Counter
	readLatency metric.Float64Histogram
}

// Reader reads constant-product pools. Immutable pool metadata is cached
// forever after the first read; reserves are fetched on every call.
type Reader struct {
	client  *ethclient.Client
	pairABI abi.ABI

	metaCache *cache.Cache[common.Address, *domain.PoolMetadata]
	cb        *circuitbreaker.CircuitBreaker[[]byte]
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a constant-product venue reader.
func NewReader(client *ethclient.Client, log logger.LoggerInterface) (*Reader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	r := &Reader{
		client:    client,
		pairABI:   parsedABI,
		metaCache: cache.New[common.Address, *domain.PoolMetadata](0),
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("univ2-reader")),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.readsTotal, err = meter.Int64Counter(
		"univ2_pool_reads_total",
		metric.WithDescription("Total constant-product pool reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"univ2_pool_read_errors_total",
		metric.WithDescription("Total constant-product pool read errors"),
	)
	if err != nil {
		return err
	}

	r.metrics.readLatency, err = meter.Float64Histogram(
		"univ2_pool_read_latency_ms",
		metric.WithDescription("Pool read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Kind returns the AMM family this reader understands.
func (r *Reader) Kind() domain.VenueKind {
	return domain.VenueConstantProduct
}

// Metadata returns the pool's immutable facts, fetching token addresses
// on first touch and caching them for the process lifetime.
func (r *Reader) Metadata(ctx context.Context, pool common.Address) (*domain.PoolMetadata, error) {
	if meta, ok := r.metaCache.Get(ctx, pool); ok {
		return meta, nil
	}

	ctx, span := r.tracer.Start(ctx, "univ2.metadata",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	token0, err := r.readAddress(ctx, pool, "token0")
	if err != nil {
		span.SetStatus(codes.Error, "token0 read failed")
		return nil, apperror.New(apperror.CodePoolMetadataFailed,
			apperror.WithCause(err),
			apperror.WithContext("token0 for "+pool.Hex()))
	}
	token1, err := r.readAddress(ctx, pool, "token1")
	if err != nil {
		span.SetStatus(codes.Error, "token1 read failed")
		return nil, apperror.New(apperror.CodePoolMetadataFailed,
			apperror.WithCause(err),
			apperror.WithContext("token1 for "+pool.Hex()))
	}

	meta := &domain.PoolMetadata{
		Address: pool,
		Token0:  token0,
		Token1:  token1,
		FeeBps:  decimal.NewFromInt(PoolFeeBps),
		Venue:   domain.VenueConstantProduct,
	}

	// Entries are immutable; a racing double-populate writes equal values.
	r.metaCache.Set(ctx, pool, meta, 0)

	span.SetStatus(codes.Ok, "cached")
	return meta, nil
}

// Price reads reserves and derives price = reserve1/reserve0 adjusted by
// 10^decimalShift. Scan groups are configured so token0 is the base
// asset. A zero reserve on either side yields an error, never a
// divide-by-zero.
func (r *Reader) Price(ctx context.Context, pool common.Address, decimalShift int32) (*domain.PoolPrice, error) {
	ctx, span := r.tracer.Start(ctx, "univ2.price",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	start := time.Now()
	r.metrics.readsTotal.Add(ctx, 1)

	meta, err := r.Metadata(ctx, pool)
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "metadata failed")
		return nil, err
	}

	reserve0, reserve1, err := r.readReserves(ctx, pool)
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "reserves failed")
		return nil, err
	}

	r.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "empty reserves")
		return nil, apperror.New(apperror.CodePoolEmptyReserves,
			apperror.WithContext(pool.Hex()))
	}

	price := decimal.NewFromBigInt(reserve1, 0).
		Div(decimal.NewFromBigInt(reserve0, 0)).
		Shift(decimalShift)

	span.SetAttributes(attribute.String("price", price.String()))
	span.SetStatus(codes.Ok, "read")

	return &domain.PoolPrice{
		Pool:      pool,
		Price:     price,
		FeeBps:    meta.FeeBps,
		Liquidity: new(big.Int).Set(reserve0),
		Venue:     domain.VenueConstantProduct,
		Timestamp: time.Now(),
	}, nil
}

// Depth reports the base-side reserve as the pool's depth measure.
func (r *Reader) Depth(ctx context.Context, pool common.Address, baseDecimals int32) (*domain.PoolDepth, error) {
	ctx, span := r.tracer.Start(ctx, "univ2.depth",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	reserve0, reserve1, err := r.readReserves(ctx, pool)
	if err != nil {
		span.SetStatus(codes.Error, "reserves failed")
		return nil, err
	}
	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		span.SetStatus(codes.Error, "empty reserves")
		return nil, apperror.New(apperror.CodePoolEmptyReserves,
			apperror.WithContext(pool.Hex()))
	}

	price := decimal.NewFromBigInt(reserve1, 0).Div(decimal.NewFromBigInt(reserve0, 0))
	baseLiquidity := decimal.NewFromBigInt(reserve0, 0).Shift(-baseDecimals)

	span.SetStatus(codes.Ok, "read")

	return &domain.PoolDepth{
		Pool:          pool,
		Liquidity:     new(big.Int).Set(reserve0),
		BaseLiquidity: baseLiquidity,
		Price:         price,
		Venue:         domain.VenueConstantProduct,
	}, nil
}

func (r *Reader) readReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	result, err := r.call(ctx, pool, "getReserves")
	if err != nil {
		return nil, nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("getReserves for "+pool.Hex()))
	}

	outputs, err := r.pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode getReserves"))
	}
	if len(outputs) < 2 {
		return nil, nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext(fmt.Sprintf("unexpected getReserves outputs: %d", len(outputs))))
	}

	reserve0, ok0 := outputs[0].(*big.Int)
	reserve1, ok1 := outputs[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext("unexpected getReserves output types"))
	}

	return reserve0, reserve1, nil
}

func (r *Reader) readAddress(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	result, err := r.call(ctx, pool, method)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := r.pairABI.Unpack(method, result)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := outputs[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s output type", method)
	}
	return addr, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]byte, error) {
	callData, err := r.pairABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	return r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, ethereum.CallMsg{
			To:   &to,
			Data: callData,
		}, nil)
	})
}
