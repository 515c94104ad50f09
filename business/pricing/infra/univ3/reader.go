// Package univ3 implements the VenueReader interface for concentrated-liquidity pools.
package univ3

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
	tracerName = "univ3"
	meterName  = "univ3"

	// sqrtPriceX96 and liquidity math runs well past float64; 256 bits
	// matches the EVM word size.
	bigFloatPrec = 256
)

// q96 = 2^96, the fixed-point scale of sqrtPriceX96.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// Ensure Reader implements VenueReader.
var _ app.VenueReader = (*Reader)(nil)

type readerMetrics struct {
	readsTotal  metric.Int64Counter
	readErrors  metric.Int64Counter
	readLatency metric.Float64Histogram
}

// Reader reads concentrated-liquidity pools. Token addresses and the fee
// tier are immutable per pool and cached after the first read.
type Reader struct {
	client  *ethclient.Client
	poolABI abi.ABI

	metaCache *cache.Cache[common.Address, *domain.PoolMetadata]
	cb        *circuitbreaker.CircuitBreaker[[]byte]
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a concentrated-liquidity venue reader.
func NewReader(client *ethclient.Client, log logger.LoggerInterface) (*Reader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}

	r := &Reader{
		client:    client,
		poolABI:   parsedABI,
		metaCache: cache.New[common.Address, *domain.PoolMetadata](0),
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("univ3-reader")),
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
		"univ3_pool_reads_total",
		metric.WithDescription("Total concentrated-liquidity pool reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"univ3_pool_read_errors_total",
		metric.WithDescription("Total concentrated-liquidity pool read errors"),
	)
	if err != nil {
		return err
	}

	r.metrics.readLatency, err = meter.Float64Histogram(
		"univ3_pool_read_latency_ms",
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
	return domain.VenueConcentratedLiquidity
}

// Metadata returns the pool's immutable facts. The on-chain fee is stored
// in hundredths of a bip (e.g. 3000 = 0.30%) and converted to bps here.
func (r *Reader) Metadata(ctx context.Context, pool common.Address) (*domain.PoolMetadata, error) {
	if meta, ok := r.metaCache.Get(ctx, pool); ok {
		return meta, nil
	}

	ctx, span := r.tracer.Start(ctx, "univ3.metadata",
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

	fee, err := r.readFee(ctx, pool)
	if err != nil {
		span.SetStatus(codes.Error, "fee read failed")
		return nil, apperror.New(apperror.CodePoolMetadataFailed,
			apperror.WithCause(err),
			apperror.WithContext("fee for "+pool.Hex()))
	}

	meta := &domain.PoolMetadata{
		Address: pool,
		Token0:  token0,
		Token1:  token1,
		FeeBps:  decimal.NewFromBigInt(fee, 0).Div(decimal.NewFromInt(100)),
		Venue:   domain.VenueConcentratedLiquidity,
	}

	r.metaCache.Set(ctx, pool, meta, 0)

	span.SetStatus(codes.Ok, "cached")
	return meta, nil
}

// Price reads slot0 and derives price = (sqrtPriceX96 / 2^96)^2 adjusted
// by 10^decimalShift. A zero sqrtPriceX96 means the pool is uninitialized.
func (r *Reader) Price(ctx context.Context, pool common.Address, decimalShift int32) (*domain.PoolPrice, error) {
	ctx, span := r.tracer.Start(ctx, "univ3.price",
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

	sqrtPriceX96, _, err := r.readSlot0(ctx, pool)
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "slot0 failed")
		return nil, err
	}

	liquidity, err := r.readLiquidity(ctx, pool)
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "liquidity failed")
		return nil, err
	}

	r.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if sqrtPriceX96.Sign() == 0 {
		r.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "uninitialized pool")
		return nil, apperror.New(apperror.CodePoolEmptyReserves,
			apperror.WithContext(pool.Hex()))
	}

	price := sqrtPriceX96ToPrice(sqrtPriceX96).Shift(decimalShift)

	span.SetAttributes(attribute.String("price", price.String()))
	span.SetStatus(codes.Ok, "read")

	return &domain.PoolPrice{
		Pool:      pool,
		Price:     price,
		FeeBps:    meta.FeeBps,
		Liquidity: liquidity,
		Venue:     domain.VenueConcentratedLiquidity,
		Timestamp: time.Now(),
	}, nil
}

// Depth approximates the base-token depth near the current tick as
// liquidity * 2^96 / sqrtPriceX96, scaled to whole base units. Only valid
// as a local estimate; the impact cap keeps trades inside its range.
func (r *Reader) Depth(ctx context.Context, pool common.Address, baseDecimals int32) (*domain.PoolDepth, error) {
	ctx, span := r.tracer.Start(ctx, "univ3.depth",
		trace.WithAttributes(attribute.String("pool", pool.Hex())),
	)
	defer span.End()

	sqrtPriceX96, tick, err := r.readSlot0(ctx, pool)
	if err != nil {
		span.SetStatus(codes.Error, "slot0 failed")
		return nil, err
	}
	if sqrtPriceX96.Sign() == 0 {
		span.SetStatus(codes.Error, "uninitialized pool")
		return nil, apperror.New(apperror.CodePoolEmptyReserves,
			apperror.WithContext(pool.Hex()))
	}

	liquidity, err := r.readLiquidity(ctx, pool)
	if err != nil {
		span.SetStatus(codes.Error, "liquidity failed")
		return nil, err
	}

	baseLiquidity := baseLiquidityFromL(liquidity, sqrtPriceX96, baseDecimals)

	span.SetStatus(codes.Ok, "read")

	return &domain.PoolDepth{
		Pool:          pool,
		Liquidity:     liquidity,
		BaseLiquidity: baseLiquidity,
		Price:         sqrtPriceX96ToPrice(sqrtPriceX96),
		Tick:          tick,
		Venue:         domain.VenueConcentratedLiquidity,
	}, nil
}

// sqrtPriceX96ToPrice converts the Q64.96 square-root price into a plain
// token1/token0 ratio. The square happens before the division so no
// precision is lost to an intermediate rounding.
func sqrtPriceX96ToPrice(sqrtPriceX96 *big.Int) decimal.Decimal {
	num := new(big.Float).SetPrec(bigFloatPrec).SetInt(new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96))
	den := new(big.Float).SetPrec(bigFloatPrec).SetInt(new(big.Int).Mul(q96, q96))

	ratio := new(big.Float).SetPrec(bigFloatPrec).Quo(num, den)
	out, _ := decimal.NewFromString(ratio.Text('f', 36))
	return out
}

// baseLiquidityFromL estimates the token0 amount backing the active range:
// amount0 ~= L * 2^96 / sqrtPriceX96, then scaled out of raw token units.
func baseLiquidityFromL(liquidity, sqrtPriceX96 *big.Int, baseDecimals int32) decimal.Decimal {
	raw := new(big.Int).Mul(liquidity, q96)
	raw.Div(raw, sqrtPriceX96)
	return decimal.NewFromBigInt(raw, 0).Shift(-baseDecimals)
}

func (r *Reader) readSlot0(ctx context.Context, pool common.Address) (*big.Int, int32, error) {
	result, err := r.call(ctx, pool, "slot0")
	if err != nil {
		return nil, 0, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("slot0 for "+pool.Hex()))
	}

	outputs, err := r.poolABI.Unpack("slot0", result)
	if err != nil {
		return nil, 0, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode slot0"))
	}
	if len(outputs) < 2 {
		return nil, 0, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext(fmt.Sprintf("unexpected slot0 outputs: %d", len(outputs))))
	}

	sqrtPriceX96, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, 0, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext("unexpected sqrtPriceX96 type"))
	}
	tick, ok := outputs[1].(*big.Int)
	if !ok {
		return nil, 0, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext("unexpected tick type"))
	}

	return sqrtPriceX96, int32(tick.Int64()), nil
}

func (r *Reader) readLiquidity(ctx context.Context, pool common.Address) (*big.Int, error) {
	result, err := r.call(ctx, pool, "liquidity")
	if err != nil {
		return nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("liquidity for "+pool.Hex()))
	}

	outputs, err := r.poolABI.Unpack("liquidity", result)
	if err != nil {
		return nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode liquidity"))
	}
	liquidity, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodePoolReadFailed,
			apperror.WithContext("unexpected liquidity type"))
	}

	return liquidity, nil
}

func (r *Reader) readFee(ctx context.Context, pool common.Address) (*big.Int, error) {
	result, err := r.call(ctx, pool, "fee")
	if err != nil {
		return nil, err
	}

	outputs, err := r.poolABI.Unpack("fee", result)
	if err != nil {
		return nil, err
	}

	// uint24 decodes as *big.Int.
	fee, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected fee output type")
	}
	return fee, nil
}

func (r *Reader) readAddress(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	result, err := r.call(ctx, pool, method)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := r.poolABI.Unpack(method, result)
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
	callData, err := r.poolABI.Pack(method, args...)
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
