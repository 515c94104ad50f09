package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	blockchainDomain "github.com/oxarb/flasharb/business/blockchain/domain"
	pricingDomain "github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/business/strategy/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

var bpsScale = decimal.New(1, 4)

// PriceSource is the slice of the oracle the scanner needs.
type PriceSource interface {
	ScanGroup(ctx context.Context, group pricingDomain.ScanGroup) pricingDomain.GroupScan
	BestOpportunity(ctx context.Context) (pricingDomain.GroupScan, bool)
	GroupByName(name string) (pricingDomain.ScanGroup, error)
}

// DepthSource is the slice of the depth monitor the scanner needs.
type DepthSource interface {
	SafeSizeForLegs(ctx context.Context, group pricingDomain.ScanGroup, buyPool, sellPool common.Address) (decimal.Decimal, bool)
}

// ReferenceSource supplies the base asset's reference price.
type ReferenceSource interface {
	ReferencePrice(ctx context.Context) (decimal.Decimal, error)
}

// GasSource supplies the current gas price.
type GasSource interface {
	GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error)
}

// BlockSource supplies the current chain head.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// ScannerConfig holds one scanner's thresholds. All floors are strict:
// a value exactly at a floor does not pass.
type ScannerConfig struct {
	// Group restricts the scanner to one scan group by name. Empty means
	// evaluate every group and take the best.
	Group string

	MinSpreadBps          decimal.Decimal
	MinProfitUSD          decimal.Decimal
	MaxNotional           decimal.Decimal // whole base units
	ExceptionalSpreadBps  decimal.Decimal
	ExceptionalMultiplier decimal.Decimal
	MaxGasPriceGwei       decimal.Decimal
}

// Scanner runs one full detection pass per call: gas gate, reference
// price, spread comparison, sizing, profit floor. A nil opportunity with
// a nil error means the market offered nothing this cycle.
type Scanner struct {
	prices PriceSource
	depth  DepthSource
	ref    ReferenceSource
	gas    GasSource
	blocks BlockSource
	config ScannerConfig
	logger logger.LoggerInterface

	inFlight atomic.Bool
	tracer   trace.Tracer
}

// NewScanner creates a Scanner.
func NewScanner(
	prices PriceSource,
	depth DepthSource,
	ref ReferenceSource,
	gas GasSource,
	blocks BlockSource,
	cfg ScannerConfig,
	log logger.LoggerInterface,
) *Scanner {
	return &Scanner{
		prices: prices,
		depth:  depth,
		ref:    ref,
		gas:    gas,
		blocks: blocks,
		config: cfg,
		logger: log,
		tracer: otel.Tracer("strategy-scanner"),
	}
}

// Scan runs one detection pass. Re-entrant calls while a pass is running
// are rejected, never queued.
func (s *Scanner) Scan(ctx context.Context) (*domain.Opportunity, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeScanInFlight)
	}
	defer s.inFlight.Store(false)

	ctx, span := s.tracer.Start(ctx, "scanner.scan")
	defer span.End()

	// Gate: gas ceiling. Expensive blocks are absence of signal, not a
	// failure; the streak counter must not move.
	gasPrice, err := s.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeRPCError, apperror.WithCause(err),
			apperror.WithContext("gas price for scan"))
	}
	if s.config.MaxGasPriceGwei.Sign() > 0 && gasPrice.GweiDecimal().GreaterThan(s.config.MaxGasPriceGwei) {
		s.logger.Info(ctx, "gas above ceiling, skipping cycle",
			"gas_gwei", gasPrice.GweiDecimal().StringFixed(3),
			"ceiling_gwei", s.config.MaxGasPriceGwei.String(),
		)
		span.SetAttributes(attribute.String("outcome", "gas_above_ceiling"))
		return nil, nil
	}

	// Gate: reference price. Without it profit cannot be valued, so this
	// is a genuine failure.
	refPrice, err := s.ref.ReferencePrice(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeReferencePriceFailed, apperror.WithCause(err))
	}

	scan, ok := s.bestScan(ctx)
	if !ok {
		span.SetAttributes(attribute.String("outcome", "no_signal"))
		return nil, nil
	}

	// Gate: spread floor, strictly greater-than.
	if !scan.NetBps.GreaterThan(s.config.MinSpreadBps) {
		s.logger.Debug(ctx, "net spread below floor",
			"group", scan.Group,
			"net_bps", scan.NetBps.StringFixed(2),
			"floor_bps", s.config.MinSpreadBps.String(),
		)
		span.SetAttributes(attribute.String("outcome", "below_spread_floor"))
		return nil, nil
	}

	group, err := s.prices.GroupByName(scan.Group)
	if err != nil {
		return nil, err
	}

	notional, depthCapped := s.size(ctx, group, scan)

	// Gate: profit floor, strictly greater-than. Profit is valued in
	// quote terms off the reference price.
	estProfit := notional.Mul(refPrice).Mul(scan.NetBps).Div(bpsScale)
	if !estProfit.GreaterThan(s.config.MinProfitUSD) {
		s.logger.Debug(ctx, "estimated profit below floor",
			"group", scan.Group,
			"est_profit_usd", estProfit.StringFixed(2),
			"floor_usd", s.config.MinProfitUSD.String(),
		)
		span.SetAttributes(attribute.String("outcome", "below_profit_floor"))
		return nil, nil
	}

	block := scan.BlockNumber
	if block == 0 {
		if head, err := s.blocks.BlockNumber(ctx); err == nil {
			block = head
		}
	}

	now := time.Now()
	opp := &domain.Opportunity{
		ID:           domain.NewOpportunityID(now),
		Group:        scan.Group,
		Pair:         group.Base.Symbol() + "/" + group.Quote.Symbol(),
		BuyPool:      scan.BuyPool,
		SellPool:     scan.SellPool,
		BuyPrice:     scan.BuyPrice,
		SellPrice:    scan.SellPrice,
		GrossBps:     scan.GrossBps,
		NetBps:       scan.NetBps,
		BaseAsset:    group.Base.Address(),
		BaseDecimals: group.Base.Decimals(),
		Notional:     notional,
		DepthCapped:  depthCapped,
		RefPrice:     refPrice,
		EstProfitUSD: estProfit,
		BlockNumber:  block,
		Timestamp:    now,
	}

	span.SetAttributes(
		attribute.String("outcome", "opportunity"),
		attribute.String("opportunity_id", opp.ID),
		attribute.String("net_bps", opp.NetBps.StringFixed(2)),
	)

	return opp, nil
}

func (s *Scanner) bestScan(ctx context.Context) (pricingDomain.GroupScan, bool) {
	if s.config.Group != "" {
		group, err := s.prices.GroupByName(s.config.Group)
		if err != nil {
			s.logger.Error(ctx, "configured group missing", "group", s.config.Group, "error", err)
			return pricingDomain.GroupScan{}, false
		}
		scan := s.prices.ScanGroup(ctx, group)
		return scan, scan.HasOpportunity
	}
	return s.prices.BestOpportunity(ctx)
}

// size picks the trade notional: the global cap, scaled up for
// exceptional spreads, then capped by the depth-derived safe size. Depth
// always wins over the scale-up, and the scale-up only happens when
// depth is readable: with liquidity unknown, the size never exceeds the
// bare global cap.
func (s *Scanner) size(ctx context.Context, group pricingDomain.ScanGroup, scan pricingDomain.GroupScan) (decimal.Decimal, bool) {
	notional := s.config.MaxNotional

	safe, ok := s.depth.SafeSizeForLegs(ctx, group, scan.BuyPool, scan.SellPool)
	if !ok {
		// Depth unreadable: proceed on the global cap alone, loudly.
		s.logger.Warn(ctx, "depth unavailable, sizing on global cap only",
			"group", scan.Group,
			"notional", notional.String(),
		)
		return notional, false
	}

	if s.config.ExceptionalSpreadBps.Sign() > 0 &&
		scan.NetBps.GreaterThan(s.config.ExceptionalSpreadBps) &&
		s.config.ExceptionalMultiplier.GreaterThan(decimal.New(1, 0)) {
		notional = notional.Mul(s.config.ExceptionalMultiplier)
		s.logger.Info(ctx, "exceptional spread, scaling size",
			"group", scan.Group,
			"net_bps", scan.NetBps.StringFixed(2),
			"notional", notional.String(),
		)
	}

	if safe.LessThan(notional) {
		s.logger.Info(ctx, "depth caps trade size",
			"group", scan.Group,
			"cap", notional.String(),
			"safe", safe.String(),
		)
		return safe, true
	}
	return notional, false
}
