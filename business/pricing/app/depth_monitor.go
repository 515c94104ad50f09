package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/logger"
)

// DepthMonitor reads pool depth and converts it into a maximum safe trade
// size under the configured market-impact cap.
type DepthMonitor struct {
	readers     map[domain.VenueKind]VenueReader
	maxImpact   decimal.Decimal
	readTimeout time.Duration
	logger      logger.LoggerInterface
}

// NewDepthMonitor creates a DepthMonitor. maxImpactPercent is the share of
// the smaller leg's liquidity a single trade may consume (e.g. 1 = 1%).
func NewDepthMonitor(
	readers map[domain.VenueKind]VenueReader,
	maxImpactPercent decimal.Decimal,
	readTimeout time.Duration,
	log logger.LoggerInterface,
) *DepthMonitor {
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	return &DepthMonitor{
		readers:     readers,
		maxImpact:   maxImpactPercent,
		readTimeout: readTimeout,
		logger:      log,
	}
}

// Depth reads one pool's depth. The boolean is false on any failure; the
// caller decides whether to proceed without depth.
func (m *DepthMonitor) Depth(ctx context.Context, ref domain.PoolRef, baseDecimals int32) (*domain.PoolDepth, bool) {
	reader, ok := m.readers[ref.Venue]
	if !ok {
		return nil, false
	}

	readCtx, cancel := context.WithTimeout(ctx, m.readTimeout)
	defer cancel()

	depth, err := reader.Depth(readCtx, ref.Address, baseDecimals)
	if err != nil {
		m.logger.Warn(ctx, "depth read failed",
			"pool", ref.Address.Hex(),
			"venue", ref.Venue,
			"error", err,
		)
		return nil, false
	}
	return depth, true
}

// SafeSizeForLegs reads depth on both legs of a candidate trade and
// returns the depth-capped size in base units. The boolean is false when
// either leg's depth could not be read; sizing then falls back to the
// global notional cap, which the caller must log explicitly.
func (m *DepthMonitor) SafeSizeForLegs(ctx context.Context, group domain.ScanGroup, buyPool, sellPool common.Address) (decimal.Decimal, bool) {
	buyRef, okBuy := poolRef(group, buyPool)
	sellRef, okSell := poolRef(group, sellPool)
	if !okBuy || !okSell {
		return decimal.Zero, false
	}

	baseDecimals := int32(group.Base.Decimals())

	buyDepth, ok := m.Depth(ctx, buyRef, baseDecimals)
	if !ok {
		return decimal.Zero, false
	}
	sellDepth, ok := m.Depth(ctx, sellRef, baseDecimals)
	if !ok {
		return decimal.Zero, false
	}

	return domain.SafeTradeSize(buyDepth, sellDepth, m.maxImpact)
}

func poolRef(group domain.ScanGroup, pool common.Address) (domain.PoolRef, bool) {
	for _, ref := range group.Pools {
		if ref.Address == pool {
			return ref, true
		}
	}
	return domain.PoolRef{}, false
}
