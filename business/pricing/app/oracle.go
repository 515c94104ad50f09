package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/ratelimit"
)

// OracleConfig holds the oracle's spread-floor settings.
type OracleConfig struct {
	// FlashPremiumBps is the external borrowing premium subtracted from
	// every group's gross spread.
	FlashPremiumBps decimal.Decimal

	// EpsilonBps is the oracle-level noise floor; a group only "has an
	// opportunity" when its net spread is strictly above it. Distinct
	// from the scanner's profit floor.
	EpsilonBps decimal.Decimal

	// ReadTimeout bounds each individual pool read.
	ReadTimeout time.Duration
}

// Oracle fans price reads out across the configured scan groups and
// reduces each group to a best-bid/best-ask spread comparison.
type Oracle struct {
	groups  []domain.ScanGroup
	readers map[domain.VenueKind]VenueReader
	limiter *ratelimit.Limiter
	config  OracleConfig
	logger  logger.LoggerInterface
}

// NewOracle creates an Oracle over the given scan groups and venue readers.
func NewOracle(
	groups []domain.ScanGroup,
	readers map[domain.VenueKind]VenueReader,
	limiter *ratelimit.Limiter,
	cfg OracleConfig,
	log logger.LoggerInterface,
) *Oracle {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	return &Oracle{
		groups:  groups,
		readers: readers,
		limiter: limiter,
		config:  cfg,
		logger:  log,
	}
}

// Groups returns the configured scan groups.
func (o *Oracle) Groups() []domain.ScanGroup {
	return o.groups
}

// PoolPrice reads one pool's price. The boolean is false when the read
// failed; the failure is logged, never returned, because a single pool
// going dark is expected operating condition.
func (o *Oracle) PoolPrice(ctx context.Context, ref domain.PoolRef, decimalShift int32) (*domain.PoolPrice, bool) {
	reader, ok := o.readers[ref.Venue]
	if !ok {
		o.logger.Error(ctx, "no reader for venue", "venue", ref.Venue, "pool", ref.Address.Hex())
		return nil, false
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, false
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, o.config.ReadTimeout)
	defer cancel()

	price, err := reader.Price(readCtx, ref.Address, decimalShift)
	if err != nil {
		o.logger.Warn(ctx, "pool read failed, excluding from cycle",
			"pool", ref.Address.Hex(),
			"venue", ref.Venue,
			"error", err,
		)
		return nil, false
	}

	return price, true
}

// ScanGroup prices every pool in one group and reduces the successful
// reads to a GroupScan. A group with fewer than two live pools yields a
// scan with HasOpportunity=false — absence of signal, not an error.
func (o *Oracle) ScanGroup(ctx context.Context, group domain.ScanGroup) domain.GroupScan {
	prices := make([]domain.PoolPrice, 0, len(group.Pools))
	for _, ref := range group.Pools {
		if price, ok := o.PoolPrice(ctx, ref, group.DecimalShift); ok {
			prices = append(prices, *price)
		}
	}

	scan := domain.CompareGroup(group.Name, prices, o.config.FlashPremiumBps, o.config.EpsilonBps)
	if scan.PricedPools < 2 {
		o.logger.Info(ctx, "group below quorum, no signal",
			"group", group.Name,
			"priced_pools", scan.PricedPools,
			"configured_pools", len(group.Pools),
		)
	}
	return scan
}

// ScanAllGroups prices every configured group.
func (o *Oracle) ScanAllGroups(ctx context.Context) []domain.GroupScan {
	scans := make([]domain.GroupScan, 0, len(o.groups))
	for _, group := range o.groups {
		scans = append(scans, o.ScanGroup(ctx, group))
	}
	return scans
}

// BestOpportunity returns the group scan with the highest net spread among
// those that cleared the epsilon floor. The boolean is false when no group
// has an opportunity this cycle.
func (o *Oracle) BestOpportunity(ctx context.Context) (domain.GroupScan, bool) {
	var best domain.GroupScan
	found := false

	for _, scan := range o.ScanAllGroups(ctx) {
		if !scan.HasOpportunity {
			continue
		}
		if !found || scan.NetBps.GreaterThan(best.NetBps) {
			best = scan
			found = true
		}
	}

	return best, found
}

// GroupByName looks a scan group up by its configured name.
func (o *Oracle) GroupByName(name string) (domain.ScanGroup, error) {
	for _, g := range o.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return domain.ScanGroup{}, apperror.New(apperror.CodeNotFound,
		apperror.WithContext("scan group "+name))
}

// PoolRefByAddress finds the venue ref for a pool within a group.
func (o *Oracle) PoolRefByAddress(group domain.ScanGroup, pool common.Address) (domain.PoolRef, bool) {
	for _, ref := range group.Pools {
		if ref.Address == pool {
			return ref, true
		}
	}
	return domain.PoolRef{}, false
}
