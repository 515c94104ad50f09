// Package pricing implements the pricing bounded context: venue readers,
// the price oracle, and the depth monitor.
package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/oxarb/flasharb/business/pricing/app"
	pricingDI "github.com/oxarb/flasharb/business/pricing/di"
	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/business/pricing/infra/binance"
	"github.com/oxarb/flasharb/business/pricing/infra/univ2"
	"github.com/oxarb/flasharb/business/pricing/infra/univ3"
	"github.com/oxarb/flasharb/internal/asset"
	"github.com/oxarb/flasharb/internal/config"
	"github.com/oxarb/flasharb/internal/di"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/monolith"
	"github.com/oxarb/flasharb/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register venue readers, one per AMM family (private dependency)
	di.RegisterToken(c, pricingDI.VenueReaders, func(sr di.ServiceRegistry) map[domain.VenueKind]app.VenueReader {
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		v2Reader, err := univ2.NewReader(ethClient, log)
		if err != nil {
			panic("failed to create constant-product reader: " + err.Error())
		}
		v3Reader, err := univ3.NewReader(ethClient, log)
		if err != nil {
			panic("failed to create concentrated-liquidity reader: " + err.Error())
		}

		return map[domain.VenueKind]app.VenueReader{
			v2Reader.Kind(): v2Reader,
			v3Reader.Kind(): v3Reader,
		}
	})

	// Register ReferencePricer (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.ReferencePricer, func(sr di.ServiceRegistry) app.ReferencePricer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pricerCfg := binance.PricerConfig{
			BaseURL: cfg.Binance.BaseURL,
			Symbol:  cfg.Binance.Symbol,
			Timeout: cfg.Binance.Timeout,
		}

		pricer, err := binance.NewPricer(pricerCfg, log)
		if err != nil {
			panic("failed to create reference pricer: " + err.Error())
		}
		return pricer
	})

	// Register Oracle (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Oracle, func(sr di.ServiceRegistry) *app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		groups, err := buildScanGroups(cfg, registry)
		if err != nil {
			panic("failed to build scan groups: " + err.Error())
		}

		limiter := ratelimit.New(cfg.Pricing.RPCRequestsPerMinute)

		oracleCfg := app.OracleConfig{
			FlashPremiumBps: cfg.Pricing.FlashPremiumBpsDecimal(),
			EpsilonBps:      cfg.Pricing.EpsilonBpsDecimal(),
			ReadTimeout:     cfg.Pricing.ReadTimeout,
		}

		return app.NewOracle(groups, pricingDI.GetVenueReaders(sr), limiter, oracleCfg, log)
	})

	// Register DepthMonitor (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.DepthMonitor, func(sr di.ServiceRegistry) *app.DepthMonitor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDepthMonitor(
			pricingDI.GetVenueReaders(sr),
			cfg.Pricing.MaxImpactPercentDecimal(),
			cfg.Pricing.ReadTimeout,
			log,
		)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := pricingDI.GetOracle(mono.Services())
	log.Info(ctx, "pricing module started", "groups", len(oracle.Groups()))
	return nil
}

// buildScanGroups resolves configured groups against the asset registry.
func buildScanGroups(cfg *config.Config, registry *asset.Registry) ([]domain.ScanGroup, error) {
	groups := make([]domain.ScanGroup, 0, len(cfg.Pricing.Groups))

	for _, gc := range cfg.Pricing.Groups {
		base, ok := registry.GetBySymbolAndChain(gc.Base, cfg.Ethereum.ChainID)
		if !ok {
			return nil, fmt.Errorf("unknown base asset %s on chain %d", gc.Base, cfg.Ethereum.ChainID)
		}
		quote, ok := registry.GetBySymbolAndChain(gc.Quote, cfg.Ethereum.ChainID)
		if !ok {
			return nil, fmt.Errorf("unknown quote asset %s on chain %d", gc.Quote, cfg.Ethereum.ChainID)
		}

		pools := make([]domain.PoolRef, 0, len(gc.Pools))
		for _, pc := range gc.Pools {
			venue := domain.VenueKind(pc.Venue)
			if !venue.Valid() {
				return nil, fmt.Errorf("group %s: unknown venue %q", gc.Name, pc.Venue)
			}
			pools = append(pools, domain.PoolRef{
				Address: common.HexToAddress(pc.Address),
				Venue:   venue,
			})
		}

		groups = append(groups, domain.ScanGroup{
			Name:         gc.Name,
			Base:         base,
			Quote:        quote,
			Pools:        pools,
			DecimalShift: gc.DecimalShift,
		})
	}

	return groups, nil
}
