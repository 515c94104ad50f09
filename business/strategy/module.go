// Package strategy implements the strategy bounded context: the scanner,
// the per-strategy controllers, and the control surface.
package strategy

import (
	"context"

	blockchainDI "github.com/oxarb/flasharb/business/blockchain/di"
	executionDI "github.com/oxarb/flasharb/business/execution/di"
	pricingDI "github.com/oxarb/flasharb/business/pricing/di"
	"github.com/oxarb/flasharb/business/strategy/app"
	strategyDI "github.com/oxarb/flasharb/business/strategy/di"
	"github.com/oxarb/flasharb/business/strategy/infra"
	"github.com/oxarb/flasharb/business/strategy/infra/controlapi"
	"github.com/oxarb/flasharb/business/strategy/infra/wsfeed"
	"github.com/oxarb/flasharb/internal/config"
	"github.com/oxarb/flasharb/internal/di"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/monolith"
)

// Module implements the strategy bounded context.
type Module struct{}

// RegisterServices registers all strategy services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Run mode (public - consulted by operators via the API)
	di.RegisterToken(c, strategyDI.ModeManager, func(sr di.ServiceRegistry) *app.ModeManager {
		return app.NewModeManager()
	})

	// WebSocket event hub (private)
	di.RegisterToken(c, strategyDI.EventHub, func(sr di.ServiceRegistry) *wsfeed.Hub {
		log := sr.Get("logger").(logger.LoggerInterface)
		return wsfeed.NewHub(log)
	})

	// Fan-out event sink: console + websocket feed (private)
	di.RegisterToken(c, strategyDI.EventSink, func(sr di.ServiceRegistry) app.EventSink {
		return app.MultiSink{
			infra.NewConsoleSink(),
			strategyDI.GetEventHub(sr),
		}
	})

	// Registry with one controller per configured scan group (public)
	di.RegisterToken(c, strategyDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle := pricingDI.GetOracle(sr)
		depth := pricingDI.GetDepthMonitor(sr)
		refPricer := pricingDI.GetReferencePricer(sr)
		blockchain := blockchainDI.GetBlockchainService(sr)
		executor := executionDI.GetExecutionClient(sr)
		mode := strategyDI.GetModeManager(sr)
		events := strategyDI.GetEventSink(sr)

		registry := app.NewRegistry()

		for _, group := range oracle.Groups() {
			scannerCfg := app.ScannerConfig{
				Group:                 group.Name,
				MinSpreadBps:          cfg.Scanner.MinSpreadBpsDecimal(),
				MinProfitUSD:          cfg.Scanner.MinProfitUSDDecimal(),
				MaxNotional:           cfg.Scanner.MaxNotionalDecimal(),
				ExceptionalSpreadBps:  cfg.Scanner.ExceptionalSpreadBpsDecimal(),
				ExceptionalMultiplier: cfg.Scanner.ExceptionalMultiplierDecimal(),
				MaxGasPriceGwei:       cfg.Scanner.MaxGasPriceGweiDecimal(),
			}

			scanner := app.NewScanner(oracle, depth, refPricer, blockchain, blockchain, scannerCfg, log)

			controller := app.NewController(
				group.Name,
				scanner,
				executor,
				mode,
				events,
				app.ControllerConfig{
					Interval:               cfg.Scanner.Interval,
					MaxConsecutiveFailures: cfg.Scanner.MaxConsecutiveFailures,
				},
				log,
			)

			registry.Register(controller)
		}

		return registry
	})

	// Control API server (private)
	di.RegisterToken(c, strategyDI.ControlAPI, func(sr di.ServiceRegistry) *controlapi.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return controlapi.NewServer(
			cfg.Server.Addr,
			strategyDI.GetRegistry(sr),
			strategyDI.GetModeManager(sr),
			executionDI.GetContractGateway(sr),
			strategyDI.GetEventHub(sr),
			log,
		)
	})

	return nil
}

// Startup starts the control API and every configured strategy in
// dry-run. Going live is always an explicit operator action.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	api := strategyDI.GetControlAPI(mono.Services())
	if err := api.Start(ctx); err != nil {
		return err
	}

	registry := strategyDI.GetRegistry(mono.Services())
	for _, state := range registry.ListStatus() {
		if err := registry.Start(ctx, state.ID); err != nil {
			return err
		}
	}

	log.Info(ctx, "strategy module started",
		"strategies", len(registry.ListStatus()),
		"mode", strategyDI.GetModeManager(mono.Services()).Mode(),
	)
	return nil
}

// Shutdown stops strategies and the control surface.
func (m *Module) Shutdown(ctx context.Context, mono monolith.Monolith) error {
	registry := strategyDI.GetRegistry(mono.Services())
	registry.StopAll(ctx)

	hub := strategyDI.GetEventHub(mono.Services())
	hub.Close()

	api := strategyDI.GetControlAPI(mono.Services())
	return api.Stop(ctx)
}
