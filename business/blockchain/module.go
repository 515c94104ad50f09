// Package blockchain implements the blockchain bounded context for chain access.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/oxarb/flasharb/business/blockchain/app"
	blockchainDI "github.com/oxarb/flasharb/business/blockchain/di"
	"github.com/oxarb/flasharb/business/blockchain/infra/ethereum"
	"github.com/oxarb/flasharb/internal/config"
	"github.com/oxarb/flasharb/internal/di"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register HeadSource (private - internal dependency)
	di.RegisterToken(c, blockchainDI.HeadSource, func(sr di.ServiceRegistry) app.HeadSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		watcherCfg := ethereum.DefaultHeadWatcherConfig(cfg.Ethereum.WebSocketURL, cfg.Ethereum.HTTPURL)
		watcher, err := ethereum.NewHeadWatcher(watcherCfg, log)
		if err != nil {
			panic("failed to create head watcher: " + err.Error())
		}
		return watcher
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracleCfg := ethereum.DefaultGasOracleConfig(cfg.Ethereum.HTTPURL)
		oracle, err := ethereum.NewGasOracle(oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register ChainReader (private - internal dependency)
	di.RegisterToken(c, blockchainDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		return ethereum.NewChainReader(ethClient, log)
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		heads := blockchainDI.GetHeadSource(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		reader := blockchainDI.GetChainReader(sr)
		return app.NewBlockchainService(heads, oracle, reader)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	heads := blockchainDI.GetHeadSource(mono.Services())
	oracle := blockchainDI.GetGasOracle(mono.Services())

	// Start the head watcher (type assertion to access Start method)
	if starter, ok := heads.(interface{ Start(context.Context) error }); ok {
		if err := starter.Start(ctx); err != nil {
			log.Error(ctx, "failed to start head watcher", "error", err)
			// Don't fail - BlockNumber falls back to the chain reader
		}
	}

	// Connect gas oracle
	if connector, ok := oracle.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect gas oracle", "error", err)
		}
	}

	log.Info(ctx, "blockchain module started")
	return nil
}
