// Package execution implements the execution bounded context: the contract
// gateway and the flash-loan execution client.
package execution

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	blockchainApp "github.com/oxarb/flasharb/business/blockchain/app"
	blockchainDI "github.com/oxarb/flasharb/business/blockchain/di"
	"github.com/oxarb/flasharb/business/execution/app"
	executionDI "github.com/oxarb/flasharb/business/execution/di"
	"github.com/oxarb/flasharb/business/execution/infra/ethereum"
	"github.com/oxarb/flasharb/internal/config"
	"github.com/oxarb/flasharb/internal/di"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ContractGateway (private - internal dependency)
	di.RegisterToken(c, executionDI.ContractGateway, func(sr di.ServiceRegistry) app.ContractGateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		// An unparseable key stays nil here; the client rejects attempts
		// with the precise reason instead of crashing at wiring time.
		var key *ecdsa.PrivateKey
		if cfg.Execution.ExecutorKey != "" {
			if parsed, err := app.ParseSigningKey(cfg.Execution.ExecutorKey); err == nil {
				key = parsed
			}
		}

		gateway, err := ethereum.NewGateway(
			ethClient,
			cfg.Execution.ContractAddressHex(),
			cfg.Ethereum.ChainID,
			key,
			log,
		)
		if err != nil {
			panic("failed to create contract gateway: " + err.Error())
		}
		return gateway
	})

	// Register execution Client (public - exposed to other modules)
	di.RegisterToken(c, executionDI.ExecutionClient, func(sr di.ServiceRegistry) *app.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		blockchain := blockchainDI.GetBlockchainService(sr)

		clientCfg := app.ClientConfig{
			ExecutorKey:         cfg.Execution.ExecutorKey,
			MaxGasPriceGwei:     cfg.Scanner.MaxGasPriceGweiDecimal(),
			GasBufferPercent:    cfg.Execution.GasBufferPercent,
			SlippageBps:         cfg.Execution.SlippageBpsDecimal(),
			FlashPremiumBps:     cfg.Pricing.FlashPremiumBpsDecimal(),
			MinWalletReserveWei: ethToWei(cfg.Execution.MinWalletReserveEth),
			TxTimeout:           cfg.Execution.TxTimeout,
		}

		client, err := app.NewClient(
			executionDI.GetContractGateway(sr),
			&gasPriceAdapter{blockchain},
			&balanceAdapter{blockchain},
			clientCfg,
			log,
		)
		if err != nil {
			panic("failed to create execution client: " + err.Error())
		}
		return client
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	client := executionDI.GetExecutionClient(mono.Services())
	if client.CanSign() {
		log.Info(ctx, "execution module started", "wallet", client.Wallet().Hex())
	} else {
		log.Warn(ctx, "execution module started without signing key, live mode unavailable")
	}
	return nil
}

// gasPriceAdapter narrows BlockchainService to the GasPricer port.
type gasPriceAdapter struct {
	blockchain *blockchainApp.BlockchainService
}

func (a *gasPriceAdapter) GasPriceWei(ctx context.Context) (*big.Int, error) {
	price, err := a.blockchain.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return price.Wei, nil
}

// balanceAdapter narrows BlockchainService to the BalanceReader port.
type balanceAdapter struct {
	blockchain *blockchainApp.BlockchainService
}

func (a *balanceAdapter) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return a.blockchain.Balance(ctx, account)
}

func ethToWei(eth float64) *big.Int {
	return decimal.NewFromFloat(eth).Shift(18).BigInt()
}
