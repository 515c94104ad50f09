// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/oxarb/flasharb/business/blockchain/app"
	"github.com/oxarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	HeadSource  = di.NewToken[app.HeadSource]("blockchain:headSource")
	GasOracle   = di.NewToken[app.GasOracle]("blockchain:gasOracle")
	ChainReader = di.NewToken[app.ChainReader]("blockchain:chainReader")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetHeadSource(c di.ServiceRegistry) app.HeadSource {
	return di.GetToken(c, HeadSource)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}
