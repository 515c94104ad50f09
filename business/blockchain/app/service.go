// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oxarb/flasharb/business/blockchain/domain"
)

// headMaxAge bounds how old a streamed head may be before BlockNumber
// falls back to an explicit RPC read.
const headMaxAge = 30 * time.Second

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	heads       HeadSource
	gasOracle   GasOracle
	chainReader ChainReader
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(heads HeadSource, gasOracle GasOracle, chainReader ChainReader) *BlockchainService {
	return &BlockchainService{
		heads:       heads,
		gasOracle:   gasOracle,
		chainReader: chainReader,
	}
}

// GetGasPrice retrieves the current gas price. The value is never clamped;
// callers compare it against their own ceilings.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// GetGasTipCap retrieves the suggested priority fee.
func (s *BlockchainService) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	return s.gasOracle.GetGasTipCap(ctx)
}

// EstimateGas estimates gas for a raw call.
func (s *BlockchainService) EstimateGas(ctx context.Context, data []byte, to string) (uint64, error) {
	return s.gasOracle.EstimateGas(ctx, data, to)
}

// BlockNumber returns the current chain head height. A fresh streamed
// head answers without an RPC round trip; a stale or absent one falls
// back to an explicit read.
func (s *BlockchainService) BlockNumber(ctx context.Context) (uint64, error) {
	if s.heads != nil {
		if head, ok := s.heads.Head(); ok && time.Since(head.Time) <= headMaxAge {
			return head.Number, nil
		}
	}
	return s.chainReader.BlockNumber(ctx)
}

// Balance returns an account's native-token balance in wei.
func (s *BlockchainService) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.chainReader.Balance(ctx, account)
}

// ConnectionState returns the head feed's connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.heads.State()
}
