package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDPolygon  = 137
	ChainIDArbitrum = 42161
	ChainIDOptimism = 10
	ChainIDBase     = 8453
	ChainIDFiat     = 0 // Off-chain / fiat
)

// Well-known token addresses on Ethereum Mainnet
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// Well-known token addresses on Arbitrum One
var (
	AddrWETHArbitrum = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	AddrUSDCArbitrum = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	AddrUSDTArbitrum = common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")
	AddrWBTCArbitrum = common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f")
	AddrARBArbitrum  = common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548")
)

// Well-known AssetIDs
var (
	// Ethereum Mainnet
	IDEthereumETH  = NewNativeAssetID(ChainIDEthereum)
	IDEthereumUSDC = NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum)
	IDEthereumWETH = NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum)

	// Arbitrum One
	IDArbitrumETH  = NewNativeAssetID(ChainIDArbitrum)
	IDArbitrumWETH = NewTokenAssetID(ChainIDArbitrum, AddrWETHArbitrum)
	IDArbitrumUSDC = NewTokenAssetID(ChainIDArbitrum, AddrUSDCArbitrum)
	IDArbitrumUSDT = NewTokenAssetID(ChainIDArbitrum, AddrUSDTArbitrum)
	IDArbitrumWBTC = NewTokenAssetID(ChainIDArbitrum, AddrWBTCArbitrum)
	IDArbitrumARB  = NewTokenAssetID(ChainIDArbitrum, AddrARBArbitrum)

	// Fiat
	IDUSD = NewFiatAssetID("USD")
)

// Well-known Assets (pre-created instances)
var (
	// Ethereum Mainnet
	ETH  = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
	USDC = NewAssetWithName(IDEthereumUSDC, "USDC", "USD Coin", 6)
	WETH = NewAssetWithName(IDEthereumWETH, "WETH", "Wrapped Ether", 18)

	// Arbitrum One
	ArbETH  = NewAssetWithName(IDArbitrumETH, "ETH", "Ethereum", 18)
	ArbWETH = NewAssetWithName(IDArbitrumWETH, "WETH", "Wrapped Ether", 18)
	ArbUSDC = NewAssetWithName(IDArbitrumUSDC, "USDC", "USD Coin", 6)
	ArbUSDT = NewAssetWithName(IDArbitrumUSDT, "USDT", "Tether USD", 6)
	ArbWBTC = NewAssetWithName(IDArbitrumWBTC, "WBTC", "Wrapped Bitcoin", 8)
	ArbARB  = NewAssetWithName(IDArbitrumARB, "ARB", "Arbitrum", 18)

	// Fiat
	USD = NewAssetWithName(IDUSD, "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Ethereum Mainnet
	r.Register(ETH)
	r.Register(USDC)
	r.Register(WETH)

	// Arbitrum One
	r.Register(ArbETH)
	r.Register(ArbWETH)
	r.Register(ArbUSDC)
	r.Register(ArbUSDT)
	r.Register(ArbWBTC)
	r.Register(ArbARB)

	// Fiat
	r.Register(USD)

	return r
}

// MustNewToken creates a new ERC20 token asset with the given parameters.
// This is a convenience function for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}

// MustNewNative creates a new native coin asset.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	id := NewNativeAssetID(chainID)
	return NewAssetWithName(id, symbol, name, decimals)
}
