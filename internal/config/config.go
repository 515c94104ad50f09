// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds L2 node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// BinanceConfig holds the reference-price API configuration.
type BinanceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Symbol  string        `mapstructure:"symbol"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PoolConfig identifies one pool inside a scan group.
type PoolConfig struct {
	Address string `mapstructure:"address"`
	Venue   string `mapstructure:"venue"` // "constant_product" or "concentrated_liquidity"
}

// GroupConfig defines one scan group: a trading pair and the pools quoting it.
type GroupConfig struct {
	Name         string       `mapstructure:"name"`
	Base         string       `mapstructure:"base"`  // base asset symbol, e.g. "WETH"
	Quote        string       `mapstructure:"quote"` // quote asset symbol, e.g. "USDC"
	DecimalShift int32        `mapstructure:"decimal_shift"`
	Pools        []PoolConfig `mapstructure:"pools"`
}

// PricingConfig holds price oracle configuration.
type PricingConfig struct {
	FlashPremiumBps      float64       `mapstructure:"flash_premium_bps"`
	EpsilonBps           float64       `mapstructure:"epsilon_bps"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	MaxImpactPercent     float64       `mapstructure:"max_impact_percent"`
	RPCRequestsPerMinute int           `mapstructure:"rpc_requests_per_minute"`
	Groups               []GroupConfig `mapstructure:"groups"`
}

// FlashPremiumBpsDecimal returns the flash-loan premium as decimal.Decimal.
func (c *PricingConfig) FlashPremiumBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FlashPremiumBps)
}

// EpsilonBpsDecimal returns the oracle noise floor as decimal.Decimal.
func (c *PricingConfig) EpsilonBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.EpsilonBps)
}

// MaxImpactPercentDecimal returns the impact cap as decimal.Decimal.
func (c *PricingConfig) MaxImpactPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxImpactPercent)
}

// ScannerConfig holds scan-cycle configuration.
type ScannerConfig struct {
	Interval               time.Duration `mapstructure:"interval"`
	MinSpreadBps           float64       `mapstructure:"min_spread_bps"`
	MinProfitUSD           float64       `mapstructure:"min_profit_usd"`
	MaxNotional            float64       `mapstructure:"max_notional"` // base units
	ExceptionalSpreadBps   float64       `mapstructure:"exceptional_spread_bps"`
	ExceptionalMultiplier  float64       `mapstructure:"exceptional_multiplier"`
	MaxGasPriceGwei        float64       `mapstructure:"max_gas_price_gwei"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
}

// MinSpreadBpsDecimal returns the spread floor as decimal.Decimal.
func (c *ScannerConfig) MinSpreadBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpreadBps)
}

// MinProfitUSDDecimal returns the profit floor as decimal.Decimal.
func (c *ScannerConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// MaxNotionalDecimal returns the notional cap as decimal.Decimal.
func (c *ScannerConfig) MaxNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxNotional)
}

// ExceptionalSpreadBpsDecimal returns the scale-up threshold as decimal.Decimal.
func (c *ScannerConfig) ExceptionalSpreadBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ExceptionalSpreadBps)
}

// ExceptionalMultiplierDecimal returns the scale-up factor as decimal.Decimal.
func (c *ScannerConfig) ExceptionalMultiplierDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ExceptionalMultiplier)
}

// MaxGasPriceGweiDecimal returns the gas ceiling as decimal.Decimal.
func (c *ScannerConfig) MaxGasPriceGweiDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxGasPriceGwei)
}

// ExecutionConfig holds flash-loan execution configuration. The signing
// key is only ever read from the environment, never from a config file.
type ExecutionConfig struct {
	ContractAddress     string        `mapstructure:"contract_address"`
	ExecutorKey         string        `mapstructure:"-"`
	GasBufferPercent    float64       `mapstructure:"gas_buffer_percent"`
	SlippageBps         float64       `mapstructure:"slippage_bps"`
	MinWalletReserveEth float64       `mapstructure:"min_wallet_reserve_eth"`
	TxTimeout           time.Duration `mapstructure:"tx_timeout"`
}

// ContractAddressHex returns the arbitrage contract address.
func (c *ExecutionConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// SlippageBpsDecimal returns the slippage allowance as decimal.Decimal.
func (c *ExecutionConfig) SlippageBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageBps)
}

// ServerConfig holds the control API configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASHARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Signing key bypasses viper so it can never land in a config file.
	cfg.Execution.ExecutorKey = v.GetString("execution_executor_key")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASHARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASHARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASHARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "FLASHARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "FLASHARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "FLASHARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Binance
	v.BindEnv("binance.base_url", "FLASHARB_BINANCE_BASE_URL", "BINANCE_BASE_URL")
	v.BindEnv("binance.symbol", "FLASHARB_BINANCE_SYMBOL", "BINANCE_SYMBOL")

	// Scanner
	v.BindEnv("scanner.interval", "FLASHARB_SCAN_INTERVAL")
	v.BindEnv("scanner.min_spread_bps", "FLASHARB_MIN_SPREAD_BPS")
	v.BindEnv("scanner.min_profit_usd", "FLASHARB_MIN_PROFIT_USD")
	v.BindEnv("scanner.max_notional", "FLASHARB_MAX_NOTIONAL")
	v.BindEnv("scanner.max_gas_price_gwei", "FLASHARB_MAX_GAS_PRICE_GWEI")

	// Execution
	v.BindEnv("execution.contract_address", "FLASHARB_CONTRACT_ADDRESS", "CONTRACT_ADDRESS")
	v.BindEnv("execution_executor_key", "FLASHARB_EXECUTOR_KEY", "EXECUTOR_PRIVATE_KEY")

	// Server
	v.BindEnv("server.addr", "FLASHARB_SERVER_ADDR", "SERVER_ADDR")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASHARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASHARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASHARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults (Arbitrum One)
	v.SetDefault("ethereum.chain_id", 42161)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Binance defaults
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.symbol", "ETHUSDT")
	v.SetDefault("binance.timeout", "10s")

	// Pricing defaults
	v.SetDefault("pricing.flash_premium_bps", 9) // Aave V3: 0.09%
	v.SetDefault("pricing.epsilon_bps", 1)
	v.SetDefault("pricing.read_timeout", "5s")
	v.SetDefault("pricing.max_impact_percent", 1)
	v.SetDefault("pricing.rpc_requests_per_minute", 600)

	// Scanner defaults
	v.SetDefault("scanner.interval", "10s")
	v.SetDefault("scanner.min_spread_bps", 20)
	v.SetDefault("scanner.min_profit_usd", 5)
	v.SetDefault("scanner.max_notional", 1.0)
	v.SetDefault("scanner.exceptional_spread_bps", 100)
	v.SetDefault("scanner.exceptional_multiplier", 2)
	v.SetDefault("scanner.max_gas_price_gwei", 1)
	v.SetDefault("scanner.max_consecutive_failures", 5)

	// Execution defaults
	v.SetDefault("execution.gas_buffer_percent", 20)
	v.SetDefault("execution.slippage_bps", 30)
	v.SetDefault("execution.min_wallet_reserve_eth", 0.01)
	v.SetDefault("execution.tx_timeout", "2m")

	// Server defaults
	v.SetDefault("server.addr", ":8080")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Ethereum.WebSocketURL == "" {
		return fmt.Errorf("ethereum.websocket_url is required")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive")
	}
	if c.Scanner.MaxNotional <= 0 {
		return fmt.Errorf("scanner.max_notional must be positive")
	}
	if c.Scanner.ExceptionalMultiplier < 1 {
		return fmt.Errorf("scanner.exceptional_multiplier must be >= 1")
	}
	if c.Execution.ContractAddress != "" && !common.IsHexAddress(c.Execution.ContractAddress) {
		return fmt.Errorf("invalid execution.contract_address: %s", c.Execution.ContractAddress)
	}
	for _, g := range c.Pricing.Groups {
		if g.Name == "" {
			return fmt.Errorf("pricing group requires a name")
		}
		if g.Base == "" || g.Quote == "" {
			return fmt.Errorf("pricing group %s requires base and quote symbols", g.Name)
		}
		if len(g.Pools) < 2 {
			return fmt.Errorf("pricing group %s requires at least two pools", g.Name)
		}
		for _, p := range g.Pools {
			if !common.IsHexAddress(p.Address) {
				return fmt.Errorf("pricing group %s has invalid pool address: %s", g.Name, p.Address)
			}
			switch p.Venue {
			case "constant_product", "concentrated_liquidity":
			default:
				return fmt.Errorf("pricing group %s has unknown venue: %s", g.Name, p.Venue)
			}
		}
	}
	return nil
}
