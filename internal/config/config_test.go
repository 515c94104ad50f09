package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
ethereum:
  websocket_url: wss://arb1.example.com/ws
  http_url: https://arb1.example.com
pricing:
  groups:
    - name: weth-usdc
      base: WETH
      quote: USDC
      decimal_shift: -12
      pools:
        - address: "0x1111111111111111111111111111111111111111"
          venue: constant_product
        - address: "0x2222222222222222222222222222222222222222"
          venue: concentrated_liquidity
`

func TestLoad_MinimalConfigWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}

	if cfg.Ethereum.ChainID != 42161 {
		t.Errorf("ChainID = %d, want 42161 default", cfg.Ethereum.ChainID)
	}
	if cfg.Scanner.Interval.Seconds() != 10 {
		t.Errorf("scan interval = %s, want 10s default", cfg.Scanner.Interval)
	}
	if cfg.Pricing.FlashPremiumBps != 9 {
		t.Errorf("flash premium = %v, want 9 default", cfg.Pricing.FlashPremiumBps)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr = %s, want :8080 default", cfg.Server.Addr)
	}
	if len(cfg.Pricing.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(cfg.Pricing.Groups))
	}
	if cfg.Pricing.Groups[0].DecimalShift != -12 {
		t.Errorf("decimal shift = %d, want -12", cfg.Pricing.Groups[0].DecimalShift)
	}
}

func TestLoad_SigningKeyComesFromEnvOnly(t *testing.T) {
	const key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	t.Setenv("FLASHARB_EXECUTOR_KEY", key)

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Execution.ExecutorKey != key {
		t.Errorf("ExecutorKey not picked up from environment")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			name: "missing_rpc_urls",
			config: `
pricing:
  groups: []
`,
		},
		{
			name: "single_pool_group",
			config: `
ethereum:
  websocket_url: wss://arb1.example.com/ws
  http_url: https://arb1.example.com
pricing:
  groups:
    - name: lonely
      base: WETH
      quote: USDC
      pools:
        - address: "0x1111111111111111111111111111111111111111"
          venue: constant_product
`,
		},
		{
			name: "bad_pool_address",
			config: `
ethereum:
  websocket_url: wss://arb1.example.com/ws
  http_url: https://arb1.example.com
pricing:
  groups:
    - name: weth-usdc
      base: WETH
      quote: USDC
      pools:
        - address: "not-hex"
          venue: constant_product
        - address: "0x2222222222222222222222222222222222222222"
          venue: concentrated_liquidity
`,
		},
		{
			name: "unknown_venue",
			config: `
ethereum:
  websocket_url: wss://arb1.example.com/ws
  http_url: https://arb1.example.com
pricing:
  groups:
    - name: weth-usdc
      base: WETH
      quote: USDC
      pools:
        - address: "0x1111111111111111111111111111111111111111"
          venue: balancer
        - address: "0x2222222222222222222222222222222222222222"
          venue: constant_product
`,
		},
		{
			name: "bad_contract_address",
			config: minimalConfig + `
execution:
  contract_address: "0xzz"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.config)); err == nil {
				t.Error("Load error = nil, want validation failure")
			}
		})
	}
}
