package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/business/execution/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

// A well-formed throwaway key (never funded).
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeGateway struct {
	contract   common.Address
	paused     bool
	pausedErr  error
	authorized bool
	authErr    error
	balances   map[common.Address]*big.Int
	estimate   uint64
	estErr     error
	submitErr  error
	txHash     common.Hash
	receipt    *types.Receipt
	waitErr    error

	submitGasLimit uint64
	submitGasPrice *big.Int
}

func (f *fakeGateway) Contract() common.Address       { return f.contract }
func (f *fakeGateway) SetContract(addr common.Address) { f.contract = addr }

func (f *fakeGateway) Paused(ctx context.Context) (bool, error) {
	return f.paused, f.pausedErr
}

func (f *fakeGateway) IsExecutor(ctx context.Context, account common.Address) (bool, error) {
	return f.authorized, f.authErr
}

func (f *fakeGateway) ContractBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	if bal, ok := f.balances[token]; ok {
		return bal, nil
	}
	return new(big.Int), nil
}

func (f *fakeGateway) EstimateFlashLoan(ctx context.Context, from common.Address, req *domain.FlashLoanRequest) (uint64, error) {
	return f.estimate, f.estErr
}

func (f *fakeGateway) SubmitFlashLoan(ctx context.Context, req *domain.FlashLoanRequest, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	f.submitGasLimit = gasLimit
	f.submitGasPrice = gasPrice
	return f.txHash, f.submitErr
}

func (f *fakeGateway) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return f.receipt, f.waitErr
}

type staticGas struct{ wei *big.Int }

func (s *staticGas) GasPriceWei(ctx context.Context) (*big.Int, error) {
	if s.wei == nil {
		return nil, errors.New("gas oracle down")
	}
	return s.wei, nil
}

type staticBalance struct {
	wei *big.Int
	err error
}

func (s *staticBalance) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.wei, s.err
}

func testRequest() *domain.FlashLoanRequest {
	return &domain.FlashLoanRequest{
		Asset:    common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		Amount:   big.NewInt(1e18),
		BuyPool:  common.HexToAddress("0x0000000000000000000000000000000000000011"),
		SellPool: common.HexToAddress("0x0000000000000000000000000000000000000022"),
		MinOut:   big.NewInt(1e18),
	}
}

func healthyGateway() *fakeGateway {
	return &fakeGateway{
		contract:   common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		authorized: true,
		estimate:   400_000,
		txHash:     common.HexToHash("0xabc1"),
		receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			GasUsed:     350_000,
			BlockNumber: big.NewInt(1234),
		},
	}
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		ExecutorKey:         testKey,
		MaxGasPriceGwei:     decimal.NewFromInt(1),
		GasBufferPercent:    20,
		SlippageBps:         decimal.NewFromInt(30),
		FlashPremiumBps:     decimal.NewFromInt(9),
		MinWalletReserveWei: big.NewInt(1e16), // 0.01 ETH
		TxTimeout:           time.Minute,
	}
}

func newTestClient(t *testing.T, gateway ContractGateway, gas GasPricer, balance BalanceReader, cfg ClientConfig) *Client {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	client, err := NewClient(gateway, gas, balance, cfg, log)
	if err != nil {
		t.Fatalf("NewClient error = %v", err)
	}
	return client
}

func TestClient_MinOut(t *testing.T) {
	client := newTestClient(t, healthyGateway(),
		&staticGas{wei: big.NewInt(1e8)},
		&staticBalance{wei: big.NewInt(1e18)},
		defaultClientConfig(),
	)

	// premium 9 + slippage 30 = 39 bps markup on 1e18
	got := client.MinOut(big.NewInt(1e18))
	want := big.NewInt(1_003_900_000_000_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("MinOut = %s, want %s", got, want)
	}
}

func TestClient_CanSign(t *testing.T) {
	cfg := defaultClientConfig()
	client := newTestClient(t, healthyGateway(), &staticGas{wei: big.NewInt(1e8)}, &staticBalance{wei: big.NewInt(1e18)}, cfg)
	if !client.CanSign() {
		t.Error("CanSign = false with a valid key")
	}
	if client.Wallet() == (common.Address{}) {
		t.Error("Wallet is zero with a valid key")
	}

	cfg.ExecutorKey = ""
	client = newTestClient(t, healthyGateway(), &staticGas{wei: big.NewInt(1e8)}, &staticBalance{wei: big.NewInt(1e18)}, cfg)
	if client.CanSign() {
		t.Error("CanSign = true without a key")
	}
}

func TestClient_PreflightRejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance)
		wantReason domain.Reason
		wantCode   apperror.Code
	}{
		{
			name:       "no_key",
			mutate:     func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) { cfg.ExecutorKey = "" },
			wantReason: domain.ReasonWalletNotConfigured,
			wantCode:   apperror.CodeWalletNotConfigured,
		},
		{
			name:       "malformed_key",
			mutate:     func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) { cfg.ExecutorKey = "0xdeadbeef" },
			wantReason: domain.ReasonWalletNotConfigured,
			wantCode:   apperror.CodeInvalidSigningKey,
		},
		{
			name:       "contract_paused",
			mutate:     func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) { gw.paused = true },
			wantReason: domain.ReasonContractPaused,
			wantCode:   apperror.CodeContractPaused,
		},
		{
			name:       "not_on_allowlist",
			mutate:     func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) { gw.authorized = false },
			wantReason: domain.ReasonNotAuthorized,
			wantCode:   apperror.CodeNotAuthorized,
		},
		{
			name: "gas_above_ceiling",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				gas.wei = big.NewInt(5e9) // 5 gwei, ceiling 1
			},
			wantReason: domain.ReasonGasAboveCeiling,
			wantCode:   apperror.CodeGasAboveCeiling,
		},
		{
			name: "wallet_below_reserve",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				bal.wei = big.NewInt(1e15) // 0.001 ETH, reserve 0.01
			},
			wantReason: domain.ReasonInsufficientFunds,
			wantCode:   apperror.CodeInsufficientGasFunds,
		},
		{
			name: "estimation_reverts",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				gw.estErr = errors.New("execution reverted: unprofitable")
			},
			wantReason: domain.ReasonEstimateFailed,
			wantCode:   apperror.CodeGasEstimationFailed,
		},
		{
			name: "paused_read_fails",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				gw.pausedErr = errors.New("rpc timeout")
			},
			wantReason: domain.ReasonPreflightReadFailed,
			wantCode:   apperror.CodeContractCallFailed,
		},
		{
			name: "allowlist_read_fails",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				gw.authErr = errors.New("rpc timeout")
			},
			wantReason: domain.ReasonPreflightReadFailed,
			wantCode:   apperror.CodeContractCallFailed,
		},
		{
			name: "gas_oracle_unreachable",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				gas.wei = nil
			},
			wantReason: domain.ReasonPreflightReadFailed,
			wantCode:   apperror.CodeRPCError,
		},
		{
			name: "balance_read_fails",
			mutate: func(cfg *ClientConfig, gw *fakeGateway, gas *staticGas, bal *staticBalance) {
				bal.err = errors.New("rpc timeout")
			},
			wantReason: domain.ReasonPreflightReadFailed,
			wantCode:   apperror.CodeRPCError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultClientConfig()
			gw := healthyGateway()
			gas := &staticGas{wei: big.NewInt(1e8)}
			bal := &staticBalance{wei: big.NewInt(1e18)}
			tt.mutate(&cfg, gw, gas, bal)

			client := newTestClient(t, gw, gas, bal, cfg)

			result, err := client.Execute(context.Background(), testRequest())
			if err == nil {
				t.Fatal("Execute error = nil, want rejection")
			}
			if result == nil {
				t.Fatal("Execute result = nil, want rejection result")
			}
			if result.Submitted {
				t.Error("Submitted = true on a pre-flight rejection")
			}
			if result.Reason != tt.wantReason {
				t.Errorf("Reason = %s, want %s", result.Reason, tt.wantReason)
			}
			if apperror.GetCode(err) != tt.wantCode {
				t.Errorf("error code = %s, want %s", apperror.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestClient_ExecuteFills(t *testing.T) {
	gw := healthyGateway()
	client := newTestClient(t, gw,
		&staticGas{wei: big.NewInt(1e8)},
		&staticBalance{wei: big.NewInt(1e18)},
		defaultClientConfig(),
	)

	result, err := client.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Execute error = %v", err)
	}
	if !result.Success || result.Reason != domain.ReasonFilled {
		t.Fatalf("result = %+v, want filled success", result)
	}
	if result.Block != 1234 {
		t.Errorf("Block = %d, want 1234", result.Block)
	}

	// gas cost = price * used = 1e8 * 350000
	wantCost := new(big.Int).Mul(big.NewInt(1e8), big.NewInt(350_000))
	if result.GasCost.Cmp(wantCost) != 0 {
		t.Errorf("GasCost = %s, want %s", result.GasCost, wantCost)
	}

	// estimate 400k buffered by 20% = 480k
	if gw.submitGasLimit != 480_000 {
		t.Errorf("submitted gas limit = %d, want 480000", gw.submitGasLimit)
	}
}

func TestClient_ExecuteRevertClassified(t *testing.T) {
	gw := healthyGateway()
	gw.receipt = &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		GasUsed:     480_000,
		BlockNumber: big.NewInt(1235),
	}

	client := newTestClient(t, gw,
		&staticGas{wei: big.NewInt(1e8)},
		&staticBalance{wei: big.NewInt(1e18)},
		defaultClientConfig(),
	)

	result, err := client.Execute(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Execute error = nil for a reverted tx")
	}
	if apperror.GetCode(err) != apperror.CodeTxReverted {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeTxReverted)
	}
	if result.Reason != domain.ReasonReverted {
		t.Errorf("Reason = %s, want reverted", result.Reason)
	}
	if !result.Submitted || result.Success {
		t.Error("revert must be submitted=true success=false")
	}
	if result.GasCost.Sign() <= 0 {
		t.Error("reverted tx should carry its gas cost")
	}
}

func TestClient_ExecuteTimeoutIsNotIncluded(t *testing.T) {
	gw := healthyGateway()
	gw.receipt = nil
	gw.waitErr = context.DeadlineExceeded

	client := newTestClient(t, gw,
		&staticGas{wei: big.NewInt(1e8)},
		&staticBalance{wei: big.NewInt(1e18)},
		defaultClientConfig(),
	)

	result, err := client.Execute(context.Background(), testRequest())
	if apperror.GetCode(err) != apperror.CodeTxNotIncluded {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeTxNotIncluded)
	}
	if result.Reason != domain.ReasonNotIncluded {
		t.Errorf("Reason = %s, want not_included", result.Reason)
	}
	if !result.Submitted {
		t.Error("Submitted = false, the transaction was broadcast")
	}
}

func TestParseSigningKey(t *testing.T) {
	if _, err := ParseSigningKey(testKey); err != nil {
		t.Errorf("bare key rejected: %v", err)
	}
	if _, err := ParseSigningKey("0x" + testKey); err != nil {
		t.Errorf("0x-prefixed key rejected: %v", err)
	}
	if _, err := ParseSigningKey("too-short"); err == nil {
		t.Error("short key accepted")
	}
	if _, err := ParseSigningKey("zz" + testKey[2:]); err == nil {
		t.Error("non-hex key accepted")
	}
}
