package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oxarb/flasharb/business/blockchain/domain"
)

type fakeHeads struct {
	head  domain.Head
	ok    bool
	state domain.ConnectionState
}

func (f *fakeHeads) Head() (domain.Head, bool)     { return f.head, f.ok }
func (f *fakeHeads) State() domain.ConnectionState { return f.state }

type fakeReader struct {
	number uint64
	calls  int
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	f.calls++
	return f.number, nil
}

func (f *fakeReader) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func TestBlockNumber_PrefersFreshHead(t *testing.T) {
	heads := &fakeHeads{
		head:  domain.Head{Number: 4200, Time: time.Now()},
		ok:    true,
		state: domain.StateConnected,
	}
	reader := &fakeReader{number: 9999}
	svc := NewBlockchainService(heads, nil, reader)

	got, err := svc.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if got != 4200 {
		t.Errorf("BlockNumber = %d, want 4200 from the head feed", got)
	}
	if reader.calls != 0 {
		t.Errorf("chain reader called %d times, want 0 with a fresh head", reader.calls)
	}
}

func TestBlockNumber_StaleHeadFallsBack(t *testing.T) {
	heads := &fakeHeads{
		head:  domain.Head{Number: 4200, Time: time.Now().Add(-2 * time.Minute)},
		ok:    true,
		state: domain.StateReconnecting,
	}
	reader := &fakeReader{number: 4207}
	svc := NewBlockchainService(heads, nil, reader)

	got, err := svc.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if got != 4207 {
		t.Errorf("BlockNumber = %d, want 4207 from the chain reader", got)
	}
	if reader.calls != 1 {
		t.Errorf("chain reader called %d times, want 1", reader.calls)
	}
}

func TestBlockNumber_NoHeadFallsBack(t *testing.T) {
	heads := &fakeHeads{state: domain.StateConnecting}
	reader := &fakeReader{number: 17}
	svc := NewBlockchainService(heads, nil, reader)

	got, err := svc.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if got != 17 {
		t.Errorf("BlockNumber = %d, want 17", got)
	}
}

func TestConnectionState_Passthrough(t *testing.T) {
	heads := &fakeHeads{state: domain.StateReconnecting}
	svc := NewBlockchainService(heads, nil, &fakeReader{})

	if got := svc.ConnectionState(); got != domain.StateReconnecting {
		t.Errorf("ConnectionState = %q, want %q", got, domain.StateReconnecting)
	}
}
