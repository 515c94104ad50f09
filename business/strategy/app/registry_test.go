package app

import (
	"context"
	"testing"

	"github.com/oxarb/flasharb/internal/apperror"
)

func registryWith(ids ...string) *Registry {
	r := NewRegistry()
	for _, id := range ids {
		c := newTestController(&fakeExecutor{}, &recordingSink{}, ControllerConfig{})
		c.id = id
		c.state.ID = id
		r.Register(c)
	}
	return r
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	r := registryWith("weth-usdc")

	_, err := r.Status("missing")
	if err == nil {
		t.Fatal("Status(missing) error = nil, want not-found")
	}
	if apperror.GetCode(err) != apperror.CodeStrategyNotFound {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeStrategyNotFound)
	}

	if err := r.Start(context.Background(), "missing"); err == nil {
		t.Error("Start(missing) error = nil, want not-found")
	}
	if err := r.Stop(context.Background(), "missing"); err == nil {
		t.Error("Stop(missing) error = nil, want not-found")
	}
}

func TestRegistry_ListStatusSortedByID(t *testing.T) {
	r := registryWith("weth-usdt", "arb-usdc", "weth-usdc")

	states := r.ListStatus()
	if len(states) != 3 {
		t.Fatalf("len = %d, want 3", len(states))
	}

	want := []string{"arb-usdc", "weth-usdc", "weth-usdt"}
	for i, id := range want {
		if states[i].ID != id {
			t.Errorf("states[%d].ID = %s, want %s", i, states[i].ID, id)
		}
	}
}

func TestRegistry_StartStopAll(t *testing.T) {
	r := registryWith("a", "b")
	ctx := context.Background()

	if err := r.Start(ctx, "a"); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := r.Start(ctx, "b"); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	r.StopAll(ctx)

	for _, state := range r.ListStatus() {
		if state.Status != "idle" {
			t.Errorf("strategy %s status = %s after StopAll, want idle", state.ID, state.Status)
		}
	}
}
