package app

import (
	"context"
	"math/big"

	executionDomain "github.com/oxarb/flasharb/business/execution/domain"
	"github.com/oxarb/flasharb/business/strategy/domain"
)

// EventSink receives strategy lifecycle events. Implementations must not
// block the caller; slow consumers drop or buffer on their side.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// Executor submits flash-loan requests. Satisfied by the execution
// client; narrowed here so controllers are testable with fakes.
type Executor interface {
	Execute(ctx context.Context, req *executionDomain.FlashLoanRequest) (*executionDomain.Result, error)
	MinOut(amount *big.Int) *big.Int
	CanSign() bool
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

// Emit delivers the event to every sink in order.
func (s MultiSink) Emit(ctx context.Context, event domain.Event) {
	for _, sink := range s {
		sink.Emit(ctx, event)
	}
}
