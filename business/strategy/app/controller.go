package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	executionDomain "github.com/oxarb/flasharb/business/execution/domain"
	"github.com/oxarb/flasharb/business/strategy/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

func isScanInFlight(err error) bool {
	return apperror.GetCode(err) == apperror.CodeScanInFlight
}

// simulatedFillFactor discounts dry-run PnL: simulated fills assume only
// part of the estimated edge survives slippage and competition.
var simulatedFillFactor = decimal.NewFromFloat(0.5)

// ControllerConfig holds one strategy's loop settings.
type ControllerConfig struct {
	// Interval between scan ticks. The first tick fires immediately.
	Interval time.Duration

	// MaxConsecutiveFailures halts the strategy when scan or execution
	// errors reach this streak. Zero disables the halt.
	MaxConsecutiveFailures int

	// LogCapacity bounds the per-strategy activity ring.
	LogCapacity int
}

// Controller drives one strategy: a ticker loop over the scanner, with
// execution (real or simulated) on every surviving opportunity. It owns
// the strategy's state exclusively; Status hands out copies.
type Controller struct {
	id       string
	scanner  *Scanner
	executor Executor
	mode     *ModeManager
	events   EventSink
	config   ControllerConfig
	logger   logger.LoggerInterface

	mu     sync.Mutex
	state  domain.State
	ring   *domain.LogRing
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller in Idle.
func NewController(
	id string,
	scanner *Scanner,
	executor Executor,
	mode *ModeManager,
	events EventSink,
	cfg ControllerConfig,
	log logger.LoggerInterface,
) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Controller{
		id:       id,
		scanner:  scanner,
		executor: executor,
		mode:     mode,
		events:   events,
		config:   cfg,
		logger:   log,
		state: domain.State{
			ID:     id,
			Group:  scanner.config.Group,
			Status: domain.StatusIdle,
		},
		ring: domain.NewLogRing(cfg.LogCapacity),
	}
}

// ID returns the strategy id.
func (c *Controller) ID() string {
	return c.id
}

// Start moves the strategy to Running and begins the scan loop. Calling
// Start on a running strategy is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state.Status == domain.StatusRunning {
		c.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state.Status = domain.StatusRunning
	c.state.ConsecutiveFailures = 0
	c.state.LastError = ""
	done := c.done
	c.mu.Unlock()

	c.record(ctx, domain.SeverityInfo, domain.PriorityNormal, "strategy started")

	go c.run(loopCtx, done)
}

// Stop halts the scan loop. Stopping an idle strategy is a no-op.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.state.Status != domain.StatusRunning {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.state.Status = domain.StatusIdle
	c.mu.Unlock()

	cancel()
	<-done

	c.record(ctx, domain.SeverityInfo, domain.PriorityNormal, "strategy stopped")
}

// Status returns a copy of the strategy's state including recent log lines.
func (c *Controller) Status() domain.State {
	c.mu.Lock()
	snapshot := c.state
	c.mu.Unlock()
	snapshot.RecentLog = c.ring.Entries()
	return snapshot
}

func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	// Immediate first tick; the ticker covers the rest.
	c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	opp, err := c.scanner.Scan(ctx)

	c.mu.Lock()
	c.state.LastScan = time.Now()
	c.mu.Unlock()

	if err != nil {
		// A rejected re-entrant scan means the previous tick is still
		// working; drop this one without touching the streak.
		if isScanInFlight(err) {
			c.logger.Debug(ctx, "scan still in flight, dropping tick", "strategy", c.id)
			return
		}
		c.onFailure(ctx, fmt.Sprintf("scan failed: %v", err))
		return
	}

	c.mu.Lock()
	c.state.ScansCompleted++
	c.state.ConsecutiveFailures = 0
	c.state.LastError = ""
	c.mu.Unlock()

	if opp == nil {
		return
	}

	c.mu.Lock()
	c.state.OpportunitiesFound++
	c.mu.Unlock()

	c.record(ctx, domain.SeveritySuccess, domain.PriorityNormal, fmt.Sprintf(
		"opportunity %s: %s net %s bps, size %s, est $%s",
		opp.ID, opp.Pair, opp.NetBps.StringFixed(2),
		opp.Notional.String(), opp.EstProfitUSD.StringFixed(2),
	))

	if c.mode.IsLive() {
		c.executeLive(ctx, opp)
	} else {
		c.simulateFill(ctx, opp)
	}
}

// simulateFill books dry-run PnL. The execution client is never touched.
func (c *Controller) simulateFill(ctx context.Context, opp *domain.Opportunity) {
	credited := opp.EstProfitUSD.Mul(simulatedFillFactor)

	c.mu.Lock()
	c.state.SimulatedFills++
	c.state.SimulatedPnLUSD = c.state.SimulatedPnLUSD.Add(credited)
	total := c.state.SimulatedPnLUSD
	c.mu.Unlock()

	c.record(ctx, domain.SeverityInfo, domain.PriorityNormal, fmt.Sprintf(
		"dry-run fill %s: +$%s simulated (total $%s)",
		opp.ID, credited.StringFixed(2), total.StringFixed(2),
	))
}

func (c *Controller) executeLive(ctx context.Context, opp *domain.Opportunity) {
	amount := opp.NotionalRaw().BigInt()
	req := &executionDomain.FlashLoanRequest{
		Asset:    opp.BaseAsset,
		Amount:   amount,
		BuyPool:  opp.BuyPool,
		SellPool: opp.SellPool,
		MinOut:   c.executor.MinOut(amount),
	}

	c.mu.Lock()
	c.state.ExecutionsAttempted++
	c.mu.Unlock()

	result, err := c.executor.Execute(ctx, req)

	switch {
	case result != nil && result.Success:
		gasUSD := c.gasCostUSD(result, opp)
		profit := opp.EstProfitUSD.Sub(gasUSD)

		c.mu.Lock()
		c.state.Fills++
		c.state.ConsecutiveFailures = 0
		c.state.RealizedPnLUSD = c.state.RealizedPnLUSD.Add(profit)
		c.mu.Unlock()

		c.record(ctx, domain.SeveritySuccess, domain.PriorityHigh, fmt.Sprintf(
			"filled %s: tx %s, block %d, ~$%s after gas",
			opp.ID, result.TxHash.Hex(), result.Block, profit.StringFixed(2),
		))

	case result != nil && result.Reason == executionDomain.ReasonGasAboveCeiling:
		// Expensive network is absence of signal, same as the scan gate.
		c.record(ctx, domain.SeverityInfo, domain.PriorityNormal,
			"execution skipped: gas above ceiling")

	case result != nil && result.Reason == executionDomain.ReasonReverted:
		gasUSD := c.gasCostUSD(result, opp)

		c.mu.Lock()
		c.state.RealizedPnLUSD = c.state.RealizedPnLUSD.Sub(gasUSD)
		c.mu.Unlock()

		c.onFailure(ctx, fmt.Sprintf(
			"reverted on chain %s: not profitable at execution, -$%s gas",
			opp.ID, gasUSD.StringFixed(2),
		))

	default:
		reason := "unknown"
		if result != nil {
			reason = string(result.Reason)
		}
		if err != nil {
			c.onFailure(ctx, fmt.Sprintf("execution failed (%s): %v", reason, err))
		} else {
			c.onFailure(ctx, fmt.Sprintf("execution failed: %s", reason))
		}
	}
}

// gasCostUSD converts a result's wei gas cost into quote terms using the
// opportunity's reference price.
func (c *Controller) gasCostUSD(result *executionDomain.Result, opp *domain.Opportunity) decimal.Decimal {
	if result.GasCost == nil || result.GasCost.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(result.GasCost, -18).Mul(opp.RefPrice)
}

func (c *Controller) onFailure(ctx context.Context, msg string) {
	c.mu.Lock()
	c.state.ScanFailures++
	c.state.ConsecutiveFailures++
	c.state.LastError = msg
	streak := c.state.ConsecutiveFailures
	c.mu.Unlock()

	c.record(ctx, domain.SeverityError, domain.PriorityNormal, msg)

	if c.config.MaxConsecutiveFailures > 0 && streak >= c.config.MaxConsecutiveFailures {
		c.halt(ctx, streak)
	}
}

// halt auto-stops a strategy whose failure streak hit the ceiling. The
// strategy lands back in Idle; an operator restart clears the streak.
func (c *Controller) halt(ctx context.Context, streak int) {
	c.mu.Lock()
	if c.state.Status != domain.StatusRunning {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.state.Status = domain.StatusIdle
	c.mu.Unlock()

	// Cancel without waiting: halt is called from inside the loop.
	cancel()

	c.record(ctx, domain.SeverityError, domain.PriorityHigh, fmt.Sprintf(
		"strategy halted after %d consecutive failures", streak,
	))
}

func (c *Controller) record(ctx context.Context, severity domain.Severity, priority domain.Priority, text string) {
	c.ring.Append(severity, text)
	c.events.Emit(ctx, domain.NewEvent(c.id, severity, priority, text))

	switch severity {
	case domain.SeverityError:
		c.logger.Error(ctx, text, "strategy", c.id)
	case domain.SeverityWarn:
		c.logger.Warn(ctx, text, "strategy", c.id)
	default:
		c.logger.Info(ctx, text, "strategy", c.id)
	}
}
