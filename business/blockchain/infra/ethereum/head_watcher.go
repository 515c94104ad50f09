// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/business/blockchain/domain"
	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/circuitbreaker"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	tracerName = "github.com/oxarb/flasharb/business/blockchain/infra/ethereum"
	meterName  = "github.com/oxarb/flasharb/business/blockchain/infra/ethereum"
)

// HeadWatcherConfig holds configuration for the chain head watcher.
type HeadWatcherConfig struct {
	WSURL          string        // websocket endpoint (primary)
	HTTPURL        string        // HTTP endpoint (polling fallback)
	PollInterval   time.Duration // HTTP fallback poll cadence
	ReconnectDelay time.Duration // delay before redialing the socket
}

// DefaultHeadWatcherConfig returns the settings used in production.
// L2 blocks land sub-second; a 3s poll keeps block tags close enough
// when the socket is down without burning RPC quota.
func DefaultHeadWatcherConfig(wsURL, httpURL string) HeadWatcherConfig {
	return HeadWatcherConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   3 * time.Second,
		ReconnectDelay: 5 * time.Second,
	}
}

type headWatcherMetrics struct {
	headsSeen     metric.Int64Counter
	feedState     metric.Int64Gauge
	pollFallbacks metric.Int64Counter
}

// HeadWatcher keeps the latest chain head cached, streamed over the
// node's websocket feed with HTTP polling as fallback. Consumers read
// the cache through Head; nothing blocks on the feed.
type HeadWatcher struct {
	config HeadWatcherConfig
	logger logger.LoggerInterface

	wsClient   *ethclient.Client
	httpClient *ethclient.Client
	clientMu   sync.RWMutex

	head    atomic.Pointer[domain.Head]
	state   domain.ConnectionState
	stateMu sync.RWMutex

	done   chan struct{}
	closed atomic.Bool

	pollCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *headWatcherMetrics
}

// NewHeadWatcher creates a chain head watcher. Call Start to begin
// streaming; until the first head arrives, Head reports absence.
func NewHeadWatcher(cfg HeadWatcherConfig, log logger.LoggerInterface) (*HeadWatcher, error) {
	w := &HeadWatcher{
		config: cfg,
		logger: log,
		state:  domain.StateDisconnected,
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-head-poll")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	w.pollCB = circuitbreaker.New[*types.Header](cbCfg)

	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return w, nil
}

func (w *HeadWatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &headWatcherMetrics{}

	w.metrics.headsSeen, err = meter.Int64Counter(
		"chain_heads_seen_total",
		metric.WithDescription("Chain heads observed by the watcher"),
		metric.WithUnit("{head}"),
	)
	if err != nil {
		return err
	}

	w.metrics.feedState, err = meter.Int64Gauge(
		"chain_head_feed_state",
		metric.WithDescription("Head feed state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	w.metrics.pollFallbacks, err = meter.Int64Counter(
		"chain_head_poll_fallback_total",
		metric.WithDescription("Times the watcher fell back to HTTP polling"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Start dials the node and begins maintaining the head cache in the
// background. Websocket first; HTTP polling when the socket is not
// available. The error is only for the case where neither endpoint can
// be dialed at all.
func (w *HeadWatcher) Start(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "eth.head_watcher.start",
		trace.WithAttributes(
			attribute.String("ws_url", w.config.WSURL),
			attribute.String("http_url", w.config.HTTPURL),
		),
	)
	defer span.End()

	if w.closed.Load() {
		return errors.New("head watcher is closed")
	}

	w.setState(domain.StateConnecting)

	if err := w.dialWS(ctx); err == nil {
		w.setState(domain.StateConnected)
		span.SetStatus(codes.Ok, "streaming")
		go w.watchLoop(ctx)
		return nil
	} else {
		w.logger.Warn(ctx, "ws dial failed, falling back to http polling", "error", err)
		span.AddEvent("ws_failed_trying_http")
	}

	if err := w.dialHTTP(ctx); err != nil {
		w.setState(domain.StateDisconnected)
		span.SetStatus(codes.Error, "both endpoints failed")
		return apperror.New(apperror.CodeRPCConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("head watcher could not dial ws or http"))
	}

	w.metrics.pollFallbacks.Add(ctx, 1)
	w.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "polling")
	go w.pollLoop(ctx)
	return nil
}

func (w *HeadWatcher) dialWS(ctx context.Context) error {
	if w.config.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := ethclient.DialContext(ctx, w.config.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	w.clientMu.Lock()
	w.wsClient = client
	w.clientMu.Unlock()
	return nil
}

func (w *HeadWatcher) dialHTTP(ctx context.Context) error {
	if w.config.HTTPURL == "" {
		return errors.New("http url not configured")
	}
	client, err := ethclient.DialContext(ctx, w.config.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}
	w.clientMu.Lock()
	w.httpClient = client
	w.clientMu.Unlock()
	return nil
}

// watchLoop consumes the websocket head stream, redialing on error and
// degrading to HTTP polling when the socket will not come back.
func (w *HeadWatcher) watchLoop(ctx context.Context) {
	headers := make(chan *types.Header, 8)

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		w.clientMu.RLock()
		client := w.wsClient
		w.clientMu.RUnlock()
		if client == nil {
			w.degradeToPolling(ctx)
			return
		}

		sub, err := client.SubscribeNewHead(ctx, headers)
		if err != nil {
			w.logger.Error(ctx, "head subscription failed", "error", err)
			if !w.redial(ctx) {
				w.degradeToPolling(ctx)
				return
			}
			continue
		}

		w.logger.Info(ctx, "streaming chain heads via ws")
		w.consume(ctx, headers, sub)
		sub.Unsubscribe()

		if !w.redial(ctx) {
			w.degradeToPolling(ctx)
			return
		}
	}
}

// consume records heads until the subscription errors or the watcher stops.
func (w *HeadWatcher) consume(ctx context.Context, headers <-chan *types.Header, sub interface{ Err() <-chan error }) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				w.logger.Error(ctx, "head stream error", "error", err)
			}
			return
		case header := <-headers:
			if header == nil {
				continue
			}
			w.record(ctx, header)
		}
	}
}

// redial waits out the reconnect delay and re-establishes the socket.
func (w *HeadWatcher) redial(ctx context.Context) bool {
	if w.closed.Load() {
		return false
	}
	w.setState(domain.StateReconnecting)

	select {
	case <-w.done:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(w.config.ReconnectDelay):
	}

	if err := w.dialWS(ctx); err != nil {
		w.logger.Warn(ctx, "ws redial failed", "error", err)
		return false
	}
	w.setState(domain.StateConnected)
	return true
}

// degradeToPolling swaps the dead socket for HTTP polling. The watcher
// stays on HTTP for the rest of its life; a process restart gets the
// socket back.
func (w *HeadWatcher) degradeToPolling(ctx context.Context) {
	if w.closed.Load() {
		return
	}

	w.clientMu.RLock()
	httpReady := w.httpClient != nil
	w.clientMu.RUnlock()

	if !httpReady {
		if err := w.dialHTTP(ctx); err != nil {
			w.logger.Error(ctx, "http fallback dial failed, head feed down", "error", err)
			w.setState(domain.StateDisconnected)
			return
		}
	}

	w.metrics.pollFallbacks.Add(ctx, 1)
	w.setState(domain.StateConnected)
	w.logger.Warn(ctx, "head feed degraded to http polling", "interval", w.config.PollInterval)
	go w.pollLoop(ctx)
}

func (w *HeadWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *HeadWatcher) poll(ctx context.Context) {
	w.clientMu.RLock()
	client := w.httpClient
	w.clientMu.RUnlock()
	if client == nil {
		return
	}

	header, err := w.pollCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil) // nil = latest
	})
	if err != nil {
		w.logger.Warn(ctx, "head poll failed", "error", err)
		return
	}

	if head := w.head.Load(); head != nil && header.Number.Uint64() <= head.Number {
		return
	}
	w.record(ctx, header)
}

func (w *HeadWatcher) record(ctx context.Context, header *types.Header) {
	head := &domain.Head{
		Number: header.Number.Uint64(),
		Time:   time.Now(),
	}
	w.head.Store(head)
	w.metrics.headsSeen.Add(ctx, 1)
	w.logger.Debug(ctx, "chain head observed", "number", head.Number)
}

// Head returns the last observed head. ok is false before the first
// head arrives.
func (w *HeadWatcher) Head() (domain.Head, bool) {
	head := w.head.Load()
	if head == nil {
		return domain.Head{}, false
	}
	return *head, true
}

// State returns the current feed connection state.
func (w *HeadWatcher) State() domain.ConnectionState {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

// Close stops the watcher and releases its clients.
func (w *HeadWatcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.done)

	w.clientMu.Lock()
	if w.wsClient != nil {
		w.wsClient.Close()
		w.wsClient = nil
	}
	if w.httpClient != nil {
		w.httpClient.Close()
		w.httpClient = nil
	}
	w.clientMu.Unlock()

	w.setState(domain.StateDisconnected)
	return nil
}

func (w *HeadWatcher) setState(state domain.ConnectionState) {
	w.stateMu.Lock()
	w.state = state
	w.stateMu.Unlock()

	var value int64
	switch state {
	case domain.StateConnecting:
		value = 1
	case domain.StateConnected:
		value = 2
	case domain.StateReconnecting:
		value = 3
	}
	w.metrics.feedState.Record(context.Background(), value)
}
