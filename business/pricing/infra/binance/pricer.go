// Package binance provides the off-chain reference price used to convert
// bps spreads into absolute profit figures.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/cache"
	"github.com/oxarb/flasharb/internal/httpclient"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	tracerName = "binance"

	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	tickerEndpoint = "/api/v3/ticker/price"

	httpTimeout = 10 * time.Second

	// Spot prices move slower than scan cycles; a short TTL keeps one
	// REST call per cycle at most.
	priceTTL = 5 * time.Second
)

// PricerConfig holds configuration for the Binance reference pricer.
type PricerConfig struct {
	BaseURL string        // API base URL (empty = default)
	Symbol  string        // spot symbol, e.g. "ETHUSDT"
	Timeout time.Duration // request timeout
}

// DefaultPricerConfig returns sensible defaults.
func DefaultPricerConfig() PricerConfig {
	return PricerConfig{
		BaseURL: BaseAPIURL,
		Symbol:  "ETHUSDT",
		Timeout: httpTimeout,
	}
}

// Pricer fetches the spot price for the configured symbol via REST.
type Pricer struct {
	client httpclient.Client
	config PricerConfig
	prices *cache.Cache[string, decimal.Decimal]
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewPricer creates a Binance reference pricer.
func NewPricer(cfg PricerConfig, log logger.LoggerInterface) (*Pricer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	if cfg.Symbol == "" {
		cfg.Symbol = DefaultPricerConfig().Symbol
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Pricer{
		client: client,
		config: cfg,
		prices: cache.New[string, decimal.Decimal](time.Minute),
		logger: log,
		tracer: tracer,
	}, nil
}

// tickerResponse is the REST API response for a single-symbol price.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// ReferencePrice returns the spot price for the configured symbol. Results
// are cached briefly so one failing cycle does not hammer the API.
func (p *Pricer) ReferencePrice(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok := p.prices.Get(ctx, p.config.Symbol); ok {
		return cached, nil
	}

	ctx, span := p.tracer.Start(ctx, "binance.reference_price",
		trace.WithAttributes(attribute.String("symbol", p.config.Symbol)),
	)
	defer span.End()

	var result tickerResponse
	resp, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "ticker"),
			httpclient.NewLabel("symbol", p.config.Symbol),
		),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", p.config.Symbol).
		SetResult(&result).
		Get(ctx, tickerEndpoint)

	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.CodeReferencePriceFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch ticker from REST API"))
	}

	if resp.IsError() {
		return decimal.Zero, apperror.New(apperror.CodeReferencePriceFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.CodeReferencePriceFailed,
			apperror.WithCause(err),
			apperror.WithContext("malformed price "+result.Price))
	}
	if price.Sign() <= 0 {
		return decimal.Zero, apperror.New(apperror.CodeReferencePriceFailed,
			apperror.WithContext("non-positive price "+result.Price))
	}

	span.SetAttributes(attribute.String("price", price.String()))

	p.logger.Debug(ctx, "fetched reference price",
		"symbol", p.config.Symbol,
		"price", price.String())

	p.prices.Set(ctx, p.config.Symbol, price, priceTTL)

	return price, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
