// Package main is the entry point for the flash-loan arbitrage monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oxarb/flasharb/business/blockchain"
	blockchainDI "github.com/oxarb/flasharb/business/blockchain/di"
	blockchainDomain "github.com/oxarb/flasharb/business/blockchain/domain"
	"github.com/oxarb/flasharb/business/execution"
	"github.com/oxarb/flasharb/business/pricing"
	"github.com/oxarb/flasharb/business/strategy"
	"github.com/oxarb/flasharb/internal/apm"
	"github.com/oxarb/flasharb/internal/config"
	"github.com/oxarb/flasharb/internal/health"
	"github.com/oxarb/flasharb/internal/logger"
	"github.com/oxarb/flasharb/internal/metrics"
	"github.com/oxarb/flasharb/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting flash-loan arbitrage monitor",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Ethereum.ChainID,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Health check server on port 8081
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order
	strategyModule := &strategy.Module{}
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides chain access
		&pricing.Module{},    // Depends on blockchain for eth client
		&execution.Module{},  // Depends on blockchain for gas and balances
		strategyModule,       // Depends on all of the above
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	// RPC connectivity and the head feed both feed readiness.
	blockchainService := blockchainDI.GetBlockchainService(mono.Services())
	healthServer.RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		if _, err := blockchainService.BlockNumber(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	healthServer.RegisterCheck("head-feed", func(ctx context.Context) (bool, string) {
		if state := blockchainService.ConnectionState(); state != blockchainDomain.StateConnected {
			return false, "head feed " + string(state)
		}
		return true, ""
	})

	log.Info(ctx, "all modules started")

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")

	shutdownCtx := context.WithoutCancel(ctx)
	if err := strategyModule.Shutdown(shutdownCtx, mono); err != nil {
		log.Error(shutdownCtx, "error stopping strategy module", "error", err)
	}

	return nil
}
