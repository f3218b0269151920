package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quellen/codegate/internal/gate/common/clock"
	"github.com/quellen/codegate/internal/gate/common/log"
	"github.com/quellen/codegate/internal/gate/gateways/httpapi"
	"github.com/quellen/codegate/internal/gate/infra/config"
	"github.com/quellen/codegate/internal/gate/infra/metrics"
	"github.com/quellen/codegate/internal/gate/repos/audit"
	auditbolt "github.com/quellen/codegate/internal/gate/repos/audit/bolt"
	"github.com/quellen/codegate/internal/gate/repos/decisioncache"
	"github.com/quellen/codegate/internal/gate/repos/prefilter"
	"github.com/quellen/codegate/internal/gate/repos/prefilter/bloom"
	"github.com/quellen/codegate/internal/gate/repos/ruleset"
	"github.com/quellen/codegate/internal/gate/services/evaluator"
	"github.com/quellen/codegate/internal/gate/services/refusal"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "codegated"

	// Default timeouts
	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the policy gate
type Application struct {
	config    *config.AppConfig
	gateway   *httpapi.Server
	metricSrv *metrics.Server
	auditLog  *auditbolt.Log
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":         version,
		"env":             cfg.Env,
		"log_level":       cfg.LogLevel,
		"port":            cfg.Port,
		"rules_dir":       cfg.RulesDir,
		"cache_size":      cfg.CacheSize,
		"max_input_bytes": cfg.MaxInputBytes,
	}, "Starting codegate policy gate")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	// Start the gate
	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "codegate stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	// Create shared clock for consistent time across all components
	clk := clock.RealClock{}

	// Initialize logger (already configured globally)
	logger := log.GetLogger()

	// Rule registry: fatal on any load error, a partial rule set must not serve.
	registry, err := ruleset.LoadDirectory(cfg.RulesDir, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}
	if registry.Len() == 0 {
		log.Warn(map[string]any{"rules_dir": cfg.RulesDir}, "Rule set is empty, every submission will be allowed")
	}
	log.Info(map[string]any{
		"rules":   registry.Len(),
		"version": fmt.Sprintf("%016x", registry.Version()),
	}, "Rule set loaded")

	// Decision cache
	cache, err := decisioncache.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	// Anchor prefilter
	pf := prefilter.Build(registry.All(), bloom.NewFactory(), cfg.BloomFPRate, logger)

	// Audit journal
	var auditLog evaluator.AuditLog = &audit.NopLog{}
	var boltLog *auditbolt.Log
	if cfg.AuditPath != "" {
		boltLog, err = auditbolt.New(cfg.AuditPath, registry.Version())
		if err != nil {
			return nil, fmt.Errorf("failed to open audit journal: %w", err)
		}
		auditLog = boltLog
		log.Info(map[string]any{"path": cfg.AuditPath}, "Audit journal opened")
	}

	// Metrics
	var m evaluator.Metrics = metrics.NewNoop()
	var metricSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		m = metrics.NewPrometheus(nil)
		metricSrv = metrics.NewServer(cfg.MetricsAddr)
		log.Info(map[string]any{"address": cfg.MetricsAddr}, "Metrics listener configured")
	}

	// Service layer
	eval := evaluator.New(evaluator.Options{
		Rules:     registry,
		Cache:     cache,
		Prefilter: pf,
		Audit:     auditLog,
		Metrics:   m,
		Logger:    logger,
		Clock:     clk,
		MaxInput:  cfg.MaxInputBytes,
		Timeout:   time.Duration(cfg.MatchTimeoutMS) * time.Millisecond,
	})

	// Gateway layer
	renderer := refusal.New(cfg.CiteAll)
	addr := fmt.Sprintf(":%d", cfg.Port)
	gateway := httpapi.NewServer(addr, eval, renderer, registry, cfg.MaxInputBytes, logger)

	return &Application{
		config:    cfg,
		gateway:   gateway,
		metricSrv: metricSrv,
		auditLog:  boltLog,
	}, nil
}

// Run starts the gate and blocks until context is cancelled
func (app *Application) Run(ctx context.Context) error {
	// Start evaluation gateway
	if err := app.gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start evaluation gateway: %w", err)
	}

	// Start metrics listener if configured
	if app.metricSrv != nil {
		go func() {
			if err := app.metricSrv.Start(); err != nil {
				log.Error(map[string]any{"error": err.Error()}, "Metrics listener failed")
			}
		}()
	}

	log.Info(map[string]any{
		"address":   app.gateway.Address(),
		"transport": "HTTP",
	}, "codegate started")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	// Stop gateway gracefully
	if err := app.gateway.Stop(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during gateway shutdown")
	}

	// Stop metrics listener
	if app.metricSrv != nil {
		if err := app.metricSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn(map[string]any{"error": err}, "Error during metrics shutdown")
		}
	}

	// Close the audit journal last so in-flight refusals are recorded
	if app.auditLog != nil {
		if err := app.auditLog.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing audit journal")
		}
	}

	log.Info(nil, "Graceful shutdown completed")
	return nil
}
