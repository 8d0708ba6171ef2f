package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/api"
	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/boltstore"
	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/grpc"
	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/logging"
	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/metrics"
	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/persistence"
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/autopilot"
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/catalog"
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/config"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/database"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/pidfile"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml)")
	flag.Parse()

	fmt.Println("SpaceTraders Autopilot Daemon")
	fmt.Println("=============================")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.API.Token == "" {
		log.Fatalf("No agent token configured: set SPACETRADERS_TOKEN or api.token")
	}

	pf := pidfile.New(cfg.Daemon.PIDFile)
	if err := pf.Acquire(); err != nil {
		log.Fatalf("Failed to acquire PID file lock: %v", err)
	}
	defer func() {
		if err := pf.Release(); err != nil {
			log.Printf("Warning: failed to release PID file: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("Fatal error: %v", err)
		_ = pf.Release()
		os.Exit(1)
	}
}

// stores groups the persistence adapters selected by configuration
type stores struct {
	state     automation.StateRepository
	waypoints catalog.WaypointStore
	markets   catalog.MarketStore
	closers   []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openStores opens the automation state store. With bolt, automation records
// go to the bolt file and the catalog cache lives in an in-memory SQLite
// database that is rebuilt on demand.
func openStores(cfg *config.DatabaseConfig) (*stores, error) {
	s := &stores{}

	catalogCfg := cfg
	if cfg.Type == "bolt" {
		bolt, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		s.state = bolt
		s.closers = append(s.closers, bolt.Close)
		catalogCfg = &config.DatabaseConfig{Type: "sqlite", Path: ":memory:"}
	}

	db, err := database.NewConnection(catalogCfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.closers = append(s.closers, func() error { return database.Close(db) })
	if err := database.AutoMigrate(db); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if s.state == nil {
		s.state = persistence.NewAutomationRepository(db)
	}
	s.waypoints = persistence.NewGormWaypointRepository(db)
	s.markets = persistence.NewMarketRepository(db)
	return s, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	// 1. Logging
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	ctx = common.WithLogger(ctx, logger)

	// 2. Persistence
	st, err := openStores(&cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Log("INFO", "State store opened", map[string]interface{}{"type": cfg.Database.Type})

	// 3. Metrics
	var (
		recorder      automation.MetricsRecorder
		apiObserver   api.RequestObserver
		metricsServer *metrics.Server
	)
	if cfg.Metrics.Enabled {
		registry := metrics.NewRegistry()
		automationMetrics := metrics.NewAutomationMetricsCollector()
		apiMetrics := metrics.NewAPIMetricsCollector()
		if err := automationMetrics.Register(registry); err != nil {
			return fmt.Errorf("failed to register automation metrics: %w", err)
		}
		if err := apiMetrics.Register(registry); err != nil {
			return fmt.Errorf("failed to register API metrics: %w", err)
		}
		recorder = automationMetrics
		apiObserver = apiMetrics
		metricsServer = metrics.NewServer(net.JoinHostPort(cfg.Metrics.Host, fmt.Sprint(cfg.Metrics.Port)), cfg.Metrics.Path, registry)
	}

	// 4. Remote API
	client := api.NewSpaceTradersClient(api.Options{
		BaseURL:            cfg.API.BaseURL,
		Token:              cfg.API.Token,
		Timeout:            cfg.API.Timeout,
		RequestsPerSecond:  float64(cfg.API.RateLimit.Requests),
		Burst:              cfg.API.RateLimit.Burst,
		MaxRetries:         cfg.API.Retry.MaxAttempts,
		BackoffBase:        cfg.API.Retry.BackoffBase,
		BreakerMaxFailures: cfg.API.CircuitBreaker.MaxFailures,
		BreakerTimeout:     cfg.API.CircuitBreaker.Timeout,
		Observer:           apiObserver,
	})

	// 5. Application
	catalogService := catalog.NewService(st.waypoints, st.markets, client)
	orchestrator, err := autopilot.NewOrchestrator(autopilot.Dependencies{
		Gateway:    client,
		Repository: st.state,
		Catalog:    catalogService,
		Logger:     logger,
		Metrics:    recorder,
	}, autopilot.Config{
		TickInterval:      cfg.Automation.TickInterval,
		MaxRetries:        cfg.Automation.MaxRetries,
		CooldownEarlyExit: cfg.Automation.EarlyExit(),
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	restored, err := orchestrator.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore automations: %w", err)
	}
	logger.Log("INFO", "Automations restored", map[string]interface{}{"count": restored})

	// 6. Control socket
	listener, err := grpc.ListenUnix(cfg.Daemon.SocketPath)
	if err != nil {
		return err
	}
	server := grpc.NewDaemonServer(orchestrator, catalogService, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(listener)
	})
	if metricsServer != nil {
		g.Go(metricsServer.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Log("INFO", "Shutting down daemon", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
		defer cancel()

		server.Stop()
		var errs []error
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		errs = append(errs, orchestrator.Shutdown(shutdownCtx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	_ = os.Remove(cfg.Daemon.SocketPath)
	logger.Log("INFO", "Daemon stopped", nil)
	return nil
}
