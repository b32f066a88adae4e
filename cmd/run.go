package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"btclotto/api"
	"btclotto/application"
	"btclotto/config"
	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
	"btclotto/domain/services"
	"btclotto/infrastructure"
	"btclotto/infrastructure/cache"
	"btclotto/infrastructure/ledger"
	"btclotto/infrastructure/observability"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// eventPublisher publishes committed events and runs in-process handlers
type eventPublisher interface {
	interfaces.EventPublisher
	application.LocalEventRegistry
}

// ConfigureLogging applies the configured level and formatter to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting btclotto...")

	treasury, err := cfg.Treasury()
	if err != nil {
		return err
	}
	deployer, err := cfg.Deployer()
	if err != nil {
		return err
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithMaxConns(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize metrics
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down metrics provider")
		}
	}()

	// Initialize event publishing
	publisher, natsClient, err := newEventPublisher(ctx, cfg, metricsProvider)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()
	}

	// Initialize stats cache
	statsCache, closeCache := newStatsCache(ctx, cfg)
	defer closeCache()

	// Initialize external ledger client
	ledgerClient, closeLedger, err := newLedgerClient(cfg, treasury)
	if err != nil {
		return err
	}
	defer closeLedger()

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	opts := []application.LedgerOption{application.WithMetrics(metricsProvider)}
	if statsCache != nil {
		opts = append(opts, application.WithStatsCache(statsCache))
	}
	lotteryLedger := application.NewLedger(
		uowFactory,
		ledgerClient,
		services.NewCryptoRandomness(),
		application.Settings{
			Treasury:            treasury,
			Deployer:            deployer,
			Rules:               cfg.Rules(),
			ConsolidateDeposits: cfg.ConsolidateDeposits,
		},
		opts...,
	)
	application.RegisterApplicationSubscriptions(publisher, statsCache, metricsProvider)

	round, err := lotteryLedger.CurrentRound(ctx)
	if err != nil {
		return fmt.Errorf("failed to open current round: %w", err)
	}
	log.WithFields(log.Fields{
		"roundID": round.ID,
		"endTime": round.EndTime.UTC(),
	}).Info("Current round ready")

	// Start background workers
	var stopWorkers []func()
	if cfg.RoundSchedulerEnabled {
		stopWorkers = append(stopWorkers, application.NewRoundRolloverWorker(lotteryLedger).Start(ctx))
	}
	if cfg.DepositPollInterval > 0 {
		stopWorkers = append(stopWorkers, application.NewDepositPollWorker(lotteryLedger, cfg.DepositPollInterval).Start(ctx))
	}
	if cfg.WithdrawalRecoveryInterval > 0 {
		stopWorkers = append(stopWorkers, application.NewWithdrawalRecoveryWorker(lotteryLedger, cfg.WithdrawalRecoveryInterval).Start(ctx))
	}

	// Start HTTP API
	server := api.NewServer(lotteryLedger, api.ServerConfig{
		Addr:             cfg.HTTPAddr,
		JWTSecret:        cfg.JWTSecret,
		UnitDecimals:     cfg.UnitDecimals,
		LedgerCanisterID: cfg.LedgerCanisterID,
	}, db.Ping)
	server.Start()

	log.Infof("btclotto is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP API")
	}

	for _, stop := range stopWorkers {
		stop()
	}

	log.Info("Shutdown completed")
	return nil
}

func newEventPublisher(ctx context.Context, cfg *config.Config, recorder infrastructure.PublishRecorder) (eventPublisher, *infrastructure.NATSClient, error) {
	if !cfg.NATSEnabled {
		log.Info("NATS disabled, events are handled in process only")
		return infrastructure.NewNoopEventPublisher(), nil, nil
	}

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper()).WithMetrics(recorder)
	if err := publisher.EnsureDomainEventStream(); err != nil {
		_ = natsClient.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}
	return publisher, natsClient, nil
}

// newStatsCache connects the redis stats cache. A nil cache disables caching.
func newStatsCache(ctx context.Context, cfg *config.Config) (application.StatsCache, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, stats cache disabled")
		return nil, func() {}
	}

	log.WithField("addr", cfg.RedisAddr).Info("Stats cache enabled")
	return cache.NewRedisStatsCache(client, cfg.StatsCacheTTL), func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("Error closing redis client")
		}
	}
}

func newLedgerClient(cfg *config.Config, treasury entities.Principal) (interfaces.LedgerClient, func(), error) {
	switch cfg.LedgerMode {
	case config.LedgerModeGRPC:
		log.WithFields(log.Fields{
			"addr":       cfg.LedgerAddr,
			"canisterID": cfg.LedgerCanisterID,
		}).Info("Connecting to external ledger...")
		client, err := ledger.NewGRPCClient(cfg.LedgerAddr, cfg.LedgerCanisterID, cfg.LedgerTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to ledger: %w", err)
		}
		return client, func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Error("Error closing ledger client")
			}
		}, nil
	case config.LedgerModeMemory:
		log.Warn("Using in-memory ledger, balances are lost on restart")
		return ledger.NewMemoryLedger(treasury, cfg.LedgerFee), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger mode: %s", cfg.LedgerMode)
	}
}
