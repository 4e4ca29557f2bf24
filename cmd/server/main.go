package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"paymenow.backend/internal/config"
	"paymenow.backend/internal/infrastructure/blockchain"
	"paymenow.backend/internal/infrastructure/datasources/postgres"
	"paymenow.backend/internal/infrastructure/jobs"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/internal/infrastructure/notification"
	"paymenow.backend/internal/infrastructure/repositories"
	"paymenow.backend/internal/interfaces/http/handlers"
	"paymenow.backend/internal/interfaces/http/middleware"
	"paymenow.backend/internal/usecases"
	"paymenow.backend/pkg/jwt"
	"paymenow.backend/pkg/logger"
	"paymenow.backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := postgres.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(sqlDB); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
		}
		return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
			TranslateError: true,
		})
	}
	newGateway = func(ctx context.Context, cfg config.SettlementConfig) (usecases.SettlementGateway, func(), error) {
		factory := blockchain.NewClientFactory(cfg.RPCRatePerSecond)
		client, err := factory.GetSolanaClient(ctx, cfg.SolanaRPCURL)
		if err != nil {
			return nil, nil, err
		}
		signer, err := blockchain.NewRemoteSigner(ctx, cfg.CustodySignerURL)
		if err != nil {
			factory.Close()
			return nil, nil, err
		}
		cleanup := func() {
			signer.Close()
			factory.Close()
		}
		return blockchain.NewSolanaSettlementGateway(client, signer, cfg.USDCMint), cleanup, nil
	}
	newSink = func(cfg config.NotifierConfig) (notification.Sink, func(), error) {
		if cfg.Sink != "kafka" {
			return notification.NewLogSink(), func() {}, nil
		}
		producer, err := notification.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, nil, err
		}
		sink := notification.NewKafkaSink(producer, cfg.KafkaTopic)
		return sink, func() { _ = sink.Close() }, nil
	}
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdown  = func() <-chan os.Signal {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		return quit
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func ledgerConfig(cfg *config.Config) usecases.LedgerConfig {
	return usecases.LedgerConfig{
		SettlementMode:      usecases.SettlementMode(cfg.Settlement.Mode),
		SettlementTimeout:   cfg.Settlement.Timeout,
		ConfirmPollInterval: cfg.Settlement.ConfirmPollInterval,
		StrictDeposit:       cfg.Ledger.StrictDeposit,
		PendingTimeout:      cfg.Reconciliation.PendingTimeout,
		MaxPendingAge:       cfg.Reconciliation.MaxPendingAge,
		ReconcileBatchSize:  cfg.Reconciliation.BatchSize,
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	defer sqlDB.Close()
	logger.Info(ctx, "Connected to database", zap.Bool("migrated", cfg.Database.MigrateOnStart))

	gateway, closeGateway, err := newGateway(ctx, cfg.Settlement)
	if err != nil {
		return fmt.Errorf("failed to initialize settlement gateway: %w", err)
	}
	defer closeGateway()

	sink, closeSink, err := newSink(cfg.Notifier)
	if err != nil {
		return fmt.Errorf("failed to initialize notification sink: %w", err)
	}
	defer closeSink()
	dispatcher := notification.NewDispatcher(sink, cfg.Notifier.Workers, cfg.Notifier.MaxAttempts)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	ledger := usecases.NewLedgerUsecase(
		repositories.NewBalanceRepository(db),
		repositories.NewTransactionRepository(db),
		repositories.NewAccountRepository(db),
		repositories.NewUnitOfWork(db),
		gateway,
		dispatcher,
		ledgerConfig(cfg),
	)

	reconcileJob, err := jobs.NewReconciliationJob(ledger, cfg.Reconciliation.Schedule)
	if err != nil {
		return err
	}
	go reconcileJob.Start(ctx)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(metrics.GinMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerReadinessRoute(r, map[string]func(context.Context) error{
		"database": sqlDB.PingContext,
		"redis":    redis.Ping,
	})
	registerAPIV1Routes(r, routeDeps{
		ledgerHandler:  handlers.NewLedgerHandler(ledger),
		accountHandler: handlers.NewAccountHandler(ledger),
		webhookHandler: handlers.NewSettlementWebhookHandler(ledger, cfg.Settlement.WebhookSecret),
		authMiddleware: middleware.AuthMiddleware(jwtService),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := shutdown()
	go func() {
		select {
		case <-quit:
		case <-ctx.Done():
			return
		}
		logger.Info(ctx, "Shutting down server")
		reconcileJob.Stop()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Wallet ledger backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("settlement_mode", cfg.Settlement.Mode),
		zap.Int("routes", len(r.Routes())),
	)

	if err := runServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
