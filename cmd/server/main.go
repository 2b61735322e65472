package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/application/service"
	"github.com/ge-entretec/debours/internal/config"
	"github.com/ge-entretec/debours/internal/infrastructure/external/docscan"
	"github.com/ge-entretec/debours/internal/infrastructure/persistence/repository"
	"github.com/ge-entretec/debours/internal/infrastructure/persistence/sqlite"
	"github.com/ge-entretec/debours/internal/infrastructure/storage"
	httpserver "github.com/ge-entretec/debours/internal/interfaces/http"
	"github.com/ge-entretec/debours/internal/report"
	"github.com/ge-entretec/debours/internal/seed"
	"github.com/ge-entretec/debours/pkg/database"
	"github.com/ge-entretec/debours/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	seedDemo := flag.Bool("seed", false, "populate an empty database with demo data")
	flag.Parse()

	// Load a .env file when present; real environment wins
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting débours service",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("docscan_simulated", cfg.Docscan.Simulated))

	conn, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer conn.Close()

	migrator := database.NewMigrator(conn, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.ReceiptDir, 0755); err != nil {
		logger.Fatal("Failed to create receipt directory", zap.Error(err))
	}

	txManager := sqlite.NewDB(conn.DB, logger)

	userRepo := repository.NewUserRepository(conn.DB, logger)
	claimRepo := repository.NewClaimRepository(conn.DB, logger)
	historyRepo := repository.NewHistoryRepository(conn.DB, logger)
	delegationRepo := repository.NewDelegationRepository(conn.DB, logger)

	if *seedDemo {
		seeder := seed.NewSeeder(userRepo, claimRepo, historyRepo, delegationRepo, logger)
		if err := seeder.Apply(context.Background()); err != nil {
			logger.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	receiptStore := storage.NewLocalReceiptStore(cfg.Storage.ReceiptDir, logger)

	var analyzer port.DocumentAnalyzer
	if cfg.Docscan.Simulated {
		analyzer = docscan.NewSimulatedAnalyzer(logger)
	} else {
		analyzer = docscan.NewVisionAnalyzer(
			cfg.Docscan.APIKey,
			cfg.Docscan.Model,
			cfg.Docscan.Temperature,
			logger,
		)
	}

	svcLogger := utils.NewKVLogger(logger)
	claimService := service.NewClaimService(
		claimRepo, historyRepo, userRepo, delegationRepo,
		receiptStore, txManager, svcLogger,
	)
	delegationService := service.NewDelegationService(delegationRepo, userRepo, svcLogger)
	userService := service.NewUserService(userRepo, svcLogger)

	reportWriter := report.NewExcelWriter(logger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		claimService,
		delegationService,
		userService,
		analyzer,
		reportWriter,
		svcLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
	}

	logger.Info("Shutting down server...")
	if err := server.Stop(); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
