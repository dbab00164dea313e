package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/jobgroups/internal/config"
	"github.com/cuongbtq/jobgroups/internal/monitor"
	"github.com/cuongbtq/jobgroups/internal/wmbs/jobgroup"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/cuongbtq/jobgroups/shared/database"
	"github.com/cuongbtq/jobgroups/shared/logger"
	"github.com/cuongbtq/jobgroups/shared/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("STATUS_MONITOR_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/status-monitor/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateMonitorConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting status monitor service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initDatabase(&cfg.Database, appLogger.Component("database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	ledger, closeLedger, err := initLedger(&cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	defer closeLedger()

	store := storage.NewStorage(appLogger.Component("storage"))
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(context.Background(), dbClient.GetDB()); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	mon := monitor.NewMonitor(&monitor.Config{
		Logger:       appLogger.Component("monitor"),
		DB:           dbClient.GetDB(),
		Lister:       store,
		Service:      jobgroup.NewService(store, appLogger.Component("jobgroup")),
		Ledger:       ledger,
		Publisher:    rabbitClient,
		PollInterval: cfg.Monitor.PollInterval,
		Concurrency:  cfg.Monitor.Concurrency,
		PageSize:     cfg.Monitor.PageSize,
		RecordFiles:  cfg.Monitor.RecordFiles,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- mon.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		return err
	}

	cancel()

	shutdownTimeout := cfg.Monitor.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		mon.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Status monitor stopped gracefully")
	case <-time.After(shutdownTimeout):
		appLogger.Warn("Status monitor shutdown timeout exceeded, forcing exit")
	}

	return nil
}

func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

func initDatabase(cfg *config.DatabaseConfig, logger *slog.Logger) (*database.Client, error) {
	return database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initLedger picks the Redis ledger when an address is configured and the in-memory one otherwise
func initLedger(cfg *config.RedisConfig, logger *slog.Logger) (monitor.Ledger, func(), error) {
	if cfg.Addr == "" {
		logger.Warn("No redis address configured, status ledger is in-memory")
		return monitor.NewMemoryLedger(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ledger := monitor.NewRedisLedger(client, cfg.KeyPrefix, cfg.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ledger.Health(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Status ledger backed by redis", slog.String("addr", cfg.Addr))
	return ledger, func() { _ = client.Close() }, nil
}
