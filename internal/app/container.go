// Package app wires configuration into the subscription engine and its
// collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	billingApp "github.com/felixgeelhaar/tutora/internal/billing/application"
	billingSubs "github.com/felixgeelhaar/tutora/internal/billing/application/subscribers"
	billingDomain "github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/payment"
	billingPersistence "github.com/felixgeelhaar/tutora/internal/billing/infrastructure/persistence"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/usage"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/resilience"
	"github.com/felixgeelhaar/tutora/pkg/config"
	"github.com/felixgeelhaar/tutora/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// auditHistory is how many change events the in-process audit subscriber keeps.
const auditHistory = 100

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Database; nil when the in-memory store is used
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis; nil when usage is counted in memory
	RedisClient *redis.Client

	// Billing infrastructure
	SubscriptionRepo billingDomain.SubscriptionRepository
	StoreBreaker     *billingPersistence.BreakerRepository
	PaymentLedger    billingDomain.PaymentLedger
	PaymentGateway   billingDomain.PaymentGateway
	UsageCounter     billingDomain.UsageCounter

	// Change events
	EventPublisher    eventbus.Publisher
	InProcessEventBus *eventbus.InProcessEventBus
	AuditSubscriber   *billingSubs.AuditSubscriber
	Notifier          *billingApp.Notifier
	EventBridge       *billingApp.EventBridge

	// Billing services
	Engine       *billingApp.Engine
	UsageService *billingApp.UsageService
	Sweeper      *billingApp.Sweeper

	Health *observability.HealthRegistry
}

// NewContainer builds every dependency from cfg. Backends that are not
// configured fall back to in-process implementations. Configured backends
// that cannot be reached are fatal outside development.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}
	recorder := observability.BreakerStateRecorder{Metrics: c.Metrics}

	if err := c.initStore(ctx, recorder); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initUsageCounter(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initEvents(); err != nil {
		c.Close()
		return nil, err
	}

	c.PaymentGateway = payment.NewGateway(payment.GatewayConfig{
		PayPal: payment.PayPalConfig{
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			BaseURL:      cfg.PayPalAPIURL,
		},
		DemoDelay: cfg.PaymentDemoDelay,
	}, recorder, logger)

	c.Notifier = billingApp.NewNotifier(logger)
	c.EventBridge = billingApp.NewEventBridge(c.EventPublisher, c.Metrics, logger)
	c.EventBridge.Attach(c.Notifier)

	c.Engine = billingApp.NewEngine(c.SubscriptionRepo, c.PaymentGateway, billingDomain.DefaultCatalog(),
		billingApp.WithLogger(logger),
		billingApp.WithMetrics(c.Metrics),
		billingApp.WithLedger(c.PaymentLedger),
		billingApp.WithNotifier(c.Notifier),
	)
	c.UsageService = billingApp.NewUsageService(c.Engine, c.UsageCounter, c.Metrics, logger)
	c.Sweeper = billingApp.NewSweeper(c.Engine, billingApp.SweeperConfig{
		Interval:  cfg.SweepInterval,
		BatchSize: cfg.SweepBatchSize,
	}, c.Metrics, logger)

	c.registerHealthChecks()

	logger.Info("container initialized",
		"store", c.StoreKind(),
		"usage_counter", c.usageKind(),
		"events", c.eventsKind(),
		"payment", c.PaymentKind(),
	)
	return c, nil
}

func (c *Container) initStore(ctx context.Context, recorder resilience.StateRecorder) error {
	cfg, logger := c.Config, c.Logger

	if !cfg.DatabaseConfigured() {
		logger.Warn("subscription store not configured, using in-memory store",
			observability.Err(billingDomain.ErrNotConfigured),
		)
		return c.useMemoryStore()
	}

	conn, err := database.NewConnection(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err == nil {
		if err = migrations.Run(ctx, conn); err != nil {
			_ = conn.Close()
			err = fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to open subscription store: %w", err)
		}
		logger.Warn("subscription store not available, using in-memory store", observability.Err(err))
		return c.useMemoryStore()
	}

	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to subscription store", "driver", c.DBDriver)

	repo, err := billingPersistence.NewSubscriptionRepository(conn)
	if err != nil {
		return err
	}
	breaker := resilience.NewBreaker(
		billingPersistence.StoreBreakerConfig(uint32(max(cfg.StoreBreakerFailures, 1)), cfg.StoreBreakerTimeout),
		logger, recorder,
	)
	c.StoreBreaker = billingPersistence.NewBreakerRepository(repo, breaker)
	c.SubscriptionRepo = c.StoreBreaker

	c.PaymentLedger, err = billingPersistence.NewPaymentLedger(conn)
	return err
}

func (c *Container) useMemoryStore() error {
	c.DBDriver = database.DriverMemory
	c.SubscriptionRepo = billingPersistence.NewMemoryRepository()
	c.PaymentLedger = billingPersistence.NewMemoryLedger()
	return nil
}

func (c *Container) initUsageCounter(ctx context.Context) error {
	cfg, logger := c.Config, c.Logger

	if config.IsPlaceholder(cfg.RedisURL) {
		c.UsageCounter = usage.NewMemoryCounter()
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		logger.Warn("invalid Redis URL, usage will be counted in memory", observability.Err(err))
		c.UsageCounter = usage.NewMemoryCounter()
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("Redis not available, usage will be counted in memory", observability.Err(err))
		c.UsageCounter = usage.NewMemoryCounter()
		return nil
	}

	c.RedisClient = client
	c.UsageCounter = usage.NewRedisCounter(client)
	logger.Info("connected to Redis")
	return nil
}

func (c *Container) initEvents() error {
	cfg, logger := c.Config, c.Logger

	if !config.IsPlaceholder(cfg.RabbitMQURL) {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err == nil {
			c.EventPublisher = publisher
			return nil
		}
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, dispatching change events in process", observability.Err(err))
	}

	c.InProcessEventBus = eventbus.NewInProcessEventBus(logger)
	c.AuditSubscriber = billingSubs.NewAuditSubscriber(auditHistory, c.Metrics, logger)
	c.InProcessEventBus.RegisterConsumer(c.AuditSubscriber)
	c.EventPublisher = c.InProcessEventBus
	return nil
}

func (c *Container) registerHealthChecks() {
	if c.DBConn != nil {
		conn, breaker := c.DBConn, c.StoreBreaker
		c.Health.Register("store", func(ctx context.Context) observability.HealthCheckResult {
			if breaker.State() == "open" {
				return observability.HealthCheckResult{
					Status:  observability.HealthStatusUnhealthy,
					Message: "store circuit open",
				}
			}
			return observability.PingChecker(string(c.DBDriver), observability.HealthStatusUnhealthy, conn.Ping)(ctx)
		})
	} else {
		c.Health.Register("store", observability.StaticChecker(observability.HealthStatusDegraded, "in-memory store, data is lost on restart"))
	}

	if c.RedisClient != nil {
		client := c.RedisClient
		c.Health.Register("usage_counter", observability.PingChecker("redis", observability.HealthStatusDegraded, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	} else {
		c.Health.Register("usage_counter", observability.StaticChecker(observability.HealthStatusHealthy, "in-memory counter"))
	}

	c.Health.Register("payment", observability.StaticChecker(observability.HealthStatusHealthy, c.PaymentKind()+" gateway"))
	c.Health.Register("events", observability.StaticChecker(observability.HealthStatusHealthy, c.eventsKind()+" event bus"))
}

// StoreKind names the active subscription store.
func (c *Container) StoreKind() string {
	return string(c.DBDriver)
}

// PaymentKind names the active payment gateway.
func (c *Container) PaymentKind() string {
	if payment.IsDemo(c.PaymentGateway) {
		return "demo"
	}
	return "paypal"
}

func (c *Container) usageKind() string {
	if c.RedisClient != nil {
		return "redis"
	}
	return "memory"
}

func (c *Container) eventsKind() string {
	if c.InProcessEventBus != nil {
		return "in-process"
	}
	return "rabbitmq"
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", observability.Err(err))
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			c.Logger.Warn("error closing Redis connection", observability.Err(err))
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", observability.Err(err))
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
