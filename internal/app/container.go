// Package app wires the application dependencies together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/slotwise/adapter/api"
	bookingCommands "github.com/slotwise/slotwise/internal/booking/application/commands"
	bookingQueries "github.com/slotwise/slotwise/internal/booking/application/queries"
	bookingDomain "github.com/slotwise/slotwise/internal/booking/domain"
	bookingPersistence "github.com/slotwise/slotwise/internal/booking/infrastructure/persistence"
	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	"github.com/slotwise/slotwise/internal/calendar/infrastructure/credentials"
	identityOAuth "github.com/slotwise/slotwise/internal/identity/application/oauth"
	identityPersistence "github.com/slotwise/slotwise/internal/identity/infrastructure/persistence"
	notificationApp "github.com/slotwise/slotwise/internal/notification/application"
	notificationSubs "github.com/slotwise/slotwise/internal/notification/application/subscribers"
	notificationInfra "github.com/slotwise/slotwise/internal/notification/infrastructure"
	schedulingApp "github.com/slotwise/slotwise/internal/scheduling/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
	schedulingPersistence "github.com/slotwise/slotwise/internal/scheduling/infrastructure/persistence"
	sharedApplication "github.com/slotwise/slotwise/internal/shared/application"
	sharedCrypto "github.com/slotwise/slotwise/internal/shared/infrastructure/crypto"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/eventbus"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/migrations"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/slotwise/slotwise/internal/shared/infrastructure/persistence"
	"github.com/slotwise/slotwise/pkg/config"
	"github.com/slotwise/slotwise/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB *pgxpool.Pool

	// Redis
	RedisClient *redis.Client

	// Repositories
	TeamMemberRepo bookingMemberRepo
	RuleRepo       schedulingDomain.AvailabilityRuleRepository
	EventTypeRepo  schedulingDomain.EventTypeRepository
	TeamRepo       schedulingDomain.TeamRepository
	BookingRepo    bookingDomain.Repository
	OAuthTokenRepo *identityPersistence.OAuthTokenRepository
	OutboxRepo     outbox.Repository

	// Infrastructure
	EventPublisher eventbus.Publisher
	UnitOfWork     sharedApplication.UnitOfWork
	TokenVault     *identityOAuth.Vault
	Calendar       *calendarApp.TieredClient

	// Scheduling services
	SlotGenerator *schedulingApp.SlotGenerator
	Selector      *schedulingApp.Selector

	// Booking handlers
	CreateBookingHandler     *bookingCommands.CreateBookingHandler
	CancelBookingHandler     *bookingCommands.CancelBookingHandler
	RescheduleBookingHandler *bookingCommands.RescheduleBookingHandler
	GetBookingHandler        *bookingQueries.GetBookingByTokenHandler
	ListUpcomingHandler      *bookingQueries.ListUpcomingBookingsHandler

	// Notifications
	NotificationTrigger *notificationApp.Trigger
	BookingSubscriber   *notificationSubs.BookingSubscriber

	// Outbox
	OutboxProcessor *outbox.Processor

	// API
	RateLimiter api.RateLimiter

	// Observability
	Metrics observability.Metrics
	Health  *observability.HealthRegistry
}

type bookingMemberRepo = schedulingDomain.TeamMemberRepository

// NewContainer creates and wires the full dependency graph.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     pool,
	}

	// Redis is optional; bookings degrade to unlimited creation without it.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis url, rate limiting disabled", "error", err)
		} else {
			c.RedisClient = redis.NewClient(opts)
		}
	}
	if c.RedisClient != nil {
		c.RateLimiter = api.NewRedisRateLimiter(c.RedisClient, cfg.BookingRateLimit, cfg.BookingRateWindow)
	} else {
		c.RateLimiter = api.AllowAllLimiter{}
	}

	// Repositories
	c.TeamMemberRepo = schedulingPersistence.NewPostgresTeamMemberRepository(pool)
	c.RuleRepo = schedulingPersistence.NewPostgresAvailabilityRuleRepository(pool)
	c.EventTypeRepo = schedulingPersistence.NewPostgresEventTypeRepository(pool)
	c.TeamRepo = schedulingPersistence.NewPostgresTeamRepository(pool)
	c.BookingRepo = bookingPersistence.NewPostgresBookingRepository(pool)
	c.OAuthTokenRepo = identityPersistence.NewOAuthTokenRepository(pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	// Token vault needs the at-rest encryption key.
	if cfg.EncryptionKey != "" && cfg.OAuthClientID != "" {
		encrypter, err := sharedCrypto.NewTokenCipher(cfg.EncryptionKey)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		vault, err := identityOAuth.NewVault(
			cfg.OAuthProvider,
			cfg.OAuthClientID,
			cfg.OAuthClientSecret,
			cfg.OAuthAuthURL,
			cfg.OAuthTokenURL,
			cfg.OAuthRedirectURL,
			identityOAuth.ScopesFromEnv(cfg.OAuthScopes),
			c.OAuthTokenRepo,
			encrypter,
		)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create token vault: %w", err)
		}
		c.TokenVault = vault
	} else {
		logger.Warn("oauth vault disabled, member-grant calendar tier unavailable")
	}

	// Calendar tiers
	var serviceAccountKey []byte
	if cfg.ServiceAccountKeyPath != "" {
		serviceAccountKey, err = os.ReadFile(cfg.ServiceAccountKeyPath)
		if err != nil {
			logger.Warn("failed to read service account key, service tiers unavailable", "error", err)
			serviceAccountKey = nil
		}
	}
	tiers := credentials.BuildTiers(
		c.TokenVault,
		credentials.CalDAVConfig{
			BaseURL:  cfg.CalDAVBaseURL,
			Username: cfg.CalDAVUsername,
			Password: cfg.CalDAVPassword,
		},
		cfg.ServiceAccountEmail,
		serviceAccountKey,
		cfg.ServiceCalendarID,
		logger,
	)
	c.Calendar = calendarApp.NewTieredClient(tiers, logger)

	// Scheduling services
	c.SlotGenerator = schedulingApp.NewSlotGenerator(c.RuleRepo, c.Calendar, logger)
	c.Selector = schedulingApp.NewSelector(c.TeamMemberRepo, c.EventTypeRepo, c.SlotGenerator, logger)

	// Booking handlers
	c.CreateBookingHandler = bookingCommands.NewCreateBookingHandler(
		c.BookingRepo,
		c.EventTypeRepo,
		c.TeamMemberRepo,
		c.Selector,
		c.Calendar,
		c.OutboxRepo,
		c.UnitOfWork,
		logger,
	)
	c.CancelBookingHandler = bookingCommands.NewCancelBookingHandler(
		c.BookingRepo,
		c.TeamMemberRepo,
		c.Calendar,
		c.OutboxRepo,
		c.UnitOfWork,
		logger,
	)
	c.RescheduleBookingHandler = bookingCommands.NewRescheduleBookingHandler(
		c.BookingRepo,
		c.EventTypeRepo,
		c.TeamMemberRepo,
		c.Selector,
		c.Calendar,
		c.OutboxRepo,
		c.UnitOfWork,
		logger,
	)
	c.GetBookingHandler = bookingQueries.NewGetBookingByTokenHandler(c.BookingRepo)
	c.ListUpcomingHandler = bookingQueries.NewListUpcomingBookingsHandler(c.BookingRepo)

	// Notifications
	sinks := []notificationApp.Sink{notificationInfra.NewLogEmailSink(logger)}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notificationInfra.NewWebhookSink(cfg.WebhookURL))
	}
	c.NotificationTrigger = notificationApp.NewTrigger(sinks, logger)
	c.BookingSubscriber = notificationSubs.NewBookingSubscriber(c.NotificationTrigger, cfg.PublicBaseURL, logger)

	// Event publisher, falling back to noop in development.
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsProduction() {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	} else {
		c.EventPublisher = publisher
	}

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger)

	// Observability
	c.Metrics = observability.NewInMemoryMetrics()
	c.Health = observability.NewHealthRegistry()
	c.Health.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy, pool.Ping))
	if c.RedisClient != nil {
		redisClient := c.RedisClient
		c.Health.Register("redis", observability.PingChecker("redis", observability.HealthStatusDegraded, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	processor := c.OutboxProcessor
	c.Health.Register("outbox", observability.OutboxLagChecker(5*time.Minute, func() float64 {
		return processor.GetStats().LagSeconds
	}))

	return c, nil
}

// Close releases held connections.
func (c *Container) Close() {
	if closer, ok := c.EventPublisher.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
