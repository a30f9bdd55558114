package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/annazecevic/subscription-tracker/config"
	"github.com/annazecevic/subscription-tracker/handler"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/annazecevic/subscription-tracker/middleware"
	"github.com/annazecevic/subscription-tracker/reminder"
	"github.com/annazecevic/subscription-tracker/repository"
	"github.com/annazecevic/subscription-tracker/service"
	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(logger.Config{
		ServiceName: "subscription-tracker",
		Environment: cfg.Environment,
		LogFilePath: cfg.LogFilePath,
		HMACKey:     cfg.LogHMACKey,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})

	logger.Info(logger.EventServiceStartup, "Subscription tracker starting", logger.Fields(
		"port", cfg.ServerPort,
		"environment", cfg.Environment,
		"guard_mode", cfg.GuardMode,
		"reminder_backend", cfg.ReminderBackend,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := connectMongo(ctx, cfg)
	if err != nil {
		logger.Fatal(logger.EventDBError, "Failed to connect to MongoDB", logger.Fields("error", err.Error()))
	}
	defer client.Disconnect(context.Background())
	logger.Info(logger.EventDBConnection, "Connected to MongoDB successfully", nil)

	subscriptionRepo := repository.NewSubscriptionRepository(client.Database(cfg.MongoDatabase))

	var activityRepo repository.ActivityRepository
	if len(cfg.CassandraHosts) > 0 {
		session, err := connectCassandra(cfg)
		if err != nil {
			logger.Error(logger.EventDBError, "Cassandra unavailable, activity log disabled", logger.Fields("error", err.Error()))
		} else {
			defer session.Close()
			activityRepo = repository.NewActivityRepository(session)
			logger.Info(logger.EventDBConnection, "Connected to Cassandra successfully", nil)
		}
	}

	var stats middleware.StatsRecorder
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn(logger.EventDBError, "Redis ping failed, edge guard stats disabled", logger.Fields("error", err.Error()))
		} else {
			stats = middleware.NewRedisStats(rdb, "ratelimit:stats", 24*time.Hour)
		}
	}

	trigger, closeTrigger := newReminderTrigger(cfg)
	defer closeTrigger()
	dispatcher := reminder.NewDispatcher(trigger, cfg.ReminderTimeout)

	subscriptionService := service.NewSubscriptionService(subscriptionRepo, activityRepo, dispatcher)

	limiter := middleware.NewRateLimiter(cfg.GuardRateRefill, cfg.GuardRateInterval, cfg.GuardRateCapacity)
	limiter.StartJanitor(ctx)
	guard := middleware.NewEdgeGuard(middleware.EdgeGuardConfig{
		Mode:        middleware.GuardMode(cfg.GuardMode),
		Shield:      middleware.NewShield(),
		Bots:        middleware.NewBotDetector(cfg.GuardAllowedBots),
		RateLimiter: limiter,
		Stats:       stats,
	})

	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, cfg.JWTSecret, guard.Middleware())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())
	if !cfg.GuardTrustForwards {
		// client ip for the rate limiter comes from the socket, not X-Forwarded-For
		_ = router.SetTrustedProxies(nil)
	}

	subscriptionHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info(logger.EventServiceShutdown, "Shutting down server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(logger.EventServiceShutdown, "Graceful shutdown failed", logger.Fields("error", err.Error()))
		}
	}()

	logger.Info(logger.EventServiceStartup, "Server starting", logger.Fields("port", cfg.ServerPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(logger.EventGeneral, "Failed to start server", logger.Fields("error", err.Error()))
	}

	dispatcher.Wait()
	logger.Info(logger.EventServiceShutdown, "Subscription tracker stopped", nil)
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(uint64(cfg.MongoMaxPoolSize)).
		SetConnectTimeout(10 * time.Second)

	attempts := cfg.MongoConnectRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := mongo.Connect(ctx, opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err

		logger.Warn(logger.EventDBConnection, "MongoDB not reachable, retrying", logger.Fields(
			"attempt", attempt,
			"error", err.Error(),
		))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, fmt.Errorf("mongo unreachable after %d attempts: %w", attempts, lastErr)
}

func connectCassandra(cfg *config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.CassandraHosts...)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureActivitySchema(session); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// newReminderTrigger returns nil when reminders are disabled or the backend cannot
// be reached; subscriptions are still created in that case.
func newReminderTrigger(cfg *config.Config) (reminder.Trigger, func()) {
	noop := func() {}

	switch cfg.ReminderBackend {
	case "none":
		return nil, noop
	case "amqp":
		publisher, err := reminder.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			logger.Error(logger.EventReminderFailure, "AMQP unavailable, reminders disabled", logger.Fields("error", err.Error()))
			return nil, noop
		}
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn(logger.EventServiceShutdown, "Failed to close AMQP publisher", logger.Fields("error", err.Error()))
			}
		}
	default:
		if cfg.ReminderBackend != "workflow" {
			logger.Warn(logger.EventGeneral, "Unknown reminder backend, using workflow", logger.Fields("backend", cfg.ReminderBackend))
		}
		return reminder.NewWorkflowClient(cfg.WorkflowBaseURL, cfg.WorkflowToken, cfg.ReminderCallbackURL()), noop
	}
}
