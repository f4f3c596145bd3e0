package main

import (
	"context"
	"time"

	"mailwarm/config"
	"mailwarm/middleware"
	"mailwarm/models"
	"mailwarm/routes"
	"mailwarm/utils"
	"mailwarm/warmup"
	"mailwarm/worker"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		appLogger.Fatalf("Failed to load configuration: %v", err)
	}
	if config.AppConfig.Environment == "production" {
		appLogger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize Sentry for error tracking
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			appLogger.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}

	// Optional Redis backing for the manual-send rate limiter
	var limiterStorage fiber.Storage
	if config.AppConfig.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLogger.Warnf("Redis unavailable, rate limiter falls back to in-memory storage: %v", err)
		} else {
			limiterStorage = middleware.NewRedisStorage(redisClient)
		}
	}

	// Wire the warmup engine
	addresses := &models.AddressRepository{DB: config.DB}
	rng := warmup.NewRand()

	var dispatcher warmup.Dispatcher
	switch config.AppConfig.Dispatcher {
	case "smtp":
		dispatcher = utils.NewSMTPSender(config.AppConfig.SMTP)
	default:
		dispatcher = utils.NewPostalSender(config.AppConfig.Postal)
	}

	checker := utils.NewIMAPChecker(config.AppConfig.IMAP)

	engine := warmup.NewEngine(warmup.Deps{
		Schedules:  &models.ScheduleRepository{DB: config.DB},
		Executions: &models.ExecutionRepository{DB: config.DB},
		Emails:     &models.EmailRepository{DB: config.DB},
		Stats:      &models.StatisticRepository{DB: config.DB},

		Content:     utils.NewContentGenerator(config.AppConfig.OpenAIAPIKey, rng, appLogger),
		Dispatcher:  dispatcher,
		Verifier:    checker,
		Simulator:   checker,
		Credentials: utils.NewCredentialStore(config.AppConfig.RecipientPasswords, addresses, appLogger),

		Rand:   rng,
		Logger: appLogger,
	}, warmup.Options{
		Senders:          config.AppConfig.SenderAddresses,
		Recipients:       config.AppConfig.RecipientAddresses,
		MinSendDelay:     time.Duration(config.AppConfig.MinSendDelaySec) * time.Second,
		MaxSendDelay:     time.Duration(config.AppConfig.MaxSendDelaySec) * time.Second,
		CheckDelay:       time.Duration(config.AppConfig.CheckDelayMinutes) * time.Minute,
		CheckBatchLimit:  config.AppConfig.CheckBatchLimit,
		ResumeIncomplete: config.AppConfig.ResumeIncomplete,
	})

	// Initialize and start warmup worker
	warmupWorker := worker.NewWarmupWorker(
		engine,
		config.AppConfig.DailySendTime,
		time.Duration(config.AppConfig.CheckInterval)*time.Second,
		config.AppConfig.CheckBatchLimit,
		appLogger,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Without the worker nothing ever triggers sends or checks, so a
		// startup failure (bad DAILY_SEND_TIME, cron setup) is fatal
		if err := warmupWorker.Start(ctx); err != nil {
			sentry.CaptureException(err)
			appLogger.Fatalf("Warmup worker failed to start: %v", err)
		}
	}()

	// Create Fiber app
	app := fiber.New()

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine, limiterStorage, appLogger)

	// Start server
	appLogger.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		appLogger.Fatalf("Failed to start server: %v", err)
	}
}
