package routes

import (
	controller "mailwarm/controllers"
	"mailwarm/middleware"
	"mailwarm/models"
	"mailwarm/warmup"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, engine *warmup.Engine, limiterStorage fiber.Storage, appLogger *logrus.Logger) {
	schedules := &models.ScheduleRepository{DB: db}
	executions := &models.ExecutionRepository{DB: db}
	emails := &models.EmailRepository{DB: db}
	stats := &models.StatisticRepository{DB: db}
	addresses := &models.AddressRepository{DB: db}

	warmupController := controller.NewWarmupController(engine, executions, schedules, emails, stats, appLogger)
	scheduleController := controller.NewScheduleController(db, schedules, appLogger)
	emailController := controller.NewEmailController(db, emails, stats, appLogger)
	dashboardController := controller.NewDashboardController(db, stats, appLogger)
	addressController := controller.NewAddressController(db, addresses, appLogger)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Warmup routes
	wu := api.Group("/warmup")
	wu.Post("/trigger-batch", warmupController.TriggerBatch)
	wu.Post("/trigger-checks", warmupController.TriggerChecks)
	wu.Post("/manual-send", middleware.ManualSendRateLimit(limiterStorage), warmupController.ManualSend)
	wu.Get("/progress", warmupController.GetProgress)

	// Schedule routes
	schedule := api.Group("/schedule")
	schedule.Get("/", scheduleController.ListSchedule)
	schedule.Put("/", scheduleController.BulkUpdateSchedule)

	// Email routes
	email := api.Group("/emails")
	email.Get("/", emailController.ListEmails)
	email.Get("/pending-count", emailController.GetPendingCount)
	email.Get("/:id", emailController.GetEmail)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetTodayStats)
	dashboard.Get("/daily", dashboardController.GetDailyStatistics)

	// Address book routes
	address := api.Group("/addresses")
	address.Get("/", addressController.ListAddresses)
	address.Post("/", addressController.UpsertAddress)
	address.Delete("/:id", addressController.DeleteAddress)

	// Postal delivery webhooks are signed by the sending platform, not by our
	// API key, so they stay outside the protected group
	app.Post("/webhooks/postal", emailController.HandlePostalWebhook)

	appLogger.Info("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *warmup.Engine, limiterStorage fiber.Storage, appLogger *logrus.Logger) {
	app.Use(cors.New())

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup API routes
	SetupAPIRoutes(app, db, engine, limiterStorage, appLogger)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
