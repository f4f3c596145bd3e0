package controller

import (
	"time"

	"mailwarm/models"
	"mailwarm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Stats  *models.StatisticRepository
	Logger *logrus.Logger
}

func NewDashboardController(db *gorm.DB, stats *models.StatisticRepository, logger *logrus.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Stats:  stats,
		Logger: logger,
	}
}

// GetTodayStats returns today's aggregate counters
func (dc *DashboardController) GetTodayStats(c *fiber.Ctx) error {
	stat, err := dc.Stats.FindByDate(c.Context(), time.Now().UTC())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to read statistics", err)
	}
	if stat == nil {
		stat = &models.Statistic{Date: models.DateOnly(time.Now().UTC())}
	}
	return c.JSON(utils.SuccessResponse(stat))
}

// GetDailyStatistics returns the daily counter series, newest first
func (dc *DashboardController) GetDailyStatistics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		days = 30
	}

	stats, err := dc.Stats.Recent(c.Context(), days)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to read statistics", err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}
