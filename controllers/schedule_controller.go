package controller

import (
	"mailwarm/models"
	"mailwarm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ScheduleController struct {
	DB        *gorm.DB
	Schedules *models.ScheduleRepository
	Logger    *logrus.Logger
}

func NewScheduleController(db *gorm.DB, schedules *models.ScheduleRepository, logger *logrus.Logger) *ScheduleController {
	return &ScheduleController{
		DB:        db,
		Schedules: schedules,
		Logger:    logger,
	}
}

// ListSchedule returns the full ramp plan with recent execution history per day
func (sc *ScheduleController) ListSchedule(c *fiber.Ctx) error {
	schedules, err := sc.Schedules.List(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to list schedule", err)
	}

	out := make([]fiber.Map, 0, len(schedules))
	for _, schedule := range schedules {
		var executions []models.WarmupExecution
		if err := sc.DB.Where("schedule_day_id = ?", schedule.ID).
			Order("date desc").Limit(5).Find(&executions).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to load execution history", err)
		}

		history := make([]fiber.Map, 0, len(executions))
		for _, exec := range executions {
			history = append(history, fiber.Map{
				"date":       exec.Date.Format("2006-01-02"),
				"sent_count": exec.SentCount,
				"completed":  exec.IsCompleted(),
			})
		}

		out = append(out, fiber.Map{
			"id":                schedule.ID,
			"day":               schedule.Day,
			"target_emails":     schedule.TargetEmails,
			"enabled":           schedule.Enabled,
			"execution_history": history,
		})
	}

	return c.JSON(utils.SuccessResponse(out))
}

// BulkUpdateSchedule applies edits to multiple plan days at once
func (sc *ScheduleController) BulkUpdateSchedule(c *fiber.Ctx) error {
	var input struct {
		Changes []models.ScheduleChange `json:"changes" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}

	if err := sc.Schedules.BulkUpdate(c.Context(), input.Changes); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to update schedule", err)
	}

	sc.Logger.WithField("days", len(input.Changes)).Info("Warmup schedule updated")
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"updated": len(input.Changes),
	}))
}
