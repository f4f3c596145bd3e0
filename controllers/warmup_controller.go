package controller

import (
	"context"
	"time"

	"mailwarm/models"
	"mailwarm/utils"
	"mailwarm/warmup"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ErrInvalidRequestBody = "invalid request body"
	ErrBatchFailed        = "daily batch failed"
	ErrChecksFailed       = "pending check sweep failed"
	ErrManualSendFailed   = "manual send failed"
)

type WarmupController struct {
	Engine     *warmup.Engine
	Executions *models.ExecutionRepository
	Schedules  *models.ScheduleRepository
	Emails     *models.EmailRepository
	Stats      *models.StatisticRepository
	Logger     *logrus.Logger
}

func NewWarmupController(engine *warmup.Engine, executions *models.ExecutionRepository, schedules *models.ScheduleRepository, emails *models.EmailRepository, stats *models.StatisticRepository, logger *logrus.Logger) *WarmupController {
	return &WarmupController{
		Engine:     engine,
		Executions: executions,
		Schedules:  schedules,
		Emails:     emails,
		Stats:      stats,
		Logger:     logger,
	}
}

// TriggerBatch starts today's warmup batch in the background. The batch paces
// itself with inter-send delays and can run for a long time, so the request
// only confirms that it was kicked off; idempotency makes double triggers safe.
func (wc *WarmupController) TriggerBatch(c *fiber.Ctx) error {
	// Detach from the request context: the batch outlives the response
	go func() {
		if _, err := wc.Engine.RunDailyBatch(context.Background(), time.Now().UTC()); err != nil {
			wc.Logger.WithError(err).Error(ErrBatchFailed)
			sentry.CaptureException(err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse(fiber.Map{
		"message": "Daily batch triggered",
	}))
}

// TriggerChecks runs one pending-check sweep synchronously; the sweep is
// bounded by the batch limit so the request stays short.
func (wc *WarmupController) TriggerChecks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	result, err := wc.Engine.RunPendingChecks(c.Context(), time.Now().UTC(), limit)
	if err != nil {
		wc.Logger.WithError(err).Error(ErrChecksFailed)
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, ErrChecksFailed, err)
	}

	return c.JSON(utils.SuccessResponse(result))
}

// ManualSend dispatches a fixed number of warmup emails outside the schedule
func (wc *WarmupController) ManualSend(c *fiber.Ctx) error {
	var input struct {
		Count int `json:"count" validate:"required,min=1,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}

	result, err := wc.Engine.TriggerManualSend(c.Context(), input.Count)
	if err != nil {
		wc.Logger.WithError(err).Error(ErrManualSendFailed)
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, ErrManualSendFailed, err)
	}

	return c.JSON(utils.SuccessResponse(result))
}

// GetProgress reports where the warmup stands: current plan day, overall
// placement totals and the last week of executions and statistics
func (wc *WarmupController) GetProgress(c *fiber.Ctx) error {
	ctx := c.Context()

	currentDay, planComplete, err := wc.Engine.CurrentDay(ctx, time.Now().UTC())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to resolve warmup day", err)
	}

	totalDays, err := wc.Schedules.MaxDay(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to read schedule", err)
	}

	totalSent, err := wc.Emails.Count(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to count emails", err)
	}
	totalInbox, err := wc.Emails.CountByDeliveryStatus(ctx, models.DeliveryInbox)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to count emails", err)
	}
	totalSpam, err := wc.Emails.CountByDeliveryStatus(ctx, models.DeliverySpam)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to count emails", err)
	}

	var successRate, spamRate float64
	if totalSent > 0 {
		successRate = float64(totalInbox) / float64(totalSent) * 100
		spamRate = float64(totalSpam) / float64(totalSent) * 100
	}

	executions, err := wc.Executions.Recent(ctx, 7)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to read executions", err)
	}
	recentExecutions := make([]fiber.Map, 0, len(executions))
	for _, exec := range executions {
		recentExecutions = append(recentExecutions, fiber.Map{
			"date":       exec.Date.Format("2006-01-02"),
			"sent_count": exec.SentCount,
			"completed":  exec.IsCompleted(),
		})
	}

	stats, err := wc.Stats.Recent(ctx, 7)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to read statistics", err)
	}
	recentStats := make([]fiber.Map, 0, len(stats))
	for _, stat := range stats {
		recentStats = append(recentStats, fiber.Map{
			"date":         stat.Date.Format("2006-01-02"),
			"sent":         stat.EmailsSent,
			"inbox":        stat.EmailsInbox,
			"spam":         stat.EmailsSpam,
			"success_rate": stat.SuccessRate,
			"spam_rate":    stat.SpamRate,
		})
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"current_day":          currentDay,
		"plan_complete":        planComplete,
		"total_days":           totalDays,
		"total_sent":           totalSent,
		"total_inbox":          totalInbox,
		"total_spam":           totalSpam,
		"overall_success_rate": successRate,
		"overall_spam_rate":    spamRate,
		"recent_executions":    recentExecutions,
		"recent_statistics":    recentStats,
	}))
}
