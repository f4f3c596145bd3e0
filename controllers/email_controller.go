package controller

import (
	"time"

	"mailwarm/models"
	"mailwarm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EmailController struct {
	DB     *gorm.DB
	Emails *models.EmailRepository
	Stats  *models.StatisticRepository
	Logger *logrus.Logger
}

func NewEmailController(db *gorm.DB, emails *models.EmailRepository, stats *models.StatisticRepository, logger *logrus.Logger) *EmailController {
	return &EmailController{
		DB:     db,
		Emails: emails,
		Stats:  stats,
		Logger: logger,
	}
}

// ListEmails returns tracked emails with optional status filters and pagination
func (ec *EmailController) ListEmails(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := ec.DB.Model(&models.Email{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if deliveryStatus := c.Query("delivery_status"); deliveryStatus != "" {
		query = query.Where("delivery_status = ?", deliveryStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to count emails", err)
	}

	var emails []models.Email
	if err := query.Order("sent_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&emails).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to list emails", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  emails,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetEmail returns one tracked email by ID
func (ec *EmailController) GetEmail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid email ID", err)
	}

	var email models.Email
	if err := ec.DB.First(&email, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "email not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to fetch email", err)
	}

	return c.JSON(utils.SuccessResponse(email))
}

// GetPendingCount reports how many emails still await a delivery check
func (ec *EmailController) GetPendingCount(c *fiber.Ctx) error {
	count, err := ec.Emails.CountByDeliveryStatus(c.Context(), models.DeliveryPending)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to count pending emails", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"pending": count}))
}

// HandlePostalWebhook processes delivery events from the Postal relay,
// recording bounces against the originating email
func (ec *EmailController) HandlePostalWebhook(c *fiber.Ctx) error {
	var input struct {
		Event   string `json:"event"` // MessageBounced, MessageDeliveryFailed
		Payload struct {
			Message struct {
				MessageID string `json:"message_id"`
			} `json:"message"`
		} `json:"payload"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}

	if input.Event != "MessageBounced" && input.Event != "MessageDeliveryFailed" {
		// Not an event we track, acknowledge and drop
		return c.JSON(utils.SuccessResponse(fiber.Map{"handled": false}))
	}

	email, err := ec.Emails.FindByPostalMessageID(c.Context(), input.Payload.Message.MessageID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to look up message", err)
	}
	if email == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "message not found", nil)
	}

	// Webhooks may be redelivered; count each bounce once
	if email.Status == models.EmailStatusBounced {
		return c.JSON(utils.SuccessResponse(fiber.Map{"handled": false}))
	}

	email.Status = models.EmailStatusBounced
	if err := ec.Emails.Update(c.Context(), email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to record bounce", err)
	}

	bounceDate := time.Now().UTC()
	if email.SentAt != nil {
		bounceDate = *email.SentAt
	}
	if err := ec.Stats.IncrementDaily(c.Context(), bounceDate, models.StatDelta{Bounced: 1}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to update statistics", err)
	}

	ec.Logger.WithFields(logrus.Fields{
		"email_id":   email.ID,
		"message_id": email.PostalMessageID,
	}).Warn("Message bounced")
	return c.JSON(utils.SuccessResponse(fiber.Map{"handled": true}))
}
