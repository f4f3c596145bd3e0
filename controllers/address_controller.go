package controller

import (
	"mailwarm/models"
	"mailwarm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AddressController struct {
	DB        *gorm.DB
	Addresses *models.AddressRepository
	Logger    *logrus.Logger
}

func NewAddressController(db *gorm.DB, addresses *models.AddressRepository, logger *logrus.Logger) *AddressController {
	return &AddressController{
		DB:        db,
		Addresses: addresses,
		Logger:    logger,
	}
}

// ListAddresses returns the address book (passwords never leave the server)
func (ac *AddressController) ListAddresses(c *fiber.Ctx) error {
	var addresses []models.EmailAddress
	query := ac.DB.Order("email asc")
	if addrType := c.Query("type"); addrType != "" {
		query = query.Where("type = ?", addrType)
	}
	if err := query.Find(&addresses).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to list addresses", err)
	}
	return c.JSON(utils.SuccessResponse(addresses))
}

// UpsertAddress creates or updates an address-book entry. Recipient IMAP
// passwords are stored encrypted.
func (ac *AddressController) UpsertAddress(c *fiber.Ctx) error {
	var input struct {
		Email        string `json:"email" validate:"required,email"`
		Type         string `json:"type" validate:"required,oneof=sender recipient"`
		IMAPPassword string `json:"imap_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, ErrInvalidRequestBody, err)
	}

	addr := models.EmailAddress{
		Email: input.Email,
		Type:  input.Type,
	}
	if input.IMAPPassword != "" {
		encrypted, err := utils.Encrypt(input.IMAPPassword)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to encrypt password", err)
		}
		addr.IMAPPassword = encrypted
	}

	if err := ac.Addresses.Upsert(c.Context(), &addr); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to save address", err)
	}

	ac.Logger.WithField("email", addr.Email).Info("Address saved")
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":    addr.ID,
		"email": addr.Email,
		"type":  addr.Type,
	}))
}

// DeleteAddress removes an address-book entry
func (ac *AddressController) DeleteAddress(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid address ID", err)
	}
	if err := ac.DB.Delete(&models.EmailAddress{}, id).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to delete address", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": id}))
}
