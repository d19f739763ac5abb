package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/database"
	"github.com/hoangtv2204/tour_booking/models"
	"gorm.io/gorm"
)

type DiscountRequest struct {
	Code       string  `json:"code" validate:"required"`
	Percentage float64 `json:"percentage" validate:"required,gt=0,lte=100"`
	StartDate  string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsActive   *bool   `json:"is_active"`
}

func GetDiscounts(c *fiber.Ctx) error {
	var discounts []models.Discount
	if err := database.DB.Order("created_at DESC").Find(&discounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": discounts})
}

func CreateDiscount(c *fiber.Ctx) error {
	var req DiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	endDate, _ := time.Parse("2006-01-02", req.EndDate)

	discount := models.Discount{
		Code:       req.Code,
		Percentage: req.Percentage,
		StartDate:  startDate,
		EndDate:    endDate,
		IsActive:   true,
	}
	if req.IsActive != nil {
		discount.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Discount code already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": discount})
}

func UpdateDiscount(c *fiber.Ctx) error {
	var discount models.Discount
	if err := database.DB.First(&discount, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Discount not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	delete(updates, "id")

	if err := database.DB.Model(&discount).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": discount})
}

func DeleteDiscount(c *fiber.Ctx) error {
	result := database.DB.Delete(&models.Discount{}, "id = ?", c.Params("id"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": result.Error.Error()})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Discount not found"})
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"message": "Discount deleted successfully"}})
}
