package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hoangtv2204/tour_booking/database"
	"github.com/hoangtv2204/tour_booking/models"
	"github.com/hoangtv2204/tour_booking/utils"
	"gorm.io/gorm"
)

type TourRequest struct {
	Code            string  `json:"code"`
	Name            string  `json:"name" validate:"required"`
	Description     string  `json:"description"`
	Image           string  `json:"image"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	StartDate       string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Location        string  `json:"location" validate:"required"`
	MaxPeople       int     `json:"max_people" validate:"required,gt=0"`
	IsActive        *bool   `json:"is_active"`
	IsFeatured      *bool   `json:"is_featured"`
	DiscountID      *string `json:"discount_id"`
}

func GetTours(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 10)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	query := database.DB.Model(&models.Tour{})
	if c.QueryBool("featured", false) {
		query = query.Where("is_featured = ?", true)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("location ILIKE ?", "%"+location+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	var tours []models.Tour
	if err := query.Preload("Discount").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tours).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "data": tours, "total": total, "page": page, "pageSize": pageSize})
}

func GetTour(c *fiber.Ctx) error {
	param := c.Params("id")
	query := database.DB.Preload("Discount")
	if _, err := uuid.Parse(param); err == nil {
		query = query.Where("id = ?", param)
	} else {
		query = query.Where("slug = ?", param)
	}

	var tour models.Tour
	if err := query.First(&tour).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": tour})
}

func CreateTour(c *fiber.Ctx) error {
	var req TourRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	endDate, _ := time.Parse("2006-01-02", req.EndDate)
	if !endDate.After(startDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "end_date must be after start_date"})
	}

	code := req.Code
	if code == "" {
		generated, err := utils.GenerateUniqueTourCode(database.DB)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to generate tour code"})
		}
		code = generated
	}

	tour := models.Tour{
		Code:            code,
		Name:            req.Name,
		Description:     req.Description,
		Image:           req.Image,
		Price:           req.Price,
		StartDate:       startDate,
		EndDate:         endDate,
		Location:        req.Location,
		MaxPeople:       req.MaxPeople,
		AvailablePeople: req.MaxPeople,
	}
	if req.IsActive != nil {
		tour.IsActive = *req.IsActive
	} else {
		tour.IsActive = true
	}
	if req.IsFeatured != nil {
		tour.IsFeatured = *req.IsFeatured
	}
	if req.DiscountID != nil {
		discountID, err := uuid.Parse(*req.DiscountID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid discount_id"})
		}
		tour.DiscountID = &discountID
	}

	if err := database.DB.Create(&tour).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Tour code already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": tour})
}

func UpdateTour(c *fiber.Ctx) error {
	var tour models.Tour
	if err := database.DB.First(&tour, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}

	// Capacity counters are owned by the booking orchestrator.
	delete(updates, "available_people")
	delete(updates, "id")
	delete(updates, "slug")

	if err := database.DB.Model(&tour).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": tour})
}

func DeleteTour(c *fiber.Ctx) error {
	result := database.DB.Delete(&models.Tour{}, "id = ?", c.Params("id"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": result.Error.Error()})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Tour not found"})
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"message": "Tour deleted successfully"}})
}
