package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hoangtv2204/tour_booking/services"
)

type PayPalHandler struct {
	service *services.BookingService
}

func NewPayPalHandler(service *services.BookingService) *PayPalHandler {
	return &PayPalHandler{service: service}
}

type paypalOrderRequest struct {
	BookingID string `json:"bookingId" validate:"required,uuid"`
}

// CreateOrder opens a fresh PayPal order for an existing pending booking, for
// buyers who dropped off the approval page from the original checkout.
func (h *PayPalHandler) CreateOrder(c *fiber.Ctx) error {
	var req paypalOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "bookingId is required"})
	}
	bookingID, _ := uuid.Parse(req.BookingID)

	booking, approveURL, err := h.service.CreateOrderForBooking(c.Context(), bookingID)
	if err != nil {
		return failJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    "PayPal order created for booking",
		"approveUrl": approveURL,
		"data":       booking,
	})
}

// CaptureOrder finalizes the PayPal payment and deducts tour capacity. Safe to
// call again for the same booking: the retry confirms the paid state without
// touching inventory.
func (h *PayPalHandler) CaptureOrder(c *fiber.Ctx) error {
	var req paypalOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "bookingId is required"})
	}
	bookingID, _ := uuid.Parse(req.BookingID)

	booking, err := h.service.Capture(c.Context(), bookingID)
	if err != nil {
		return failJSON(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "Payment captured & tickets updated", "data": booking})
}
