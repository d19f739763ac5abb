package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hoangtv2204/tour_booking/services"
)

type BookingHandler struct {
	service *services.BookingService
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type CreateBookingRequest struct {
	UserID        string               `json:"userId" validate:"required,uuid"`
	Items         []BookingItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice    float64              `json:"total_price" validate:"required,gt=0"`
	Note          string               `json:"note"`
	PaymentMethod string               `json:"paymentMethod" validate:"omitempty,oneof=cod paypal"`
}

type BookingItemRequest struct {
	TourID   string  `json:"tourId" validate:"required,uuid"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"required,gt=0"`
}

// statusForError maps orchestrator error kinds to distinct response codes; the
// generic 500 is the fallback, not the default.
func statusForError(err error) int {
	var (
		validationErr   *services.ValidationError
		notFoundErr     *services.NotFoundError
		capacityErr     *services.CapacityError
		preconditionErr *services.PreconditionError
		paymentErr      *services.PaymentError
		conflictErr     *services.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return fiber.StatusNotFound
	case errors.As(err, &capacityErr), errors.As(err, &conflictErr):
		return fiber.StatusConflict
	case errors.As(err, &preconditionErr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &paymentErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func failJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"success": false, "message": err.Error()})
}

func (h *BookingHandler) FindAll(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 5)

	bookings, total, err := h.service.FindAll(c.Context(), page, pageSize)
	if err != nil {
		return failJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Bookings fetched successfully",
		"data":     bookings,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid userId"})
	}

	items := make([]services.BookingItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		tourID, err := uuid.Parse(item.TourID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid tourId"})
		}
		items = append(items, services.BookingItemInput{
			TourID:   tourID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	booking, approveURL, err := h.service.Create(c.Context(), services.CreateBookingInput{
		UserID:        userID,
		Items:         items,
		TotalPrice:    req.TotalPrice,
		Note:          req.Note,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return failJSON(c, err)
	}

	resp := fiber.Map{
		"success": true,
		"message": "Booking created successfully",
		"data":    booking,
	}
	if approveURL != "" {
		resp["approveUrl"] = approveURL
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *BookingHandler) FindByUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid user id"})
	}

	bookings, err := h.service.FindByUser(c.Context(), userID)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": bookings})
}

func (h *BookingHandler) Detail(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid booking id"})
	}

	booking, err := h.service.Detail(c.Context(), bookingID)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": booking})
}

type UpdateBookingRequest struct {
	Status        *string  `json:"status" validate:"omitempty,oneof=pending paid cancelled completed"`
	TotalPrice    *float64 `json:"total_price" validate:"omitempty,gt=0"`
	PaymentMethod *string  `json:"paymentMethod" validate:"omitempty,oneof=cod paypal"`
	Note          *string  `json:"note"`
	PaypalOrderID *string  `json:"paypal_order_id"`
}

func (h *BookingHandler) Update(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid booking id"})
	}

	var req UpdateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	booking, err := h.service.Update(c.Context(), bookingID, services.UpdateBookingInput{
		Status:        req.Status,
		TotalPrice:    req.TotalPrice,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		PaypalOrderID: req.PaypalOrderID,
	})
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Booking updated successfully", "data": booking})
}

func (h *BookingHandler) Delete(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid booking id"})
	}

	if err := h.service.Delete(c.Context(), bookingID); err != nil {
		return failJSON(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"message": "Booking deleted successfully"}})
}
