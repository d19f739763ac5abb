package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/middleware"
)

func BookingRoutes(app *fiber.App, handler *handlers.BookingHandler) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected())
	booking.Get("", handler.FindAll)
	booking.Post("", handler.Create)
	booking.Get("/user/:id", handler.FindByUser)
	booking.Get("/:id", handler.Detail)
	booking.Put("/:id", handler.Update)
	booking.Delete("/:bookingId", handler.Delete)
}
