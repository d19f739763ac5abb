package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/middleware"
)

func PaymentRoutes(app *fiber.App, handler *handlers.PayPalHandler) {
	api := app.Group("/api/v1")

	paypal := api.Group("/payments/paypal", middleware.Protected())
	paypal.Post("/create-order", handler.CreateOrder)
	paypal.Post("/capture-order", handler.CaptureOrder)
}
