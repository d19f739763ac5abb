package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/middleware"
)

func DiscountRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/discounts", handlers.GetDiscounts)

	admin := api.Group("/discounts", middleware.Protected(), middleware.AdminRequired())
	admin.Post("", handlers.CreateDiscount)
	admin.Put("/:id", handlers.UpdateDiscount)
	admin.Delete("/:id", handlers.DeleteDiscount)
}
