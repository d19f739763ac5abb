package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/middleware"
)

func TourRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/tours", handlers.GetTours)
	api.Get("/tours/:id", handlers.GetTour)
	api.Get("/tours/:id/reviews", handlers.GetTourReviews)

	admin := api.Group("/tours", middleware.Protected(), middleware.AdminRequired())
	admin.Post("", handlers.CreateTour)
	admin.Put("/:id", handlers.UpdateTour)
	admin.Delete("/:id", handlers.DeleteTour)

	upload := api.Group("/uploads", middleware.Protected(), middleware.AdminRequired())
	upload.Get("/signature", handlers.GenerateUploadSignature)
}
