package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/middleware"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/auth/register", handlers.RegisterUser)
	api.Post("/auth/login", handlers.LoginUser)

	reviews := api.Group("/reviews", middleware.Protected())
	reviews.Post("", handlers.CreateReview)
}
