package main

import (
	"log"
	"time"

	config "github.com/hoangtv2204/tour_booking/configs"
	"github.com/hoangtv2204/tour_booking/database"
	"github.com/hoangtv2204/tour_booking/handlers"
	"github.com/hoangtv2204/tour_booking/jobs"
	"github.com/hoangtv2204/tour_booking/payments"
	"github.com/hoangtv2204/tour_booking/routes"
	"github.com/hoangtv2204/tour_booking/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	gateway := payments.NewPayPalClient()
	bookingService := services.NewBookingService(
		database.DB,
		gateway,
		config.ConfigFloat("PAYPAL_USD_RATE", 24000),
		config.Config("CHECKOUT_BASE_URL"),
	)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paypalHandler := handlers.NewPayPalHandler(bookingService)

	c := cron.New()
	c.AddFunc("*/30 * * * *", func() { jobs.ExpirePendingBookings(bookingService) })
	go c.Start()
	log.Println("✅ Cron job for pending booking expiry scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Tour Booking",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Welcome to Tour Booking API",
		})
	})

	routes.AuthRoutes(app)
	routes.TourRoutes(app)
	routes.DiscountRoutes(app)
	routes.BookingRoutes(app, bookingHandler)
	routes.PaymentRoutes(app, paypalHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
