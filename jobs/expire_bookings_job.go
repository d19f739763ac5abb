package jobs

import (
	"context"
	"log"
	"time"

	config "github.com/hoangtv2204/tour_booking/configs"
	"github.com/hoangtv2204/tour_booking/database"
	"github.com/hoangtv2204/tour_booking/models"
	"github.com/hoangtv2204/tour_booking/services"
)

// ExpirePendingBookings cancels bookings that stayed pending past the TTL
// (abandoned checkouts). Cancellation goes through the orchestrator so the
// inventory rules stay in one place; a pending booking never deducted capacity,
// so nothing is restored.
func ExpirePendingBookings(service *services.BookingService) {
	ttl := time.Duration(config.ConfigFloat("PENDING_BOOKING_TTL_HOURS", 24)) * time.Hour
	cutoff := time.Now().Add(-ttl)

	var stale []models.Booking
	err := database.DB.
		Where("status = ? AND created_at < ?", models.BookingStatusPending, cutoff).
		Find(&stale).Error
	if err != nil {
		log.Printf("🔥 Failed to list stale pending bookings: %v", err)
		return
	}

	cancelled := models.BookingStatusCancelled
	for _, booking := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := service.Update(ctx, booking.ID, services.UpdateBookingInput{Status: &cancelled})
		cancel()
		if err != nil {
			log.Printf("🔥 Failed to expire booking %s: %v", booking.ID, err)
			continue
		}
		log.Printf("Expired pending booking %s (created %s)", booking.ID, booking.CreatedAt.Format(time.RFC3339))
	}
}
