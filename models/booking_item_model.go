package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BookingID uuid.UUID `gorm:"not null;index" json:"booking_id"`
	TourID    uuid.UUID `gorm:"not null;index" json:"tour_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`

	// Price is the per-person price at booking time, not the live tour price.
	Price float64 `gorm:"type:numeric(10,2);not null" json:"price"`

	Tour Tour `gorm:"foreignkey:TourID" json:"tour,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *BookingItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
