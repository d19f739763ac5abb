package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusPaid      = "paid"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodPayPal = "paypal"
)

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"not null;index" json:"user_id"`
	TotalPrice float64   `gorm:"type:numeric(12,2);not null" json:"total_price"`
	Status     string    `gorm:"size:20;not null;default:'pending'" json:"status"`

	PaymentMethod string  `gorm:"size:20;not null;default:'paypal'" json:"payment_method"`
	PaypalOrderID *string `gorm:"size:255;unique" json:"paypal_order_id,omitempty"`

	// TicketsReduced marks that this booking's quantities have been taken out of
	// tour capacity. Deduction and restoration each happen at most once per booking.
	TicketsReduced bool `gorm:"not null;default:false" json:"tickets_reduced"`

	Note string `gorm:"type:text" json:"note"`

	User  User          `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Items []BookingItem `gorm:"foreignkey:BookingID" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
