package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Discount struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code       string    `gorm:"size:50;not null;unique" json:"code"`
	Percentage float64   `gorm:"type:numeric(5,2);not null" json:"percentage"`
	StartDate  time.Time `gorm:"not null" json:"start_date"`
	EndDate    time.Time `gorm:"not null" json:"end_date"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
