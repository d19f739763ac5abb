package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID  uuid.UUID `gorm:"not null;index" json:"user_id"`
	TourID  uuid.UUID `gorm:"not null;index" json:"tour_id"`
	Rating  int       `gorm:"not null" json:"rating"`
	Comment string    `gorm:"type:text" json:"comment"`

	User User `gorm:"foreignkey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
