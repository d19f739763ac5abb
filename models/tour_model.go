package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type Tour struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code        string    `gorm:"size:50;not null;unique" json:"code"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Slug        string    `gorm:"size:255;unique" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"size:255" json:"image"`
	Price       float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	Location    string    `gorm:"size:255;not null" json:"location"`

	MaxPeople       int `gorm:"not null" json:"max_people"`
	AvailablePeople int `gorm:"not null" json:"available_people"`

	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	IsFeatured bool       `gorm:"not null;default:false" json:"is_featured"`
	DiscountID *uuid.UUID `json:"discount_id,omitempty"`

	Discount *Discount `gorm:"foreignkey:DiscountID" json:"discount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tour) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Name != "" {
		t.Slug = slug.Make(t.Name)
	}
	return nil
}

func (t *Tour) BeforeUpdate(tx *gorm.DB) error {
	if t.Name != "" {
		t.Slug = slug.Make(t.Name)
	}
	return nil
}
