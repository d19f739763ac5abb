package utils

import (
	"math/rand"
	"time"

	"github.com/hoangtv2204/tour_booking/models"
	"gorm.io/gorm"
)

const tourCodeLength = 6
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateUniqueTourCode(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, tourCodeLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := "TOUR-" + string(b)

		var tour models.Tour
		err := tx.Where("code = ?", code).First(&tour).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return code, nil
			}
			return "", err
		}
	}
}
