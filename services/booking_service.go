package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/hoangtv2204/tour_booking/models"
	"github.com/hoangtv2204/tour_booking/payments"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingService coordinates bookings, tour capacity and the payment gateway.
// It is the only writer of booking and inventory state.
//
// Capacity policy: creation validates capacity but does not decrement; the
// decrement happens once on the pending→paid transition (gateway capture, or a
// manual update for cash-on-delivery), guarded by the TicketsReduced flag.
// Restoration on cancel/delete runs only when that flag is set and clears it.
//
// Lock order inside every mutating transaction: booking row first, then tour
// rows in ascending ID order.
type BookingService struct {
	db              *gorm.DB
	gateway         payments.Gateway
	usdRate         float64
	checkoutBaseURL string
}

// NewBookingService builds the orchestrator. usdRate converts local prices to
// the gateway's settlement currency (VND per USD); checkoutBaseURL hosts the
// buyer's return and cancel pages.
func NewBookingService(db *gorm.DB, gateway payments.Gateway, usdRate float64, checkoutBaseURL string) *BookingService {
	return &BookingService{
		db:              db,
		gateway:         gateway,
		usdRate:         usdRate,
		checkoutBaseURL: checkoutBaseURL,
	}
}

type BookingItemInput struct {
	TourID   uuid.UUID `json:"tourId"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

type CreateBookingInput struct {
	UserID        uuid.UUID
	Items         []BookingItemInput
	TotalPrice    float64
	Note          string
	PaymentMethod string
}

type UpdateBookingInput struct {
	Status        *string
	TotalPrice    *float64
	PaymentMethod *string
	Note          *string
	PaypalOrderID *string
}

// sqlite (the test driver) has no FOR UPDATE clause; its single-writer model
// already serializes these updates.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedByTour(items []models.BookingItem) []models.BookingItem {
	sorted := make([]models.BookingItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TourID.String() < sorted[j].TourID.String()
	})
	return sorted
}

// Create validates the requested quantities, creates the gateway order for
// paypal bookings, and then persists header and items in one transaction. The
// gateway call happens before the transaction opens so no row lock is held
// across a network round-trip; the tours are re-checked under lock before the
// commit, and the booking ID is generated up front so the gateway return URL
// can reference it.
func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, string, error) {
	if len(input.Items) == 0 {
		return nil, "", &ValidationError{Message: "booking must have at least one item"}
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, "", &ValidationError{Message: "item quantity must be positive"}
		}
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = models.PaymentMethodPayPal
	}
	if input.PaymentMethod != models.PaymentMethodCOD && input.PaymentMethod != models.PaymentMethodPayPal {
		return nil, "", &ValidationError{Message: fmt.Sprintf("unknown payment method %q", input.PaymentMethod)}
	}

	bookingID := uuid.New()

	// Fail fast, without locks, before touching the gateway. The authoritative
	// check runs again under lock inside the transaction.
	orderItems := make([]payments.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		var tour models.Tour
		if err := s.db.WithContext(ctx).First(&tour, "id = ?", item.TourID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", &NotFoundError{Resource: "tour", ID: item.TourID.String()}
			}
			return nil, "", err
		}
		if item.Quantity > tour.AvailablePeople {
			return nil, "", &CapacityError{TourName: tour.Name, Requested: item.Quantity, Available: tour.AvailablePeople}
		}
		orderItems = append(orderItems, payments.OrderItem{
			Name:       fmt.Sprintf("Tour: %s", tour.Name),
			UnitAmount: round2(item.Price / s.usdRate),
			Quantity:   item.Quantity,
		})
	}

	var orderID *string
	var approveURL string
	if input.PaymentMethod == models.PaymentMethodPayPal {
		var total float64
		for _, item := range orderItems {
			total += item.UnitAmount * float64(item.Quantity)
		}
		order, err := s.gateway.CreateOrder(ctx, payments.CreateOrderParams{
			Total:     round2(total),
			Currency:  "USD",
			Items:     orderItems,
			ReturnURL: fmt.Sprintf("%s/bookings/paypal-success?bookingId=%s", s.checkoutBaseURL, bookingID),
			CancelURL: fmt.Sprintf("%s/bookings/paypal-cancel?bookingId=%s", s.checkoutBaseURL, bookingID),
		})
		if err != nil {
			return nil, "", &PaymentError{Op: "create order", Err: err}
		}
		orderID = &order.ID
		approveURL = order.ApproveURL
	}

	items := make([]models.BookingItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.BookingItem{
			BookingID: bookingID,
			TourID:    item.TourID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking := models.Booking{
			ID:            bookingID,
			UserID:        input.UserID,
			TotalPrice:    input.TotalPrice,
			Status:        models.BookingStatusPending,
			PaymentMethod: input.PaymentMethod,
			PaypalOrderID: orderID,
			Note:          input.Note,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		for _, item := range sortedByTour(items) {
			var tour models.Tour
			if err := forUpdate(tx).First(&tour, "id = ?", item.TourID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Resource: "tour", ID: item.TourID.String()}
				}
				return err
			}
			if item.Quantity > tour.AvailablePeople {
				return &CapacityError{TourName: tour.Name, Requested: item.Quantity, Available: tour.AvailablePeople}
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if orderID != nil {
			// The provider order exists but the booking does not; an unpaid
			// order expires on its own, so just leave a trail for reconciliation.
			log.Printf("🔥 Booking %s failed after PayPal order %s was created: %v", bookingID, *orderID, err)
		}
		return nil, "", classifyTxError(err)
	}

	booking, err := s.Detail(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	return booking, approveURL, nil
}

// CreateOrderForBooking opens a fresh gateway order for an existing booking,
// for buyers who abandoned the checkout started at creation time. The previous
// order reference is overwritten; an unpaid order expires on the provider side.
func (s *BookingService) CreateOrderForBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, string, error) {
	booking, err := s.Detail(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, "", &PreconditionError{Message: fmt.Sprintf("booking is %s, only pending bookings can be paid", booking.Status)}
	}

	usdTotal := round2(booking.TotalPrice / s.usdRate)
	order, err := s.gateway.CreateOrder(ctx, payments.CreateOrderParams{
		Total:    usdTotal,
		Currency: "USD",
		Items: []payments.OrderItem{
			{Name: fmt.Sprintf("Booking %s", booking.ID), UnitAmount: usdTotal, Quantity: 1},
		},
		ReturnURL: fmt.Sprintf("%s/bookings/paypal-success?bookingId=%s", s.checkoutBaseURL, booking.ID),
		CancelURL: fmt.Sprintf("%s/bookings/paypal-cancel?bookingId=%s", s.checkoutBaseURL, booking.ID),
	})
	if err != nil {
		return nil, "", &PaymentError{Op: "create order", Err: err}
	}

	booking, err = s.Update(ctx, booking.ID, UpdateBookingInput{PaypalOrderID: &order.ID})
	if err != nil {
		log.Printf("🔥 PayPal order %s created but could not be stored on booking %s: %v", order.ID, bookingID, err)
		return nil, "", err
	}
	return booking, order.ApproveURL, nil
}

// Capture confirms the gateway payment for a booking and deducts tour capacity
// exactly once. A repeated capture for an already-paid booking is a no-op
// success: the TicketsReduced flag short-circuits before the gateway is called
// again.
func (s *BookingService) Capture(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := forUpdate(tx).Preload("Items").First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "booking", ID: bookingID.String()}
			}
			return err
		}
		if booking.PaypalOrderID == nil {
			return &PreconditionError{Message: "booking has no payment order to capture"}
		}

		if booking.TicketsReduced && booking.Status == models.BookingStatusPaid {
			return nil
		}

		if _, err := s.gateway.CaptureOrder(ctx, *booking.PaypalOrderID); err != nil {
			return &PaymentError{Op: "capture order", Err: err}
		}

		if !booking.TicketsReduced {
			if err := s.deductInventory(tx, &booking); err != nil {
				return err
			}
		}

		booking.Status = models.BookingStatusPaid
		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	return s.Detail(ctx, bookingID)
}

// deductInventory takes each item's quantity out of its tour and marks the
// booking reduced. Caller holds the booking row lock.
func (s *BookingService) deductInventory(tx *gorm.DB, booking *models.Booking) error {
	for _, item := range sortedByTour(booking.Items) {
		var tour models.Tour
		if err := forUpdate(tx).First(&tour, "id = ?", item.TourID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Tour removed since the booking was made; nothing left to deduct.
				continue
			}
			return err
		}
		if item.Quantity > tour.AvailablePeople {
			return &CapacityError{TourName: tour.Name, Requested: item.Quantity, Available: tour.AvailablePeople}
		}
		tour.AvailablePeople -= item.Quantity
		if err := tx.Save(&tour).Error; err != nil {
			return err
		}
	}
	booking.TicketsReduced = true
	return nil
}

// restoreInventory gives each item's quantity back to its tour. Only runs for
// bookings whose capacity was actually deducted, and clears the flag so a
// cancelled booking that is later deleted does not restore twice.
func (s *BookingService) restoreInventory(tx *gorm.DB, booking *models.Booking) error {
	if !booking.TicketsReduced {
		return nil
	}
	for _, item := range sortedByTour(booking.Items) {
		var tour models.Tour
		if err := forUpdate(tx).First(&tour, "id = ?", item.TourID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		tour.AvailablePeople += item.Quantity
		if err := tx.Save(&tour).Error; err != nil {
			return err
		}
	}
	booking.TicketsReduced = false
	return nil
}

var validStatuses = map[string]bool{
	models.BookingStatusPending:   true,
	models.BookingStatusPaid:      true,
	models.BookingStatusCancelled: true,
	models.BookingStatusCompleted: true,
}

// Update applies the allow-listed mutable fields. Moving into cancelled
// restores capacity; moving a pending cash-on-delivery booking into paid runs
// the same flag-guarded deduction as a gateway capture.
func (s *BookingService) Update(ctx context.Context, bookingID uuid.UUID, input UpdateBookingInput) (*models.Booking, error) {
	if input.Status != nil && !validStatuses[*input.Status] {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown booking status %q", *input.Status)}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := forUpdate(tx).Preload("Items").First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "booking", ID: bookingID.String()}
			}
			return err
		}

		prevStatus := booking.Status

		if input.TotalPrice != nil {
			booking.TotalPrice = *input.TotalPrice
		}
		if input.PaymentMethod != nil {
			booking.PaymentMethod = *input.PaymentMethod
		}
		if input.Note != nil {
			booking.Note = *input.Note
		}
		if input.PaypalOrderID != nil {
			booking.PaypalOrderID = input.PaypalOrderID
		}
		if input.Status != nil {
			booking.Status = *input.Status
		}

		if prevStatus != models.BookingStatusCancelled && booking.Status == models.BookingStatusCancelled {
			if err := s.restoreInventory(tx, &booking); err != nil {
				return err
			}
		}
		if prevStatus == models.BookingStatusPending && booking.Status == models.BookingStatusPaid && !booking.TicketsReduced {
			if err := s.deductInventory(tx, &booking); err != nil {
				return err
			}
		}

		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	return s.Detail(ctx, bookingID)
}

// Delete restores any capacity still held by the booking, then removes its
// items and the header.
func (s *BookingService) Delete(ctx context.Context, bookingID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := forUpdate(tx).Preload("Items").First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "booking", ID: bookingID.String()}
			}
			return err
		}

		if err := s.restoreInventory(tx, &booking); err != nil {
			return err
		}
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.BookingItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&booking).Error
	})
	return classifyTxError(err)
}

// FindAll returns one page of bookings, newest first, with items, tours and
// the owning user attached, plus the total count for pagination.
func (s *BookingService) FindAll(ctx context.Context, page, pageSize int) ([]models.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 5
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Booking{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Items.Tour").
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (s *BookingService) Detail(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Items.Tour").
		Preload("User").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "booking", ID: bookingID.String()}
		}
		return nil, err
	}
	return &booking, nil
}

func (s *BookingService) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Items.Tour").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
