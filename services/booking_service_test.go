package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/hoangtv2204/tour_booking/models"
	"github.com/hoangtv2204/tour_booking/payments"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A pooled second connection would see a different :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Discount{},
		&models.Tour{},
		&models.Booking{},
		&models.BookingItem{},
		&models.Review{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fakeGateway struct {
	createCalls  int
	captureCalls int
	createErr    error
	captureErr   error
	lastParams   payments.CreateOrderParams
}

func (f *fakeGateway) CreateOrder(ctx context.Context, params payments.CreateOrderParams) (*payments.Order, error) {
	f.createCalls++
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payments.Order{
		ID:         fmt.Sprintf("ORDER-%d", f.createCalls),
		Status:     "CREATED",
		ApproveURL: "https://paypal.test/approve",
	}, nil
}

func (f *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (*payments.Order, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return &payments.Order{ID: orderID, Status: "COMPLETED"}, nil
}

func newTestService(t *testing.T) (*BookingService, *gorm.DB, *fakeGateway) {
	t.Helper()
	db := newTestDB(t)
	gateway := &fakeGateway{}
	service := NewBookingService(db, gateway, 24000, "http://localhost:3000")
	return service, db, gateway
}

func createTour(t *testing.T, db *gorm.DB, name string, capacity int) *models.Tour {
	t.Helper()
	tour := models.Tour{
		Code:            fmt.Sprintf("T-%s", uuid.New().String()[:8]),
		Name:            name,
		Price:           2400000,
		StartDate:       time.Now().AddDate(0, 1, 0),
		EndDate:         time.Now().AddDate(0, 1, 5),
		Location:        "Da Nang",
		MaxPeople:       capacity,
		AvailablePeople: capacity,
		IsActive:        true,
	}
	if err := db.Create(&tour).Error; err != nil {
		t.Fatalf("failed to create tour: %v", err)
	}
	return &tour
}

func reloadTour(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Tour {
	t.Helper()
	var tour models.Tour
	if err := db.First(&tour, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload tour: %v", err)
	}
	return &tour
}

func TestCreateBooking(t *testing.T) {
	service, db, gateway := newTestService(t)
	tour := createTour(t, db, "Ha Long Bay", 10)
	ctx := context.Background()

	booking, approveURL, err := service.Create(ctx, CreateBookingInput{
		UserID:        uuid.New(),
		Items:         []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 2400000}},
		TotalPrice:    4800000,
		PaymentMethod: models.PaymentMethodPayPal,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if booking.Status != models.BookingStatusPending {
		t.Errorf("expected status pending, got %s", booking.Status)
	}
	if booking.PaypalOrderID == nil || *booking.PaypalOrderID != "ORDER-1" {
		t.Errorf("expected order reference ORDER-1, got %v", booking.PaypalOrderID)
	}
	if approveURL != "https://paypal.test/approve" {
		t.Errorf("unexpected approve URL %q", approveURL)
	}
	if len(booking.Items) != 1 || booking.Items[0].Quantity != 2 || booking.Items[0].Price != 2400000 {
		t.Errorf("unexpected items: %+v", booking.Items)
	}
	if booking.TicketsReduced {
		t.Error("capacity must not be deducted at creation time")
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 10 {
		t.Errorf("expected available_people 10 after creation, got %d", got)
	}

	// The gateway total is the local total at the fixed rate.
	if gateway.lastParams.Total != 200 {
		t.Errorf("expected USD total 200, got %v", gateway.lastParams.Total)
	}

	// Round trip through detail.
	detail, err := service.Detail(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if len(detail.Items) != 1 || detail.Items[0].Quantity != 2 {
		t.Errorf("detail items do not match created items: %+v", detail.Items)
	}
	if subtotal := detail.Items[0].Price * float64(detail.Items[0].Quantity); subtotal != detail.TotalPrice {
		t.Errorf("total %v does not equal item subtotal %v", detail.TotalPrice, subtotal)
	}
	if detail.Items[0].Tour.Name != "Ha Long Bay" {
		t.Errorf("expected eager-loaded tour, got %+v", detail.Items[0].Tour)
	}
}

func TestCreateBookingEmptyItems(t *testing.T) {
	service, _, gateway := newTestService(t)

	_, _, err := service.Create(context.Background(), CreateBookingInput{
		UserID:     uuid.New(),
		TotalPrice: 100,
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Error("gateway must not be called for invalid input")
	}
}

func TestCreateBookingUnknownTourIsAtomic(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Sapa Trek", 10)

	_, _, err := service.Create(context.Background(), CreateBookingInput{
		UserID: uuid.New(),
		Items: []BookingItemInput{
			{TourID: tour.ID, Quantity: 2, Price: 1000000},
			{TourID: uuid.New(), Quantity: 1, Price: 500000},
		},
		TotalPrice: 2500000,
	})
	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	var bookings, items int64
	db.Model(&models.Booking{}).Count(&bookings)
	db.Model(&models.BookingItem{}).Count(&items)
	if bookings != 0 || items != 0 {
		t.Errorf("expected no persisted rows, got %d bookings and %d items", bookings, items)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 10 {
		t.Errorf("expected unchanged capacity, got %d", got)
	}
}

func TestCreateBookingOverCapacity(t *testing.T) {
	service, db, gateway := newTestService(t)
	tour := createTour(t, db, "Mekong Delta", 3)

	_, _, err := service.Create(context.Background(), CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 4, Price: 800000}},
		TotalPrice: 3200000,
	})
	var capacityErr *CapacityError
	if !errors.As(err, &capacityErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capacityErr.Available != 3 || capacityErr.Requested != 4 {
		t.Errorf("unexpected capacity details: %+v", capacityErr)
	}
	if gateway.createCalls != 0 {
		t.Error("gateway must not be called when capacity is exhausted")
	}
}

func TestCreateBookingGatewayFailure(t *testing.T) {
	service, db, gateway := newTestService(t)
	gateway.createErr = errors.New("provider unavailable")
	tour := createTour(t, db, "Hue Citadel", 5)

	_, _, err := service.Create(context.Background(), CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 1, Price: 600000}},
		TotalPrice: 600000,
	})
	var paymentErr *PaymentError
	if !errors.As(err, &paymentErr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}

	var bookings int64
	db.Model(&models.Booking{}).Count(&bookings)
	if bookings != 0 {
		t.Errorf("expected no booking after gateway failure, got %d", bookings)
	}
}

func TestCaptureDeductsExactlyOnce(t *testing.T) {
	service, db, gateway := newTestService(t)
	tour := createTour(t, db, "Phong Nha Caves", 10)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 3, Price: 1200000}},
		TotalPrice: 3600000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	captured, err := service.Capture(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if captured.Status != models.BookingStatusPaid {
		t.Errorf("expected status paid, got %s", captured.Status)
	}
	if !captured.TicketsReduced {
		t.Error("expected tickets_reduced flag set")
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 7 {
		t.Errorf("expected available_people 7 after capture, got %d", got)
	}

	// Duplicate webhook/redirect: no second gateway call, no second deduction.
	again, err := service.Capture(ctx, booking.ID)
	if err != nil {
		t.Fatalf("second Capture returned error: %v", err)
	}
	if again.Status != models.BookingStatusPaid {
		t.Errorf("expected status paid after retry, got %s", again.Status)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 7 {
		t.Errorf("expected available_people still 7, got %d", got)
	}
	if gateway.captureCalls != 1 {
		t.Errorf("expected exactly one gateway capture, got %d", gateway.captureCalls)
	}
}

func TestCaptureWithoutOrderReference(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Hoi An Old Town", 5)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:        uuid.New(),
		Items:         []BookingItemInput{{TourID: tour.ID, Quantity: 1, Price: 700000}},
		TotalPrice:    700000,
		PaymentMethod: models.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = service.Capture(ctx, booking.ID)
	var preconditionErr *PreconditionError
	if !errors.As(err, &preconditionErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestCaptureUnknownBooking(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Capture(context.Background(), uuid.New())
	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCaptureGatewayFailureKeepsState(t *testing.T) {
	service, db, gateway := newTestService(t)
	tour := createTour(t, db, "Ninh Binh", 8)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 900000}},
		TotalPrice: 1800000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	gateway.captureErr = errors.New("capture declined")
	_, err = service.Capture(ctx, booking.ID)
	var paymentErr *PaymentError
	if !errors.As(err, &paymentErr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}

	reloaded, err := service.Detail(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if reloaded.Status != models.BookingStatusPending || reloaded.TicketsReduced {
		t.Errorf("expected untouched pending booking, got status=%s reduced=%v", reloaded.Status, reloaded.TicketsReduced)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 8 {
		t.Errorf("expected unchanged capacity, got %d", got)
	}
}

func TestNoOversellAcrossBookings(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Con Dao Island", 2)
	ctx := context.Background()

	first, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 3000000}},
		TotalPrice: 6000000,
	})
	if err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}
	second, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 3000000}},
		TotalPrice: 6000000,
	})
	if err != nil {
		t.Fatalf("second Create returned error: %v", err)
	}

	if _, err := service.Capture(ctx, first.ID); err != nil {
		t.Fatalf("first Capture returned error: %v", err)
	}

	_, err = service.Capture(ctx, second.ID)
	var capacityErr *CapacityError
	if !errors.As(err, &capacityErr) {
		t.Fatalf("expected CapacityError for the losing booking, got %v", err)
	}

	tourAfter := reloadTour(t, db, tour.ID)
	if tourAfter.AvailablePeople != 0 {
		t.Errorf("expected available_people 0, got %d", tourAfter.AvailablePeople)
	}
	if tourAfter.AvailablePeople < 0 || tourAfter.AvailablePeople > tourAfter.MaxPeople {
		t.Errorf("capacity invariant violated: %d/%d", tourAfter.AvailablePeople, tourAfter.MaxPeople)
	}

	loser, err := service.Detail(ctx, second.ID)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if loser.Status == models.BookingStatusPaid || loser.TicketsReduced {
		t.Errorf("losing booking must stay unpaid, got status=%s reduced=%v", loser.Status, loser.TicketsReduced)
	}
}

func TestCancelRestoresOnce(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Ban Gioc Falls", 10)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 3, Price: 1500000}},
		TotalPrice: 4500000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := service.Capture(ctx, booking.ID); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 7 {
		t.Fatalf("expected available_people 7 after capture, got %d", got)
	}

	cancelled := models.BookingStatusCancelled
	updated, err := service.Update(ctx, booking.ID, UpdateBookingInput{Status: &cancelled})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != models.BookingStatusCancelled {
		t.Errorf("expected status cancelled, got %s", updated.Status)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 10 {
		t.Errorf("expected available_people restored to 10, got %d", got)
	}

	// Cancelling again must not restore again.
	if _, err := service.Update(ctx, booking.ID, UpdateBookingInput{Status: &cancelled}); err != nil {
		t.Fatalf("second cancel returned error: %v", err)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 10 {
		t.Errorf("expected available_people still 10, got %d", got)
	}

	// Deleting an already-cancelled booking must not restore either.
	if err := service.Delete(ctx, booking.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 10 {
		t.Errorf("expected available_people still 10 after delete, got %d", got)
	}
}

func TestCancelPendingDoesNotInflateCapacity(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Cat Ba Island", 10)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 3, Price: 1100000}},
		TotalPrice: 3300000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	cancelled := models.BookingStatusCancelled
	if _, err := service.Update(ctx, booking.ID, UpdateBookingInput{Status: &cancelled}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	tourAfter := reloadTour(t, db, tour.ID)
	if tourAfter.AvailablePeople != 10 {
		t.Errorf("cancelling a never-captured booking must not change capacity, got %d", tourAfter.AvailablePeople)
	}
}

func TestDeletePaidBookingRestores(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Phu Quoc", 6)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 2000000}},
		TotalPrice: 4000000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := service.Capture(ctx, booking.ID); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	if err := service.Delete(ctx, booking.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 6 {
		t.Errorf("expected available_people restored to 6, got %d", got)
	}
	var bookings, items int64
	db.Model(&models.Booking{}).Count(&bookings)
	db.Model(&models.BookingItem{}).Count(&items)
	if bookings != 0 || items != 0 {
		t.Errorf("expected booking and items removed, got %d bookings and %d items", bookings, items)
	}

	if err := service.Delete(ctx, booking.ID); err == nil {
		t.Error("expected NotFoundError deleting a removed booking")
	}
}

func TestCashOnDeliveryPaidViaUpdate(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Dalat Highlands", 5)
	ctx := context.Background()

	booking, approveURL, err := service.Create(ctx, CreateBookingInput{
		UserID:        uuid.New(),
		Items:         []BookingItemInput{{TourID: tour.ID, Quantity: 2, Price: 500000}},
		TotalPrice:    1000000,
		PaymentMethod: models.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if approveURL != "" {
		t.Errorf("cod booking must not have an approve URL, got %q", approveURL)
	}
	if booking.PaypalOrderID != nil {
		t.Errorf("cod booking must not have an order reference, got %v", booking.PaypalOrderID)
	}

	paid := models.BookingStatusPaid
	updated, err := service.Update(ctx, booking.ID, UpdateBookingInput{Status: &paid})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !updated.TicketsReduced {
		t.Error("expected deduction on the pending→paid transition")
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 3 {
		t.Errorf("expected available_people 3, got %d", got)
	}
}

func TestUpdateAllowListedFields(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Quy Nhon Beach", 5)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:     uuid.New(),
		Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 1, Price: 400000}},
		TotalPrice: 400000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	note := "customer asked for a window seat"
	total := 380000.0
	updated, err := service.Update(ctx, booking.ID, UpdateBookingInput{Note: &note, TotalPrice: &total})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Note != note || updated.TotalPrice != total {
		t.Errorf("expected updated note and total, got %+v", updated)
	}
	if updated.Status != models.BookingStatusPending {
		t.Errorf("status must be unchanged, got %s", updated.Status)
	}

	bad := "shipped"
	if _, err := service.Update(ctx, booking.ID, UpdateBookingInput{Status: &bad}); err == nil {
		t.Error("expected ValidationError for unknown status")
	}
}

func TestFindAllPagination(t *testing.T) {
	service, db, _ := newTestService(t)
	tour := createTour(t, db, "Mui Ne Dunes", 30)
	ctx := context.Background()
	userID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		booking, _, err := service.Create(ctx, CreateBookingInput{
			UserID:     userID,
			Items:      []BookingItemInput{{TourID: tour.ID, Quantity: 1, Price: 300000}},
			TotalPrice: 300000,
		})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		ids = append(ids, booking.ID)
		time.Sleep(5 * time.Millisecond)
	}

	bookings, total, err := service.FindAll(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindAll returned error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings on page 1, got %d", len(bookings))
	}
	if bookings[0].ID != ids[2] {
		t.Errorf("expected newest booking first, got %s", bookings[0].ID)
	}
	if len(bookings[0].Items) != 1 || bookings[0].Items[0].Tour.ID != tour.ID {
		t.Errorf("expected items and tours eagerly loaded, got %+v", bookings[0].Items)
	}

	byUser, err := service.FindByUser(ctx, userID)
	if err != nil {
		t.Fatalf("FindByUser returned error: %v", err)
	}
	if len(byUser) != 3 {
		t.Errorf("expected 3 bookings for user, got %d", len(byUser))
	}
	if byUser[0].ID != ids[2] {
		t.Errorf("expected newest booking first for user, got %s", byUser[0].ID)
	}
}

func TestCreateOrderForBooking(t *testing.T) {
	service, db, gateway := newTestService(t)
	tour := createTour(t, db, "Tam Coc", 5)
	ctx := context.Background()

	booking, _, err := service.Create(ctx, CreateBookingInput{
		UserID:        uuid.New(),
		Items:         []BookingItemInput{{TourID: tour.ID, Quantity: 1, Price: 480000}},
		TotalPrice:    480000,
		PaymentMethod: models.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, approveURL, err := service.CreateOrderForBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("CreateOrderForBooking returned error: %v", err)
	}
	if updated.PaypalOrderID == nil || *updated.PaypalOrderID != "ORDER-1" {
		t.Errorf("expected stored order reference, got %v", updated.PaypalOrderID)
	}
	if approveURL == "" {
		t.Error("expected an approve URL")
	}
	if gateway.lastParams.Total != 20 {
		t.Errorf("expected USD total 20, got %v", gateway.lastParams.Total)
	}

	// Now the capture path works for what started as a cod booking.
	captured, err := service.Capture(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if captured.Status != models.BookingStatusPaid {
		t.Errorf("expected status paid, got %s", captured.Status)
	}
	if got := reloadTour(t, db, tour.ID).AvailablePeople; got != 4 {
		t.Errorf("expected available_people 4, got %d", got)
	}
}
