package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/distance"
	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	UpdateRouteCallCount  int32
	UpdateStatusCallCount int32

	// Error injection
	UpdateRouteError  error
	UpdateStatusError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *trip
	copy.Waypoints = append([]domain.Waypoint(nil), trip.Waypoints...)
	return &copy, nil
}

func (m *MockTripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTripRepository) ListByDeparture(ctx context.Context, day time.Time, statuses []domain.TripStatus) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var result []*domain.Trip
	for _, trip := range m.trips {
		if trip.DepartureAt.Before(dayStart) || !trip.DepartureAt.Before(dayEnd) {
			continue
		}
		for _, status := range statuses {
			if trip.Status == status {
				copy := *trip
				copy.Waypoints = append([]domain.Waypoint(nil), trip.Waypoints...)
				result = append(result, &copy)
				break
			}
		}
	}
	return result, nil
}

func (m *MockTripRepository) UpdateRoute(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateRouteCallCount, 1)
	if m.UpdateRouteError != nil {
		return m.UpdateRouteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Waypoints = append([]domain.Waypoint(nil), trip.Waypoints...)
	stored.TotalMeters = trip.TotalMeters
	stored.TotalSeconds = trip.TotalSeconds
	return nil
}

func (m *MockTripRepository) UpdateStatus(ctx context.Context, id string, status domain.TripStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	trip.Status = status
	return nil
}

// GetTrip returns the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// Counters for verification
	CreateCallCount        int32
	UpdateStatusCallCount  int32
	UpdatePaymentCallCount int32

	// Error injection
	CreateError        error
	UpdateStatusError  error
	UpdatePaymentError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *booking
	return &copy, nil
}

func (m *MockBookingRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.TripID == tripID {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockBookingRepository) ListActiveByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.TripID == tripID && b.Active() {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	booking.Status = status
	return nil
}

func (m *MockBookingRepository) UpdatePayment(ctx context.Context, id string, state domain.PaymentState) error {
	atomic.AddInt32(&m.UpdatePaymentCallCount, 1)
	if m.UpdatePaymentError != nil {
		return m.UpdatePaymentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	booking.PaymentState = state
	return nil
}

func (m *MockBookingRepository) UpdateRating(ctx context.Context, id string, rating int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	booking.Rating = rating
	booking.Note = note
	return nil
}

// GetBooking returns the stored booking for test assertions.
func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// ──────────────────────────────────────────────
// MOCK TRANSACTION REPOSITORY
// ──────────────────────────────────────────────

// MockTransactionRepository is a mock implementation of
// TransactionRepository with the same uniqueness guard as the real one.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Transaction // keyed by gateway + "/" + orderID

	CreateCallCount int32
	CreateError     error
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		entries: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txn.Gateway + "/" + txn.GatewayOrderID
	if _, exists := m.entries[key]; exists {
		return repository.ErrDuplicate
	}
	copy := *txn
	m.entries[key] = &copy
	return nil
}

func (m *MockTransactionRepository) GetByOrderID(ctx context.Context, gateway, orderID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txn, ok := m.entries[gateway+"/"+orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *txn
	return &copy, nil
}

func (m *MockTransactionRepository) ListByBookingID(ctx context.Context, bookingID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, txn := range m.entries {
		if txn.BookingID == bookingID {
			copy := *txn
			result = append(result, &copy)
		}
	}
	return result, nil
}

// EntryCount returns the number of ledger entries for assertions.
func (m *MockTransactionRepository) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// ──────────────────────────────────────────────
// MOCK PRICING CONFIG REPOSITORY
// ──────────────────────────────────────────────

// MockPricingConfigRepository is a mock implementation of
// PricingConfigRepository.
type MockPricingConfigRepository struct {
	mu  sync.RWMutex
	cfg *domain.PricingConfig

	GetCallCount int32
	GetError     error
}

// NewMockPricingConfigRepository creates a new mock with the given config.
func NewMockPricingConfigRepository(cfg domain.PricingConfig) *MockPricingConfigRepository {
	return &MockPricingConfigRepository{cfg: &cfg}
}

func (m *MockPricingConfigRepository) Get(ctx context.Context) (domain.PricingConfig, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return domain.PricingConfig{}, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return domain.PricingConfig{}, repository.ErrNotFound
	}
	return *m.cfg, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	UpdateCallCount int32
	UpdateError     error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	copy := loc
	return &copy, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
	ReleaseCallCount int32
	AcquireError     error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[tripID] {
		return false, nil
	}
	m.locks[tripID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, tripID)
	return nil
}

// Held reports whether the lock for a trip is currently held.
func (m *MockLockStore) Held(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[tripID]
}

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu  sync.RWMutex
	cfg *domain.PricingConfig

	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32
	GetError            error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{}
}

func (m *MockCacheStore) GetPricingConfig(ctx context.Context) (*domain.PricingConfig, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, nil
	}
	copy := *m.cfg
	return &copy, nil
}

func (m *MockCacheStore) SetPricingConfig(ctx context.Context, cfg domain.PricingConfig) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}

func (m *MockCacheStore) InvalidatePricingConfig(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = nil
	return nil
}

// ──────────────────────────────────────────────
// MOCK DISTANCE MATRIX
// ──────────────────────────────────────────────

// MockMatrix is a mock implementation of distance.Matrix that charges a
// fixed per-leg cost.
type MockMatrix struct {
	LegMeters  float64
	LegSeconds int64

	RouteCallCount int32
	RouteError     error
}

// NewMockMatrix creates a mock matrix with the given per-leg cost.
func NewMockMatrix(legMeters float64, legSeconds int64) *MockMatrix {
	return &MockMatrix{LegMeters: legMeters, LegSeconds: legSeconds}
}

func (m *MockMatrix) Route(ctx context.Context, origin domain.Point, destinations []domain.Point) ([]distance.Leg, error) {
	atomic.AddInt32(&m.RouteCallCount, 1)
	if m.RouteError != nil {
		return nil, m.RouteError
	}
	legs := make([]distance.Leg, len(destinations))
	for i := range legs {
		legs[i] = distance.Leg{Meters: m.LegMeters, Seconds: m.LegSeconds}
	}
	return legs, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records lifecycle events for assertions.
type MockNotifier struct {
	mu               sync.Mutex
	StartedTrips     []string
	FinishedTrips    []string
	FinishedBookings []string
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) TripStarted(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartedTrips = append(m.StartedTrips, trip.ID)
}

func (m *MockNotifier) TripFinished(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishedTrips = append(m.FinishedTrips, trip.ID)
}

func (m *MockNotifier) BookingFinished(tripID, bookingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishedBookings = append(m.FinishedBookings, bookingID)
}
