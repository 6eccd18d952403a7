package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// MemoryStore is an in-memory domain.ProjectionStore for tests and brokerless
// local runs. Entries never expire.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.BookingSnapshot
	carers   map[uuid.UUID]domain.CarerSnapshot
	shifts   map[uuid.UUID][]domain.ShiftSummary
	eligible map[uuid.UUID][]domain.CarerSummary
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[uuid.UUID]domain.BookingSnapshot),
		carers:   make(map[uuid.UUID]domain.CarerSnapshot),
		shifts:   make(map[uuid.UUID][]domain.ShiftSummary),
		eligible: make(map[uuid.UUID][]domain.CarerSummary),
	}
}

func (m *MemoryStore) PutBooking(_ context.Context, b domain.BookingSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.BookingID] = b
	return nil
}

func (m *MemoryStore) Booking(_ context.Context, id uuid.UUID) (*domain.BookingSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MemoryStore) DeleteBooking(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, id)
	return nil
}

func (m *MemoryStore) BookingIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.bookings))
	for id := range m.bookings {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) PutCarer(_ context.Context, c domain.CarerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carers[c.CarerID] = c
	return nil
}

func (m *MemoryStore) Carer(_ context.Context, id uuid.UUID) (*domain.CarerSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStore) DeleteCarer(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carers, id)
	return nil
}

func (m *MemoryStore) CarerIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.carers))
	for id := range m.carers {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) PutShiftsForCarer(_ context.Context, carerID uuid.UUID, shifts []domain.ShiftSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[carerID] = append([]domain.ShiftSummary(nil), shifts...)
	return nil
}

func (m *MemoryStore) ShiftsForCarer(_ context.Context, carerID uuid.UUID) ([]domain.ShiftSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ShiftSummary{}, m.shifts[carerID]...), nil
}

func (m *MemoryStore) DeleteShiftsForCarer(_ context.Context, carerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shifts, carerID)
	return nil
}

func (m *MemoryStore) PutCarersForShift(_ context.Context, bookingID uuid.UUID, carers []domain.CarerSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eligible[bookingID] = append([]domain.CarerSummary(nil), carers...)
	return nil
}

func (m *MemoryStore) CarersForShift(_ context.Context, bookingID uuid.UUID) ([]domain.CarerSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.CarerSummary{}, m.eligible[bookingID]...), nil
}

func (m *MemoryStore) DeleteCarersForShift(_ context.Context, bookingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.eligible, bookingID)
	return nil
}
