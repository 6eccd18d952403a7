package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// Service answers read-side queries straight from the projections. It never
// writes; staleness is bounded by the maintenance engine's convergence, and an
// absent projection is an empty result, not an error.
type Service struct {
	store domain.ProjectionStore
}

// New constructs the read service.
func New(store domain.ProjectionStore) *Service {
	return &Service{store: store}
}

// EligibleShifts returns the shifts the carer is currently believed eligible for.
func (s *Service) EligibleShifts(ctx context.Context, carerID uuid.UUID) ([]domain.ShiftSummary, error) {
	return s.store.ShiftsForCarer(ctx, carerID)
}

// EligibleCarers returns the carers currently believed eligible for the booking.
func (s *Service) EligibleCarers(ctx context.Context, bookingID uuid.UUID) ([]domain.CarerSummary, error) {
	return s.store.CarersForShift(ctx, bookingID)
}

// IsEligible reports whether the pair is present in the carer-side index.
func (s *Service) IsEligible(ctx context.Context, carerID, bookingID uuid.UUID) (bool, error) {
	shifts, err := s.store.ShiftsForCarer(ctx, carerID)
	if err != nil {
		return false, err
	}
	for _, sh := range shifts {
		if sh.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

// ShiftFilter narrows an eligible-shifts query. Zero values mean no filter.
type ShiftFilter struct {
	Location      string
	MaxDistanceKM float64
}

// FilterShifts applies the filter to the carer's eligible shifts.
func (s *Service) FilterShifts(ctx context.Context, carerID uuid.UUID, f ShiftFilter) ([]domain.ShiftSummary, error) {
	shifts, err := s.store.ShiftsForCarer(ctx, carerID)
	if err != nil {
		return nil, err
	}
	out := shifts[:0]
	for _, sh := range shifts {
		if f.Location != "" && sh.Location != f.Location {
			continue
		}
		if f.MaxDistanceKM > 0 && sh.DistanceKM > f.MaxDistanceKM {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

// CarerFilter narrows an eligible-carers query. Zero values mean no filter.
type CarerFilter struct {
	Grade         string
	MaxDistanceKM float64
}

// FilterCarers applies the filter to the booking's eligible carers.
func (s *Service) FilterCarers(ctx context.Context, bookingID uuid.UUID, f CarerFilter) ([]domain.CarerSummary, error) {
	carers, err := s.store.CarersForShift(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out := carers[:0]
	for _, c := range carers {
		if f.Grade != "" && c.Grade != f.Grade {
			continue
		}
		if f.MaxDistanceKM > 0 && c.DistanceKM > f.MaxDistanceKM {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
