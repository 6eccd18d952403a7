package processor

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// newShiftSummary denormalizes a booking into a carer-facing entry. The
// distance is per carer and frozen at insertion time.
func newShiftSummary(b domain.BookingSnapshot, distanceKM float64, status domain.ShiftStatus) domain.ShiftSummary {
	return domain.ShiftSummary{
		BookingID:              b.BookingID,
		FacilityID:             b.FacilityID,
		Shift:                  b.Shift,
		StartTime:              b.StartTime,
		EndTime:                b.EndTime,
		Grade:                  b.Grade,
		HourlyRate:             b.HourlyRate,
		Location:               b.Location,
		SpecialRequirements:    b.SpecialRequirements,
		RequiredQualifications: b.RequiredQualifications,
		Status:                 status,
		DistanceKM:             distanceKM,
	}
}

// newCarerSummary denormalizes a carer into a booking-facing entry.
func newCarerSummary(c domain.CarerSnapshot, distanceKM float64) domain.CarerSummary {
	return domain.CarerSummary{
		CarerID:           c.CarerID,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Email:             c.Email,
		Phone:             c.Phone,
		Location:          c.Location,
		Grade:             c.Grade,
		Qualifications:    c.Qualifications,
		VisaStatus:        c.VisaStatus,
		MaxTravelDistance: c.MaxTravelDistance,
		DistanceKM:        distanceKM,
		Available:         true,
	}
}

// addShiftToCarer appends the entry to the carer's list unless the booking is
// already present. Read-modify-write per key; safe under redelivery.
func addShiftToCarer(ctx context.Context, store domain.ProjectionStore, carerID uuid.UUID, entry domain.ShiftSummary) error {
	shifts, err := store.ShiftsForCarer(ctx, carerID)
	if err != nil {
		return err
	}
	for _, s := range shifts {
		if s.BookingID == entry.BookingID {
			return nil
		}
	}
	return store.PutShiftsForCarer(ctx, carerID, append(shifts, entry))
}

// removeShiftFromCarer drops the booking from the carer's list, a no-op when
// it is not present.
func removeShiftFromCarer(ctx context.Context, store domain.ProjectionStore, carerID, bookingID uuid.UUID) error {
	shifts, err := store.ShiftsForCarer(ctx, carerID)
	if err != nil {
		return err
	}
	kept := shifts[:0]
	for _, s := range shifts {
		if s.BookingID != bookingID {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(shifts) {
		return nil
	}
	return store.PutShiftsForCarer(ctx, carerID, kept)
}

// addCarerToShift appends the entry to the booking's list unless the carer is
// already present.
func addCarerToShift(ctx context.Context, store domain.ProjectionStore, bookingID uuid.UUID, entry domain.CarerSummary) error {
	carers, err := store.CarersForShift(ctx, bookingID)
	if err != nil {
		return err
	}
	for _, c := range carers {
		if c.CarerID == entry.CarerID {
			return nil
		}
	}
	return store.PutCarersForShift(ctx, bookingID, append(carers, entry))
}

// removeCarerFromShift drops the carer from the booking's list, a no-op when
// not present.
func removeCarerFromShift(ctx context.Context, store domain.ProjectionStore, bookingID, carerID uuid.UUID) error {
	carers, err := store.CarersForShift(ctx, bookingID)
	if err != nil {
		return err
	}
	kept := carers[:0]
	for _, c := range carers {
		if c.CarerID != carerID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(carers) {
		return nil
	}
	return store.PutCarersForShift(ctx, bookingID, kept)
}
