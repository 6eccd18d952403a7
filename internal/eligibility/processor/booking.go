package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// Booking maintains the two eligibility indices in response to booking-stream
// events. No handler runs inside a cross-key transaction; every index update
// is an idempotent read-modify-write of a single key, so partial progress is
// repaired by redelivery or by the next event touching the same keys.
type Booking struct {
	store  domain.ProjectionStore
	policy domain.EligibilityPolicy
	logger *zap.Logger
}

// NewBooking constructs the booking-stream processor.
func NewBooking(store domain.ProjectionStore, policy domain.EligibilityPolicy, logger *zap.Logger) *Booking {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Booking{store: store, policy: policy, logger: logger}
}

// Process decodes and applies one booking-stream event.
func (p *Booking) Process(ctx context.Context, data []byte) error {
	ev, err := domain.DecodeBookingEvent(data)
	if err != nil {
		eventsProcessed.WithLabelValues("bookings", "unknown", "decode_error").Inc()
		return err
	}

	var eventType string
	switch ev := ev.(type) {
	case *domain.BookingCreated:
		eventType, err = domain.TypeBookingCreated, p.handleCreated(ctx, ev)
	case *domain.BookingModified:
		eventType, err = domain.TypeBookingModified, p.handleModified(ctx, ev)
	case *domain.BookingCancelled:
		eventType, err = domain.TypeBookingCancelled, p.handleCancelled(ctx, ev)
	case *domain.BookingBooked:
		eventType, err = domain.TypeBookingBooked, p.handleBooked(ctx, ev)
	case *domain.BookingPullout:
		eventType, err = domain.TypeBookingPullout, p.handlePullout(ctx, ev)
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsProcessed.WithLabelValues("bookings", eventType, result).Inc()
	return err
}

func (p *Booking) handleCreated(ctx context.Context, ev *domain.BookingCreated) error {
	snap := ev.Snapshot()
	if err := p.store.PutBooking(ctx, snap); err != nil {
		return fmt.Errorf("store booking %s: %w", ev.BookingID, err)
	}
	p.logger.Info("booking projected", zap.String("booking_id", ev.BookingID.String()))
	return p.broadcast(ctx, snap)
}

func (p *Booking) handleModified(ctx context.Context, ev *domain.BookingModified) error {
	snap, err := p.store.Booking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	if snap == nil {
		// Modified raced ahead of Created; the broadcast on Created will
		// produce a consistent view, so this delta is dropped.
		p.logger.Warn("modification for unknown booking dropped",
			zap.String("booking_id", ev.BookingID.String()))
		racesDropped.WithLabelValues("bookings").Inc()
		return nil
	}
	significant := ev.Changes.Apply(snap)
	if err := p.store.PutBooking(ctx, *snap); err != nil {
		return fmt.Errorf("store booking %s: %w", ev.BookingID, err)
	}
	if !significant {
		// Display-only change: cached summaries keep the old values.
		return nil
	}
	if err := p.removeIndexEntries(ctx, ev.BookingID); err != nil {
		return err
	}
	return p.broadcast(ctx, *snap)
}

func (p *Booking) handleCancelled(ctx context.Context, ev *domain.BookingCancelled) error {
	if err := p.store.DeleteBooking(ctx, ev.BookingID); err != nil {
		return fmt.Errorf("delete booking %s: %w", ev.BookingID, err)
	}
	if err := p.removeIndexEntries(ctx, ev.BookingID); err != nil {
		return err
	}
	p.logger.Info("booking projections removed",
		zap.String("booking_id", ev.BookingID.String()),
		zap.String("reason", ev.CancellationReason))
	return nil
}

func (p *Booking) handleBooked(ctx context.Context, ev *domain.BookingBooked) error {
	booking, err := p.store.Booking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		p.logger.Warn("assignment for unknown booking dropped",
			zap.String("booking_id", ev.BookingID.String()))
		racesDropped.WithLabelValues("bookings").Inc()
		return nil
	}

	// The shift is taken: every other candidate loses it, and the eligible
	// list shrinks to the assignee so both index directions stay symmetric.
	carers, err := p.store.CarersForShift(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	kept := make([]domain.CarerSummary, 0, 1)
	for _, c := range carers {
		if c.CarerID == ev.CarerID {
			kept = append(kept, c)
			continue
		}
		if err := removeShiftFromCarer(ctx, p.store, c.CarerID, ev.BookingID); err != nil {
			return err
		}
	}
	if err := p.store.PutCarersForShift(ctx, ev.BookingID, kept); err != nil {
		return err
	}

	// Mark the assignee's cached entry BOOKED and resolve time conflicts
	// against their own candidate set. A booking the carer was never eligible
	// for cannot be in this list, so the scan stays bounded.
	shifts, err := p.store.ShiftsForCarer(ctx, ev.CarerID)
	if err != nil {
		return err
	}
	remaining := shifts[:0]
	for _, s := range shifts {
		if s.BookingID == ev.BookingID {
			s.Status = domain.ShiftBooked
			remaining = append(remaining, s)
			continue
		}
		other, err := p.store.Booking(ctx, s.BookingID)
		if err != nil {
			return err
		}
		if other != nil && booking.Overlaps(*other) {
			if err := removeCarerFromShift(ctx, p.store, s.BookingID, ev.CarerID); err != nil {
				return err
			}
			conflictRemovals.Inc()
			p.logger.Info("conflicting shift removed",
				zap.String("carer_id", ev.CarerID.String()),
				zap.String("booked", ev.BookingID.String()),
				zap.String("conflicting", s.BookingID.String()))
			continue
		}
		remaining = append(remaining, s)
	}
	return p.store.PutShiftsForCarer(ctx, ev.CarerID, remaining)
}

func (p *Booking) handlePullout(ctx context.Context, ev *domain.BookingPullout) error {
	booking, err := p.store.Booking(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		p.logger.Warn("pullout for unknown booking dropped",
			zap.String("booking_id", ev.BookingID.String()))
		racesDropped.WithLabelValues("bookings").Inc()
		return nil
	}

	// The shift is open again: rebuild its eligibility as if freshly created,
	// then flip any surviving cached entries back to OPEN.
	if err := p.broadcast(ctx, *booking); err != nil {
		return err
	}
	if err := p.setCachedStatus(ctx, ev.BookingID, domain.ShiftOpen); err != nil {
		return err
	}
	return p.restoreConflicts(ctx, ev.CarerID, *booking)
}

// restoreConflicts re-admits the departing carer to bookings that were
// suppressed only because they overlapped the booking just vacated. A booking
// with an empty eligible-carer list is treated as no longer open and skipped;
// that heuristic cannot tell a cancelled booking from one whose candidates
// were all conflict-filtered.
func (p *Booking) restoreConflicts(ctx context.Context, carerID uuid.UUID, vacated domain.BookingSnapshot) error {
	carer, err := p.store.Carer(ctx, carerID)
	if err != nil {
		return err
	}
	if carer == nil {
		return nil
	}
	bookingIDs, err := p.store.BookingIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range bookingIDs {
		if id == vacated.BookingID {
			continue
		}
		other, err := p.store.Booking(ctx, id)
		if err != nil {
			return err
		}
		if other == nil || !vacated.Overlaps(*other) {
			continue
		}
		if !p.policy.IsEligible(*carer, *other) {
			continue
		}
		listed, err := p.store.CarersForShift(ctx, id)
		if err != nil {
			return err
		}
		if len(listed) == 0 {
			continue
		}
		already := false
		for _, c := range listed {
			if c.CarerID == carerID {
				already = true
				break
			}
		}
		if already {
			continue
		}
		dist := p.policy.Distance(carer.Location, other.Location)
		if err := p.store.PutCarersForShift(ctx, id, append(listed, newCarerSummary(*carer, dist))); err != nil {
			return err
		}
		if err := addShiftToCarer(ctx, p.store, carerID, newShiftSummary(*other, dist, domain.ShiftOpen)); err != nil {
			return err
		}
		conflictRestores.Inc()
	}
	return nil
}

// broadcast recomputes eligibility for one booking across every known carer,
// replacing the booking's eligible-carer list and inserting the shift into
// each passing carer's list.
func (p *Booking) broadcast(ctx context.Context, booking domain.BookingSnapshot) error {
	start := time.Now()
	carerIDs, err := p.store.CarerIDs(ctx)
	if err != nil {
		return err
	}
	eligible := make([]domain.CarerSummary, 0, len(carerIDs))
	for _, id := range carerIDs {
		carer, err := p.store.Carer(ctx, id)
		if err != nil {
			return err
		}
		if carer == nil || !p.policy.IsEligible(*carer, booking) {
			continue
		}
		dist := p.policy.Distance(carer.Location, booking.Location)
		eligible = append(eligible, newCarerSummary(*carer, dist))
		if err := addShiftToCarer(ctx, p.store, id, newShiftSummary(booking, dist, domain.ShiftOpen)); err != nil {
			return err
		}
	}
	if err := p.store.PutCarersForShift(ctx, booking.BookingID, eligible); err != nil {
		return err
	}
	broadcastDuration.WithLabelValues("booking").Observe(time.Since(start).Seconds())
	return nil
}

// removeIndexEntries deletes both index directions for a booking: its
// eligible-carer list and its entry in every carer's shift list. The booking
// snapshot itself is untouched.
func (p *Booking) removeIndexEntries(ctx context.Context, bookingID uuid.UUID) error {
	if err := p.store.DeleteCarersForShift(ctx, bookingID); err != nil {
		return err
	}
	carerIDs, err := p.store.CarerIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range carerIDs {
		if err := removeShiftFromCarer(ctx, p.store, id, bookingID); err != nil {
			return err
		}
	}
	return nil
}

// setCachedStatus rewrites the status tag on every cached copy of the shift.
func (p *Booking) setCachedStatus(ctx context.Context, bookingID uuid.UUID, status domain.ShiftStatus) error {
	carerIDs, err := p.store.CarerIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range carerIDs {
		shifts, err := p.store.ShiftsForCarer(ctx, id)
		if err != nil {
			return err
		}
		changed := false
		for i := range shifts {
			if shifts[i].BookingID == bookingID && shifts[i].Status != status {
				shifts[i].Status = status
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := p.store.PutShiftsForCarer(ctx, id, shifts); err != nil {
			return err
		}
	}
	return nil
}
