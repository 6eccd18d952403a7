package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// Carer maintains the eligibility indices in response to carer-stream events.
// It mirrors the booking processor with the index directions swapped.
type Carer struct {
	store  domain.ProjectionStore
	policy domain.EligibilityPolicy
	logger *zap.Logger
}

// NewCarer constructs the carer-stream processor.
func NewCarer(store domain.ProjectionStore, policy domain.EligibilityPolicy, logger *zap.Logger) *Carer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Carer{store: store, policy: policy, logger: logger}
}

// Process decodes and applies one carer-stream event.
func (p *Carer) Process(ctx context.Context, data []byte) error {
	ev, err := domain.DecodeCarerEvent(data)
	if err != nil {
		eventsProcessed.WithLabelValues("carers", "unknown", "decode_error").Inc()
		return err
	}

	var eventType string
	switch ev := ev.(type) {
	case *domain.NewCarer:
		eventType, err = domain.TypeNewCarer, p.handleRegistered(ctx, ev)
	case *domain.CarerUpdated:
		eventType, err = domain.TypeCarerUpdated, p.handleUpdated(ctx, ev)
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsProcessed.WithLabelValues("carers", eventType, result).Inc()
	return err
}

func (p *Carer) handleRegistered(ctx context.Context, ev *domain.NewCarer) error {
	snap := ev.Snapshot()
	if err := p.store.PutCarer(ctx, snap); err != nil {
		return fmt.Errorf("store carer %s: %w", ev.CarerID, err)
	}
	p.logger.Info("carer projected", zap.String("carer_id", ev.CarerID.String()))
	return p.broadcast(ctx, snap)
}

func (p *Carer) handleUpdated(ctx context.Context, ev *domain.CarerUpdated) error {
	snap, err := p.store.Carer(ctx, ev.CarerID)
	if err != nil {
		return err
	}
	if snap == nil {
		p.logger.Warn("update for unknown carer dropped",
			zap.String("carer_id", ev.CarerID.String()))
		racesDropped.WithLabelValues("carers").Inc()
		return nil
	}
	significant := ev.Changes.Apply(snap)
	if err := p.store.PutCarer(ctx, *snap); err != nil {
		return fmt.Errorf("store carer %s: %w", ev.CarerID, err)
	}
	if !significant {
		// Display-only change: carer summaries cached under bookings keep
		// the old values.
		return nil
	}
	if err := p.removeIndexEntries(ctx, ev.CarerID); err != nil {
		return err
	}
	return p.broadcast(ctx, *snap)
}

// broadcast recomputes eligibility for one carer across every known booking,
// replacing the carer's shift list and inserting the carer into each passing
// booking's eligible-carer list.
func (p *Carer) broadcast(ctx context.Context, carer domain.CarerSnapshot) error {
	start := time.Now()
	bookingIDs, err := p.store.BookingIDs(ctx)
	if err != nil {
		return err
	}
	shifts := make([]domain.ShiftSummary, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		booking, err := p.store.Booking(ctx, id)
		if err != nil {
			return err
		}
		if booking == nil || !p.policy.IsEligible(carer, *booking) {
			continue
		}
		dist := p.policy.Distance(carer.Location, booking.Location)
		shifts = append(shifts, newShiftSummary(*booking, dist, domain.ShiftOpen))
		if err := addCarerToShift(ctx, p.store, id, newCarerSummary(carer, dist)); err != nil {
			return err
		}
	}
	if err := p.store.PutShiftsForCarer(ctx, carer.CarerID, shifts); err != nil {
		return err
	}
	broadcastDuration.WithLabelValues("carer").Observe(time.Since(start).Seconds())
	return nil
}

// removeIndexEntries deletes both index directions for a carer: their shift
// list and their entry in every booking's eligible-carer list. The carer
// snapshot itself is untouched.
func (p *Carer) removeIndexEntries(ctx context.Context, carerID uuid.UUID) error {
	if err := p.store.DeleteShiftsForCarer(ctx, carerID); err != nil {
		return err
	}
	bookingIDs, err := p.store.BookingIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range bookingIDs {
		if err := removeCarerFromShift(ctx, p.store, id, carerID); err != nil {
			return err
		}
	}
	return nil
}
