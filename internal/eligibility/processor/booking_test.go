package processor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/staffmatch/internal/eligibility/domain"
	"github.com/example/staffmatch/internal/eligibility/policy"
	"github.com/example/staffmatch/internal/eligibility/processor"
	"github.com/example/staffmatch/internal/eligibility/projection"
)

type fixture struct {
	store    *projection.MemoryStore
	bookings *processor.Booking
	carers   *processor.Carer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := projection.NewMemoryStore()
	engine := policy.NewEngine(
		policy.EstimatorFunc(func(from, to string) float64 { return 5 }),
		policy.ClassifierFunc(func(uuid.UUID) bool { return false }),
	)
	return &fixture{
		store:    store,
		bookings: processor.NewBooking(store, engine, nil),
		carers:   processor.NewCarer(store, engine, nil),
	}
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func hour(h int) time.Time {
	return time.Date(2026, 9, 2, h, 0, 0, 0, time.UTC)
}

func seedCarer(t *testing.T, f *fixture, grade string) uuid.UUID {
	t.Helper()
	max := 30
	id := uuid.New()
	require.NoError(t, f.store.PutCarer(context.Background(), domain.CarerSnapshot{
		CarerID:           id,
		FirstName:         "Test",
		Grade:             grade,
		Qualifications:    []string{"BLS", "ALS"},
		Location:          "London",
		VisaStatus:        domain.VisaCitizen,
		MaxTravelDistance: &max,
	}))
	return id
}

func createdEvent(startHour, endHour int) domain.BookingCreated {
	return domain.BookingCreated{
		BookingEnvelope: domain.BookingEnvelope{
			BookingID: uuid.New(),
			EventType: domain.TypeBookingCreated,
			EventID:   uuid.NewString(),
			Timestamp: time.Now().UTC(),
		},
		FacilityID:             uuid.New(),
		Shift:                  "DAY",
		StartTime:              hour(startHour),
		EndTime:                hour(endHour),
		Grade:                  "RN",
		HourlyRate:             28,
		Location:               "London",
		RequiredQualifications: []string{"BLS"},
	}
}

func shiftIDs(t *testing.T, f *fixture, carerID uuid.UUID) map[uuid.UUID]domain.ShiftStatus {
	t.Helper()
	shifts, err := f.store.ShiftsForCarer(context.Background(), carerID)
	require.NoError(t, err)
	out := make(map[uuid.UUID]domain.ShiftStatus, len(shifts))
	for _, s := range shifts {
		out[s.BookingID] = s.Status
	}
	return out
}

func carerIDsForShift(t *testing.T, f *fixture, bookingID uuid.UUID) map[uuid.UUID]bool {
	t.Helper()
	carers, err := f.store.CarersForShift(context.Background(), bookingID)
	require.NoError(t, err)
	out := make(map[uuid.UUID]bool, len(carers))
	for _, c := range carers {
		out[c.CarerID] = true
	}
	return out
}

func TestBookingCreatedBroadcastsToEligibleCarers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eligible := seedCarer(t, f, "RN")
	ineligible := seedCarer(t, f, "HCA")

	ev := createdEvent(9, 17)
	require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))

	snap, err := f.store.Booking(ctx, ev.BookingID)
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Equal(t, map[uuid.UUID]bool{eligible: true}, carerIDsForShift(t, f, ev.BookingID))
	require.Contains(t, shiftIDs(t, f, eligible), ev.BookingID)
	require.NotContains(t, shiftIDs(t, f, ineligible), ev.BookingID)
}

func TestBookingModifiedDisplayOnlyKeepsIndexStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	carerID := seedCarer(t, f, "RN")
	ev := createdEvent(9, 17)
	require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))

	rate := 40.0
	mod := domain.BookingModified{
		BookingEnvelope: domain.BookingEnvelope{BookingID: ev.BookingID, EventType: domain.TypeBookingModified},
		Changes:         domain.BookingChanges{HourlyRate: &rate},
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, mod)))

	snap, err := f.store.Booking(ctx, ev.BookingID)
	require.NoError(t, err)
	require.Equal(t, 40.0, snap.HourlyRate)

	// Cached summaries are not rewritten for display-only deltas.
	shifts, err := f.store.ShiftsForCarer(ctx, carerID)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	require.Equal(t, 28.0, shifts[0].HourlyRate)
}

func TestBookingModifiedSignificantRebuildsIndices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rn := seedCarer(t, f, "RN")
	hca := seedCarer(t, f, "HCA")

	ev := createdEvent(9, 17)
	require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))
	require.Contains(t, shiftIDs(t, f, rn), ev.BookingID)

	grade := "HCA"
	mod := domain.BookingModified{
		BookingEnvelope: domain.BookingEnvelope{BookingID: ev.BookingID, EventType: domain.TypeBookingModified},
		Changes:         domain.BookingChanges{Grade: &grade},
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, mod)))

	require.NotContains(t, shiftIDs(t, f, rn), ev.BookingID)
	require.Contains(t, shiftIDs(t, f, hca), ev.BookingID)
	require.Equal(t, map[uuid.UUID]bool{hca: true}, carerIDsForShift(t, f, ev.BookingID))
}

func TestBookingModifiedUnknownBookingDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	grade := "RN"
	mod := domain.BookingModified{
		BookingEnvelope: domain.BookingEnvelope{BookingID: uuid.New(), EventType: domain.TypeBookingModified},
		Changes:         domain.BookingChanges{Grade: &grade},
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, mod)))

	snap, err := f.store.Booking(ctx, mod.BookingID)
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestBookingCancelledRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	carerID := seedCarer(t, f, "RN")
	ev := createdEvent(9, 17)
	require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))

	cancel := domain.BookingCancelled{
		BookingEnvelope:    domain.BookingEnvelope{BookingID: ev.BookingID, EventType: domain.TypeBookingCancelled},
		CancellationReason: "facility closed",
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, cancel)))

	snap, err := f.store.Booking(ctx, ev.BookingID)
	require.NoError(t, err)
	require.Nil(t, snap)
	require.Empty(t, carerIDsForShift(t, f, ev.BookingID))
	require.NotContains(t, shiftIDs(t, f, carerID), ev.BookingID)
}

func TestBookingBookedResolvesTimeConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignee := seedCarer(t, f, "RN")
	other := seedCarer(t, f, "RN")

	booked := createdEvent(9, 17)
	overlapping := createdEvent(12, 20)
	disjoint := createdEvent(18, 21)
	for _, ev := range []domain.BookingCreated{booked, overlapping, disjoint} {
		require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))
	}

	assign := domain.BookingBooked{
		BookingEnvelope: domain.BookingEnvelope{BookingID: booked.BookingID, EventType: domain.TypeBookingBooked},
		CarerID:         assignee,
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, assign)))

	// The booked shift stays in the assignee's list, flagged BOOKED; the
	// overlapping shift is gone and the disjoint one survives.
	got := shiftIDs(t, f, assignee)
	require.Equal(t, domain.ShiftBooked, got[booked.BookingID])
	require.NotContains(t, got, overlapping.BookingID)
	require.Contains(t, got, disjoint.BookingID)

	// Both index directions agree.
	require.Equal(t, map[uuid.UUID]bool{assignee: true}, carerIDsForShift(t, f, booked.BookingID))
	require.Equal(t, map[uuid.UUID]bool{other: true}, carerIDsForShift(t, f, overlapping.BookingID))

	// The other candidate keeps their own view untouched apart from the
	// taken shift.
	otherShifts := shiftIDs(t, f, other)
	require.NotContains(t, otherShifts, booked.BookingID)
	require.Contains(t, otherShifts, overlapping.BookingID)
}

func TestBookingBookedReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignee := seedCarer(t, f, "RN")
	booked := createdEvent(9, 17)
	overlapping := createdEvent(12, 20)
	require.NoError(t, f.bookings.Process(ctx, marshal(t, booked)))
	require.NoError(t, f.bookings.Process(ctx, marshal(t, overlapping)))

	assign := domain.BookingBooked{
		BookingEnvelope: domain.BookingEnvelope{BookingID: booked.BookingID, EventType: domain.TypeBookingBooked},
		CarerID:         assignee,
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, assign)))
	first := shiftIDs(t, f, assignee)

	require.NoError(t, f.bookings.Process(ctx, marshal(t, assign)))
	require.Equal(t, first, shiftIDs(t, f, assignee))
	require.Equal(t, map[uuid.UUID]bool{assignee: true}, carerIDsForShift(t, f, booked.BookingID))
}

func TestBookingBookedUnknownBookingDropped(t *testing.T) {
	f := newFixture(t)
	assign := domain.BookingBooked{
		BookingEnvelope: domain.BookingEnvelope{BookingID: uuid.New(), EventType: domain.TypeBookingBooked},
		CarerID:         uuid.New(),
	}
	require.NoError(t, f.bookings.Process(context.Background(), marshal(t, assign)))
}

func TestBookingPulloutRestoresConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignee := seedCarer(t, f, "RN")
	other := seedCarer(t, f, "RN")

	vacated := createdEvent(9, 17)
	suppressed := createdEvent(12, 20)
	for _, ev := range []domain.BookingCreated{vacated, suppressed} {
		require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))
	}

	assign := domain.BookingBooked{
		BookingEnvelope: domain.BookingEnvelope{BookingID: vacated.BookingID, EventType: domain.TypeBookingBooked},
		CarerID:         assignee,
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, assign)))
	require.NotContains(t, shiftIDs(t, f, assignee), suppressed.BookingID)

	pullout := domain.BookingPullout{
		BookingEnvelope: domain.BookingEnvelope{BookingID: vacated.BookingID, EventType: domain.TypeBookingPullout},
		CarerID:         assignee,
		PulloutReason:   "sick",
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, pullout)))

	// The vacated shift is open again for everyone and the suppressed
	// overlapping shift is back in the assignee's list.
	got := shiftIDs(t, f, assignee)
	require.Equal(t, domain.ShiftOpen, got[vacated.BookingID])
	require.Contains(t, got, suppressed.BookingID)
	require.True(t, carerIDsForShift(t, f, suppressed.BookingID)[assignee])
	require.True(t, carerIDsForShift(t, f, vacated.BookingID)[other])
}

func TestBookingPulloutSkipsEmptyCandidateLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Only one carer exists, so booking the first shift leaves the
	// overlapping one with an empty candidate list. The restoration pass
	// cannot tell that apart from a closed booking and must leave it alone.
	assignee := seedCarer(t, f, "RN")

	vacated := createdEvent(9, 17)
	orphaned := createdEvent(12, 20)
	for _, ev := range []domain.BookingCreated{vacated, orphaned} {
		require.NoError(t, f.bookings.Process(ctx, marshal(t, ev)))
	}

	assign := domain.BookingBooked{
		BookingEnvelope: domain.BookingEnvelope{BookingID: vacated.BookingID, EventType: domain.TypeBookingBooked},
		CarerID:         assignee,
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, assign)))
	require.Empty(t, carerIDsForShift(t, f, orphaned.BookingID))

	pullout := domain.BookingPullout{
		BookingEnvelope: domain.BookingEnvelope{BookingID: vacated.BookingID, EventType: domain.TypeBookingPullout},
		CarerID:         assignee,
	}
	require.NoError(t, f.bookings.Process(ctx, marshal(t, pullout)))

	require.Empty(t, carerIDsForShift(t, f, orphaned.BookingID))
	require.NotContains(t, shiftIDs(t, f, assignee), orphaned.BookingID)
}

func TestBookingProcessPoisonPayloads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.bookings.Process(ctx, []byte(`{broken`))
	require.ErrorIs(t, err, domain.ErrBadPayload)

	err = f.bookings.Process(ctx, marshal(t, map[string]string{"eventType": "BookingArchived"}))
	require.ErrorIs(t, err, domain.ErrUnknownEventType)
}
