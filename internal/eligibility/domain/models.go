package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownEventType indicates an event envelope carried a type this engine
// does not consume. Such messages are poison and must not be redelivered.
var ErrUnknownEventType = errors.New("unknown event type")

// ErrBadPayload indicates an event body that cannot be deserialized. Also
// poison: redelivery cannot fix a malformed message.
var ErrBadPayload = errors.New("malformed event payload")

type VisaStatus string

const (
	VisaCitizen           VisaStatus = "CITIZEN"
	VisaPermanentResident VisaStatus = "PERMANENT_RESIDENT"
	VisaWorkVisa          VisaStatus = "WORK_VISA"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "OPEN"
	ShiftBooked ShiftStatus = "BOOKED"
)

// CarerSnapshot is the denormalized carer state the policy evaluates against.
// It is overwritten wholesale on every eligibility-significant carer event.
type CarerSnapshot struct {
	CarerID           uuid.UUID  `json:"carerId"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Grade             string     `json:"grade"`
	Qualifications    []string   `json:"qualifications"`
	Location          string     `json:"location"`
	VisaStatus        VisaStatus `json:"visaStatus"`
	MaxTravelDistance *int       `json:"maxTravelDistance,omitempty"`
}

// BookingSnapshot is the denormalized booking state. StartTime/EndTime form a
// half-open interval, StartTime < EndTime.
type BookingSnapshot struct {
	BookingID              uuid.UUID `json:"bookingId"`
	FacilityID             uuid.UUID `json:"facilityId"`
	Shift                  string    `json:"shift"`
	Grade                  string    `json:"grade"`
	RequiredQualifications []string  `json:"requiredQualifications"`
	Location               string    `json:"location"`
	HourlyRate             float64   `json:"hourlyRate"`
	SpecialRequirements    string    `json:"specialRequirements"`
	StartTime              time.Time `json:"startTime"`
	EndTime                time.Time `json:"endTime"`
}

// Overlaps reports whether the two [start,end) intervals intersect.
// Touching intervals (endA == startB) do not overlap.
func (b BookingSnapshot) Overlaps(other BookingSnapshot) bool {
	return b.StartTime.Before(other.EndTime) && other.StartTime.Before(b.EndTime)
}

// ShiftSummary is one entry in a carer's eligible-shifts projection. Booking
// fields are denormalized at insertion time; DistanceKM is per carer.
type ShiftSummary struct {
	BookingID              uuid.UUID   `json:"bookingId"`
	FacilityID             uuid.UUID   `json:"facilityId"`
	Shift                  string      `json:"shift"`
	StartTime              time.Time   `json:"startTime"`
	EndTime                time.Time   `json:"endTime"`
	Grade                  string      `json:"grade"`
	HourlyRate             float64     `json:"hourlyRate"`
	Location               string      `json:"location"`
	SpecialRequirements    string      `json:"specialRequirements"`
	RequiredQualifications []string    `json:"requiredQualifications"`
	Status                 ShiftStatus `json:"status"`
	DistanceKM             float64     `json:"distanceKm"`
}

// CarerSummary is one entry in a booking's eligible-carers projection.
type CarerSummary struct {
	CarerID           uuid.UUID  `json:"carerId"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Location          string     `json:"location"`
	Grade             string     `json:"grade"`
	Qualifications    []string   `json:"qualifications"`
	VisaStatus        VisaStatus `json:"visaStatus"`
	MaxTravelDistance *int       `json:"maxTravelDistance,omitempty"`
	DistanceKM        float64    `json:"distanceKm"`
	Available         bool       `json:"available"`
}

// ProjectionStore is the shared mutable resource behind the projections. Four
// logical namespaces, each entry independently TTL-expiring in the backing
// store. A missing snapshot yields nil; a missing list yields an empty slice,
// never an error. Updates are read-modify-write per key and must stay
// idempotent under at-least-once delivery.
type ProjectionStore interface {
	PutBooking(ctx context.Context, b BookingSnapshot) error
	Booking(ctx context.Context, id uuid.UUID) (*BookingSnapshot, error)
	DeleteBooking(ctx context.Context, id uuid.UUID) error
	BookingIDs(ctx context.Context) ([]uuid.UUID, error)

	PutCarer(ctx context.Context, c CarerSnapshot) error
	Carer(ctx context.Context, id uuid.UUID) (*CarerSnapshot, error)
	DeleteCarer(ctx context.Context, id uuid.UUID) error
	CarerIDs(ctx context.Context) ([]uuid.UUID, error)

	PutShiftsForCarer(ctx context.Context, carerID uuid.UUID, shifts []ShiftSummary) error
	ShiftsForCarer(ctx context.Context, carerID uuid.UUID) ([]ShiftSummary, error)
	DeleteShiftsForCarer(ctx context.Context, carerID uuid.UUID) error

	PutCarersForShift(ctx context.Context, bookingID uuid.UUID, carers []CarerSummary) error
	CarersForShift(ctx context.Context, bookingID uuid.UUID) ([]CarerSummary, error)
	DeleteCarersForShift(ctx context.Context, bookingID uuid.UUID) error
}

// EligibilityPolicy decides whether a carer can take a booking. Pure, never
// errors; absent optional fields mean "no constraint".
type EligibilityPolicy interface {
	IsEligible(carer CarerSnapshot, booking BookingSnapshot) bool
	Distance(from, to string) float64
}

// DistanceEstimator produces a non-negative distance for a location pair.
// Identical locations must estimate to exactly zero.
type DistanceEstimator interface {
	Between(from, to string) float64
}

// FacilityClassifier flags facilities that do not accept work-visa carers.
type FacilityClassifier interface {
	IsRestricted(facilityID uuid.UUID) bool
}
