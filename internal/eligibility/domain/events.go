package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Booking event type discriminators as published by the booking service.
const (
	TypeBookingCreated   = "BookingCreated"
	TypeBookingModified  = "BookingModified"
	TypeBookingCancelled = "BookingCancelled"
	TypeBookingBooked    = "BookingBooked"
	TypeBookingPullout   = "BookingPullout"

	TypeNewCarer     = "NewCarer"
	TypeCarerUpdated = "CarerUpdated"
)

// BookingEnvelope carries the common fields of every booking event.
type BookingEnvelope struct {
	BookingID uuid.UUID `json:"bookingId"`
	EventType string    `json:"eventType"`
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// CarerEnvelope carries the common fields of every carer event.
type CarerEnvelope struct {
	CarerID   uuid.UUID `json:"carerId"`
	EventType string    `json:"eventType"`
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

type BookingCreated struct {
	BookingEnvelope
	FacilityID             uuid.UUID `json:"facilityId"`
	Shift                  string    `json:"shift"`
	StartTime              time.Time `json:"startTime"`
	EndTime                time.Time `json:"endTime"`
	Grade                  string    `json:"grade"`
	HourlyRate             float64   `json:"hourlyRate"`
	Location               string    `json:"location"`
	SpecialRequirements    string    `json:"specialRequirements"`
	RequiredQualifications []string  `json:"requiredQualifications"`
}

// Snapshot builds the stored projection from the creation payload.
func (e BookingCreated) Snapshot() BookingSnapshot {
	return BookingSnapshot{
		BookingID:              e.BookingID,
		FacilityID:             e.FacilityID,
		Shift:                  e.Shift,
		Grade:                  e.Grade,
		RequiredQualifications: e.RequiredQualifications,
		Location:               e.Location,
		HourlyRate:             e.HourlyRate,
		SpecialRequirements:    e.SpecialRequirements,
		StartTime:              e.StartTime,
		EndTime:                e.EndTime,
	}
}

// BookingChanges is the typed delta of a BookingModified event. A nil field
// means "unchanged". Grade, location, required qualifications and the shift
// interval are eligibility-significant; the rest are display-only.
type BookingChanges struct {
	Shift                  *string    `json:"shift,omitempty"`
	Grade                  *string    `json:"grade,omitempty"`
	HourlyRate             *float64   `json:"hourlyRate,omitempty"`
	Location               *string    `json:"location,omitempty"`
	SpecialRequirements    *string    `json:"specialRequirements,omitempty"`
	RequiredQualifications *[]string  `json:"requiredQualifications,omitempty"`
	StartTime              *time.Time `json:"startTime,omitempty"`
	EndTime                *time.Time `json:"endTime,omitempty"`
}

// Apply mutates the snapshot in place and reports whether any
// eligibility-significant field changed.
func (c BookingChanges) Apply(b *BookingSnapshot) bool {
	significant := false
	if c.Shift != nil {
		b.Shift = *c.Shift
	}
	if c.HourlyRate != nil {
		b.HourlyRate = *c.HourlyRate
	}
	if c.SpecialRequirements != nil {
		b.SpecialRequirements = *c.SpecialRequirements
	}
	if c.Grade != nil {
		b.Grade = *c.Grade
		significant = true
	}
	if c.Location != nil {
		b.Location = *c.Location
		significant = true
	}
	if c.RequiredQualifications != nil {
		b.RequiredQualifications = *c.RequiredQualifications
		significant = true
	}
	if c.StartTime != nil {
		b.StartTime = *c.StartTime
		significant = true
	}
	if c.EndTime != nil {
		b.EndTime = *c.EndTime
		significant = true
	}
	return significant
}

type BookingModified struct {
	BookingEnvelope
	Changes            BookingChanges `json:"changes"`
	ModificationReason string         `json:"modificationReason"`
}

type BookingCancelled struct {
	BookingEnvelope
	CancellationReason string `json:"cancellationReason"`
	CancelledBy        string `json:"cancelledBy"`
}

type BookingBooked struct {
	BookingEnvelope
	CarerID  uuid.UUID `json:"carerId"`
	BookedBy string    `json:"bookedBy"`
}

type BookingPullout struct {
	BookingEnvelope
	CarerID       uuid.UUID `json:"carerId"`
	PulloutReason string    `json:"pulloutReason"`
	PulloutBy     string    `json:"pulloutBy"`
}

type NewCarer struct {
	CarerEnvelope
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Location          string     `json:"location"`
	Grade             string     `json:"grade"`
	Qualifications    []string   `json:"qualifications"`
	VisaStatus        VisaStatus `json:"visaStatus"`
	MaxTravelDistance *int       `json:"maxTravelDistance,omitempty"`
}

// Snapshot builds the stored projection from the registration payload.
func (e NewCarer) Snapshot() CarerSnapshot {
	return CarerSnapshot{
		CarerID:           e.CarerID,
		FirstName:         e.FirstName,
		LastName:          e.LastName,
		Email:             e.Email,
		Phone:             e.Phone,
		Grade:             e.Grade,
		Qualifications:    e.Qualifications,
		Location:          e.Location,
		VisaStatus:        e.VisaStatus,
		MaxTravelDistance: e.MaxTravelDistance,
	}
}

// CarerChanges is the typed delta of a CarerUpdated event. Grade, location,
// qualifications, visa status and max travel distance are
// eligibility-significant; name and contact fields are display-only.
type CarerChanges struct {
	FirstName         *string     `json:"firstName,omitempty"`
	LastName          *string     `json:"lastName,omitempty"`
	Email             *string     `json:"email,omitempty"`
	Phone             *string     `json:"phone,omitempty"`
	Grade             *string     `json:"grade,omitempty"`
	Location          *string     `json:"location,omitempty"`
	Qualifications    *[]string   `json:"qualifications,omitempty"`
	VisaStatus        *VisaStatus `json:"visaStatus,omitempty"`
	MaxTravelDistance *int        `json:"maxTravelDistance,omitempty"`
}

// Apply mutates the snapshot in place and reports whether any
// eligibility-significant field changed.
func (c CarerChanges) Apply(s *CarerSnapshot) bool {
	significant := false
	if c.FirstName != nil {
		s.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		s.LastName = *c.LastName
	}
	if c.Email != nil {
		s.Email = *c.Email
	}
	if c.Phone != nil {
		s.Phone = *c.Phone
	}
	if c.Grade != nil {
		s.Grade = *c.Grade
		significant = true
	}
	if c.Location != nil {
		s.Location = *c.Location
		significant = true
	}
	if c.Qualifications != nil {
		s.Qualifications = *c.Qualifications
		significant = true
	}
	if c.VisaStatus != nil {
		s.VisaStatus = *c.VisaStatus
		significant = true
	}
	if c.MaxTravelDistance != nil {
		s.MaxTravelDistance = c.MaxTravelDistance
		significant = true
	}
	return significant
}

type CarerUpdated struct {
	CarerEnvelope
	Changes      CarerChanges `json:"changes"`
	UpdateReason string       `json:"updateReason"`
}

func decodeAs[T any](data []byte) (*T, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return &ev, nil
}

// DecodeBookingEvent unmarshals a booking-stream payload into its concrete
// event type based on the envelope discriminator.
func DecodeBookingEvent(data []byte) (any, error) {
	var env BookingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch env.EventType {
	case TypeBookingCreated:
		return decodeAs[BookingCreated](data)
	case TypeBookingModified:
		return decodeAs[BookingModified](data)
	case TypeBookingCancelled:
		return decodeAs[BookingCancelled](data)
	case TypeBookingBooked:
		return decodeAs[BookingBooked](data)
	case TypeBookingPullout:
		return decodeAs[BookingPullout](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
}

// DecodeCarerEvent unmarshals a carer-stream payload into its concrete event
// type based on the envelope discriminator.
func DecodeCarerEvent(data []byte) (any, error) {
	var env CarerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch env.EventType {
	case TypeNewCarer:
		return decodeAs[NewCarer](data)
	case TypeCarerUpdated:
		return decodeAs[CarerUpdated](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
}
