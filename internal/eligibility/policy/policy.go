package policy

import (
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

// Engine implements domain.EligibilityPolicy. It is pure: no state is read or
// written during evaluation and results are computed on demand, never cached.
type Engine struct {
	distance   domain.DistanceEstimator
	facilities domain.FacilityClassifier
}

// NewEngine builds the rules engine from its collaborators. Nil collaborators
// fall back to the placeholder estimator and the hash-based classifier.
func NewEngine(distance domain.DistanceEstimator, facilities domain.FacilityClassifier) *Engine {
	if distance == nil {
		distance = NewRandomEstimator()
	}
	if facilities == nil {
		facilities = HashClassifier{}
	}
	return &Engine{distance: distance, facilities: facilities}
}

// IsEligible runs the ordered rule chain, short-circuiting on the first
// failure: grade, qualifications, distance, visa, availability.
func (e *Engine) IsEligible(carer domain.CarerSnapshot, booking domain.BookingSnapshot) bool {
	if carer.Grade != booking.Grade {
		return false
	}
	if !hasAllQualifications(carer.Qualifications, booking.RequiredQualifications) {
		return false
	}
	if carer.MaxTravelDistance != nil {
		if e.Distance(carer.Location, booking.Location) > float64(*carer.MaxTravelDistance) {
			return false
		}
	}
	if !e.visaStatusValid(carer.VisaStatus, booking.FacilityID) {
		return false
	}
	if !carerAvailable(carer.CarerID, booking) {
		return false
	}
	return true
}

// Distance estimates the travel distance between two locations. Identical
// locations are always zero, regardless of the injected estimator.
func (e *Engine) Distance(from, to string) float64 {
	if from == to {
		return 0
	}
	return e.distance.Between(from, to)
}

// hasAllQualifications reports whether required is a subset of held. An empty
// requirement set always passes.
func hasAllQualifications(held, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(held))
	for _, q := range held {
		set[q] = struct{}{}
	}
	for _, q := range required {
		if _, ok := set[q]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) visaStatusValid(status domain.VisaStatus, facilityID uuid.UUID) bool {
	switch status {
	case domain.VisaCitizen, domain.VisaPermanentResident:
		return true
	case domain.VisaWorkVisa:
		return !e.facilities.IsRestricted(facilityID)
	default:
		return false
	}
}

// carerAvailable is a permissive stub. Time conflicts are resolved reactively
// by the booking processor after assignment; making this check authoritative
// without removing that step would apply the rule twice.
func carerAvailable(uuid.UUID, domain.BookingSnapshot) bool {
	return true
}

// HashClassifier marks roughly one facility in ten as restricted for work-visa
// carers, deterministically by facility id. Stands in for a real
// facility-compliance source.
type HashClassifier struct{}

// IsRestricted reports whether the facility rejects work-visa carers.
func (HashClassifier) IsRestricted(facilityID uuid.UUID) bool {
	h := fnv.New32a()
	_, _ = h.Write(facilityID[:])
	return h.Sum32()%10 == 0
}

// ClassifierFunc adapts a function to domain.FacilityClassifier.
type ClassifierFunc func(facilityID uuid.UUID) bool

// IsRestricted invokes the wrapped function.
func (f ClassifierFunc) IsRestricted(facilityID uuid.UUID) bool { return f(facilityID) }
