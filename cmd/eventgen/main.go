package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/eligibility/consumer"
	"github.com/example/staffmatch/internal/eligibility/domain"
	"github.com/example/staffmatch/pkg/events"
	"github.com/example/staffmatch/pkg/observability"
)

// Synthetic load generator. Registers a population of carers, opens a batch of
// bookings, then churns a fraction of them through book and pullout so every
// projection code path sees traffic.

var firstNames = []string{
	"James", "John", "Robert", "Michael", "William", "David", "Richard",
	"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Sarah", "Karen",
	"Laura", "Kimberly", "Amy", "Angela", "Emma", "Olivia",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson",
	"Walker", "Young", "Allen", "King", "Wright", "Scott",
}

var locations = []string{
	"London", "Manchester", "Birmingham", "Leeds", "Glasgow", "Liverpool",
	"Newcastle", "Sheffield", "Bristol", "Edinburgh", "Leicester", "Coventry",
	"Cardiff", "Belfast", "Nottingham", "Plymouth", "Southampton", "York",
	"Brighton", "Norwich",
}

var grades = []string{"HCA", "RN", "SN", "RMN", "RGN"}

var qualifications = []string{
	"BLS", "ALS", "CPR", "First Aid", "Mental Health", "Dementia Care",
	"Medication Management", "Infection Control", "Manual Handling",
	"Safeguarding", "NVQ Level 2", "NVQ Level 3",
}

var visaStatuses = []domain.VisaStatus{
	domain.VisaCitizen,
	domain.VisaPermanentResident,
	domain.VisaWorkVisa,
}

var shiftKinds = []string{"DAY", "NIGHT", "EARLY", "LATE"}

var specialRequirements = []string{
	"ICU experience preferred",
	"Experience with elderly patients",
	"Mental health experience required",
	"Dementia care experience",
	"Wound care experience",
	"",
}

type genConfig struct {
	NATSURL     string
	NumCarers   int
	NumBookings int
	ChurnRatio  float64
	Seed        int64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("eventgen")
	defer logger.Sync() //nolint:errcheck

	cfg := loadConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("eventgen"))
	if err != nil {
		logger.Fatal("nats connect", zap.Error(err))
	}
	defer conn.Drain() //nolint:errcheck

	js, err := conn.JetStream()
	if err != nil {
		logger.Fatal("jetstream context", zap.Error(err))
	}
	if err := consumer.EnsureStream(js); err != nil {
		logger.Fatal("ensure stream", zap.Error(err))
	}

	carerPub := events.NewPublisher(conn, consumer.DefaultCarerSubject)
	bookingPub := events.NewPublisher(conn, consumer.DefaultBookingSubject)

	carerIDs := make([]uuid.UUID, 0, cfg.NumCarers)
	for i := 0; i < cfg.NumCarers; i++ {
		ev := randomCarer(rng)
		if err := carerPub.Publish(ctx, ev.EventType, ev); err != nil {
			logger.Fatal("publish carer", zap.Error(err))
		}
		carerIDs = append(carerIDs, ev.CarerID)
	}
	logger.Info("carers registered", zap.Int("count", len(carerIDs)))

	bookingIDs := make([]uuid.UUID, 0, cfg.NumBookings)
	for i := 0; i < cfg.NumBookings; i++ {
		ev := randomBooking(rng)
		if err := bookingPub.Publish(ctx, ev.EventType, ev); err != nil {
			logger.Fatal("publish booking", zap.Error(err))
		}
		bookingIDs = append(bookingIDs, ev.BookingID)
	}
	logger.Info("bookings created", zap.Int("count", len(bookingIDs)))

	churned := 0
	for _, bookingID := range bookingIDs {
		if rng.Float64() >= cfg.ChurnRatio || len(carerIDs) == 0 {
			continue
		}
		carerID := carerIDs[rng.Intn(len(carerIDs))]
		booked := domain.BookingBooked{
			BookingEnvelope: envelope(bookingID, domain.TypeBookingBooked),
			CarerID:         carerID,
			BookedBy:        "eventgen",
		}
		if err := bookingPub.Publish(ctx, booked.EventType, booked); err != nil {
			logger.Fatal("publish booked", zap.Error(err))
		}
		// Half of the booked shifts are pulled out of again to drive the
		// conflict restoration path.
		if rng.Float64() < 0.5 {
			pullout := domain.BookingPullout{
				BookingEnvelope: envelope(bookingID, domain.TypeBookingPullout),
				CarerID:         carerID,
				PulloutReason:   "unavailable",
				PulloutBy:       "eventgen",
			}
			if err := bookingPub.Publish(ctx, pullout.EventType, pullout); err != nil {
				logger.Fatal("publish pullout", zap.Error(err))
			}
		}
		churned++
	}
	logger.Info("churn complete", zap.Int("booked", churned))
}

func envelope(bookingID uuid.UUID, eventType string) domain.BookingEnvelope {
	return domain.BookingEnvelope{
		BookingID: bookingID,
		EventType: eventType,
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

func randomCarer(rng *rand.Rand) domain.NewCarer {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	maxDistance := 10 + rng.Intn(100)
	quals := make([]string, 0, 4)
	for _, idx := range rng.Perm(len(qualifications))[:1+rng.Intn(4)] {
		quals = append(quals, qualifications[idx])
	}
	return domain.NewCarer{
		CarerEnvelope: domain.CarerEnvelope{
			CarerID:   uuid.New(),
			EventType: domain.TypeNewCarer,
			EventID:   uuid.NewString(),
			Timestamp: time.Now().UTC(),
		},
		FirstName:         first,
		LastName:          last,
		Email:             fmt.Sprintf("%s.%s@example.com", first, last),
		Phone:             fmt.Sprintf("+44%010d", rng.Int63n(10000000000)),
		Location:          locations[rng.Intn(len(locations))],
		Grade:             grades[rng.Intn(len(grades))],
		Qualifications:    quals,
		VisaStatus:        visaStatuses[rng.Intn(len(visaStatuses))],
		MaxTravelDistance: &maxDistance,
	}
}

func randomBooking(rng *rand.Rand) domain.BookingCreated {
	start := time.Now().UTC().
		AddDate(0, 0, 1+rng.Intn(30)).
		Truncate(time.Hour).
		Add(time.Duration(6+rng.Intn(16)) * time.Hour)
	end := start.Add(time.Duration(4+rng.Intn(8)) * time.Hour)
	grade := grades[rng.Intn(len(grades))]
	quals := make([]string, 0, 3)
	for _, idx := range rng.Perm(6)[:1+rng.Intn(2)] {
		quals = append(quals, qualifications[idx])
	}
	return domain.BookingCreated{
		BookingEnvelope:        envelope(uuid.New(), domain.TypeBookingCreated),
		FacilityID:             uuid.New(),
		Shift:                  shiftKinds[rng.Intn(len(shiftKinds))],
		StartTime:              start,
		EndTime:                end,
		Grade:                  grade,
		HourlyRate:             15 + rng.Float64()*30,
		Location:               locations[rng.Intn(len(locations))],
		SpecialRequirements:    specialRequirements[rng.Intn(len(specialRequirements))],
		RequiredQualifications: quals,
	}
}

func loadConfig() genConfig {
	return genConfig{
		NATSURL:     getenv("NATS_URL", nats.DefaultURL),
		NumCarers:   parseIntEnv("NUM_CARERS", 100),
		NumBookings: parseIntEnv("NUM_BOOKINGS", 1000),
		ChurnRatio:  parseFloatEnv("CHURN_RATIO", 0.2),
		Seed:        time.Now().UnixNano(),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
