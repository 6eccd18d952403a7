package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Key prefixes shared with the read-side API; changing them breaks readers.
const (
	bookingDataPrefix    = "BookingData:"
	carerDataPrefix      = "CarerData:"
	shiftsByCarerPrefix  = "AvailableShiftsPerCarer:"
	carersByShiftPrefix  = "EligibleCarersPerShift:"
	defaultRetention     = 24 * time.Hour
	scanBatchSize        = 256
)

// RedisStore implements domain.ProjectionStore on Redis string values. Every
// entry is written with the retention TTL; expiry is a cache-eviction safety
// net, a late event rebuilds state from scratch via the broadcast path.
type RedisStore struct {
	client    redis.Cmdable
	retention time.Duration
}

// NewRedisStore constructs the store. A non-positive retention falls back to
// 24 hours.
func NewRedisStore(client redis.Cmdable, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RedisStore{client: client, retention: retention}
}

// PutBooking stores the booking snapshot.
func (s *RedisStore) PutBooking(ctx context.Context, b domain.BookingSnapshot) error {
	return s.setJSON(ctx, bookingDataPrefix+b.BookingID.String(), b)
}

// Booking fetches a booking snapshot, nil when absent or expired.
func (s *RedisStore) Booking(ctx context.Context, id uuid.UUID) (*domain.BookingSnapshot, error) {
	var b domain.BookingSnapshot
	ok, err := s.getJSON(ctx, bookingDataPrefix+id.String(), &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

// DeleteBooking removes the booking snapshot.
func (s *RedisStore) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, bookingDataPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// BookingIDs enumerates every booking id with a stored snapshot.
func (s *RedisStore) BookingIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.scanIDs(ctx, bookingDataPrefix)
}

// PutCarer stores the carer snapshot.
func (s *RedisStore) PutCarer(ctx context.Context, c domain.CarerSnapshot) error {
	return s.setJSON(ctx, carerDataPrefix+c.CarerID.String(), c)
}

// Carer fetches a carer snapshot, nil when absent or expired.
func (s *RedisStore) Carer(ctx context.Context, id uuid.UUID) (*domain.CarerSnapshot, error) {
	var c domain.CarerSnapshot
	ok, err := s.getJSON(ctx, carerDataPrefix+id.String(), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// DeleteCarer removes the carer snapshot.
func (s *RedisStore) DeleteCarer(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, carerDataPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CarerIDs enumerates every carer id with a stored snapshot.
func (s *RedisStore) CarerIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.scanIDs(ctx, carerDataPrefix)
}

// PutShiftsForCarer replaces the carer's eligible-shifts list.
func (s *RedisStore) PutShiftsForCarer(ctx context.Context, carerID uuid.UUID, shifts []domain.ShiftSummary) error {
	if shifts == nil {
		shifts = []domain.ShiftSummary{}
	}
	return s.setJSON(ctx, shiftsByCarerPrefix+carerID.String(), shifts)
}

// ShiftsForCarer returns the carer's eligible-shifts list, empty when absent.
func (s *RedisStore) ShiftsForCarer(ctx context.Context, carerID uuid.UUID) ([]domain.ShiftSummary, error) {
	shifts := []domain.ShiftSummary{}
	if _, err := s.getJSON(ctx, shiftsByCarerPrefix+carerID.String(), &shifts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// DeleteShiftsForCarer drops the carer's eligible-shifts list.
func (s *RedisStore) DeleteShiftsForCarer(ctx context.Context, carerID uuid.UUID) error {
	if err := s.client.Del(ctx, shiftsByCarerPrefix+carerID.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// PutCarersForShift replaces the booking's eligible-carers list.
func (s *RedisStore) PutCarersForShift(ctx context.Context, bookingID uuid.UUID, carers []domain.CarerSummary) error {
	if carers == nil {
		carers = []domain.CarerSummary{}
	}
	return s.setJSON(ctx, carersByShiftPrefix+bookingID.String(), carers)
}

// CarersForShift returns the booking's eligible-carers list, empty when absent.
func (s *RedisStore) CarersForShift(ctx context.Context, bookingID uuid.UUID) ([]domain.CarerSummary, error) {
	carers := []domain.CarerSummary{}
	if _, err := s.getJSON(ctx, carersByShiftPrefix+bookingID.String(), &carers); err != nil {
		return nil, err
	}
	return carers, nil
}

// DeleteCarersForShift drops the booking's eligible-carers list.
func (s *RedisStore) DeleteCarersForShift(ctx context.Context, bookingID uuid.UUID) error {
	if err := s.client.Del(ctx, carersByShiftPrefix+bookingID.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) scanIDs(ctx context.Context, prefix string) ([]uuid.UUID, error) {
	var (
		ids    []uuid.UUID
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, key := range keys {
			id, err := uuid.Parse(key[len(prefix):])
			if err != nil {
				return nil, fmt.Errorf("malformed projection key %q: %w", key, err)
			}
			ids = append(ids, id)
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
