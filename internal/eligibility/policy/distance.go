package policy

import (
	"math/rand"
	"sync"
	"time"
)

// EstimatorFunc adapts a plain function to domain.DistanceEstimator. Tests use
// it to supply deterministic distances.
type EstimatorFunc func(from, to string) float64

// Between invokes the wrapped function.
func (f EstimatorFunc) Between(from, to string) float64 { return f(from, to) }

// RandomEstimator is the placeholder estimator used until a real geocoding
// collaborator exists: identical locations are 0 km apart, everything else is a
// uniformly random distance below 50 km.
type RandomEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomEstimator seeds the estimator from the wall clock.
func NewRandomEstimator() *RandomEstimator {
	return &RandomEstimator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Between returns 0 for identical locations, otherwise a random value in [0,50).
func (e *RandomEstimator) Between(from, to string) float64 {
	if from == to {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() * 50
}
