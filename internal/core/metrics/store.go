package metrics

import (
	"math"
	"sync"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
)

// snapshotLogCapacity bounds the rolling diagnostics log; the oldest entry
// is evicted first.
const snapshotLogCapacity = 100

// MetricStore holds the latest value per metric key plus a bounded rolling
// log of merged snapshots. It is shared between the poller actor, the report
// path and the HTTP diagnostics routes, so access is mutex-guarded.
type MetricStore struct {
	mu      sync.RWMutex
	latest  map[string]float64
	history []domain.MetricSnapshot
}

func NewMetricStore() *MetricStore {
	return &MetricStore{
		latest: make(map[string]float64),
	}
}

// Merge records a snapshot: latest values are overwritten per key and the
// snapshot is appended to the rolling log. Non-finite values are skipped.
func (s *MetricStore) Merge(snapshot domain.MetricSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range snapshot.Values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		s.latest[key] = value
	}

	s.history = append(s.history, snapshot)
	if len(s.history) > snapshotLogCapacity {
		s.history = s.history[len(s.history)-snapshotLogCapacity:]
	}
}

func (s *MetricStore) Value(key string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.latest[key]
	return v, ok
}

// Latest returns a copy of the latest value per key.
func (s *MetricStore) Latest() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

// History returns a copy of the rolling snapshot log, oldest first.
func (s *MetricStore) History() []domain.MetricSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MetricSnapshot, len(s.history))
	copy(out, s.history)
	return out
}
