package segment

import "sync"

// SequenceRegistry issues per-station segment sequence numbers. Counters are
// owned at the station level, not the worker level, so sequences stay
// strictly increasing across worker restarts within the same ScheduleCycle.
// A new cycle gets a fresh registry.
//
// Publication runs under a narrow per-station lock: the lock is held only
// for the duration of one finalize, and never blocks other stations.
type SequenceRegistry struct {
	mu       sync.RWMutex
	stations map[string]*stationCounter
}

type stationCounter struct {
	mu   sync.Mutex
	last uint64
}

// NewSequenceRegistry creates an empty registry.
func NewSequenceRegistry() *SequenceRegistry {
	return &SequenceRegistry{stations: make(map[string]*stationCounter)}
}

// counter returns the station's counter, creating it on first use.
func (r *SequenceRegistry) counter(stationID string) *stationCounter {
	r.mu.RLock()
	c, ok := r.stations[stationID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.stations[stationID]; ok {
		return c
	}
	c = &stationCounter{}
	r.stations[stationID] = c
	return c
}

// Publish allocates the station's next sequence number and runs publish
// while holding the station lock, so publication order equals sequence
// order. The number is consumed only if publish succeeds, keeping the
// sequence gap-free when a flush fails and the segment is discarded.
func (r *SequenceRegistry) Publish(stationID string, publish func(seq uint64) error) (uint64, error) {
	c := r.counter(stationID)
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.last + 1
	if err := publish(seq); err != nil {
		return 0, err
	}
	c.last = seq
	return seq, nil
}

// Last returns the most recently published sequence number for a station,
// zero if none.
func (r *SequenceRegistry) Last(stationID string) uint64 {
	r.mu.RLock()
	c, ok := r.stations[stationID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
