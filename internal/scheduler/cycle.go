package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/wavepulse/wavepulse-go/internal/capture"
	"github.com/wavepulse/wavepulse-go/internal/schedule"
	"github.com/wavepulse/wavepulse-go/internal/segment"
)

// cycle is one schedule repetition: a fresh roster, a fresh sequence
// registry and the set of live workers. Cycle boundaries are the daily
// shutdown/restart times; nothing carries over between cycles except the
// files already published.
type cycle struct {
	id         string
	index      int
	startedAt  time.Time
	shutdownAt time.Time

	roster    *schedule.Roster
	finalizer *segment.Finalizer
	workers   map[string]*capture.Worker
	health    chan capture.HealthEvent
}

func newCycleID() string {
	// Short form is enough to correlate log lines within one deployment.
	return uuid.New().String()[:8]
}

// purgeFinished drops workers that have fully terminated, clearing the slot
// so an in-window station can get a replacement worker on the next pass.
func (c *cycle) purgeFinished() {
	for id, w := range c.workers {
		select {
		case <-w.Done():
			delete(c.workers, id)
		default:
		}
	}
}

func (c *cycle) liveCount() int {
	return len(c.workers)
}

// nextOccurrence returns the first instant strictly after the reference time
// whose local wall clock reads the given hour and minute.
func nextOccurrence(after time.Time, hour, minute int) time.Time {
	t := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	if !t.After(after) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
