package simulation

import (
	"maps"
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

// Status is a point-in-time view of the simulation for monitoring.
type Status struct {
	Tick     uint64
	Time     time.Time
	Entities int
	Alive    map[core.Side]int
	Pending  int
	Dropped  uint64
	LastStep time.Duration
	Events   uint64
	Kills    uint64
}

// AliveTotal returns the number of live entities over all sides.
func (s Status) AliveTotal() int {
	n := 0
	for _, v := range s.Alive {
		n += v
	}
	return n
}

// Status returns a copy of the latest status. Safe for concurrent use.
func (w *World) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := w.status
	st.Alive = maps.Clone(w.status.Alive)
	st.Pending = w.inbox.Len()
	st.Dropped = w.inbox.Dropped()
	return st
}

func (w *World) updateStatus(now time.Time, elapsed time.Duration, events, kills uint64) {
	alive := make(map[core.Side]int)
	for _, id := range w.order {
		if e := w.entities[id]; e.Alive {
			alive[e.Side]++
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Tick = w.tick
	w.status.Time = now
	w.status.Entities = len(w.order)
	w.status.Alive = alive
	w.status.LastStep = elapsed
	w.status.Events += events
	w.status.Kills += kills
}
