package engagement

import (
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

// Throttle limits how often a pass runs for each entity.
type Throttle struct {
	every time.Duration
	last  map[core.EntityID]time.Time
}

// NewThrottle allows one run per entity every d. A zero d never throttles.
func NewThrottle(d time.Duration) *Throttle {
	return &Throttle{every: d, last: make(map[core.EntityID]time.Time)}
}

// Ready reports whether the pass may run for id at now.
func (t *Throttle) Ready(id core.EntityID, now time.Time) bool {
	if t.every <= 0 {
		return true
	}
	last, ok := t.last[id]
	return !ok || now.Sub(last) >= t.every
}

// Mark records that the pass ran for id at now.
func (t *Throttle) Mark(id core.EntityID, now time.Time) {
	t.last[id] = now
}

// Forget drops the history of id.
func (t *Throttle) Forget(id core.EntityID) {
	delete(t.last, id)
}
