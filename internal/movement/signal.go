package movement

import (
	"time"

	"github.com/OCAP2/tactical/pkg/core"
)

// Signal is what Decide found to do for one entity at one instant.
// Several parts can be set at once; Apply handles them in a fixed order.
type Signal struct {
	Kind core.OrderKind

	// Path is set when the path was computed during this decision.
	Path []core.Position

	TileFinished     *core.Position
	MoveFinished     *core.Position
	RotationFinished *float64

	Rotate *Rotation
	Slide  *Slide
}

// Rotation asks to start or resume turning toward Absolute.
type Rotation struct {
	Relative float64
	Absolute float64
	Duration time.Duration
	Continue bool
	// Direction is the heading reached so far, only meaningful when resuming.
	Direction float64
}

// Slide asks to start or resume a slide to an adjacent tile.
type Slide struct {
	To       core.Position
	Duration time.Duration
	Continue bool
	Heading  float64
}

// Empty reports whether the signal asks for nothing.
func (s Signal) Empty() bool {
	return s.Path == nil && s.TileFinished == nil && s.MoveFinished == nil &&
		s.RotationFinished == nil && s.Rotate == nil && s.Slide == nil
}

// remaining is total × (1 − elapsed/total), floored at zero.
func remaining(total, elapsed time.Duration) time.Duration {
	if total <= 0 || elapsed >= total {
		return 0
	}
	if elapsed <= 0 {
		return total
	}
	return total - elapsed
}
