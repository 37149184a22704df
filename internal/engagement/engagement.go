package engagement

import (
	"math/rand/v2"

	"github.com/OCAP2/tactical/pkg/core"
)

// DefaultKillProbability is the chance that a shot kills its target.
const DefaultKillProbability = 0.25

// Outcome is the result of one firing decision.
type Outcome struct {
	ShooterID      core.EntityID
	TargetID       core.EntityID
	TargetPosition core.Position
	WeaponType     string
	Kill           bool
}

// Registry gives access to the live entities of a battle.
type Registry interface {
	Entity(id core.EntityID) (*core.Entity, bool)
}

// RunEngagement picks a target among visible at random and rolls for a kill.
// It reports false when there is nothing to fire at.
func RunEngagement(shooter *core.Entity, visible []core.Snapshot, rng *rand.Rand, killProbability float64) (Outcome, bool) {
	if !shooter.Alive || len(visible) == 0 {
		return Outcome{}, false
	}
	target := visible[rng.IntN(len(visible))]
	return Outcome{
		ShooterID:      shooter.ID,
		TargetID:       target.ID,
		TargetPosition: target.Position,
		WeaponType:     shooter.WeaponType,
		Kill:           rng.Float64() < killProbability,
	}, true
}

// ApplyEngagement fires the shot and kills the target when the roll says so
// and nobody killed it earlier.
func ApplyEngagement(outcome Outcome, entities Registry) []core.Event {
	events := []core.Event{&core.Fire{
		ShooterID:      outcome.ShooterID,
		TargetID:       outcome.TargetID,
		TargetPosition: outcome.TargetPosition,
		WeaponType:     outcome.WeaponType,
	}}

	if !outcome.Kill {
		return events
	}
	target, ok := entities.Entity(outcome.TargetID)
	if !ok || !target.Alive {
		return events
	}
	target.Kill()
	return append(events, &core.Die{ShooterID: outcome.ShooterID, VictimID: outcome.TargetID})
}
