package simulation

import (
	"time"

	"github.com/OCAP2/tactical/internal/clock"
	"github.com/OCAP2/tactical/internal/engagement"
	"github.com/OCAP2/tactical/pkg/core"
)

// Settings tunes one simulation run.
type Settings struct {
	TickRate            time.Duration
	LookAroundFrequency time.Duration
	EngageFrequency     time.Duration
	KillProbability     float64
	Seed                uint64
	InboxSize           int
	Mode                clock.Mode
	Profiles            map[core.Kind]core.MovementProfile
}

// DefaultProfiles are the movement timings used when none are configured.
var DefaultProfiles = map[core.Kind]core.MovementProfile{
	core.KindSoldier: {
		Walk:              3 * time.Second,
		Run:               1500 * time.Millisecond,
		Crawl:             6 * time.Second,
		RotationPerDegree: 111100 * time.Microsecond,
		Coefficient:       1,
	},
	core.KindVehicle: {
		Walk:              3 * time.Second,
		Run:               1500 * time.Millisecond,
		Crawl:             6 * time.Second,
		RotationPerDegree: 111100 * time.Microsecond,
		Coefficient:       3,
	},
}

// DefaultSettings returns settings for a real-time run.
func DefaultSettings() Settings {
	return Settings{
		TickRate:            100 * time.Millisecond,
		LookAroundFrequency: 500 * time.Millisecond,
		EngageFrequency:     2 * time.Second,
		KillProbability:     engagement.DefaultKillProbability,
		Seed:                1,
		InboxSize:           1024,
		Mode:                clock.RealTime,
	}
}

// Profile returns the movement profile for kind, falling back to DefaultProfiles.
func (s Settings) Profile(kind core.Kind) core.MovementProfile {
	if p, ok := s.Profiles[kind]; ok {
		return p
	}
	return DefaultProfiles[kind]
}
