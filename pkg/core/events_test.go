package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	types := []EventType{
		EventStartRotation, EventContinueRotation, EventFinishRotation,
		EventStartTileMove, EventContinueTileMove, EventFinishTileMove, EventFinishMove,
		EventNewVisibleOpponent, EventNoLongerVisibleOpponent,
		EventFire, EventDie, EventSpawned,
	}
	for _, typ := range types {
		ev, err := NewEvent(typ)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, ev.Type())
	}

	_, err := NewEvent("teleport")
	assert.Error(t, err)
}

func TestEvent_StampAndDecode(t *testing.T) {
	at := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	fire := &Fire{ShooterID: 1, TargetID: 2, TargetPosition: Position{X: 3, Y: 4}, WeaponType: "rifle"}
	fire.Stamp(7, at)

	data, err := json.Marshal(fire)
	require.NoError(t, err)

	decoded, err := NewEvent(EventFire)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, decoded))

	assert.Equal(t, fire, decoded)
	assert.Equal(t, uint64(7), decoded.Meta().Tick)
	assert.Equal(t, EntityID(1), decoded.Subject())
}
