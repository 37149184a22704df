package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManual(start)
	assert.Equal(t, start, c.Now())

	assert.Equal(t, start.Add(4*time.Second), c.Advance(4*time.Second))
	assert.Equal(t, start.Add(4*time.Second), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("accelerated")
	require.NoError(t, err)
	assert.Equal(t, Accelerated, m)
	assert.Equal(t, "accelerated", m.String())

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, RealTime, m)

	_, err = ParseMode("warp")
	assert.Error(t, err)
}

func TestSystem(t *testing.T) {
	before := time.Now()
	now := System{}.Now()
	assert.False(t, now.Before(before))
}
