package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func TestTracker_Snapshot(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(c.now)

	assert.Equal(t, Snapshot{}, tr.Snapshot())

	c.t = c.t.Add(42*time.Second + 999*time.Millisecond)
	tr.SetLED(true)
	assert.Equal(t, Snapshot{LED: true, Uptime: 42}, tr.Snapshot())
	assert.True(t, tr.LED())

	tr.MarkStart()
	c.t = c.t.Add(3 * time.Second)
	assert.Equal(t, uint64(3), tr.Snapshot().Uptime)

	c.t = c.t.Add(-time.Hour)
	assert.Equal(t, uint64(0), tr.Snapshot().Uptime)
}

func TestTracker_DefaultClock(t *testing.T) {
	tr := NewTracker(nil)
	assert.Equal(t, uint64(0), tr.Snapshot().Uptime)
}
