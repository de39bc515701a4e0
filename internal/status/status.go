// status keeps the inputs of the status page: the auxiliary LED state and the
// reference timestamp uptime is measured from.
package status

import (
	"sync"
	"time"
)

// Snapshot is computed on every request and never stored.
type Snapshot struct {
	LED    bool
	Uptime uint64 // seconds
}

type Tracker struct {
	now func() time.Time

	mu    sync.Mutex
	start time.Time
	led   bool
}

// NewTracker captures the reference timestamp, now defaults to time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		now:   now,
		start: now(),
	}
}

// MarkStart re-captures the reference timestamp, called once the network is up.
func (t *Tracker) MarkStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
}

func (t *Tracker) SetLED(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.led = on
}

func (t *Tracker) LED() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.led
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var up uint64
	// a clock that went backwards reports zero
	if d := t.now().Sub(t.start); d > 0 {
		up = uint64(d / time.Second)
	}

	return Snapshot{
		LED:    t.led,
		Uptime: up,
	}
}
