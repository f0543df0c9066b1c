// Package input implements the per-device key-event queue that feeds
// input-aware renderers: coordinate resolution against the hardware key
// map, keystate filtering, replace-not-duplicate coalescing by keycode,
// and lazy expiry.
package input

import (
	"sync"
	"time"

	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/internal/util"
)

// KeyState is a bitmask of key transitions a Queue accepts or reports.
type KeyState int

const (
	KeyDown KeyState = 1 << iota
	KeyUp
)

// KeyInputEvent is one coalesced key transition, with coordinates
// resolved from the hardware's key map at enqueue time.
type KeyInputEvent struct {
	Timestamp  time.Time
	ExpireTime time.Time // zero means no expiry
	Keycode    uint16
	Scancode   uint16
	KeyState   KeyState
	Coords     []hardware.Point
	Data       any
}

// PercentComplete is remaining/(expire_time-timestamp) clamped to [0,1],
// as of now. Returns 0 for a non-expiring event.
func (e KeyInputEvent) PercentComplete(now time.Time) float64 {
	if e.ExpireTime.IsZero() {
		return 0
	}
	total := e.ExpireTime.Sub(e.Timestamp)
	if total <= 0 {
		return 0
	}
	remaining := e.ExpireTime.Sub(now)
	pct := float64(remaining) / float64(total)
	switch {
	case pct < 0:
		return 0
	case pct > 1:
		return 1
	default:
		return pct
	}
}

// TimeRemaining is max(0, expire_time-now). Returns 0 for a non-expiring
// event.
func (e KeyInputEvent) TimeRemaining(now time.Time) time.Duration {
	if e.ExpireTime.IsZero() {
		return 0
	}
	d := e.ExpireTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Queue holds one device's pending key events. Attach/Detach mirror
// util.Signal's Connect/Disconnect so input-aware renderers can observe
// events live in addition to polling GetEvents.
type Queue struct {
	hw *hardware.Entry

	mu         sync.Mutex
	acceptMask KeyState
	events     []KeyInputEvent

	Attached util.Signal[KeyInputEvent]
}

// NewQueue constructs a Queue resolving coordinates against hw's key
// map. The default accept mask is KeyDown only.
func NewQueue(hw *hardware.Entry) *Queue {
	return &Queue{hw: hw, acceptMask: KeyDown}
}

// SetAcceptMask changes which keystates Enqueue accepts.
func (q *Queue) SetAcceptMask(mask KeyState) {
	q.mu.Lock()
	q.acceptMask = mask
	q.mu.Unlock()
}

// Attach registers fn to be invoked synchronously on every accepted
// enqueue. Returns a handle for Detach.
func (q *Queue) Attach(fn func(KeyInputEvent)) util.Handle {
	return q.Attached.Connect(fn)
}

// Detach removes a callback registered by Attach.
func (q *Queue) Detach(h util.Handle) {
	q.Attached.Disconnect(h)
}

// Enqueue records one raw key transition if it matches the current
// accept mask. Coordinates are resolved from the hardware key map;
// expired entries are pruned first, and an existing entry for the same
// keycode is replaced rather than duplicated.
func (q *Queue) Enqueue(keycode, scancode uint16, state KeyState, expireTime time.Time, data any) {
	q.mu.Lock()
	if state&q.acceptMask == 0 {
		q.mu.Unlock()
		return
	}

	now := time.Now()
	q.pruneLocked(now)

	var coords []hardware.Point
	if q.hw != nil {
		coords = q.hw.KeyMapping[keycode]
	}
	ev := KeyInputEvent{
		Timestamp:  now,
		ExpireTime: expireTime,
		Keycode:    keycode,
		Scancode:   scancode,
		KeyState:   state,
		Coords:     coords,
		Data:       data,
	}

	replaced := false
	for i := range q.events {
		if q.events[i].Keycode == keycode {
			q.events[i] = ev
			replaced = true
			break
		}
	}
	if !replaced {
		q.events = append(q.events, ev)
	}
	q.mu.Unlock()

	q.Attached.Fire(ev)
}

func (q *Queue) pruneLocked(now time.Time) {
	live := q.events[:0]
	for _, e := range q.events {
		if !e.ExpireTime.IsZero() && e.ExpireTime.Before(now) {
			continue
		}
		live = append(live, e)
	}
	q.events = live
}

// GetEvents returns the current unexpired events. A non-expiring event
// (ExpireTime zero) is returned once per call and then removed, one
// event per wake; an expiring event remains queued until it actually
// expires.
func (q *Queue) GetEvents() []KeyInputEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked(time.Now())

	out := make([]KeyInputEvent, len(q.events))
	copy(out, q.events)

	remaining := q.events[:0]
	for _, e := range q.events {
		if !e.ExpireTime.IsZero() {
			remaining = append(remaining, e)
		}
	}
	q.events = remaining
	return out
}
