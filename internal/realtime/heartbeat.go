package realtime

import (
	"sync"
	"time"
)

// heartbeat tracks ping and pong times for one connection generation.
// Decisions use wall-clock deadlines, so a delayed tick is caught on the
// next one instead of trusting the ticker interval.
type heartbeat struct {
	mu       sync.Mutex
	interval time.Duration
	timeout  time.Duration
	lastPing time.Time
	lastPong time.Time
	expired  bool
}

func newHeartbeat(interval, pongTimeout time.Duration, now time.Time) *heartbeat {
	return &heartbeat{
		interval: interval,
		timeout:  HeartbeatTimeout(interval, pongTimeout),
		// the open handshake counts as a pong
		lastPong: now,
	}
}

// pong records an inbound pong.
func (h *heartbeat) pong(now time.Time) {
	h.mu.Lock()
	h.lastPong = now
	h.mu.Unlock()
}

// tick decides what to do at now. It reports whether a ping should be
// sent and whether the connection timed out. A timeout is reported once;
// afterwards the heartbeat is dead and tick reports nothing.
func (h *heartbeat) tick(now time.Time) (sendPing, timedOut bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.expired {
		return false, false
	}
	pongAge := now.Sub(h.lastPong)
	pingAge := time.Duration(0)
	if !h.lastPing.IsZero() {
		pingAge = now.Sub(h.lastPing)
	}
	if pongAge > h.timeout || pingAge > h.timeout {
		h.expired = true
		return false, true
	}
	if h.lastPing.IsZero() || pingAge >= h.interval {
		h.lastPing = now
		return true, false
	}
	return false, false
}
