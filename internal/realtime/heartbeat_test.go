package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatTimeout(t *testing.T) {
	assert.Equal(t, 60*time.Second, HeartbeatTimeout(30*time.Second, 10*time.Second))
	assert.Equal(t, 90*time.Second, HeartbeatTimeout(30*time.Second, 90*time.Second))
}

func TestHeartbeat_PingsOnWallClock(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	hb := newHeartbeat(10*time.Second, 0, t0)

	ping, dead := hb.tick(t0.Add(time.Second))
	assert.True(t, ping, "first tick pings")
	assert.False(t, dead)

	// an early tick does not ping again
	ping, _ = hb.tick(t0.Add(5 * time.Second))
	assert.False(t, ping)

	hb.pong(t0.Add(6 * time.Second))
	ping, dead = hb.tick(t0.Add(11 * time.Second))
	assert.True(t, ping)
	assert.False(t, dead)
}

func TestHeartbeat_TimesOutOnce(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	hb := newHeartbeat(10*time.Second, 0, t0) // timeout 20s

	for i := 1; i <= 2; i++ {
		_, dead := hb.tick(t0.Add(time.Duration(i*10) * time.Second))
		assert.False(t, dead)
	}
	_, dead := hb.tick(t0.Add(21 * time.Second))
	assert.True(t, dead, "no pong for longer than the timeout")

	ping, dead := hb.tick(t0.Add(40 * time.Second))
	assert.False(t, ping)
	assert.False(t, dead, "a timeout is reported once")

	hb.pong(t0.Add(41 * time.Second))
	_, dead = hb.tick(t0.Add(42 * time.Second))
	assert.False(t, dead)
}

func TestHeartbeat_StalledTimerTimesOut(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	hb := newHeartbeat(10*time.Second, 30*time.Second, t0)

	ping, _ := hb.tick(t0.Add(10 * time.Second))
	assert.True(t, ping)
	hb.pong(t0.Add(45 * time.Second))

	// the ticker was starved: pongs are fresh but no ping went out for 35s
	_, dead := hb.tick(t0.Add(45 * time.Second))
	assert.True(t, dead)
}
