package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2, MaxAttempts: 6}
	var prev time.Duration
	want := []time.Duration{1, 2, 4, 8, 10, 10}
	for n := 1; n <= 6; n++ {
		d := b.Delay(n)
		assert.Equal(t, want[n-1]*time.Second, d, "attempt %d", n)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 10*time.Second, b.Delay(5000), "overflow is capped")
}

func TestBackoff_Defaults(t *testing.T) {
	b := Backoff{Initial: time.Minute, Max: time.Second, Multiplier: 0.5}.withDefaults()
	assert.Equal(t, time.Minute, b.Max, "max never below initial")
	assert.Equal(t, DefaultMultiplier, b.Multiplier)
	assert.Equal(t, DefaultMaxAttempts, b.MaxAttempts)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base, token, want string
	}{
		{"http://localhost:3001", "", "ws://localhost:3001/api/ws"},
		{"https://api.example.com/", "abc", "wss://api.example.com/api/ws?token=abc"},
		{"wss://push.example.com/custom/ws", "a b", "wss://push.example.com/custom/ws?token=a+b"},
	}
	for _, tt := range tests {
		got, err := BuildURL(tt.base, tt.token)
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"ftp://host", "localhost:3001", "http://"} {
		_, err := BuildURL(bad, "")
		assert.Error(t, err, bad)
	}
}
