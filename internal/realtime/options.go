package realtime

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultPingInterval     = 30 * time.Second
	DefaultPongTimeout      = 10 * time.Second
	DefaultInitialDelay     = 1 * time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultMultiplier       = 2.0
	DefaultMaxAttempts      = 10
	DefaultHandshakeTimeout = 10 * time.Second

	wsPath       = "/api/ws"
	writeTimeout = 10 * time.Second
)

// Backoff is the reconnection schedule.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// Delay returns the wait before reconnection attempt n (1-based):
// min(Initial × Multiplier^(n-1), Max).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(n-1))
	if d >= float64(b.Max) || math.IsInf(d, 0) || math.IsNaN(d) {
		return b.Max
	}
	return time.Duration(d)
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = DefaultInitialDelay
	}
	if b.Max <= 0 {
		b.Max = DefaultMaxDelay
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = DefaultMultiplier
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultMaxAttempts
	}
	return b
}

// Options configures a Client.
type Options struct {
	// URL is the backend base URL (http, https, ws or wss). When it has no
	// path, /api/ws is used.
	URL string
	// Token returns the current JWT. An empty token connects anonymously.
	Token func() string

	PingInterval time.Duration
	// PongTimeout is raised to twice PingInterval when smaller.
	PongTimeout time.Duration
	Backoff     Backoff

	Dialer   *websocket.Dialer
	Logger   logrus.FieldLogger
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = DefaultPongTimeout
	}
	o.Backoff = o.Backoff.withDefaults()
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	o.Logger = o.Logger.WithField("component", "realtime")
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// HeartbeatTimeout is the effective pong timeout: max(configured, 2×interval).
func HeartbeatTimeout(pingInterval, configured time.Duration) time.Duration {
	if floor := 2 * pingInterval; configured < floor {
		return floor
	}
	return configured
}

// BuildURL turns a backend base URL into the push endpoint URL, adding the
// token as a query parameter.
func BuildURL(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid realtime url %q: unsupported scheme %q", base, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid realtime url %q: missing host", base)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = wsPath
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
