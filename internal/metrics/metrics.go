package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/sdkerr"
)

// Metrics holds the SDK collectors. It implements the observer interfaces
// of the API client, the action services, the realtime client and the
// event relay.
type Metrics struct {
	// ============================================
	// Backend API
	// ============================================
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// ============================================
	// Commitment / withdraw flows
	// ============================================
	Actions *prometheus.CounterVec

	// ============================================
	// Realtime connection
	// ============================================
	RealtimeState     prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	HeartbeatTimeouts prometheus.Counter
	RealtimeMessages  *prometheus.CounterVec

	// ============================================
	// NATS relay
	// ============================================
	RelayPublished *prometheus.CounterVec
	NATSConnected  prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		APIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enclave_sdk_api_requests_total",
				Help: "Backend API attempts by method, endpoint and HTTP status (0 = network error)",
			},
			[]string{"method", "endpoint", "status"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enclave_sdk_api_request_duration_seconds",
				Help:    "Backend API attempt latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		Actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enclave_sdk_actions_total",
				Help: "Orchestrated steps by flow, step and outcome (ok or error kind)",
			},
			[]string{"flow", "step", "outcome"},
		),
		RealtimeState: f.NewGauge(prometheus.GaugeOpts{
			Name: "enclave_sdk_realtime_state",
			Help: "Realtime connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=error)",
		}),
		ReconnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "enclave_sdk_realtime_reconnect_attempts_total",
			Help: "Realtime reconnection attempts",
		}),
		HeartbeatTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "enclave_sdk_realtime_heartbeat_timeouts_total",
			Help: "Connections dropped because no pong arrived in time",
		}),
		RealtimeMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enclave_sdk_realtime_messages_total",
				Help: "Decoded realtime frames by event type",
			},
			[]string{"type"},
		),
		RelayPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enclave_sdk_relay_published_total",
				Help: "Realtime events relayed to NATS by event type and result",
			},
			[]string{"type", "result"},
		),
		NATSConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "enclave_sdk_nats_connected",
			Help: "NATS relay connection status (1=connected, 0=disconnected)",
		}),
	}
}

// ObserveRequest records one API attempt.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	m.APIRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.APIRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveAction records one orchestrated step.
func (m *Metrics) ObserveAction(flow, step string, err error) {
	m.Actions.WithLabelValues(flow, step, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *sdkerr.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "unknown"
}

func (m *Metrics) ObserveState(s realtime.State) {
	m.RealtimeState.Set(float64(s))
}

func (m *Metrics) ObserveReconnectAttempt(int) {
	m.ReconnectAttempts.Inc()
}

func (m *Metrics) ObserveHeartbeatTimeout() {
	m.HeartbeatTimeouts.Inc()
}

func (m *Metrics) ObserveMessage(msgType string) {
	m.RealtimeMessages.WithLabelValues(msgType).Inc()
}

// ObserveRelay records one NATS publish.
func (m *Metrics) ObserveRelay(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RelayPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) ObserveNATSConnection(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
		return
	}
	m.NATSConnected.Set(0)
}
