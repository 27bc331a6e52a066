package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/sdkerr"
)

// pushServer is a fake push service. It acks subscriptions and answers
// JSON pings on connections for which answerPings returns true.
type pushServer struct {
	srv         *httptest.Server
	answerPings func(conn int) bool

	mu       sync.Mutex
	conns    int
	tokens   []string
	received [][]dto.SubscriptionMessage // per connection
	live     *websocket.Conn
	writeMu  sync.Mutex
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ps := &pushServer{answerPings: func(int) bool { return true }}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ps.mu.Lock()
		ps.conns++
		n := ps.conns
		ps.tokens = append(ps.tokens, c.Query("token"))
		ps.received = append(ps.received, nil)
		ps.live = conn
		ps.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg dto.SubscriptionMessage
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			switch {
			case msg.Action != "":
				ps.mu.Lock()
				ps.received[n-1] = append(ps.received[n-1], msg)
				ps.mu.Unlock()
				ack := dto.MsgSubscriptionConfirmed
				if msg.Action == "unsubscribe" {
					ack = dto.MsgUnsubscriptionConfirmed
				}
				ps.write(conn, map[string]string{"type": ack, "sub_type": msg.Type})
			case msg.Type == "ping" && ps.answerPings(n):
				ps.write(conn, map[string]string{"type": dto.MsgPong})
			}
		}
	})
	ps.srv = httptest.NewServer(r)
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) write(conn *websocket.Conn, v interface{}) {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}

// push sends a raw frame on the newest connection.
func (ps *pushServer) push(raw string) {
	ps.mu.Lock()
	conn := ps.live
	ps.mu.Unlock()
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(raw))
}

// dropLive closes the newest connection from the server side.
func (ps *pushServer) dropLive() {
	ps.mu.Lock()
	conn := ps.live
	ps.mu.Unlock()
	_ = conn.Close()
}

func (ps *pushServer) connCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.conns
}

func (ps *pushServer) messages(conn int) []dto.SubscriptionMessage {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if conn >= len(ps.received) {
		return nil
	}
	return append([]dto.SubscriptionMessage(nil), ps.received[conn]...)
}

type countingObserver struct {
	timeouts atomic.Int32
	attempts atomic.Int32
	messages atomic.Int32
}

func (o *countingObserver) ObserveState(State)          {}
func (o *countingObserver) ObserveReconnectAttempt(int) { o.attempts.Add(1) }
func (o *countingObserver) ObserveHeartbeatTimeout()    { o.timeouts.Add(1) }
func (o *countingObserver) ObserveMessage(string)       { o.messages.Add(1) }

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func immediate(time.Duration, <-chan struct{}) bool { return true }

func TestClient_ConnectReplaysSubscriptions(t *testing.T) {
	ps := newPushServer(t)
	c := New(Options{URL: ps.srv.URL, Token: func() string { return "jwt-1" }})
	events := &eventLog{}
	c.OnEvent(events.handle)
	var states []State
	var statesMu sync.Mutex
	c.OnStateChange(func(_, to State) {
		statesMu.Lock()
		states = append(states, to)
		statesMu.Unlock()
	})
	t.Cleanup(c.Disconnect)

	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelCheckbooks, Address: "0xabc"}))
	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelPrices, AssetIDs: []string{"0x01"}}))
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateConnected, c.State())

	require.Eventually(t, func() bool { return len(ps.messages(0)) == 2 }, 2*time.Second, 10*time.Millisecond)
	msgs := ps.messages(0)
	assert.Equal(t, "subscribe", msgs[0].Action)
	assert.Equal(t, "checkbooks", msgs[0].Type)
	assert.Equal(t, "0xabc", msgs[0].Address)
	assert.Equal(t, []string{"0x01"}, msgs[1].AssetIDs)
	assert.Equal(t, []string{"jwt-1"}, ps.tokens)

	require.Eventually(t, func() bool { return len(events.ofType(EventAck)) == 2 }, 2*time.Second, 10*time.Millisecond)

	ps.push(checkbookPush)
	require.Eventually(t, func() bool { return len(events.ofType(EventCheckbook)) == 1 }, 2*time.Second, 10*time.Millisecond)
	ev := events.ofType(EventCheckbook)[0]
	require.NotNil(t, ev.Checkbook)
	assert.Equal(t, "cb-1", ev.Checkbook.ID)

	statesMu.Lock()
	assert.Equal(t, []State{StateConnecting, StateConnected}, states)
	statesMu.Unlock()
}

func TestClient_SubscribeIsIdempotent(t *testing.T) {
	ps := newPushServer(t)
	c := New(Options{URL: ps.srv.URL})
	t.Cleanup(c.Disconnect)
	require.NoError(t, c.Connect(context.Background()))

	sub := Subscription{Channel: ChannelWithdrawRequests, Address: "0xabc"}
	require.NoError(t, c.Subscribe(sub))
	require.NoError(t, c.Subscribe(sub))
	require.NoError(t, c.Unsubscribe(ChannelWithdrawRequests))
	require.NoError(t, c.Unsubscribe(ChannelWithdrawRequests))
	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelDeposits}))

	require.Eventually(t, func() bool { return len(ps.messages(0)) == 3 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	msgs := ps.messages(0)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"subscribe", "unsubscribe", "subscribe"}, []string{msgs[0].Action, msgs[1].Action, msgs[2].Action})
	assert.Equal(t, []Subscription{{Channel: ChannelDeposits}}, c.Subscriptions())

	err := c.Subscribe(Subscription{Channel: "trades"})
	assert.Equal(t, sdkerr.KindValidation, sdkerr.KindOf(err))
}

func TestClient_ReconnectsAndReplays(t *testing.T) {
	ps := newPushServer(t)
	c := New(Options{URL: ps.srv.URL})
	c.wait = immediate
	t.Cleanup(c.Disconnect)

	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelCheckbooks}))
	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return len(ps.messages(0)) == 1 }, 2*time.Second, 10*time.Millisecond)

	ps.dropLive()
	require.Eventually(t, func() bool { return ps.connCount() == 2 && len(ps.messages(1)) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "checkbooks", ps.messages(1)[0].Type)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReplayFailureReconnects(t *testing.T) {
	ps := newPushServer(t)
	obs := &countingObserver{}
	c := New(Options{URL: ps.srv.URL, Observer: obs})
	c.wait = immediate
	t.Cleanup(c.Disconnect)

	dial := c.dial
	var dials atomic.Int32
	c.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		conn, err := dial(ctx, url)
		if err == nil && dials.Add(1) == 1 {
			// the first session dies before anything can be written
			_ = conn.UnderlyingConn().Close()
		}
		return conn, err
	}

	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelCheckbooks}))
	require.NoError(t, c.Subscribe(Subscription{Channel: ChannelWithdrawRequests}))
	require.NoError(t, c.Connect(context.Background()))

	require.Eventually(t, func() bool { return ps.connCount() == 2 && len(ps.messages(1)) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, ps.messages(0))
	assert.Equal(t, int32(1), obs.attempts.Load())
	assert.Equal(t, int32(2), dials.Load())
}

func TestClient_BackoffExhaustion(t *testing.T) {
	c := New(Options{
		URL: "http://127.0.0.1:1",
		Backoff: Backoff{
			Initial:     100 * time.Millisecond,
			Max:         500 * time.Millisecond,
			Multiplier:  2,
			MaxAttempts: 4,
		},
	})
	var dials atomic.Int32
	c.dial = func(context.Context, string) (*websocket.Conn, error) {
		dials.Add(1)
		return nil, websocket.ErrBadHandshake
	}
	var mu sync.Mutex
	var delays []time.Duration
	c.wait = func(d time.Duration, _ <-chan struct{}) bool {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return true
	}

	err := c.Connect(context.Background())
	assert.Equal(t, sdkerr.KindTransport, sdkerr.KindOf(err))

	require.Eventually(t, func() bool { return c.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(5), dials.Load(), "initial dial plus MaxAttempts retries")
	mu.Lock()
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 500 * time.Millisecond,
	}, delays)
	mu.Unlock()

	// Connect from Error starts over.
	_ = c.Connect(context.Background())
	require.Eventually(t, func() bool { return c.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(10), dials.Load())
}

func TestClient_HeartbeatTimeoutReconnectsOnce(t *testing.T) {
	ps := newPushServer(t)
	ps.answerPings = func(conn int) bool { return conn > 1 }
	obs := &countingObserver{}
	c := New(Options{
		URL:          ps.srv.URL,
		PingInterval: 50 * time.Millisecond,
		PongTimeout:  150 * time.Millisecond,
		Observer:     obs,
	})
	c.wait = immediate
	t.Cleanup(c.Disconnect)

	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return ps.connCount() == 2 }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), obs.timeouts.Load())
	assert.Equal(t, int32(1), obs.attempts.Load())
	assert.Equal(t, 2, ps.connCount())
	assert.Equal(t, StateConnected, c.State())
}

func TestClient_DisconnectStopsReconnection(t *testing.T) {
	ps := newPushServer(t)
	c := New(Options{URL: ps.srv.URL})
	c.wait = immediate

	require.NoError(t, c.Connect(context.Background()))
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ps.connCount())
	assert.Equal(t, StateDisconnected, c.State())
}
