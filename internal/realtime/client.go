package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/sdkerr"
)

const (
	stepConnect     = "realtime_connect"
	stepSubscribe   = "realtime_subscribe"
	stepUnsubscribe = "realtime_unsubscribe"
)

var (
	errHeartbeatTimeout = errors.New("heartbeat timeout")
	errStaleGeneration  = errors.New("connection superseded")
)

// EventHandler receives decoded events in frame order. It runs on the
// read goroutine and must not block.
type EventHandler func(Event)

type handlerEntry struct {
	id string
	fn EventHandler
}

type listenerEntry struct {
	id string
	fn StateListener
}

// session is one open connection. It is replaced, never reused.
type session struct {
	conn      *websocket.Conn
	hb        *heartbeat
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *session) send(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

// Client is the realtime connection. It is safe for concurrent use.
type Client struct {
	opts Options
	log  logrus.FieldLogger
	obs  Observer

	dial func(ctx context.Context, url string) (*websocket.Conn, error)
	wait func(d time.Duration, stop <-chan struct{}) bool
	now  func() time.Time

	mu        sync.Mutex
	state     State
	sess      *session
	gen       uint64
	attempts  int
	lifetime  context.Context
	cancel    context.CancelFunc
	stop      chan struct{}
	subs      map[Channel]Subscription
	handlers  []handlerEntry
	listeners []listenerEntry
}

// New creates a disconnected client.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		opts: opts,
		log:  opts.Logger,
		obs:  opts.Observer,
		now:  time.Now,
		subs: make(map[Channel]Subscription),
	}
	c.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		conn, _, err := c.opts.Dialer.DialContext(ctx, url, nil)
		return conn, err
	}
	c.wait = func(d time.Duration, stop <-chan struct{}) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-stop:
			return false
		}
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnEvent registers a handler and returns a function that removes it.
func (c *Client) OnEvent(fn EventHandler) (remove func()) {
	id := uuid.NewString()
	c.mu.Lock()
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: fn})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.handlers {
			if h.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// OnStateChange registers a state listener and returns a function that removes it.
func (c *Client) OnStateChange(fn StateListener) (remove func()) {
	id := uuid.NewString()
	c.mu.Lock()
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// setStateLocked changes the state and returns the notification to run
// once c.mu is released.
func (c *Client) setStateLocked(to State) func() {
	from := c.state
	if from == to {
		return func() {}
	}
	c.state = to
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	return func() {
		c.obs.ObserveState(to)
		c.log.WithFields(logrus.Fields{"from": from.String(), "state": to.String()}).Debug("[Realtime] state changed")
		for _, l := range listeners {
			l.fn(from, to)
		}
	}
}

// Connect opens the connection and replays recorded subscriptions. When
// the first dial fails the error is returned and reconnection continues in
// the background. Calling Connect while connected or reconnecting is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected, StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.attempts = 0
	if c.cancel != nil {
		c.cancel()
	}
	c.stop = make(chan struct{})
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	err := c.open(ctx, gen)
	if err == nil {
		return nil
	}
	if errors.Is(err, errStaleGeneration) {
		return nil
	}
	c.log.WithError(err).Warn("[Realtime] connect failed, reconnecting")
	go c.reconnect(gen)
	return sdkerr.New(sdkerr.KindTransport, stepConnect, err)
}

// Disconnect closes the connection and stops reconnection. Recorded
// subscriptions are kept for the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	sess := c.sess
	c.sess = nil
	c.attempts = 0
	notify := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if sess != nil {
		sess.writeMu.Lock()
		_ = sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		sess.writeMu.Unlock()
		sess.close()
	}
	notify()
}

// open dials and, if gen is still current, installs the new session.
func (c *Client) open(ctx context.Context, gen uint64) error {
	token := ""
	if c.opts.Token != nil {
		token = c.opts.Token()
	}
	url, err := BuildURL(c.opts.URL, token)
	if err != nil {
		return err
	}
	conn, err := c.dial(ctx, url)
	if err != nil {
		return err
	}

	sess := &session{
		conn: conn,
		hb:   newHeartbeat(c.opts.PingInterval, c.opts.PongTimeout, c.now()),
		done: make(chan struct{}),
	}
	conn.SetPongHandler(func(string) error {
		sess.hb.pong(c.now())
		return nil
	})

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		sess.close()
		return errStaleGeneration
	}
	c.sess = sess
	subs := c.sortedSubsLocked()
	notify := c.setStateLocked(StateConnected)
	c.mu.Unlock()
	notify()

	c.log.WithField("subscriptions", len(subs)).Info("[Realtime] connected")
	for _, s := range subs {
		if err := sess.send(subscriptionMessage("subscribe", s, c.now())); err != nil {
			c.log.WithError(err).WithField("channel", s.Channel).Warn("[Realtime] subscription replay failed")
			// a partially replayed session is not usable; start over
			c.dropped(sess, err)
			return nil
		}
	}

	// the attempt counter only resets once every subscription is replayed
	c.mu.Lock()
	if c.sess == sess {
		c.attempts = 0
	}
	c.mu.Unlock()

	go c.readLoop(sess)
	go c.heartbeatLoop(sess)
	return nil
}

// dropped handles the end of a session. Only the current session triggers
// reconnection; a session already replaced or closed by Disconnect is ignored.
func (c *Client) dropped(sess *session, cause error) {
	sess.close()

	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	c.sess = nil
	gen := c.gen
	notify := c.setStateLocked(StateReconnecting)
	c.mu.Unlock()
	notify()

	c.log.WithError(cause).Warn("[Realtime] connection lost")
	go c.reconnect(gen)
}

// reconnect retries with capped exponential backoff until a dial succeeds,
// gen is superseded, or the attempts are exhausted.
func (c *Client) reconnect(gen uint64) {
	for {
		c.mu.Lock()
		if c.gen != gen || c.stop == nil {
			c.mu.Unlock()
			return
		}
		c.attempts++
		n := c.attempts
		if n > c.opts.Backoff.MaxAttempts {
			notify := c.setStateLocked(StateError)
			c.mu.Unlock()
			notify()
			c.log.WithField("attempts", n-1).Error("[Realtime] reconnection attempts exhausted")
			return
		}
		stop, ctx := c.stop, c.lifetime
		notify := c.setStateLocked(StateReconnecting)
		c.mu.Unlock()
		notify()

		delay := c.opts.Backoff.Delay(n)
		c.obs.ObserveReconnectAttempt(n)
		c.log.WithFields(logrus.Fields{"attempt": n, "delay": delay.String()}).Info("[Realtime] reconnecting")
		if !c.wait(delay, stop) {
			return
		}
		err := c.open(ctx, gen)
		if err == nil || errors.Is(err, errStaleGeneration) {
			return
		}
		c.log.WithError(err).WithField("attempt", n).Warn("[Realtime] reconnect failed")
	}
}

func (c *Client) readLoop(sess *session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			c.dropped(sess, err)
			return
		}
		ev, err := Decode(data)
		if err != nil {
			entry := c.log.WithError(err)
			if errors.Is(err, ErrUnknownMessage) {
				entry.Debug("[Realtime] ignored frame")
			} else {
				entry.Warn("[Realtime] undecodable frame")
			}
			continue
		}
		c.obs.ObserveMessage(string(ev.Type))
		if ev.Type == EventPong {
			sess.hb.pong(c.now())
		}
		c.dispatch(ev)
	}
}

func (c *Client) heartbeatLoop(sess *session) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
		}
		now := c.now()
		sendPing, timedOut := sess.hb.tick(now)
		if timedOut {
			c.obs.ObserveHeartbeatTimeout()
			c.log.WithField("timeout", sess.hb.timeout.String()).Warn("[Realtime] heartbeat timeout, forcing disconnect")
			c.dropped(sess, errHeartbeatTimeout)
			return
		}
		if sendPing {
			if err := sess.send(dto.PingMessage{Type: "ping", Timestamp: now.UnixMilli()}); err != nil {
				c.dropped(sess, err)
				return
			}
		}
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	handlers := make([]handlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h.fn(ev)
	}
}

// Subscribe records a subscription and sends it when connected.
// Subscribing again with the same filters is a no-op; different filters
// replace the recorded ones.
func (c *Client) Subscribe(sub Subscription) error {
	if !sub.Channel.Valid() {
		return sdkerr.Validation(stepSubscribe, "unknown channel %q", sub.Channel)
	}
	sub.AssetIDs = append([]string(nil), sub.AssetIDs...)

	c.mu.Lock()
	if existing, ok := c.subs[sub.Channel]; ok && existing.equal(sub) {
		c.mu.Unlock()
		return nil
	}
	c.subs[sub.Channel] = sub
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := sess.send(subscriptionMessage("subscribe", sub, c.now())); err != nil {
		return sdkerr.New(sdkerr.KindTransport, stepSubscribe, err, string(sub.Channel))
	}
	return nil
}

// Unsubscribe forgets a channel subscription and tells the server when
// connected. Unknown channels are a no-op.
func (c *Client) Unsubscribe(ch Channel) error {
	c.mu.Lock()
	sub, ok := c.subs[ch]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(c.subs, ch)
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := sess.send(subscriptionMessage("unsubscribe", sub, c.now())); err != nil {
		return sdkerr.New(sdkerr.KindTransport, stepUnsubscribe, err, string(ch))
	}
	return nil
}

// Subscriptions returns the recorded subscriptions ordered by channel.
func (c *Client) Subscriptions() []Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedSubsLocked()
}

func (c *Client) sortedSubsLocked() []Subscription {
	out := make([]Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func subscriptionMessage(action string, s Subscription, now time.Time) dto.SubscriptionMessage {
	return dto.SubscriptionMessage{
		Action:    action,
		Type:      string(s.Channel),
		Address:   s.Address,
		AssetIDs:  s.AssetIDs,
		Timestamp: now.UnixMilli(),
	}
}
