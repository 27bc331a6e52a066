package clients

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSConfig configures the relay connection.
type NATSConfig struct {
	URL           string
	Timeout       time.Duration
	ReconnectWait time.Duration
}

// NATSStatusObserver is told when the connection drops or comes back.
type NATSStatusObserver interface {
	ObserveNATSConnection(connected bool)
}

// NATSClient wraps a core NATS connection used to fan realtime events out
// to other processes.
type NATSClient struct {
	conn *nats.Conn
	log  logrus.FieldLogger
}

// NewNATSClient connects to cfg.URL. The connection reconnects forever;
// obs may be nil.
func NewNATSClient(cfg NATSConfig, log logrus.FieldLogger, obs NATSStatusObserver) (*NATSClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 5 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "nats")
	status := func(connected bool) {
		if obs != nil {
			obs.ObserveNATSConnection(connected)
		}
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("[NATS] disconnected")
			status(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("[NATS] reconnected")
			status(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	status(true)
	log.WithField("url", conn.ConnectedUrl()).Info("[NATS] connected")
	return &NATSClient{conn: conn, log: log}, nil
}

// Publish sends data on subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers handler for subject, which may contain wildcards.
func (c *NATSClient) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.log.WithField("subject", subject).Debug("[NATS] subscribed")
	return sub, nil
}

// Close drains pending messages and closes the connection.
func (c *NATSClient) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// Connection exposes the underlying connection.
func (c *NATSClient) Connection() *nats.Conn {
	return c.conn
}
