// Package events relays decoded realtime events onto NATS so other
// processes can follow one wallet's state without opening their own
// WebSocket.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/realtime"
)

// DefaultSubjectPrefix is used when the relay is created without a prefix.
const DefaultSubjectPrefix = "enclave.sdk"

// Publisher is the part of a NATS connection the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Subscriber is the part of a NATS connection Listen needs.
type Subscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Observer receives one call per publish attempt.
type Observer interface {
	ObserveRelay(eventType string, err error)
}

// Envelope is the relayed message body. Data holds the entity for the
// event type: a checkbook, allocation, withdrawal, price or status sync.
type Envelope struct {
	Type        realtime.EventType `json:"type"`
	Action      realtime.Action    `json:"action,omitempty"`
	ID          string             `json:"id,omitempty"`
	CheckbookID string             `json:"checkbook_id,omitempty"`
	Status      string             `json:"status,omitempty"`
	Message     string             `json:"message,omitempty"`
	Time        time.Time          `json:"time"`
	Data        json.RawMessage    `json:"data,omitempty"`
}

type statusSync struct {
	Checkbooks  interface{} `json:"checkbooks"`
	Allocations interface{} `json:"allocations"`
}

// Relay publishes entity events to <prefix>.<event type>.
type Relay struct {
	pub    Publisher
	prefix string
	log    logrus.FieldLogger
	obs    Observer
}

// NewRelay creates a relay on pub. log and obs may be nil.
func NewRelay(pub Publisher, prefix string, log logrus.FieldLogger, obs Observer) *Relay {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Relay{pub: pub, prefix: prefix, log: log.WithField("component", "relay"), obs: obs}
}

// Subject returns the subject an event type is published on.
func (r *Relay) Subject(t realtime.EventType) string {
	return r.prefix + "." + string(t)
}

// Handle publishes ev. It has the realtime.EventHandler signature so it
// can be registered with Client.OnEvent. Control frames are skipped.
func (r *Relay) Handle(ev realtime.Event) {
	env, ok := envelopeFor(ev)
	if !ok {
		return
	}
	err := r.publish(env)
	if r.obs != nil {
		r.obs.ObserveRelay(string(ev.Type), err)
	}
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "id": ev.ID}).Warn("[Relay] publish failed")
	}
}

func (r *Relay) publish(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", env.Type, err)
	}
	return r.pub.Publish(r.Subject(env.Type), data)
}

func envelopeFor(ev realtime.Event) (Envelope, bool) {
	env := Envelope{Type: ev.Type, Action: ev.Action, ID: ev.ID, Message: ev.Message, Time: ev.Time}
	if env.Time.IsZero() {
		env.Time = time.Now().UTC()
	}
	var data interface{}
	switch ev.Type {
	case realtime.EventCheckbook:
		if ev.Checkbook != nil {
			data = ev.Checkbook
		}
	case realtime.EventAllocation:
		if ev.Allocation != nil {
			data = ev.Allocation
		}
	case realtime.EventWithdrawal:
		if ev.Withdrawal != nil {
			data = ev.Withdrawal
		}
	case realtime.EventPrice:
		if ev.Price == nil {
			return env, false
		}
		data = ev.Price
	case realtime.EventCheckbookStatus:
		env.Status = string(ev.CheckbookStatus)
	case realtime.EventAllocationStatus:
		env.Status = string(ev.AllocationStatus)
		env.CheckbookID = ev.CheckbookID
	case realtime.EventStatusSync:
		data = statusSync{Checkbooks: ev.Checkbooks, Allocations: ev.Allocations}
	default:
		return env, false
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return env, false
		}
		env.Data = raw
	}
	return env, true
}

// Listen subscribes to every event relayed under prefix and calls fn for
// each envelope. Undecodable messages are logged and dropped.
func Listen(sub Subscriber, prefix string, log logrus.FieldLogger, fn func(Envelope)) (*nats.Subscription, error) {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return sub.Subscribe(prefix+".>", func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.WithError(err).WithField("subject", msg.Subject).Warn("[Relay] dropping undecodable message")
			return
		}
		fn(env)
	})
}
