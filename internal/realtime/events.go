package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
)

// EventType classifies a decoded push frame.
type EventType string

const (
	EventConnected        EventType = "connected"
	EventPong             EventType = "pong"
	EventError            EventType = "error"
	EventAck              EventType = "ack"
	EventCheckbook        EventType = "checkbook"
	EventAllocation       EventType = "allocation"
	EventWithdrawal       EventType = "withdrawal"
	EventCheckbookStatus  EventType = "checkbook_status"
	EventAllocationStatus EventType = "allocation_status"
	EventPrice            EventType = "price"
	EventStatusSync       EventType = "status_sync"
)

// Action is the change carried by an entity update.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func parseAction(s string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionCreated:
		return ActionCreated
	case ActionDeleted:
		return ActionDeleted
	default:
		return ActionUpdated
	}
}

// Ack is a subscription acknowledgement, whatever field the server used
// to name the channel.
type Ack struct {
	Channel    Channel
	Subscribed bool
}

// Event is one decoded push frame. Only the fields matching Type are set.
type Event struct {
	Type   EventType
	Action Action
	Time   time.Time

	// ID is the entity id. Deleted entities carry only the id.
	ID string

	Checkbook   *models.Checkbook
	Allocation  *models.Allocation
	Withdrawal  *models.WithdrawRequest
	Price       *models.Price
	Checkbooks  []models.Checkbook
	Allocations []models.Allocation // nested in a checkbook update or a status sync

	// Legacy status updates.
	CheckbookStatus  models.CheckbookStatus
	AllocationStatus models.AllocationStatus
	CheckbookID      string

	Ack     *Ack
	Message string // user message or error text
}

// ErrUnknownMessage is returned by Decode for frame types it does not know.
var ErrUnknownMessage = errors.New("unknown realtime message type")

// Decode parses one text frame into an Event.
func Decode(raw []byte) (Event, error) {
	var m dto.InboundMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Event{}, fmt.Errorf("decode realtime frame: %w", err)
	}
	ev := Event{Time: m.Time(), Message: m.Message}

	switch m.Type {
	case dto.MsgConnected, dto.MsgConnectionEstablished:
		ev.Type = EventConnected
	case dto.MsgPong:
		ev.Type = EventPong
	case dto.MsgError:
		ev.Type = EventError
		if m.Error != "" {
			ev.Message = m.Error
		}
	case dto.MsgSubscriptionConfirmed, dto.MsgUnsubscriptionConfirmed:
		ev.Type = EventAck
		ev.Ack = &Ack{
			Channel:    Channel(m.AckChannel()),
			Subscribed: m.Type == dto.MsgSubscriptionConfirmed,
		}
	case dto.MsgCheckbookUpdate:
		return decodeCheckbook(ev, m.Data)
	case dto.MsgAllocationUpdate:
		return decodeAllocation(ev, m.Data)
	case dto.MsgWithdrawalUpdate:
		return decodeWithdrawal(ev, m.Data)
	case dto.MsgCheckbookStatusUpdate:
		return decodeCheckbookStatus(ev, m.Data)
	case dto.MsgCheckStatusUpdate:
		return decodeCheckStatus(ev, m.Data)
	case dto.MsgPriceUpdate:
		w, err := m.PriceWire()
		if err != nil {
			return Event{}, fmt.Errorf("decode price_update: %w", err)
		}
		if w.AssetID == "" {
			return Event{}, errors.New("decode price_update: missing asset_id")
		}
		p := dto.ToPrice(w)
		ev.Type, ev.ID, ev.Price = EventPrice, p.AssetID, &p
	case dto.MsgStatusSync:
		return decodeStatusSync(ev, m.Data)
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return ev, nil
}

func unmarshalData(msgType string, data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("decode %s: missing data", msgType)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", msgType, err)
	}
	return nil
}

func decodeCheckbook(ev Event, data json.RawMessage) (Event, error) {
	var d dto.CheckbookPushData
	if err := unmarshalData(dto.MsgCheckbookUpdate, data, &d); err != nil {
		return Event{}, err
	}
	ev.Type, ev.Action, ev.ID = EventCheckbook, parseAction(d.Action), d.Checkbook.ID
	if ev.ID == "" {
		return Event{}, errors.New("decode checkbook_update: missing checkbook id")
	}
	ev.Message = d.UserMessage
	if ev.Action == ActionDeleted {
		return ev, nil
	}
	cb, allocs, err := dto.ToCheckbook(d.Checkbook)
	if err != nil {
		return Event{}, err
	}
	ev.Checkbook, ev.Allocations = &cb, allocs
	return ev, nil
}

func decodeAllocation(ev Event, data json.RawMessage) (Event, error) {
	var d dto.AllocationPushData
	if err := unmarshalData(dto.MsgAllocationUpdate, data, &d); err != nil {
		return Event{}, err
	}
	ev.Type, ev.Action, ev.ID = EventAllocation, parseAction(d.Action), d.Allocation.ID
	if ev.ID == "" {
		return Event{}, errors.New("decode allocation_update: missing allocation id")
	}
	ev.Message = d.UserMessage
	ev.CheckbookID = d.Allocation.CheckbookID
	if ev.Action == ActionDeleted {
		return ev, nil
	}
	a, err := dto.ToAllocation(d.Allocation, nil)
	if err != nil {
		return Event{}, err
	}
	ev.Allocation = &a
	return ev, nil
}

func decodeWithdrawal(ev Event, data json.RawMessage) (Event, error) {
	var d dto.WithdrawalPushData
	if err := unmarshalData(dto.MsgWithdrawalUpdate, data, &d); err != nil {
		return Event{}, err
	}
	ev.Type, ev.Action, ev.ID = EventWithdrawal, parseAction(d.Action), d.Withdrawal.ID
	if ev.ID == "" {
		return Event{}, errors.New("decode withdrawal_update: missing withdrawal id")
	}
	ev.Message = d.UserMessage
	if ev.Action == ActionDeleted {
		return ev, nil
	}
	w, err := dto.ToWithdrawRequest(d.Withdrawal)
	if err != nil {
		return Event{}, err
	}
	ev.Withdrawal = &w
	return ev, nil
}

func decodeCheckbookStatus(ev Event, data json.RawMessage) (Event, error) {
	var d dto.CheckbookStatusPushData
	if err := unmarshalData(dto.MsgCheckbookStatusUpdate, data, &d); err != nil {
		return Event{}, err
	}
	st, ok := models.ParseCheckbookStatus(d.NewStatus)
	if !ok || d.CheckbookID == "" {
		return Event{}, fmt.Errorf("decode checkbook_status_update: checkbook %q status %q", d.CheckbookID, d.NewStatus)
	}
	ev.Type, ev.Action, ev.ID = EventCheckbookStatus, ActionUpdated, d.CheckbookID
	ev.CheckbookID, ev.CheckbookStatus, ev.Message = d.CheckbookID, st, d.UserMessage
	return ev, nil
}

func decodeCheckStatus(ev Event, data json.RawMessage) (Event, error) {
	var d dto.CheckStatusPushData
	if err := unmarshalData(dto.MsgCheckStatusUpdate, data, &d); err != nil {
		return Event{}, err
	}
	if d.CheckID == "" {
		return Event{}, errors.New("decode check_status_update: missing check id")
	}
	ev.Type, ev.Action, ev.ID = EventAllocationStatus, ActionUpdated, d.CheckID
	ev.CheckbookID, ev.Message = d.CheckbookID, d.UserMessage
	// legacy check statuses describe the withdrawal pipeline; only the
	// allocation states map through
	if st, ok := models.ParseAllocationStatus(d.NewStatus); ok {
		ev.AllocationStatus = st
	}
	return ev, nil
}

func decodeStatusSync(ev Event, data json.RawMessage) (Event, error) {
	var d dto.StatusSyncData
	if err := unmarshalData(dto.MsgStatusSync, data, &d); err != nil {
		return Event{}, err
	}
	ev.Type, ev.Action = EventStatusSync, ActionUpdated
	parents := make(map[string]*models.Checkbook, len(d.Checkbooks))
	for _, w := range d.Checkbooks {
		cb, allocs, err := dto.ToCheckbook(w)
		if err != nil {
			return Event{}, err
		}
		ev.Checkbooks = append(ev.Checkbooks, cb)
		ev.Allocations = append(ev.Allocations, allocs...)
		parent := cb
		parents[cb.ID] = &parent
	}
	for _, w := range d.Checks {
		a, err := dto.ToAllocation(w, parents[w.CheckbookID])
		if err != nil {
			return Event{}, err
		}
		ev.Allocations = append(ev.Allocations, a)
	}
	return ev, nil
}
