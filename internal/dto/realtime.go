package dto

import (
	"encoding/json"
	"strings"
	"time"
)

// ==================== WebSocket DTOs ====================

// Inbound message types.
const (
	MsgConnected               = "connected"
	MsgConnectionEstablished   = "connection_established"
	MsgPong                    = "pong"
	MsgError                   = "error"
	MsgSubscriptionConfirmed   = "subscription_confirmed"
	MsgUnsubscriptionConfirmed = "unsubscription_confirmed"
	MsgCheckbookUpdate         = "checkbook_update"
	MsgAllocationUpdate        = "allocation_update"
	MsgWithdrawalUpdate        = "withdrawal_update"
	MsgCheckbookStatusUpdate   = "checkbook_status_update"
	MsgCheckStatusUpdate       = "check_status_update"
	MsgPriceUpdate             = "price_update"
	MsgStatusSync              = "status_sync"
)

// SubscriptionMessage subscribes to or unsubscribes from a channel.
type SubscriptionMessage struct {
	Action    string   `json:"action"`              // "subscribe" or "unsubscribe"
	Type      string   `json:"type"`                // "deposits", "checkbooks", "withdraw_requests", "prices"
	Address   string   `json:"address,omitempty"`   // For address-based subscriptions
	AssetIDs  []string `json:"asset_ids,omitempty"` // For price subscriptions
	Timestamp int64    `json:"timestamp"`
}

// PingMessage is the application-level keepalive.
type PingMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// InboundMessage is any server frame. Push messages carry Data; acks name
// the channel in sub_type, channel or subscription_type depending on the
// server version; price updates are flat.
type InboundMessage struct {
	Type             string          `json:"type"`
	SubType          string          `json:"sub_type,omitempty"`
	Channel          string          `json:"channel,omitempty"`
	SubscriptionType string          `json:"subscription_type,omitempty"`
	ClientID         string          `json:"client_id,omitempty"`
	MessageID        string          `json:"message_id,omitempty"`
	UserAddress      string          `json:"user_address,omitempty"`
	Message          string          `json:"message,omitempty"`
	Error            string          `json:"error,omitempty"`
	Timestamp        json.RawMessage `json:"timestamp,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`

	// price_update
	AssetID   string          `json:"asset_id,omitempty"`
	Price     json.RawMessage `json:"price,omitempty"`
	Change24h json.RawMessage `json:"change_24h,omitempty"`
}

// AckChannel returns the channel named by an ack, whichever field carries it.
func (m *InboundMessage) AckChannel() string {
	for _, c := range []string{m.SubType, m.Channel, m.SubscriptionType} {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// Time parses the timestamp, which is RFC 3339 text or unix seconds.
// A missing or unreadable value yields the zero time.
func (m *InboundMessage) Time() time.Time {
	var ft FlexTime
	if len(m.Timestamp) == 0 || json.Unmarshal(m.Timestamp, &ft) != nil {
		return time.Time{}
	}
	return ft.Time
}

// PriceWire returns the flat price fields as a PriceWire.
func (m *InboundMessage) PriceWire() (PriceWire, error) {
	w := PriceWire{AssetID: m.AssetID}
	if len(m.Price) > 0 {
		if err := json.Unmarshal(m.Price, &w.Price); err != nil {
			return PriceWire{}, err
		}
	}
	if len(m.Change24h) > 0 {
		if err := json.Unmarshal(m.Change24h, &w.Change24h); err != nil {
			return PriceWire{}, err
		}
	}
	w.Timestamp = FlexTime{Time: m.Time()}
	return w, nil
}

// CheckbookPushData is the data of a checkbook_update.
type CheckbookPushData struct {
	Action      string          `json:"action"` // created | updated | deleted
	Checkbook   CheckbookWire   `json:"checkbook"`
	Previous    json.RawMessage `json:"previous,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
	Progress    int             `json:"progress,omitempty"`
}

// AllocationPushData is the data of an allocation_update.
type AllocationPushData struct {
	Action      string          `json:"action"`
	Allocation  AllocationWire  `json:"allocation"`
	Previous    json.RawMessage `json:"previous,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
	Progress    int             `json:"progress,omitempty"`
}

// WithdrawalPushData is the data of a withdrawal_update.
type WithdrawalPushData struct {
	Action      string              `json:"action"`
	Withdrawal  WithdrawRequestWire `json:"withdrawal"`
	Previous    json.RawMessage     `json:"previous,omitempty"`
	UserMessage string              `json:"user_message,omitempty"`
	Progress    int                 `json:"progress,omitempty"`
}

// CheckbookStatusPushData is the legacy checkbook_status_update payload.
type CheckbookStatusPushData struct {
	CheckbookID string `json:"checkbook_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	UserMessage string `json:"user_message"`
	Progress    int    `json:"progress"`
}

// CheckStatusPushData is the legacy check_status_update payload.
type CheckStatusPushData struct {
	CheckID     string `json:"check_id"`
	CheckbookID string `json:"checkbook_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	UserMessage string `json:"user_message"`
	Progress    int    `json:"progress"`
}

// StatusSyncData is the full-state status_sync payload.
type StatusSyncData struct {
	Checkbooks []CheckbookWire  `json:"checkbooks"`
	Checks     []AllocationWire `json:"checks"`
}
