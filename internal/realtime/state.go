// Package realtime keeps one WebSocket connection to the backend push
// service: connection state machine, heartbeat, reconnection with capped
// backoff, subscription bookkeeping and decoding of push frames into
// domain events.
package realtime

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError // reconnection attempts exhausted; Connect must be called again
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateListener is called after every transition.
type StateListener func(from, to State)

// Channel is a subscription channel on the push service.
type Channel string

const (
	ChannelDeposits         Channel = "deposits"
	ChannelCheckbooks       Channel = "checkbooks"
	ChannelWithdrawRequests Channel = "withdraw_requests"
	ChannelPrices           Channel = "prices"
)

// Valid reports whether c is a channel the push service knows.
func (c Channel) Valid() bool {
	switch c {
	case ChannelDeposits, ChannelCheckbooks, ChannelWithdrawRequests, ChannelPrices:
		return true
	}
	return false
}

// Subscription is one recorded channel subscription. Address filters the
// address-based channels; AssetIDs filters prices.
type Subscription struct {
	Channel  Channel
	Address  string
	AssetIDs []string
}

func (s Subscription) equal(o Subscription) bool {
	if s.Channel != o.Channel || s.Address != o.Address || len(s.AssetIDs) != len(o.AssetIDs) {
		return false
	}
	for i := range s.AssetIDs {
		if s.AssetIDs[i] != o.AssetIDs[i] {
			return false
		}
	}
	return true
}

// Observer receives connection metrics. Every method must be cheap.
type Observer interface {
	ObserveState(State)
	ObserveReconnectAttempt(attempt int)
	ObserveHeartbeatTimeout()
	ObserveMessage(msgType string)
}

type nopObserver struct{}

func (nopObserver) ObserveState(State)          {}
func (nopObserver) ObserveReconnectAttempt(int) {}
func (nopObserver) ObserveHeartbeatTimeout()    {}
func (nopObserver) ObserveMessage(string)       {}
