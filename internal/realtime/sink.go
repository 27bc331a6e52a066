package realtime

import (
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/store"
)

// StoreSink returns a handler that applies entity events to st. Each event
// becomes one store transition; control events are ignored.
func StoreSink(st *store.Store, log logrus.FieldLogger) EventHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "realtime_sink")
	return func(ev Event) {
		mutations := Mutations(ev)
		if len(mutations) == 0 {
			return
		}
		snap := st.Apply(mutations...)
		log.WithFields(logrus.Fields{
			"event":   ev.Type,
			"action":  ev.Action,
			"id":      ev.ID,
			"version": snap.Version(),
		}).Debug("[Realtime] applied")
	}
}

// Mutations translates an event into store mutations.
func Mutations(ev Event) []store.Mutation {
	switch ev.Type {
	case EventCheckbook:
		if ev.Action == ActionDeleted {
			return []store.Mutation{store.DeleteCheckbook(ev.ID)}
		}
		if ev.Checkbook == nil {
			return nil
		}
		out := []store.Mutation{store.UpsertCheckbook(*ev.Checkbook)}
		for _, a := range ev.Allocations {
			out = append(out, store.UpsertAllocation(a))
		}
		return out
	case EventAllocation:
		if ev.Action == ActionDeleted {
			return []store.Mutation{store.DeleteAllocation(ev.ID)}
		}
		if ev.Allocation == nil {
			return nil
		}
		return []store.Mutation{store.UpsertAllocation(*ev.Allocation)}
	case EventWithdrawal:
		if ev.Action == ActionDeleted {
			return []store.Mutation{store.DeleteWithdrawal(ev.ID)}
		}
		if ev.Withdrawal == nil {
			return nil
		}
		return []store.Mutation{store.UpsertWithdrawal(*ev.Withdrawal)}
	case EventCheckbookStatus:
		return []store.Mutation{store.SetCheckbookStatus(ev.ID, ev.CheckbookStatus)}
	case EventAllocationStatus:
		if ev.AllocationStatus == "" {
			return nil
		}
		return []store.Mutation{store.SetAllocationStatus(ev.ID, ev.AllocationStatus)}
	case EventPrice:
		if ev.Price == nil {
			return nil
		}
		return []store.Mutation{store.SetPrice(*ev.Price)}
	case EventStatusSync:
		out := make([]store.Mutation, 0, len(ev.Checkbooks)+len(ev.Allocations))
		for _, cb := range ev.Checkbooks {
			out = append(out, store.UpsertCheckbook(cb))
		}
		for _, a := range ev.Allocations {
			out = append(out, store.UpsertAllocation(a))
		}
		return out
	}
	return nil
}
