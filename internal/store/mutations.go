package store

import (
	"strings"

	"enclave-sdk/internal/models"
)

// Mutation is one change applied while building the next snapshot.
type Mutation func(*builder)

// builder copies each map of the base snapshot on first write, so maps a
// mutation never touches stay shared with the previous snapshot.
type builder struct {
	next *Snapshot

	cbCopied, allocCopied, wdCopied, priceCopied bool
}

func newBuilder(base *Snapshot) *builder {
	next := *base
	return &builder{next: &next}
}

func (b *builder) checkbooks() map[string]models.Checkbook {
	if !b.cbCopied {
		m := make(map[string]models.Checkbook, len(b.next.checkbooks)+1)
		for k, v := range b.next.checkbooks {
			m[k] = v
		}
		b.next.checkbooks, b.cbCopied = m, true
	}
	return b.next.checkbooks
}

func (b *builder) allocations() map[string]models.Allocation {
	if !b.allocCopied {
		m := make(map[string]models.Allocation, len(b.next.allocations)+1)
		for k, v := range b.next.allocations {
			m[k] = v
		}
		b.next.allocations, b.allocCopied = m, true
	}
	return b.next.allocations
}

func (b *builder) withdrawals() map[string]models.WithdrawRequest {
	if !b.wdCopied {
		m := make(map[string]models.WithdrawRequest, len(b.next.withdrawals)+1)
		for k, v := range b.next.withdrawals {
			m[k] = v
		}
		b.next.withdrawals, b.wdCopied = m, true
	}
	return b.next.withdrawals
}

func (b *builder) prices() map[string]models.Price {
	if !b.priceCopied {
		m := make(map[string]models.Price, len(b.next.prices)+1)
		for k, v := range b.next.prices {
			m[k] = v
		}
		b.next.prices, b.priceCopied = m, true
	}
	return b.next.prices
}

// UpsertCheckbook stores cb. An update that lacks the commitment or the
// local deposit id keeps the values already known; those fields never go
// back to unknown once reported.
func UpsertCheckbook(cb models.Checkbook) Mutation {
	cb = cb.Clone()
	return func(b *builder) {
		m := b.checkbooks()
		if prev, ok := m[cb.ID]; ok {
			if cb.Commitment == "" {
				cb.Commitment = prev.Commitment
			}
			if cb.LocalDepositID == nil {
				cb.LocalDepositID = prev.LocalDepositID
			}
			if cb.UserAddress.IsZero() {
				cb.UserAddress = prev.UserAddress
			}
		}
		m[cb.ID] = cb
	}
}

// SetCheckbookStatus moves a stored checkbook to status. Unknown ids are ignored.
func SetCheckbookStatus(id string, status models.CheckbookStatus) Mutation {
	return func(b *builder) {
		m := b.checkbooks()
		if cb, ok := m[id]; ok {
			cb.Status = status
			m[id] = cb
		}
	}
}

// DeleteCheckbook removes the checkbook and its allocations.
func DeleteCheckbook(id string) Mutation {
	return func(b *builder) {
		delete(b.checkbooks(), id)
		allocs := b.allocations()
		for aid, a := range allocs {
			if a.CheckbookID == id {
				delete(allocs, aid)
			}
		}
	}
}

// UpsertAllocation stores a. Missing commitment and token key are taken from
// the previous value or from the owning checkbook.
func UpsertAllocation(a models.Allocation) Mutation {
	a = a.Clone()
	return func(b *builder) {
		m := b.allocations()
		if prev, ok := m[a.ID]; ok {
			if a.Commitment == "" {
				a.Commitment = prev.Commitment
			}
			if a.TokenKey == "" {
				a.TokenKey = prev.TokenKey
			}
			if a.CheckbookID == "" {
				a.CheckbookID = prev.CheckbookID
			}
		}
		if cb, ok := b.next.checkbooks[a.CheckbookID]; ok {
			if a.Commitment == "" {
				a.Commitment = cb.Commitment
			}
			if a.TokenKey == "" {
				a.TokenKey = cb.Token.Symbol
			}
		}
		m[a.ID] = a
	}
}

// SetAllocationStatus moves a stored allocation to status. Unknown ids are ignored.
func SetAllocationStatus(id string, status models.AllocationStatus) Mutation {
	return func(b *builder) {
		m := b.allocations()
		if a, ok := m[id]; ok {
			a.Status = status
			if status == models.AllocationStatusIdle {
				a.WithdrawRequestID = ""
			}
			m[id] = a
		}
	}
}

func DeleteAllocation(id string) Mutation {
	return func(b *builder) {
		delete(b.allocations(), id)
	}
}

// UpsertWithdrawal stores w.
func UpsertWithdrawal(w models.WithdrawRequest) Mutation {
	w = w.Clone()
	return func(b *builder) {
		b.withdrawals()[w.ID] = w
	}
}

func DeleteWithdrawal(id string) Mutation {
	return func(b *builder) {
		delete(b.withdrawals(), id)
	}
}

// SetWithdrawalStatus moves a stored withdraw request to status. Unknown ids are ignored.
func SetWithdrawalStatus(id string, status models.WithdrawRequestStatus) Mutation {
	return func(b *builder) {
		m := b.withdrawals()
		w, ok := m[id]
		if !ok {
			return
		}
		w = w.Clone()
		w.Status = status
		m[id] = w
	}
}

// SetPrice stores a quote under its normalized asset id.
func SetPrice(p models.Price) Mutation {
	return func(b *builder) {
		p.AssetID = normalizeAssetID(p.AssetID)
		b.prices()[p.AssetID] = p
	}
}

// MarkAllocations sets the status of every listed allocation that is
// present. withdrawRequestID is recorded on pending and cleared on idle.
func MarkAllocations(ids []string, status models.AllocationStatus, withdrawRequestID string) Mutation {
	ids = append([]string(nil), ids...)
	return func(b *builder) {
		m := b.allocations()
		for _, id := range ids {
			a, ok := m[id]
			if !ok {
				continue
			}
			a.Status = status
			switch status {
			case models.AllocationStatusIdle:
				a.WithdrawRequestID = ""
			case models.AllocationStatusPending:
				a.WithdrawRequestID = withdrawRequestID
			}
			m[id] = a
		}
	}
}

func normalizeAssetID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id != "" && !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}
	return id
}

func equalFoldHex(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(a), "0x"), strings.TrimPrefix(strings.ToLower(b), "0x"))
}
