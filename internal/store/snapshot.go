// Package store keeps the SDK's local view of checkbooks, allocations,
// withdraw requests and prices as a sequence of immutable snapshots.
package store

import (
	"sort"

	"enclave-sdk/internal/models"
)

// Snapshot is one published state. It is never modified after Apply
// returns it; every accessor hands out copies.
type Snapshot struct {
	version     uint64
	checkbooks  map[string]models.Checkbook
	allocations map[string]models.Allocation
	withdrawals map[string]models.WithdrawRequest
	prices      map[string]models.Price
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		checkbooks:  map[string]models.Checkbook{},
		allocations: map[string]models.Allocation{},
		withdrawals: map[string]models.WithdrawRequest{},
		prices:      map[string]models.Price{},
	}
}

// Version increases by one on every Apply.
func (s *Snapshot) Version() uint64 { return s.version }

func (s *Snapshot) Checkbook(id string) (models.Checkbook, bool) {
	cb, ok := s.checkbooks[id]
	if !ok {
		return models.Checkbook{}, false
	}
	return cb.Clone(), true
}

// Checkbooks returns all checkbooks ordered by id.
func (s *Snapshot) Checkbooks() []models.Checkbook {
	out := make([]models.Checkbook, 0, len(s.checkbooks))
	for _, cb := range s.checkbooks {
		out = append(out, cb.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Snapshot) Allocation(id string) (models.Allocation, bool) {
	a, ok := s.allocations[id]
	if !ok {
		return models.Allocation{}, false
	}
	return a.Clone(), true
}

// Allocations returns all allocations ordered by checkbook, then seq.
func (s *Snapshot) Allocations() []models.Allocation {
	return s.filterAllocations(func(models.Allocation) bool { return true })
}

// AllocationsByCheckbook returns the allocations of one checkbook ordered by seq.
func (s *Snapshot) AllocationsByCheckbook(checkbookID string) []models.Allocation {
	return s.filterAllocations(func(a models.Allocation) bool { return a.CheckbookID == checkbookID })
}

// AllocationsByStatus returns allocations in the given status.
func (s *Snapshot) AllocationsByStatus(status models.AllocationStatus) []models.Allocation {
	return s.filterAllocations(func(a models.Allocation) bool { return a.Status == status })
}

func (s *Snapshot) filterAllocations(keep func(models.Allocation) bool) []models.Allocation {
	out := make([]models.Allocation, 0)
	for _, a := range s.allocations {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckbookID != out[j].CheckbookID {
			return out[i].CheckbookID < out[j].CheckbookID
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Snapshot) Withdrawal(id string) (models.WithdrawRequest, bool) {
	w, ok := s.withdrawals[id]
	if !ok {
		return models.WithdrawRequest{}, false
	}
	return w.Clone(), true
}

// WithdrawalByNullifier finds a withdraw request by its nullifier, case-insensitively.
func (s *Snapshot) WithdrawalByNullifier(nullifier string) (models.WithdrawRequest, bool) {
	for _, w := range s.withdrawals {
		if w.WithdrawNullifier != "" && equalFoldHex(w.WithdrawNullifier, nullifier) {
			return w.Clone(), true
		}
	}
	return models.WithdrawRequest{}, false
}

// Withdrawals returns all withdraw requests, newest first.
func (s *Snapshot) Withdrawals() []models.WithdrawRequest {
	out := make([]models.WithdrawRequest, 0, len(s.withdrawals))
	for _, w := range s.withdrawals {
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Snapshot) Price(assetID string) (models.Price, bool) {
	p, ok := s.prices[normalizeAssetID(assetID)]
	return p, ok
}

// Prices returns all prices ordered by asset id.
func (s *Snapshot) Prices() []models.Price {
	out := make([]models.Price, 0, len(s.prices))
	for _, p := range s.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// Counts is a cheap summary used by logging and metrics.
type Counts struct {
	Checkbooks  int
	Allocations int
	Withdrawals int
	Prices      int
}

func (s *Snapshot) Counts() Counts {
	return Counts{
		Checkbooks:  len(s.checkbooks),
		Allocations: len(s.allocations),
		Withdrawals: len(s.withdrawals),
		Prices:      len(s.prices),
	}
}
