package dto

import (
	"errors"
	"fmt"
	"strings"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
)

var errMissingAddress = errors.New("address missing")

func errUnknownStatus(entity, status string) error {
	return fmt.Errorf("unknown %s status %q", entity, status)
}

// AllocationWire is an allocation (a "check" in backend terms).
// List responses nest a partial checkbook and token; push payloads do not.
type AllocationWire struct {
	ID                string                `json:"id"`
	CheckbookID       string                `json:"checkbook_id"`
	Seq               FlexUint64            `json:"seq"`
	Amount            FlexAmount            `json:"amount"`
	Status            string                `json:"status"`
	Nullifier         string                `json:"nullifier,omitempty"`
	Commitment        string                `json:"commitment,omitempty"`
	WithdrawRequestID *string               `json:"withdraw_request_id,omitempty"`
	Checkbook         *CheckbookWire        `json:"checkbook,omitempty"`
	Token             *TokenWire            `json:"token,omitempty"`
	Recipient         *UniversalAddressWire `json:"recipient,omitempty"`
	CreatedAt         FlexTime              `json:"created_at"`
	UpdatedAt         FlexTime              `json:"updated_at"`
}

// ToAllocation maps an allocation. parent, when known, supplies the
// commitment and token key the allocation itself does not carry; otherwise
// the nested checkbook is used.
func ToAllocation(w AllocationWire, parent *models.Checkbook) (models.Allocation, error) {
	if strings.TrimSpace(w.ID) == "" {
		return models.Allocation{}, sdkerr.Validation(stepMapAllocation, "allocation without id")
	}
	if !w.Seq.Valid || w.Seq.Value > 255 {
		return models.Allocation{}, sdkerr.New(sdkerr.KindValidation, stepMapAllocation,
			fmt.Errorf("allocation seq missing or out of range"), w.ID)
	}
	status, ok := models.ParseAllocationStatus(w.Status)
	if !ok {
		return models.Allocation{}, sdkerr.New(sdkerr.KindValidation, stepMapAllocation,
			errUnknownStatus("allocation", w.Status), w.ID)
	}

	a := models.Allocation{
		ID:          w.ID,
		CheckbookID: w.CheckbookID,
		Seq:         uint8(w.Seq.Value),
		Amount:      w.Amount.OrZero(),
		Commitment:  strings.TrimSpace(w.Commitment),
		Nullifier:   strings.TrimSpace(w.Nullifier),
		Status:      status,
		CreatedAt:   w.CreatedAt.Time,
		UpdatedAt:   w.UpdatedAt.Time,
	}
	if w.WithdrawRequestID != nil {
		a.WithdrawRequestID = *w.WithdrawRequestID
	}

	switch {
	case parent != nil:
		if a.CheckbookID == "" {
			a.CheckbookID = parent.ID
		}
		if a.Commitment == "" {
			a.Commitment = parent.Commitment
		}
		a.TokenKey = parent.Token.Symbol
	case w.Checkbook != nil:
		ref := w.Checkbook.Ref()
		if a.CheckbookID == "" {
			a.CheckbookID = ref.ID
		}
		if a.Commitment == "" {
			a.Commitment = ref.Commitment
		}
		a.TokenKey = ref.TokenKey
	}
	if w.Token != nil && w.Token.Symbol != "" {
		a.TokenKey = w.Token.Symbol
	}
	return a, nil
}

// CheckbookRef returns the partial checkbook nested in w, if any.
func (w AllocationWire) CheckbookRef() (CheckbookRef, bool) {
	if w.Checkbook == nil {
		return CheckbookRef{}, false
	}
	ref := w.Checkbook.Ref()
	if ref.ID == "" {
		ref.ID = w.CheckbookID
	}
	return ref, true
}

// AllocationsPage is one page of /api/allocations mapped to domain values.
type AllocationsPage struct {
	Allocations []models.Allocation
	// Checkbooks holds the partial checkbooks nested in the items, by id.
	Checkbooks map[string]CheckbookRef
	Page       PageInfo
}

// ToAllocationsPage maps a list response.
func ToAllocationsPage(items []AllocationWire, p *Pagination) (AllocationsPage, error) {
	out := AllocationsPage{
		Allocations: make([]models.Allocation, 0, len(items)),
		Checkbooks:  make(map[string]CheckbookRef),
		Page:        p.Info(len(items)),
	}
	for _, w := range items {
		a, err := ToAllocation(w, nil)
		if err != nil {
			return AllocationsPage{}, err
		}
		out.Allocations = append(out.Allocations, a)
		if ref, ok := w.CheckbookRef(); ok && ref.ID != "" {
			out.Checkbooks[ref.ID] = ref
		}
	}
	return out, nil
}
