package main

import "enclave-sdk/internal/models"

// filter selects cancellable requests. Empty fields match everything.
type filter struct {
	ExecuteStatus string
	PayoutStatus  string
	ProofStatus   string
	Status        string
}

func (f filter) empty() bool {
	return f == filter{}
}

func (f filter) match(req models.WithdrawRequest) bool {
	if f.ExecuteStatus != "" && string(req.ExecuteStatus) != f.ExecuteStatus {
		return false
	}
	if f.PayoutStatus != "" && string(req.PayoutStatus) != f.PayoutStatus {
		return false
	}
	if f.ProofStatus != "" && string(req.ProofStatus) != f.ProofStatus {
		return false
	}
	if f.Status != "" && string(req.Status) != f.Status {
		return false
	}
	return true
}

// apply keeps the matching requests that can still be cancelled.
func (f filter) apply(reqs []models.WithdrawRequest) []models.WithdrawRequest {
	var out []models.WithdrawRequest
	for i := range reqs {
		if f.match(reqs[i]) && reqs[i].CanCancel() {
			out = append(out, reqs[i])
		}
	}
	return out
}
