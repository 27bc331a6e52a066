package dto

import (
	"strings"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/types"
)

const stepMapCommitment = "map_commitment_response"

// CommitmentSubmitResponse is the body of POST /api/commitments/submit.
// Depending on the backend mode the proof runs inline (tx_hash set) or is
// queued (queue_id or task_id set).
type CommitmentSubmitResponse struct {
	Success          bool             `json:"success"`
	Checkbook        *CheckbookWire   `json:"checkbook,omitempty"`
	Checks           []AllocationWire `json:"checks,omitempty"`
	Commitment       string           `json:"commitment,omitempty"`
	ProofData        string           `json:"proof_data,omitempty"`
	PublicValues     string           `json:"public_values,omitempty"`
	AllocationsCount int              `json:"allocations_count,omitempty"`
	TotalAmount      FlexAmount       `json:"total_amount"`
	TxHash           string           `json:"tx_hash,omitempty"`
	QueueID          string           `json:"queue_id,omitempty"`
	TaskID           string           `json:"task_id,omitempty"`
	Message          string           `json:"message,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// CommitmentResult is the mapped submit response.
type CommitmentResult struct {
	Checkbook   *models.Checkbook
	Allocations []models.Allocation
	// Commitment is the backend's value; empty while the proof is queued.
	Commitment   string
	TxHash       string
	QueueID      string
	PublicValues *types.CommitmentPublicValues
}

// Pending reports whether the proof was queued rather than produced inline.
func (r *CommitmentResult) Pending() bool {
	return r.Commitment == "" && r.TxHash == ""
}

// ToCommitmentResult maps the submit response. The root-level commitment is
// applied to the checkbook and to every allocation that lacks one.
func ToCommitmentResult(w CommitmentSubmitResponse) (*CommitmentResult, error) {
	res := &CommitmentResult{
		Commitment: strings.TrimSpace(w.Commitment),
		TxHash:     w.TxHash,
		QueueID:    w.QueueID,
	}
	if res.QueueID == "" {
		res.QueueID = w.TaskID
	}
	if w.PublicValues != "" {
		pv, err := types.ParseCommitmentPublicValues(w.PublicValues)
		if err != nil {
			return nil, sdkerr.New(sdkerr.KindValidation, stepMapCommitment, err)
		}
		res.PublicValues = pv
		if res.Commitment == "" {
			res.Commitment = pv.Commitment.Hex()
		}
	}

	if w.Checkbook != nil {
		cb, nested, err := ToCheckbook(*w.Checkbook)
		if err != nil {
			return nil, err
		}
		if cb.Commitment == "" {
			cb.Commitment = res.Commitment
		} else if res.Commitment == "" {
			res.Commitment = cb.Commitment
		}
		res.Checkbook = &cb
		res.Allocations = append(res.Allocations, nested...)
	}
	for _, cw := range w.Checks {
		a, err := ToAllocation(cw, res.Checkbook)
		if err != nil {
			return nil, err
		}
		res.Allocations = append(res.Allocations, a)
	}
	for i := range res.Allocations {
		if res.Allocations[i].Commitment == "" {
			res.Allocations[i].Commitment = res.Commitment
		}
	}
	return res, nil
}
