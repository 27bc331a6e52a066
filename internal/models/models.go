package models

// CheckbookStatus follows the deposit through proof and commitment submission.
type CheckbookStatus string

const (
	CheckbookStatusPending              CheckbookStatus = "pending"               // deposit seen, not yet recorded
	CheckbookStatusUnsigned             CheckbookStatus = "unsigned"              // deposit recorded, waiting for allocation signature
	CheckbookStatusReadyForCommitment   CheckbookStatus = "ready_for_commitment"  // can be split into allocations
	CheckbookStatusGeneratingProof      CheckbookStatus = "generating_proof"      // commitment proof in progress
	CheckbookStatusSubmittingCommitment CheckbookStatus = "submitting_commitment" // commitment tx being sent
	CheckbookStatusCommitmentPending    CheckbookStatus = "commitment_pending"    // commitment tx waiting for confirmation
	CheckbookStatusWithCheckbook        CheckbookStatus = "with_checkbook"        // usable, allocations spendable

	CheckbookStatusProofFailed      CheckbookStatus = "proof_failed"
	CheckbookStatusSubmissionFailed CheckbookStatus = "submission_failed"
	CheckbookStatusDeleted          CheckbookStatus = "DELETED"
)

var checkbookStatusOrder = map[CheckbookStatus]int{
	CheckbookStatusPending:              0,
	CheckbookStatusUnsigned:             1,
	CheckbookStatusReadyForCommitment:   2,
	CheckbookStatusGeneratingProof:      3,
	CheckbookStatusSubmittingCommitment: 4,
	CheckbookStatusCommitmentPending:    5,
	CheckbookStatusWithCheckbook:        6,
}

// ParseCheckbookStatus accepts the backend spelling, including the lower-case "deleted".
func ParseCheckbookStatus(s string) (CheckbookStatus, bool) {
	if s == "deleted" {
		return CheckbookStatusDeleted, true
	}
	st := CheckbookStatus(s)
	switch st {
	case CheckbookStatusProofFailed, CheckbookStatusSubmissionFailed, CheckbookStatusDeleted:
		return st, true
	}
	_, ok := checkbookStatusOrder[st]
	return st, ok
}

// IsFailed reports a failure state that needs external remediation.
func (s CheckbookStatus) IsFailed() bool {
	return s == CheckbookStatusProofFailed || s == CheckbookStatusSubmissionFailed
}

// IsTerminal is true for with_checkbook, any failed state and DELETED.
func (s CheckbookStatus) IsTerminal() bool {
	return s == CheckbookStatusWithCheckbook || s.IsFailed() || s == CheckbookStatusDeleted
}

// CanCommit reports whether a commitment may be created for the checkbook.
func (s CheckbookStatus) CanCommit() bool {
	return s == CheckbookStatusUnsigned || s == CheckbookStatusReadyForCommitment
}

// Precedes reports whether s comes strictly before other in the happy path.
// Failed and deleted states are not ordered.
func (s CheckbookStatus) Precedes(other CheckbookStatus) bool {
	a, okA := checkbookStatusOrder[s]
	b, okB := checkbookStatusOrder[other]
	return okA && okB && a < b
}

// AllocationStatus enforces that an allocation backs at most one active withdrawal.
type AllocationStatus string

const (
	AllocationStatusIdle    AllocationStatus = "idle"    // available for withdrawal
	AllocationStatusPending AllocationStatus = "pending" // referenced by an active withdraw request
	AllocationStatusUsed    AllocationStatus = "used"    // nullifier consumed on-chain
)

// ParseAllocationStatus validates a wire status.
func ParseAllocationStatus(s string) (AllocationStatus, bool) {
	st := AllocationStatus(s)
	switch st {
	case AllocationStatusIdle, AllocationStatusPending, AllocationStatusUsed:
		return st, true
	}
	return "", false
}
