package models

// WithdrawRequestStatus is the main status rolled up from the four sub-statuses.
type WithdrawRequestStatus string

const (
	// Stage 1: proof generation
	WithdrawStatusCreated        WithdrawRequestStatus = "created"
	WithdrawStatusProving        WithdrawRequestStatus = "proving"
	WithdrawStatusProofGenerated WithdrawRequestStatus = "proof_generated"
	WithdrawStatusProofFailed    WithdrawRequestStatus = "proof_failed"

	// Stage 2: on-chain verification
	WithdrawStatusSubmitting       WithdrawRequestStatus = "submitting"
	WithdrawStatusSubmitted        WithdrawRequestStatus = "submitted"
	WithdrawStatusExecuteConfirmed WithdrawRequestStatus = "execute_confirmed"
	WithdrawStatusSubmitFailed     WithdrawRequestStatus = "submit_failed" // RPC/network, retryable
	WithdrawStatusVerifyFailed     WithdrawRequestStatus = "verify_failed" // proof or nullifier rejected, cancel only

	// Stage 3: payout
	WithdrawStatusWaitingForPayout WithdrawRequestStatus = "waiting_for_payout"
	WithdrawStatusPayoutProcessing WithdrawRequestStatus = "payout_processing"
	WithdrawStatusPayoutCompleted  WithdrawRequestStatus = "payout_completed"
	WithdrawStatusPayoutFailed     WithdrawRequestStatus = "payout_failed"

	// Stage 4: hook
	WithdrawStatusHookProcessing WithdrawRequestStatus = "hook_processing"
	WithdrawStatusHookFailed     WithdrawRequestStatus = "hook_failed"

	// Terminal
	WithdrawStatusCompleted               WithdrawRequestStatus = "completed"
	WithdrawStatusCompletedWithHookFailed WithdrawRequestStatus = "completed_with_hook_failed"
	WithdrawStatusFailedPermanent         WithdrawRequestStatus = "failed_permanent"
	WithdrawStatusManuallyResolved        WithdrawRequestStatus = "manually_resolved"
	WithdrawStatusCancelled               WithdrawRequestStatus = "cancelled"
)

// AllWithdrawStatuses lists every main status the backend reports.
var AllWithdrawStatuses = []WithdrawRequestStatus{
	WithdrawStatusCreated, WithdrawStatusProving, WithdrawStatusProofGenerated, WithdrawStatusProofFailed,
	WithdrawStatusSubmitting, WithdrawStatusSubmitted, WithdrawStatusExecuteConfirmed, WithdrawStatusSubmitFailed, WithdrawStatusVerifyFailed,
	WithdrawStatusWaitingForPayout, WithdrawStatusPayoutProcessing, WithdrawStatusPayoutCompleted, WithdrawStatusPayoutFailed,
	WithdrawStatusHookProcessing, WithdrawStatusHookFailed,
	WithdrawStatusCompleted, WithdrawStatusCompletedWithHookFailed, WithdrawStatusFailedPermanent, WithdrawStatusManuallyResolved, WithdrawStatusCancelled,
}

// ParseWithdrawStatus validates a wire status.
func ParseWithdrawStatus(s string) (WithdrawRequestStatus, bool) {
	for _, st := range AllWithdrawStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ProofStatus - Stage 1
type ProofStatus string

const (
	ProofStatusPending    ProofStatus = "pending"
	ProofStatusInProgress ProofStatus = "in_progress"
	ProofStatusCompleted  ProofStatus = "completed"
	ProofStatusFailed     ProofStatus = "failed"
)

// ExecuteStatus - Stage 2
type ExecuteStatus string

const (
	ExecuteStatusPending      ExecuteStatus = "pending"
	ExecuteStatusSubmitted    ExecuteStatus = "submitted"
	ExecuteStatusSuccess      ExecuteStatus = "success"
	ExecuteStatusSubmitFailed ExecuteStatus = "submit_failed" // can retry
	ExecuteStatusVerifyFailed ExecuteStatus = "verify_failed" // cannot retry, must cancel
)

// PayoutStatus - Stage 3
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// HookStatus - Stage 4
type HookStatus string

const (
	HookStatusNotRequired HookStatus = "not_required"
	HookStatusPending     HookStatus = "pending"
	HookStatusProcessing  HookStatus = "processing"
	HookStatusCompleted   HookStatus = "completed"
	HookStatusFailed      HookStatus = "failed"
	HookStatusAbandoned   HookStatus = "abandoned"
)

// WithdrawStage groups main statuses by pipeline stage.
type WithdrawStage uint8

const (
	StageProof WithdrawStage = iota + 1
	StageVerification
	StagePayout
	StageHook
	StageTerminal
)

// Stage returns the pipeline stage of a main status, or 0 if unknown.
func (s WithdrawRequestStatus) Stage() WithdrawStage {
	switch s {
	case WithdrawStatusCreated, WithdrawStatusProving, WithdrawStatusProofGenerated, WithdrawStatusProofFailed:
		return StageProof
	case WithdrawStatusSubmitting, WithdrawStatusSubmitted, WithdrawStatusExecuteConfirmed,
		WithdrawStatusSubmitFailed, WithdrawStatusVerifyFailed:
		return StageVerification
	case WithdrawStatusWaitingForPayout, WithdrawStatusPayoutProcessing, WithdrawStatusPayoutCompleted, WithdrawStatusPayoutFailed:
		return StagePayout
	case WithdrawStatusHookProcessing, WithdrawStatusHookFailed:
		return StageHook
	case WithdrawStatusCompleted, WithdrawStatusCompletedWithHookFailed, WithdrawStatusFailedPermanent,
		WithdrawStatusManuallyResolved, WithdrawStatusCancelled:
		return StageTerminal
	}
	return 0
}

// FrontendStatus is the simplified status shown to end users.
type FrontendStatus string

const (
	FrontendStatusPending    FrontendStatus = "pending"
	FrontendStatusProving    FrontendStatus = "proving"
	FrontendStatusSubmitting FrontendStatus = "submitting"
	FrontendStatusProcessing FrontendStatus = "processing"
	FrontendStatusCompleted  FrontendStatus = "completed"
	FrontendStatusFailed     FrontendStatus = "failed"
	FrontendStatusCancelled  FrontendStatus = "cancelled"
)

// Frontend collapses the main status into one of seven user-facing values.
func (s WithdrawRequestStatus) Frontend() FrontendStatus {
	switch s {
	case WithdrawStatusCreated:
		return FrontendStatusPending
	case WithdrawStatusProving, WithdrawStatusProofGenerated:
		return FrontendStatusProving
	case WithdrawStatusSubmitting, WithdrawStatusSubmitted, WithdrawStatusExecuteConfirmed:
		return FrontendStatusSubmitting
	case WithdrawStatusWaitingForPayout, WithdrawStatusPayoutProcessing, WithdrawStatusPayoutCompleted, WithdrawStatusHookProcessing:
		return FrontendStatusProcessing
	case WithdrawStatusCompleted, WithdrawStatusCompletedWithHookFailed, WithdrawStatusManuallyResolved:
		return FrontendStatusCompleted
	case WithdrawStatusCancelled:
		return FrontendStatusCancelled
	default:
		return FrontendStatusFailed
	}
}

// IsVerifyFailure reports the on-chain rejection that can only be cancelled.
func (w *WithdrawRequest) IsVerifyFailure() bool {
	return w.ExecuteStatus == ExecuteStatusVerifyFailed || w.Status == WithdrawStatusVerifyFailed
}

// CanCancel checks whether the request can still be cancelled by the user.
// Once execution is submitted or confirmed the nullifiers may be consumed.
func (w *WithdrawRequest) CanCancel() bool {
	if w.ExecuteStatus == ExecuteStatusSuccess || w.ExecuteStatus == ExecuteStatusSubmitted {
		return false
	}
	switch w.Status {
	case WithdrawStatusCancelled, WithdrawStatusCompleted, WithdrawStatusCompletedWithHookFailed, WithdrawStatusManuallyResolved:
		return false
	}
	// pending, submit_failed and verify_failed (failed_permanent) release allocations on cancel
	return true
}

// CanRetryExecute is true only for submit_failed.
// verify_failed means the proof is invalid on-chain and must be cancelled.
func (w *WithdrawRequest) CanRetryExecute() bool {
	if w.IsVerifyFailure() {
		return false
	}
	return w.ExecuteStatus == ExecuteStatusSubmitFailed || w.Status == WithdrawStatusSubmitFailed
}

// CanRetryPayout checks if the payout stage failed after a successful execution.
func (w *WithdrawRequest) CanRetryPayout() bool {
	return w.ExecuteStatus == ExecuteStatusSuccess && w.PayoutStatus == PayoutStatusFailed
}

// CanRetryFallback checks if the hook failed and the fallback transfer has not happened.
func (w *WithdrawRequest) CanRetryFallback() bool {
	return w.PayoutStatus == PayoutStatusCompleted && w.HookStatus == HookStatusFailed && !w.FallbackTransferred
}

// IsTerminal checks if the request is in a terminal state.
func (w *WithdrawRequest) IsTerminal() bool {
	return w.Status.Stage() == StageTerminal
}

// UpdateMainStatus derives the main status from the sub-statuses.
// It returns false and leaves Status unchanged when no rule matches.
func (w *WithdrawRequest) UpdateMainStatus() bool {
	next, ok := w.deriveStatus()
	if ok {
		w.Status = next
	}
	return ok
}

func (w *WithdrawRequest) deriveStatus() (WithdrawRequestStatus, bool) {
	switch w.ProofStatus {
	case ProofStatusPending:
		return WithdrawStatusCreated, true
	case ProofStatusInProgress:
		return WithdrawStatusProving, true
	case ProofStatusFailed:
		return WithdrawStatusProofFailed, true
	}
	if w.ProofStatus == ProofStatusCompleted && w.ExecuteStatus == ExecuteStatusPending {
		return WithdrawStatusProofGenerated, true
	}

	// failures before in-flight
	switch w.ExecuteStatus {
	case ExecuteStatusVerifyFailed:
		return WithdrawStatusFailedPermanent, true
	case ExecuteStatusSubmitFailed:
		return WithdrawStatusSubmitFailed, true
	case ExecuteStatusSubmitted:
		return WithdrawStatusSubmitting, true
	}
	if w.ExecuteStatus == ExecuteStatusSuccess && w.PayoutStatus == PayoutStatusPending {
		return WithdrawStatusWaitingForPayout, true
	}

	switch w.PayoutStatus {
	case PayoutStatusProcessing:
		return WithdrawStatusPayoutProcessing, true
	case PayoutStatusFailed:
		return WithdrawStatusFailedPermanent, true
	case PayoutStatusCompleted:
		switch w.HookStatus {
		case "", HookStatusNotRequired, HookStatusCompleted:
			return WithdrawStatusCompleted, true
		case HookStatusProcessing, HookStatusPending:
			return WithdrawStatusHookProcessing, true
		case HookStatusFailed:
			if w.FallbackTransferred {
				return WithdrawStatusCompleted, true
			}
			return WithdrawStatusFailedPermanent, true
		case HookStatusAbandoned:
			return WithdrawStatusCompletedWithHookFailed, true
		}
		return WithdrawStatusCompleted, true
	}
	return "", false
}
