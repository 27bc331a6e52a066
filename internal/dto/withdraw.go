package dto

import (
	"fmt"
	"sort"
	"strings"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/types"
)

// WithdrawRequestWire is a withdraw request as returned by /api/my/withdraw-requests
// and pushed on the withdraw_requests channel.
type WithdrawRequestWire struct {
	ID                  string                `json:"id"`
	WithdrawNullifier   string                `json:"withdraw_nullifier"`
	OwnerAddress        *UniversalAddressWire `json:"owner_address,omitempty"`
	IntentType          FlexUint64            `json:"intent_type"`
	TokenIdentifier     string                `json:"token_identifier,omitempty"`
	TokenSymbol         string                `json:"token_symbol,omitempty"`
	AssetID             string                `json:"asset_id,omitempty"`
	TargetSLIP44ChainID FlexUint64            `json:"target_slip44_chain_id"`
	Recipient           *UniversalAddressWire `json:"recipient,omitempty"`
	Amount              FlexAmount            `json:"amount"`
	MinOutputAmount     FlexAmount            `json:"min_output_amount"`
	AllocationIDs       FlexStringList        `json:"allocation_ids"`
	PublicValues        string                `json:"public_values,omitempty"`

	ProofStatus   string `json:"proof_status"`
	ExecuteStatus string `json:"execute_status"`
	PayoutStatus  string `json:"payout_status"`
	HookStatus    string `json:"hook_status"`
	Status        string `json:"status"`

	FallbackTransferred bool `json:"fallback_transferred"`

	ProofError    string `json:"proof_error,omitempty"`
	ExecuteError  string `json:"execute_error,omitempty"`
	PayoutError   string `json:"payout_error,omitempty"`
	HookError     string `json:"hook_error,omitempty"`
	ExecuteTxHash string `json:"execute_tx_hash,omitempty"`
	PayoutTxHash  string `json:"payout_tx_hash,omitempty"`

	CreatedAt FlexTime `json:"created_at"`
	UpdatedAt FlexTime `json:"updated_at"`
}

// ToWithdrawRequest maps a withdraw request. Allocation ids are sorted and
// deduplicated. An empty main status is derived from the sub-statuses.
func ToWithdrawRequest(w WithdrawRequestWire) (models.WithdrawRequest, error) {
	if strings.TrimSpace(w.ID) == "" {
		return models.WithdrawRequest{}, sdkerr.Validation(stepMapWithdraw, "withdraw request without id")
	}
	fail := func(err error) (models.WithdrawRequest, error) {
		return models.WithdrawRequest{}, sdkerr.New(sdkerr.KindValidation, stepMapWithdraw, err, w.ID)
	}

	if w.IntentType.Value > uint64(models.IntentTypeAssetToken) {
		return fail(fmt.Errorf("unknown intent type %d", w.IntentType.Value))
	}
	if w.TargetSLIP44ChainID.Value > 0xFFFFFFFF {
		return fail(fmt.Errorf("target chain id out of range"))
	}

	out := models.WithdrawRequest{
		ID:                  w.ID,
		WithdrawNullifier:   strings.TrimSpace(w.WithdrawNullifier),
		IntentType:          models.IntentType(w.IntentType.Value),
		TokenSymbol:         w.TokenSymbol,
		AssetID:             w.AssetID,
		TargetSLIP44ChainID: uint32(w.TargetSLIP44ChainID.Value),
		Amount:              w.Amount.OrZero(),
		MinOutputAmount:     w.MinOutputAmount.OrZero(),
		AllocationIDs:       SortedUnique(w.AllocationIDs),
		ProofStatus:         models.ProofStatus(w.ProofStatus),
		ExecuteStatus:       models.ExecuteStatus(w.ExecuteStatus),
		PayoutStatus:        models.PayoutStatus(w.PayoutStatus),
		HookStatus:          models.HookStatus(w.HookStatus),
		FallbackTransferred: w.FallbackTransferred,
		ProofError:          w.ProofError,
		ExecuteError:        w.ExecuteError,
		PayoutError:         w.PayoutError,
		HookError:           w.HookError,
		ExecuteTxHash:       w.ExecuteTxHash,
		PayoutTxHash:        w.PayoutTxHash,
		CreatedAt:           w.CreatedAt.Time,
		UpdatedAt:           w.UpdatedAt.Time,
	}
	if out.TokenSymbol == "" {
		out.TokenSymbol = w.TokenIdentifier
	}

	if !w.OwnerAddress.IsEmpty() {
		owner, err := w.OwnerAddress.ToUniversal(0)
		if err != nil {
			return fail(fmt.Errorf("owner address: %w", err))
		}
		out.OwnerAddress = owner
	}
	if !w.Recipient.IsEmpty() {
		recipient, err := w.Recipient.ToUniversal(out.TargetSLIP44ChainID)
		if err != nil {
			return fail(fmt.Errorf("recipient: %w", err))
		}
		out.Recipient = recipient
		if out.TargetSLIP44ChainID == 0 {
			out.TargetSLIP44ChainID = recipient.SLIP44ChainID
		}
	}

	if w.Status == "" {
		if !out.UpdateMainStatus() {
			out.Status = models.WithdrawStatusCreated
		}
	} else {
		st, ok := models.ParseWithdrawStatus(w.Status)
		if !ok {
			return fail(errUnknownStatus("withdraw request", w.Status))
		}
		out.Status = st
	}

	// The proof's first nullifier is the request id on chain.
	if out.WithdrawNullifier == "" && w.PublicValues != "" {
		if pv, err := types.ParseWithdrawPublicValues(w.PublicValues); err == nil && len(pv.Nullifiers) > 0 {
			out.WithdrawNullifier = pv.Nullifiers[0].Hex()
		}
	}
	return out, nil
}

// SortedUnique returns ids trimmed, sorted and without duplicates or blanks.
func SortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// WithdrawRequestsPage is one page of withdraw requests.
type WithdrawRequestsPage struct {
	Requests []models.WithdrawRequest
	Page     PageInfo
}

// ToWithdrawRequestsPage maps a list response.
func ToWithdrawRequestsPage(items []WithdrawRequestWire, p *Pagination) (WithdrawRequestsPage, error) {
	out := WithdrawRequestsPage{Requests: make([]models.WithdrawRequest, 0, len(items)), Page: p.Info(len(items))}
	for _, w := range items {
		r, err := ToWithdrawRequest(w)
		if err != nil {
			return WithdrawRequestsPage{}, err
		}
		out.Requests = append(out.Requests, r)
	}
	return out, nil
}

// WithdrawStatsWire is the data of GET /api/my/withdraw-requests/stats.
type WithdrawStatsWire struct {
	TotalRequests        int64      `json:"total_requests"`
	TotalAmountWithdrawn FlexAmount `json:"total_amount_withdrawn"`
	StatusBreakdown      []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	} `json:"status_breakdown"`
}

// ToWithdrawStats maps the stats aggregate. Unknown statuses are kept
// verbatim so counts always add up to the total.
func ToWithdrawStats(w WithdrawStatsWire) models.WithdrawStats {
	stats := models.WithdrawStats{
		TotalRequests:        w.TotalRequests,
		TotalAmountWithdrawn: w.TotalAmountWithdrawn.OrZero(),
		StatusBreakdown:      make(map[models.WithdrawRequestStatus]int64, len(w.StatusBreakdown)),
	}
	for _, s := range w.StatusBreakdown {
		stats.StatusBreakdown[models.WithdrawRequestStatus(s.Status)] += s.Count
	}
	return stats
}
