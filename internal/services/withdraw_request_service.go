package services

import (
	"context"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/interfaces"
	"enclave-sdk/internal/message"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/signer"
	"enclave-sdk/internal/store"
	"enclave-sdk/internal/types"
)

const (
	stepWithdrawPrepare       = "withdraw_prepare"
	stepWithdrawSign          = "withdraw_sign"
	stepWithdrawSubmit        = "withdraw_submit"
	stepWithdrawRetry         = "withdraw_retry"
	stepWithdrawRetryPayout   = "withdraw_retry_payout"
	stepWithdrawRetryFallback = "withdraw_retry_fallback"
	stepWithdrawCancel        = "withdraw_cancel"
)

// PrepareWithdrawParams are the caller's inputs to the withdrawal flow.
type PrepareWithdrawParams struct {
	AllocationIDs []string
	Intent        models.Intent
	Language      message.Language
	// ChainName overrides the source chain's display name.
	ChainName string
	MinOutput *big.Int
	// TargetDecimals renders MinOutput when the target token differs.
	TargetDecimals *uint8
	Metadata       map[string]string
}

// PreparedWithdraw is the output of Prepare. Nothing has been signed or sent.
type PreparedWithdraw struct {
	// CheckbookID is the checkbook of the first allocation in id order.
	CheckbookID   string
	AllocationIDs []string
	Allocations   []models.Allocation
	Intent        models.Intent
	TokenSymbol   string
	Metadata      map[string]string
	Message       *message.WithdrawalMessage
}

// SignedWithdraw carries the wallet signature over the prepared message.
type SignedWithdraw struct {
	*PreparedWithdraw
	Signature     string
	SignerChainID uint32
}

// WithdrawRequestService drives Prepared → Signed → Submitted for
// withdrawals, plus retry and cancel on submitted requests.
type WithdrawRequestService struct {
	observed
	api    interfaces.WithdrawAPI
	signer signer.Signer
	store  *store.Store
}

// NewWithdrawRequestService creates the service. log may be nil.
func NewWithdrawRequestService(api interfaces.WithdrawAPI, s signer.Signer, st *store.Store, log logrus.FieldLogger) *WithdrawRequestService {
	return &WithdrawRequestService{
		observed: observed{log: defaultLogger(log, "withdraw")},
		api:      api,
		signer:   s,
		store:    st,
	}
}

// Prepare resolves the allocations and their checkbooks and renders the
// withdrawal message.
func (s *WithdrawRequestService) Prepare(ctx context.Context, p PrepareWithdrawParams) (prepared *PreparedWithdraw, err error) {
	defer func() { s.observe(flowWithdraw, "prepare", err) }()

	ids := dto.SortedUnique(p.AllocationIDs)
	if len(ids) == 0 {
		return nil, sdkerr.Validation(stepWithdrawPrepare, "at least one allocation id is required")
	}
	if p.Intent == nil {
		return nil, sdkerr.Validation(stepWithdrawPrepare, "intent is required")
	}

	allocs, err := s.resolveAllocations(ctx, ids)
	if err != nil {
		return nil, err
	}
	checkbooks, err := s.resolveCheckbooks(ctx, allocs)
	if err != nil {
		return nil, err
	}
	if err := validateWithdrawAllocations(allocs, checkbooks); err != nil {
		return nil, err
	}

	first := checkbooks[allocs[0].CheckbookID]
	inputs := make([]message.WithdrawalAllocation, len(allocs))
	deposits := make(map[string]message.DepositInfo, len(allocs))
	for i, a := range allocs {
		cb := checkbooks[a.CheckbookID]
		inputs[i] = message.WithdrawalAllocation{ID: a.ID, Seq: a.Seq, Amount: a.Amount, Commitment: a.Commitment}
		deposits[a.ID] = message.DepositInfo{LocalDepositID: *cb.LocalDepositID, SLIP44ChainID: cb.SLIP44ChainID}
	}

	msg, err := message.PrepareWithdrawalMessage(message.WithdrawalInput{
		Allocations:    inputs,
		Intent:         p.Intent,
		TokenSymbol:    first.Token.Symbol,
		TokenDecimals:  first.Token.Decimals,
		TargetDecimals: p.TargetDecimals,
		Language:       p.Language,
		ChainName:      p.ChainName,
		DepositInfo:    deposits,
		MinOutput:      p.MinOutput,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"allocation_ids": ids,
		"checkbooks":     len(checkbooks),
		"nullifier":      msg.Nullifier,
		"total":          msg.TotalAmount.String(),
	}).Info("[Withdraw] prepared")

	return &PreparedWithdraw{
		CheckbookID:   first.ID,
		AllocationIDs: ids,
		Allocations:   allocs,
		Intent:        p.Intent,
		TokenSymbol:   first.Token.Symbol,
		Metadata:      p.Metadata,
		Message:       msg,
	}, nil
}

// resolveAllocations reads allocations from the store, fetching each
// unknown one once. The result follows ids order.
func (s *WithdrawRequestService) resolveAllocations(ctx context.Context, ids []string) ([]models.Allocation, error) {
	snap := s.store.Snapshot()
	out := make([]models.Allocation, 0, len(ids))
	var fetched []store.Mutation
	for _, id := range ids {
		if a, ok := snap.Allocation(id); ok {
			out = append(out, a)
			continue
		}
		a, err := s.api.GetAllocation(ctx, id)
		if err != nil {
			if apiErr, ok := clients.AsAPIError(err); ok && apiErr.IsNotFound() {
				return nil, sdkerr.New(sdkerr.KindPrecondition, stepWithdrawPrepare, err, id)
			}
			return nil, err
		}
		fetched = append(fetched, store.UpsertAllocation(a))
		out = append(out, a)
	}
	if len(fetched) > 0 {
		s.store.Apply(fetched...)
	}
	return out, nil
}

// resolveCheckbooks returns the checkbook of every allocation, fetching a
// checkbook once when it is unknown, lacks metadata the message needs, or
// cannot supply a commitment the allocation is missing. Allocation
// commitments missing locally are backfilled from their checkbook.
func (s *WithdrawRequestService) resolveCheckbooks(ctx context.Context, allocs []models.Allocation) (map[string]models.Checkbook, error) {
	snap := s.store.Snapshot()
	out := make(map[string]models.Checkbook)
	for i := range allocs {
		a := &allocs[i]
		if a.CheckbookID == "" {
			return nil, sdkerr.Precondition(stepWithdrawPrepare, []string{a.ID}, "allocation %s has no checkbook", a.ID)
		}
		cb, ok := out[a.CheckbookID]
		if !ok {
			cb, ok = snap.Checkbook(a.CheckbookID)
			if !ok || len(missingCheckbookFields(cb)) > 0 || (a.Commitment == "" && cb.Commitment == "") {
				fetched, fetchedAllocs, err := s.api.GetCheckbook(ctx, a.CheckbookID)
				if err != nil {
					if apiErr, ok := clients.AsAPIError(err); ok && apiErr.IsNotFound() {
						return nil, sdkerr.New(sdkerr.KindPrecondition, stepWithdrawPrepare, err, a.CheckbookID, a.ID)
					}
					return nil, err
				}
				mutations := []store.Mutation{store.UpsertCheckbook(fetched)}
				for _, fa := range fetchedAllocs {
					mutations = append(mutations, store.UpsertAllocation(fa))
				}
				snap = s.store.Apply(mutations...)
				cb, _ = snap.Checkbook(a.CheckbookID)
			}
			if missing := missingCheckbookFields(cb); len(missing) > 0 {
				return nil, sdkerr.Precondition(stepWithdrawPrepare, []string{a.CheckbookID, a.ID},
					"checkbook %s is missing %s", a.CheckbookID, strings.Join(missing, ", "))
			}
			out[cb.ID] = cb
		}
		if a.Commitment == "" {
			a.Commitment = cb.Commitment
		}
		if a.TokenKey == "" {
			a.TokenKey = cb.Token.Symbol
		}
	}
	return out, nil
}

func validateWithdrawAllocations(allocs []models.Allocation, checkbooks map[string]models.Checkbook) error {
	var notIdle []string
	for _, a := range allocs {
		if a.Status != models.AllocationStatusIdle {
			notIdle = append(notIdle, a.ID)
		}
	}
	if len(notIdle) > 0 {
		return sdkerr.New(sdkerr.KindPrecondition, stepWithdrawPrepare, ErrAllocationsNotIdle, notIdle...)
	}

	first := allocs[0]
	firstOwner := checkbooks[first.CheckbookID].UserAddress
	for _, a := range allocs {
		if a.Commitment == "" {
			return sdkerr.Precondition(stepWithdrawPrepare, []string{a.ID, a.CheckbookID},
				"allocation %s has no commitment yet", a.ID)
		}
		if !strings.EqualFold(a.TokenKey, first.TokenKey) {
			return sdkerr.New(sdkerr.KindValidation, stepWithdrawPrepare, ErrAllocationsMixTokens, first.ID, a.ID)
		}
		owner := checkbooks[a.CheckbookID].UserAddress
		if !owner.IsZero() && !firstOwner.IsZero() && owner.Data != firstOwner.Data {
			return sdkerr.New(sdkerr.KindValidation, stepWithdrawPrepare, ErrAllocationsMixOwners, first.ID, a.ID)
		}
	}
	return nil
}

// Sign asks the signer to sign the raw message text.
func (s *WithdrawRequestService) Sign(ctx context.Context, prepared *PreparedWithdraw) (signed *SignedWithdraw, err error) {
	defer func() { s.observe(flowWithdraw, "sign", err) }()

	if prepared == nil || prepared.Message == nil {
		return nil, sdkerr.Validation(stepWithdrawSign, "withdrawal is not prepared")
	}
	sig, err := s.signer.SignMessage(ctx, prepared.Message.Message)
	if err != nil {
		return nil, signerError(stepWithdrawSign, err, prepared.AllocationIDs...)
	}
	return &SignedWithdraw{PreparedWithdraw: prepared, Signature: sig, SignerChainID: s.signer.ChainID()}, nil
}

// Submit posts the signed withdrawal. A 409 means another request already
// holds one of the allocations; it is reported, never retried.
func (s *WithdrawRequestService) Submit(ctx context.Context, signed *SignedWithdraw) (w *models.WithdrawRequest, err error) {
	defer func() { s.observe(flowWithdraw, "submit", err) }()

	if signed == nil || signed.PreparedWithdraw == nil || signed.Signature == "" {
		return nil, sdkerr.Validation(stepWithdrawSubmit, "withdrawal is not signed")
	}
	req := types.WithdrawSubmitRequest{
		CheckbookID:   signed.CheckbookID,
		AllocationIDs: signed.AllocationIDs,
		Intent:        intentRequest(signed.Intent),
		Signature:     signed.Signature,
		ChainID:       signed.SignerChainID,
		Message:       signed.Message.Message,
		Nullifier:     signed.Message.Nullifier,
		Metadata:      signed.Metadata,
	}

	created, err := s.api.SubmitWithdraw(ctx, req)
	if err != nil {
		return nil, conflictError(stepWithdrawSubmit, err, signed.AllocationIDs)
	}
	if len(created.AllocationIDs) == 0 {
		created.AllocationIDs = signed.AllocationIDs
	}
	if created.WithdrawNullifier == "" {
		created.WithdrawNullifier = signed.Message.Nullifier
	}

	s.store.Apply(
		store.UpsertWithdrawal(created),
		store.MarkAllocations(created.AllocationIDs, models.AllocationStatusPending, created.ID),
	)
	s.log.WithFields(logrus.Fields{
		"withdraw_id":    created.ID,
		"allocation_ids": created.AllocationIDs,
		"status":         created.Status,
	}).Info("[Withdraw] submitted")
	return &created, nil
}

func intentRequest(intent models.Intent) types.WithdrawIntentRequest {
	beneficiary := intent.BeneficiaryAddress()
	req := types.WithdrawIntentRequest{
		Type:               uint8(intent.Type()),
		BeneficiaryChainID: beneficiary.SLIP44ChainID,
		BeneficiaryAddress: beneficiary.HexNoPrefix(),
		TokenSymbol:        intent.TargetSymbol(),
	}
	if asset, ok := intent.(models.AssetTokenIntent); ok {
		req.AssetID = asset.AssetIDHex()
	}
	return req
}

// CreateWithdraw runs Prepare, Sign and Submit.
func (s *WithdrawRequestService) CreateWithdraw(ctx context.Context, p PrepareWithdrawParams) (*models.WithdrawRequest, error) {
	prepared, err := s.Prepare(ctx, p)
	if err != nil {
		return nil, err
	}
	signed, err := s.Sign(ctx, prepared)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, signed)
}

// Retry re-submits execution of a request in submit_failed. A request whose
// proof was rejected on-chain can only be cancelled.
func (s *WithdrawRequestService) Retry(ctx context.Context, id string) (resp *dto.RetryResponse, err error) {
	defer func() { s.observe(flowWithdraw, "retry", err) }()

	w, err := s.GetWithdrawRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.IsVerifyFailure() {
		return nil, sdkerr.New(sdkerr.KindProtocolTerminal, stepWithdrawRetry, ErrMustCancel, id)
	}
	if !w.CanRetryExecute() {
		return nil, sdkerr.Precondition(stepWithdrawRetry, []string{id}, "%w (status %s)", ErrCannotRetry, w.Status)
	}
	resp, err = s.api.RetryWithdrawRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyRetry(id, resp)
	return resp, nil
}

// RetryPayout re-runs a payout that failed after successful execution.
func (s *WithdrawRequestService) RetryPayout(ctx context.Context, id string) (resp *dto.RetryResponse, err error) {
	defer func() { s.observe(flowWithdraw, "retry_payout", err) }()

	w, err := s.GetWithdrawRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.CanRetryPayout() && w.Status != models.WithdrawStatusPayoutFailed {
		return nil, sdkerr.Precondition(stepWithdrawRetryPayout, []string{id}, "%w (status %s)", ErrCannotRetryPayout, w.Status)
	}
	resp, err = s.api.RetryPayout(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyRetry(id, resp)
	return resp, nil
}

// RetryFallback re-runs the fallback transfer after a failed hook.
func (s *WithdrawRequestService) RetryFallback(ctx context.Context, id string) (resp *dto.RetryResponse, err error) {
	defer func() { s.observe(flowWithdraw, "retry_fallback", err) }()

	w, err := s.GetWithdrawRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.CanRetryFallback() && w.Status != models.WithdrawStatusHookFailed {
		return nil, sdkerr.Precondition(stepWithdrawRetryFallback, []string{id}, "%w (status %s)", ErrCannotRetryFallback, w.Status)
	}
	resp, err = s.api.RetryFallback(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyRetry(id, resp)
	return resp, nil
}

func (s *WithdrawRequestService) applyRetry(id string, resp *dto.RetryResponse) {
	entry := s.log.WithField("withdraw_id", id)
	if st, ok := models.ParseWithdrawStatus(resp.Data.Status); ok {
		s.store.Apply(store.SetWithdrawalStatus(id, st))
		entry = entry.WithField("status", st)
	}
	entry.Info("[Withdraw] retry accepted")
}

// Cancel cancels a request whose execution has not been submitted and
// releases its allocations.
func (s *WithdrawRequestService) Cancel(ctx context.Context, id string) (err error) {
	defer func() { s.observe(flowWithdraw, "cancel", err) }()

	w, err := s.GetWithdrawRequest(ctx, id)
	if err != nil {
		return err
	}
	if !w.CanCancel() {
		return sdkerr.Precondition(stepWithdrawCancel, []string{id}, "%w (execute status %s, status %s)",
			ErrCannotCancel, w.ExecuteStatus, w.Status)
	}
	updated, ok, err := s.api.CancelWithdrawRequest(ctx, id)
	if err != nil {
		return conflictError(stepWithdrawCancel, err, []string{id})
	}

	mutations := []store.Mutation{}
	if ok {
		updated.Status = models.WithdrawStatusCancelled
		if len(updated.AllocationIDs) == 0 {
			updated.AllocationIDs = w.AllocationIDs
		}
		mutations = append(mutations, store.UpsertWithdrawal(updated))
	}
	mutations = append(mutations,
		store.SetWithdrawalStatus(id, models.WithdrawStatusCancelled),
		store.MarkAllocations(w.AllocationIDs, models.AllocationStatusIdle, ""),
	)
	s.store.Apply(mutations...)

	s.log.WithFields(logrus.Fields{"withdraw_id": id, "allocation_ids": w.AllocationIDs}).Info("[Withdraw] cancelled")
	return nil
}

// GetWithdrawStats returns the user's withdrawal aggregate. It does not
// touch the store.
func (s *WithdrawRequestService) GetWithdrawStats(ctx context.Context) (models.WithdrawStats, error) {
	return s.api.GetWithdrawStats(ctx)
}

// ListWithdrawRequests fetches one page and stores every request on it.
func (s *WithdrawRequestService) ListWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	page, err := s.api.ListWithdrawRequests(ctx, p)
	if err != nil {
		return nil, err
	}
	s.storeRequests(page.Requests)
	return page, nil
}

// ListBeneficiaryWithdrawRequests lists requests paying out to the user.
// They belong to other owners and are not stored.
func (s *WithdrawRequestService) ListBeneficiaryWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	return s.api.ListBeneficiaryWithdrawRequests(ctx, p)
}

// GetWithdrawRequest fetches a request and stores it.
func (s *WithdrawRequestService) GetWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, error) {
	if strings.TrimSpace(id) == "" {
		return models.WithdrawRequest{}, sdkerr.Validation("get_withdraw_request", "withdraw request id is required")
	}
	w, err := s.api.GetWithdrawRequest(ctx, id)
	if err != nil {
		return models.WithdrawRequest{}, err
	}
	s.storeRequests([]models.WithdrawRequest{w})
	return w, nil
}

// GetByNullifier fetches a request by its withdraw nullifier and stores it.
func (s *WithdrawRequestService) GetByNullifier(ctx context.Context, nullifier string) (models.WithdrawRequest, error) {
	w, err := s.api.GetWithdrawRequestByNullifier(ctx, nullifier)
	if err != nil {
		return models.WithdrawRequest{}, err
	}
	s.storeRequests([]models.WithdrawRequest{w})
	return w, nil
}

// RequestPayout asks the backend to pay out a request the user benefits from.
func (s *WithdrawRequestService) RequestPayout(ctx context.Context, id string) error {
	err := s.api.RequestPayout(ctx, id)
	s.observe(flowWithdraw, "request_payout", err)
	return err
}

// ClaimTimeout claims a payout whose deadline passed.
func (s *WithdrawRequestService) ClaimTimeout(ctx context.Context, id string) error {
	err := s.api.ClaimTimeout(ctx, id)
	s.observe(flowWithdraw, "claim_timeout", err)
	return err
}

func (s *WithdrawRequestService) storeRequests(reqs []models.WithdrawRequest) {
	if len(reqs) == 0 {
		return
	}
	mutations := make([]store.Mutation, 0, len(reqs))
	for _, w := range reqs {
		mutations = append(mutations, store.UpsertWithdrawal(w))
	}
	s.store.Apply(mutations...)
}
