package services

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/commitment"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/interfaces"
	"enclave-sdk/internal/message"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/signer"
	"enclave-sdk/internal/store"
	"enclave-sdk/internal/types"
	"enclave-sdk/internal/utils"
)

const (
	stepCommitmentPrepare = "commitment_prepare"
	stepCommitmentSign    = "commitment_sign"
	stepCommitmentSubmit  = "commitment_submit"
)

// CommitmentAllocation is one requested slice. A zero Recipient means the
// checkbook owner.
type CommitmentAllocation struct {
	Amount    *big.Int
	Recipient models.UniversalAddress
}

// PrepareCommitmentParams are the caller's inputs to the commitment flow.
// Allocations are numbered 0..n-1 in the given order.
type PrepareCommitmentParams struct {
	CheckbookID string
	Allocations []CommitmentAllocation
	Language    message.Language
	ChainName   string
}

// PreparedCommitment is the output of Prepare. Nothing has been signed or sent.
type PreparedCommitment struct {
	Checkbook   models.Checkbook
	Owner       models.UniversalAddress
	Allocations []types.CommitmentAllocationRequest
	Language    message.Language
	Message     *message.CommitmentMessage
}

// SignedCommitment carries the wallet signature over the prepared message.
type SignedCommitment struct {
	*PreparedCommitment
	Signature     string
	SignerAddress string
	SignerChainID uint32
}

// CommitmentService drives Prepared → Signed → Submitted for commitments.
type CommitmentService struct {
	observed
	api    interfaces.CommitmentAPI
	signer signer.Signer
	store  *store.Store
}

// NewCommitmentService creates the service. log may be nil.
func NewCommitmentService(api interfaces.CommitmentAPI, s signer.Signer, st *store.Store, log logrus.FieldLogger) *CommitmentService {
	return &CommitmentService{
		observed: observed{log: defaultLogger(log, "commitment")},
		api:      api,
		signer:   s,
		store:    st,
	}
}

// Prepare validates the checkbook and renders the commitment message.
func (s *CommitmentService) Prepare(ctx context.Context, p PrepareCommitmentParams) (prepared *PreparedCommitment, err error) {
	defer func() { s.observe(flowCommitment, "prepare", err) }()

	if strings.TrimSpace(p.CheckbookID) == "" {
		return nil, sdkerr.Validation(stepCommitmentPrepare, "checkbook id is required")
	}
	if len(p.Allocations) == 0 {
		return nil, sdkerr.Validation(stepCommitmentPrepare, "at least one allocation is required")
	}
	if len(p.Allocations) > 256 {
		return nil, sdkerr.Validation(stepCommitmentPrepare, "too many allocations: %d (max 256)", len(p.Allocations))
	}
	for i, a := range p.Allocations {
		if a.Amount == nil || a.Amount.Sign() <= 0 {
			return nil, sdkerr.Validation(stepCommitmentPrepare, "allocation %d: amount must be positive", i)
		}
	}

	cb, err := s.resolveCheckbook(ctx, p.CheckbookID)
	if err != nil {
		return nil, err
	}
	ids := []string{cb.ID}
	if !cb.Status.CanCommit() {
		return nil, sdkerr.Precondition(stepCommitmentPrepare, ids, "checkbook status %s does not accept a commitment", cb.Status)
	}

	owner := cb.UserAddress
	if owner.IsZero() {
		if owner, err = s.signerOwner(ctx); err != nil {
			return nil, err
		}
	}

	amounts := make([]*big.Int, len(p.Allocations))
	leaves := make([]message.CommitmentAllocation, len(p.Allocations))
	reqs := make([]types.CommitmentAllocationRequest, len(p.Allocations))
	for i, a := range p.Allocations {
		amounts[i] = a.Amount
		leaves[i] = message.CommitmentAllocation{Seq: uint8(i), Amount: a.Amount}
		recipient := a.Recipient
		if recipient.IsZero() {
			recipient = owner
		}
		reqs[i] = types.CommitmentAllocationRequest{
			RecipientChainID: recipient.SLIP44ChainID,
			RecipientAddress: recipient.HexNoPrefix(),
			Amount:           a.Amount.String(),
		}
	}

	allocatable := cb.AllocatableAmount
	if allocatable == nil {
		allocatable = cb.Amount
	}
	total := utils.SumAmounts(amounts...)
	if allocatable == nil || total.Cmp(allocatable) > 0 {
		return nil, sdkerr.Precondition(stepCommitmentPrepare, ids, "allocations total %s exceeds allocatable amount %s",
			total, amountString(allocatable))
	}

	msg, err := message.PrepareCommitmentMessage(message.CommitmentInput{
		Allocations:    leaves,
		DepositID:      *cb.LocalDepositID,
		LocalDepositID: cb.LocalDepositID,
		TokenKey:       cb.Token.Symbol,
		TokenDecimals:  cb.Token.Decimals,
		ChainID:        cb.SLIP44ChainID,
		Owner:          owner,
		Language:       p.Language,
		ChainName:      p.ChainName,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"checkbook_id": cb.ID,
		"allocations":  len(leaves),
		"total":        total.String(),
		"message_hash": msg.MessageHash,
	}).Info("[Commitment] prepared")

	return &PreparedCommitment{
		Checkbook:   cb,
		Owner:       owner,
		Allocations: reqs,
		Language:    p.Language,
		Message:     msg,
	}, nil
}

// resolveCheckbook reads the checkbook from the store and refetches it once
// when it is unknown or lacks a field every hash depends on.
func (s *CommitmentService) resolveCheckbook(ctx context.Context, id string) (models.Checkbook, error) {
	cb, ok := s.store.Snapshot().Checkbook(id)
	if ok && len(missingCheckbookFields(cb)) == 0 {
		return cb, nil
	}

	s.log.WithField("checkbook_id", id).Debug("[Commitment] refetching checkbook")
	fetched, allocs, err := s.api.GetCheckbook(ctx, id)
	if err != nil {
		return models.Checkbook{}, err
	}
	mutations := []store.Mutation{store.UpsertCheckbook(fetched)}
	for _, a := range allocs {
		mutations = append(mutations, store.UpsertAllocation(a))
	}
	snap := s.store.Apply(mutations...)
	cb, _ = snap.Checkbook(id)

	if missing := missingCheckbookFields(cb); len(missing) > 0 {
		return models.Checkbook{}, sdkerr.Precondition(stepCommitmentPrepare, []string{id},
			"checkbook is missing %s", strings.Join(missing, ", "))
	}
	return cb, nil
}

func missingCheckbookFields(cb models.Checkbook) []string {
	var missing []string
	if cb.LocalDepositID == nil {
		missing = append(missing, "local deposit id")
	}
	if cb.SLIP44ChainID == 0 {
		missing = append(missing, "chain id")
	}
	if strings.TrimSpace(cb.Token.Symbol) == "" {
		missing = append(missing, "token")
	}
	return missing
}

func (s *CommitmentService) signerOwner(ctx context.Context) (models.UniversalAddress, error) {
	addr, err := s.signer.Address(ctx)
	if err != nil {
		return models.UniversalAddress{}, signerError(stepCommitmentPrepare, err)
	}
	owner, err := utils.ToUniversalAddress(s.signer.ChainID(), addr)
	if err != nil {
		return models.UniversalAddress{}, sdkerr.New(sdkerr.KindSigner, stepCommitmentPrepare, err)
	}
	return owner, nil
}

// Sign asks the signer to sign the raw message text.
func (s *CommitmentService) Sign(ctx context.Context, prepared *PreparedCommitment) (signed *SignedCommitment, err error) {
	defer func() { s.observe(flowCommitment, "sign", err) }()

	if prepared == nil || prepared.Message == nil {
		return nil, sdkerr.Validation(stepCommitmentSign, "commitment is not prepared")
	}
	ids := []string{prepared.Checkbook.ID}
	addr, err := s.signer.Address(ctx)
	if err != nil {
		return nil, signerError(stepCommitmentSign, err, ids...)
	}
	signerUA, err := utils.ToUniversalAddress(s.signer.ChainID(), addr)
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindSigner, stepCommitmentSign, fmt.Errorf("signer address %q: %w", addr, err), ids...)
	}
	if signerUA.Data != prepared.Owner.Data {
		return nil, sdkerr.Precondition(stepCommitmentSign, ids, "signer %s does not own the checkbook", addr)
	}
	sig, err := s.signer.SignMessage(ctx, prepared.Message.Message)
	if err != nil {
		return nil, signerError(stepCommitmentSign, err, ids...)
	}
	return &SignedCommitment{
		PreparedCommitment: prepared,
		Signature:          sig,
		SignerAddress:      addr,
		SignerChainID:      s.signer.ChainID(),
	}, nil
}

// Submit posts the signed commitment. The locally computed commitment is
// never sent; it is only compared with the backend's value for the log.
func (s *CommitmentService) Submit(ctx context.Context, signed *SignedCommitment) (res *dto.CommitmentResult, err error) {
	defer func() { s.observe(flowCommitment, "submit", err) }()

	if signed == nil || signed.PreparedCommitment == nil || signed.Signature == "" {
		return nil, sdkerr.Validation(stepCommitmentSubmit, "commitment is not signed")
	}
	cb := signed.Checkbook
	ids := []string{cb.ID}

	ownerNative, err := utils.UniversalToNative(signed.Owner)
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindValidation, stepCommitmentSubmit, err, ids...)
	}
	req := types.CommitmentSubmitRequest{
		Allocations: signed.Allocations,
		DepositID:   strconv.FormatUint(*cb.LocalDepositID, 10),
		Signature: types.MultichainSignatureRequest{
			ChainID:       signed.SignerChainID,
			SignatureData: signed.Signature,
		},
		OwnerAddress: types.UniversalAddressRequest{
			ChainID: signed.Owner.SLIP44ChainID,
			Address: ownerNative,
		},
		TokenSymbol:   cb.Token.Symbol,
		TokenDecimals: cb.Token.Decimals,
		Lang:          uint8(signed.Language),
	}

	res, err = s.api.SubmitCommitment(ctx, req)
	if err != nil {
		return nil, conflictError(stepCommitmentSubmit, err, ids)
	}

	s.compareCommitment(cb.ID, signed.Message.Commitment, res)

	var mutations []store.Mutation
	if res.Checkbook != nil {
		mutations = append(mutations, store.UpsertCheckbook(*res.Checkbook))
	}
	for _, a := range res.Allocations {
		if a.CheckbookID == "" {
			a.CheckbookID = cb.ID
		}
		mutations = append(mutations, store.UpsertAllocation(a))
	}
	if len(mutations) > 0 {
		s.store.Apply(mutations...)
	}

	s.log.WithFields(logrus.Fields{
		"checkbook_id": cb.ID,
		"commitment":   res.Commitment,
		"tx_hash":      res.TxHash,
		"queue_id":     res.QueueID,
	}).Info("[Commitment] submitted")
	return res, nil
}

// compareCommitment logs whether the local commitment matches the backend's.
// A mismatch is reported, never enforced.
func (s *CommitmentService) compareCommitment(checkbookID, local string, res *dto.CommitmentResult) {
	entry := s.log.WithFields(logrus.Fields{"checkbook_id": checkbookID, "local_commitment": local})
	switch {
	case res.Commitment == "":
		entry.Debug("[Commitment] proof queued, backend commitment not yet known")
	case commitment.Equal(local, res.Commitment):
		entry.Debug("[Commitment] local commitment matches backend")
	default:
		entry.WithField("backend_commitment", res.Commitment).
			Warn("[Commitment] local commitment differs from backend, using backend value")
	}
}

// CreateCommitment runs Prepare, Sign and Submit.
func (s *CommitmentService) CreateCommitment(ctx context.Context, p PrepareCommitmentParams) (*dto.CommitmentResult, error) {
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

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
