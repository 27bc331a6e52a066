package message

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"enclave-sdk/internal/commitment"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/utils"
)

// CommitmentAllocation is one slice of the checkbook, already numbered.
type CommitmentAllocation struct {
	Seq    uint8
	Amount *big.Int
}

// CommitmentInput is everything the commitment message depends on.
type CommitmentInput struct {
	Allocations []CommitmentAllocation
	// DepositID is hashed into the commitment.
	DepositID uint64
	// LocalDepositID is shown on allocation lines; defaults to DepositID.
	LocalDepositID *uint64
	TokenKey       string
	TokenDecimals  uint8
	ChainID        uint32 // SLIP-44
	Owner          models.UniversalAddress
	Language       Language
	ChainName      string // optional override of the chain's display name
}

// CommitmentMessage is the formatter output.
type CommitmentMessage struct {
	Message     string
	MessageHash string
	TotalAmount *big.Int
	// Commitment is computed locally for diagnostics only. The backend value
	// returned on submit is authoritative.
	Commitment string
}

// PrepareCommitmentMessage validates the input and renders the commitment message.
func PrepareCommitmentMessage(in CommitmentInput) (*CommitmentMessage, error) {
	lb, err := labelsFor(stepCommitment, in.Language)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.TokenKey) == "" {
		return nil, sdkerr.Validation(stepCommitment, "missing token key")
	}
	if len(in.Allocations) == 0 {
		return nil, sdkerr.Validation(stepCommitment, "at least one allocation is required")
	}
	if len(in.Allocations) > 256 {
		return nil, sdkerr.Validation(stepCommitment, "too many allocations: %d (max 256)", len(in.Allocations))
	}
	if in.Owner.IsZero() {
		return nil, sdkerr.Validation(stepCommitment, "missing owner address")
	}
	chainName, err := resolveChainName(stepCommitment, in.ChainName, in.ChainID)
	if err != nil {
		return nil, err
	}

	allocs := make([]CommitmentAllocation, len(in.Allocations))
	copy(allocs, in.Allocations)
	sort.SliceStable(allocs, func(i, j int) bool { return allocs[i].Seq < allocs[j].Seq })

	leaves := make([]commitment.Leaf, 0, len(allocs))
	amounts := make([]*big.Int, 0, len(allocs))
	for i, a := range allocs {
		if err := checkAmount(stepCommitment, fmt.Sprintf("allocation seq %d", a.Seq), a.Amount); err != nil {
			return nil, err
		}
		if i > 0 && allocs[i-1].Seq == a.Seq {
			return nil, sdkerr.Validation(stepCommitment, "duplicate allocation seq %d", a.Seq)
		}
		leaves = append(leaves, commitment.Leaf{Seq: a.Seq, Amount: a.Amount})
		amounts = append(amounts, a.Amount)
	}

	localID := in.DepositID
	if in.LocalDepositID != nil {
		localID = *in.LocalDepositID
	}
	total := utils.SumAmounts(amounts...)

	var b builder
	b.line(lb.commitmentTitle)
	b.field(lb.sourceToken, in.TokenKey+" ("+chainName+")")
	b.line(lb.allocations + ":")
	for _, a := range allocs {
		b.line(allocationLine(lb, localID, a.Seq, a.Amount, in.TokenDecimals, in.TokenKey))
	}
	b.field(lb.total, utils.FormatAmount(total, in.TokenDecimals, in.TokenKey))
	b.field(lb.owner, in.Owner.Hex())
	b.line(lb.confirmCommit)
	msg := b.String()

	c, err := commitment.Compute(commitment.Params{
		Leaves:    leaves,
		DepositID: in.DepositID,
		ChainID:   in.ChainID,
		TokenKey:  in.TokenKey,
		Owner:     in.Owner,
	})
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindValidation, stepCommitment, err)
	}

	return &CommitmentMessage{
		Message:     msg,
		MessageHash: Hash(msg),
		TotalAmount: total,
		Commitment:  c.Hex(),
	}, nil
}
