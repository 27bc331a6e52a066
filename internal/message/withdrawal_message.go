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

// WithdrawalAllocation is one allocation spent by a withdrawal.
type WithdrawalAllocation struct {
	ID         string
	Seq        uint8
	Amount     *big.Int
	Commitment string
}

// DepositInfo is the checkbook context of a single allocation. Allocations of
// one withdrawal may come from different checkbooks.
type DepositInfo struct {
	LocalDepositID uint64
	SLIP44ChainID  uint32
}

// WithdrawalInput is everything the withdrawal message depends on.
type WithdrawalInput struct {
	Allocations   []WithdrawalAllocation
	Intent        models.Intent
	TokenSymbol   string
	TokenDecimals uint8
	// TargetDecimals renders MinOutput; defaults to TokenDecimals.
	TargetDecimals *uint8
	Language       Language
	// ChainName overrides the source chain's display name.
	ChainName   string
	DepositInfo map[string]DepositInfo
	MinOutput   *big.Int
}

// WithdrawalMessage is the formatter output.
type WithdrawalMessage struct {
	Message       string
	MessageHash   string
	Nullifier     string
	TotalAmount   *big.Int
	AllocationIDs []string // sorted
}

// PrepareWithdrawalMessage validates the input and renders the withdrawal
// message. The nullifier is derived from the first allocation in id order.
func PrepareWithdrawalMessage(in WithdrawalInput) (*WithdrawalMessage, error) {
	lb, err := labelsFor(stepWithdrawal, in.Language)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.TokenSymbol) == "" {
		return nil, sdkerr.Validation(stepWithdrawal, "missing token symbol")
	}
	if len(in.Allocations) == 0 {
		return nil, sdkerr.Validation(stepWithdrawal, "at least one allocation is required")
	}
	if err := validateIntent(in.Intent); err != nil {
		return nil, err
	}

	byID := make([]WithdrawalAllocation, len(in.Allocations))
	copy(byID, in.Allocations)
	sort.SliceStable(byID, func(i, j int) bool { return byID[i].ID < byID[j].ID })

	ids := make([]string, 0, len(byID))
	amounts := make([]*big.Int, 0, len(byID))
	var sourceChains []uint32
	seenChain := map[uint32]bool{}
	for i, a := range byID {
		if a.ID == "" {
			return nil, sdkerr.Validation(stepWithdrawal, "allocation without id")
		}
		if i > 0 && byID[i-1].ID == a.ID {
			return nil, sdkerr.Validation(stepWithdrawal, "duplicate allocation id %s", a.ID)
		}
		if err := checkAmount(stepWithdrawal, "allocation "+a.ID, a.Amount); err != nil {
			return nil, err
		}
		info, ok := in.DepositInfo[a.ID]
		if !ok {
			return nil, &sdkerr.Error{
				Kind: sdkerr.KindValidation,
				Step: stepWithdrawal,
				IDs:  []string{a.ID},
				Err:  fmt.Errorf("missing deposit info for allocation %s", a.ID),
			}
		}
		if !seenChain[info.SLIP44ChainID] {
			seenChain[info.SLIP44ChainID] = true
			sourceChains = append(sourceChains, info.SLIP44ChainID)
		}
		ids = append(ids, a.ID)
		amounts = append(amounts, a.Amount)
	}

	first := byID[0]
	if strings.TrimSpace(first.Commitment) == "" {
		return nil, &sdkerr.Error{
			Kind: sdkerr.KindValidation,
			Step: stepWithdrawal,
			IDs:  []string{first.ID},
			Err:  fmt.Errorf("allocation %s has no commitment", first.ID),
		}
	}
	commitmentHash, err := commitment.ParseHash(first.Commitment)
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindValidation, stepWithdrawal, err, first.ID)
	}

	sourceName := in.ChainName
	if sourceName == "" {
		names := make([]string, 0, len(sourceChains))
		for _, c := range sourceChains {
			n, err := resolveChainName(stepWithdrawal, "", c)
			if err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		sourceName = strings.Join(names, ", ")
	}
	beneficiary := in.Intent.BeneficiaryAddress()
	targetChain, err := resolveChainName(stepWithdrawal, "", beneficiary.SLIP44ChainID)
	if err != nil {
		return nil, err
	}

	display := make([]WithdrawalAllocation, len(byID))
	copy(display, byID)
	sort.SliceStable(display, func(i, j int) bool { return display[i].Seq < display[j].Seq })

	total := utils.SumAmounts(amounts...)
	targetDecimals := in.TokenDecimals
	if in.TargetDecimals != nil {
		targetDecimals = *in.TargetDecimals
	}
	minOutput := in.MinOutput
	if minOutput == nil {
		minOutput = new(big.Int)
	}

	var b builder
	b.line(lb.withdrawalTitle)
	b.field(lb.sourceToken, in.TokenSymbol+" ("+sourceName+")")
	b.line(lb.allocations + ":")
	for _, a := range display {
		info := in.DepositInfo[a.ID]
		b.line(allocationLine(lb, info.LocalDepositID, a.Seq, a.Amount, in.TokenDecimals, in.TokenSymbol))
	}
	b.field(lb.total, utils.FormatAmount(total, in.TokenDecimals, in.TokenSymbol))
	b.field(lb.targetToken, in.Intent.TargetSymbol())
	if asset, ok := in.Intent.(models.AssetTokenIntent); ok {
		b.field(lb.assetID, asset.AssetIDHex())
	}
	b.field(lb.targetChain, targetChain)
	b.field(lb.beneficiary, strings.ToLower(beneficiary.Hex()))
	b.field(lb.minOutput, utils.FormatAmount(minOutput, targetDecimals, in.Intent.TargetSymbol()))
	b.line(lb.confirmWithdraw)
	msg := b.String()

	nullifier, err := commitment.Nullifier(commitmentHash, first.Seq, first.Amount)
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindValidation, stepWithdrawal, err, first.ID)
	}

	return &WithdrawalMessage{
		Message:       msg,
		MessageHash:   Hash(msg),
		Nullifier:     nullifier.Hex(),
		TotalAmount:   total,
		AllocationIDs: ids,
	}, nil
}

func validateIntent(intent models.Intent) error {
	if intent == nil {
		return sdkerr.Validation(stepWithdrawal, "missing intent")
	}
	var zeroAsset [32]byte
	switch v := intent.(type) {
	case models.RawTokenIntent:
		if strings.TrimSpace(v.TokenSymbol) == "" {
			return sdkerr.Validation(stepWithdrawal, "raw token intent without token symbol")
		}
	case models.AssetTokenIntent:
		if v.AssetID == zeroAsset {
			return sdkerr.Validation(stepWithdrawal, "asset token intent without asset id")
		}
		if strings.TrimSpace(v.AssetTokenSymbol) == "" {
			return sdkerr.Validation(stepWithdrawal, "asset token intent without token symbol")
		}
	default:
		return sdkerr.Validation(stepWithdrawal, "unknown intent type %s", intent.Type())
	}
	if intent.BeneficiaryAddress().IsZero() {
		return sdkerr.Validation(stepWithdrawal, "missing beneficiary address")
	}
	return nil
}
