package main

import (
	"fmt"
	"strconv"
	"strings"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/utils"
)

type offlineInput struct {
	DepositID   uint64
	ChainID     uint32
	TokenKey    string
	Owner       string
	Allocations string
	Expected    string
}

func verifyOffline(in offlineInput) (report, error) {
	if in.TokenKey == "" || in.Owner == "" || in.Allocations == "" {
		return report{}, fmt.Errorf("-token-key, -owner and -allocations are required without -checkbook")
	}
	owner, err := utils.ParseUniversalAddressString(in.Owner)
	if err != nil {
		return report{}, err
	}
	allocs, err := parseAllocations(in.Allocations)
	if err != nil {
		return report{}, err
	}
	depositID := in.DepositID
	cb := models.Checkbook{
		ID:             "offline",
		SLIP44ChainID:  in.ChainID,
		LocalDepositID: &depositID,
		UserAddress:    owner,
		Token:          models.Token{Symbol: in.TokenKey},
		Commitment:     in.Expected,
	}
	return verifyCheckbook(cb, allocs)
}

// parseAllocations reads "seq:amount,seq:amount". Amounts are base units,
// decimal or 0x-prefixed hex.
func parseAllocations(s string) ([]models.Allocation, error) {
	var out []models.Allocation
	seen := map[uint8]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seqStr, amountStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("allocation %q: expected seq:amount", part)
		}
		seq, err := strconv.ParseUint(strings.TrimSpace(seqStr), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("allocation %q: invalid seq: %w", part, err)
		}
		if seen[uint8(seq)] {
			return nil, fmt.Errorf("allocation %q: duplicate seq %d", part, seq)
		}
		seen[uint8(seq)] = true

		amountStr = strings.TrimSpace(amountStr)
		parse := utils.ParseAmount
		if strings.HasPrefix(amountStr, "0x") {
			parse = utils.ParseHexAmount
		}
		amount, err := parse(amountStr)
		if err != nil {
			return nil, fmt.Errorf("allocation %q: %w", part, err)
		}
		out = append(out, models.Allocation{ID: "seq-" + strconv.FormatUint(seq, 10), Seq: uint8(seq), Amount: amount})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no allocations given")
	}
	return out, nil
}
