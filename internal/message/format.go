// Package message builds the exact human-readable strings a wallet signs for
// commitments and withdrawals. The proof service rebuilds the same string
// byte for byte, so any change to spacing, ordering or amount rendering
// invalidates signatures.
package message

import (
	"encoding/hex"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/utils"
)

const (
	stepCommitment = "format_commitment_message"
	stepWithdrawal = "format_withdrawal_message"
)

// Hash returns the 0x-prefixed keccak256 of the UTF-8 message bytes.
func Hash(message string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = io.WriteString(h, message)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

type builder struct {
	lines []string
}

func (b *builder) line(s string) { b.lines = append(b.lines, s) }

func (b *builder) field(label, value string) { b.lines = append(b.lines, label+": "+value) }

func (b *builder) String() string { return strings.Join(b.lines, "\n") }

// allocationLine renders "Deposit 7 #0: 0.4 USDT" in the message language.
func allocationLine(lb labels, localDepositID uint64, seq uint8, amount *big.Int, decimals uint8, symbol string) string {
	return lb.deposit + " " + strconv.FormatUint(localDepositID, 10) + " #" + strconv.Itoa(int(seq)) + ": " +
		utils.FormatAmount(amount, decimals, symbol)
}

func labelsFor(step string, lang Language) (labels, error) {
	lb, ok := labelTable[lang]
	if !ok {
		return labels{}, sdkerr.Validation(step, "unsupported language code %d", lang)
	}
	return lb, nil
}

func resolveChainName(step string, override string, slip44ChainID uint32) (string, error) {
	if override != "" {
		return override, nil
	}
	name, ok := utils.GlobalChainIDMapping.LookupChainName(slip44ChainID)
	if !ok {
		return "", sdkerr.Validation(step, "missing chain metadata for chain %d", slip44ChainID)
	}
	return name, nil
}

func checkAmount(step, what string, amount *big.Int) error {
	if amount == nil {
		return sdkerr.Validation(step, "%s: missing amount", what)
	}
	if amount.Sign() <= 0 {
		return sdkerr.Validation(step, "%s: amount must be positive, got %s", what, amount)
	}
	if amount.BitLen() > 256 {
		return sdkerr.Validation(step, "%s: amount exceeds 256 bits", what)
	}
	return nil
}
