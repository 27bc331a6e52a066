package utils

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayDecimals is the maximum number of fractional digits shown in signed messages.
const DisplayDecimals = 6

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseAmount parses a base-unit decimal integer string (e.g. "400000000000000000").
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: not a decimal integer", s)
	}
	if err := checkUint256(v); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// ParseHexAmount parses a 0x-optional hex amount, as found in 32-byte wire fields.
func ParseHexAmount(s string) (*big.Int, error) {
	h := trim0x(strings.TrimSpace(s))
	if h == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex amount %q", s)
	}
	if err := checkUint256(v); err != nil {
		return nil, fmt.Errorf("invalid hex amount %q: %w", s, err)
	}
	return v, nil
}

// ParseTokenAmount converts a human amount ("1.5") into base units for the given decimals.
// Precision beyond the token's decimals is rejected rather than truncated.
func ParseTokenAmount(human string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(human))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", human, err)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", human, decimals)
	}
	v := shifted.BigInt()
	if err := checkUint256(v); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", human, err)
	}
	return v, nil
}

func checkUint256(v *big.Int) error {
	if v.Sign() < 0 {
		return fmt.Errorf("negative")
	}
	if v.Cmp(maxUint256) > 0 {
		return fmt.Errorf("exceeds 256 bits")
	}
	return nil
}

// AmountToBytes32 encodes an amount as 32 bytes big-endian (U256).
func AmountToBytes32(amount *big.Int) ([32]byte, error) {
	var out [32]byte
	if amount == nil {
		return out, fmt.Errorf("nil amount")
	}
	if err := checkUint256(amount); err != nil {
		return out, err
	}
	amount.FillBytes(out[:])
	return out, nil
}

// AmountToHex32 renders an amount as 64 hex chars without 0x.
func AmountToHex32(amount *big.Int) (string, error) {
	b, err := AmountToBytes32(amount)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// FormatAmount renders base units for display in signed messages:
// at most 6 fractional digits, rounded half-up, trailing zeros trimmed.
//
//	FormatAmount(1000000000000000000, 18, "USDT") == "1 USDT"
//	FormatAmount(1234567890000000000, 18, "USDT") == "1.234568 USDT"
func FormatAmount(amount *big.Int, decimals uint8, symbol string) string {
	return FormatAmountValue(amount, decimals) + " " + symbol
}

// FormatAmountValue is FormatAmount without the symbol.
func FormatAmountValue(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	// Round is half away from zero, which is half-up for non-negative amounts.
	return decimal.NewFromBigInt(amount, -int32(decimals)).Round(DisplayDecimals).String()
}

// SumAmounts adds amounts into a new big.Int.
func SumAmounts(amounts ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, a := range amounts {
		if a != nil {
			total.Add(total, a)
		}
	}
	return total
}
