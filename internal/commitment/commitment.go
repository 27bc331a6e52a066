// Package commitment computes commitment and nullifier hashes with the same
// byte layout as the backend verifier. Everything here is pure.
package commitment

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"enclave-sdk/internal/models"
)

// Leaf is the per-allocation input: only seq and amount are hashed.
type Leaf struct {
	Seq    uint8
	Amount *big.Int
}

// Params is the full commitment input for one checkbook.
type Params struct {
	Leaves    []Leaf
	DepositID uint64 // checkbook localDepositId
	ChainID   uint32 // SLIP-44
	TokenKey  string // e.g. "USDT"
	Owner     models.UniversalAddress
}

// Compute returns
//
//	keccak256(depositId(32) || chainId(4) || keccak256(tokenKey) || ownerChainId(4) || owner(32) || leafHash...)
//
// where leafHash = keccak256(seq(1) || amount(32)) for each leaf sorted by seq.
// All integers are big-endian.
func Compute(p Params) (common.Hash, error) {
	if len(p.Leaves) == 0 {
		return common.Hash{}, fmt.Errorf("commitment requires at least one allocation")
	}
	if p.TokenKey == "" {
		return common.Hash{}, fmt.Errorf("commitment requires a token key")
	}

	leaves := make([]Leaf, len(p.Leaves))
	copy(leaves, p.Leaves)
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].Seq < leaves[j].Seq })

	data := make([]byte, 0, 32+4+32+4+32+32*len(leaves))

	var depositID [32]byte
	binary.BigEndian.PutUint64(depositID[24:], p.DepositID)
	data = append(data, depositID[:]...)
	data = binary.BigEndian.AppendUint32(data, p.ChainID)
	data = append(data, TokenKeyHash(p.TokenKey).Bytes()...)

	data = binary.BigEndian.AppendUint32(data, p.Owner.SLIP44ChainID)
	data = append(data, p.Owner.Data[:]...)

	for i, leaf := range leaves {
		if i > 0 && leaves[i-1].Seq == leaf.Seq {
			return common.Hash{}, fmt.Errorf("duplicate allocation seq %d", leaf.Seq)
		}
		h, err := LeafHash(leaf)
		if err != nil {
			return common.Hash{}, err
		}
		data = append(data, h.Bytes()...)
	}

	return crypto.Keccak256Hash(data), nil
}

// LeafHash is keccak256(seq || amount32BE).
func LeafHash(leaf Leaf) (common.Hash, error) {
	amount, err := amountBytes(leaf.Amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("allocation seq %d: %w", leaf.Seq, err)
	}
	return crypto.Keccak256Hash([]byte{leaf.Seq}, amount[:]), nil
}

// TokenKeyHash is keccak256 of the token key's UTF-8 bytes.
func TokenKeyHash(tokenKey string) common.Hash {
	return crypto.Keccak256Hash([]byte(tokenKey))
}

// Nullifier is keccak256(commitment(32) || seq(1) || amount(32)).
func Nullifier(commitment common.Hash, seq uint8, amount *big.Int) (common.Hash, error) {
	a, err := amountBytes(amount)
	if err != nil {
		return common.Hash{}, err
	}
	data := make([]byte, 0, 65)
	data = append(data, commitment.Bytes()...)
	data = append(data, seq)
	data = append(data, a[:]...)
	return crypto.Keccak256Hash(data), nil
}

// ParseHash parses a 0x-optional 32-byte hex string.
func ParseHash(s string) (common.Hash, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(h) != 64 {
		return common.Hash{}, fmt.Errorf("invalid hash %q: expected 64 hex chars, got %d", s, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return common.BytesToHash(b), nil
}

// Equal compares two hex hashes ignoring case and 0x prefix.
func Equal(a, b string) bool {
	ha, errA := ParseHash(a)
	hb, errB := ParseHash(b)
	return errA == nil && errB == nil && ha == hb
}

func amountBytes(amount *big.Int) ([32]byte, error) {
	var out [32]byte
	if amount == nil {
		return out, fmt.Errorf("nil amount")
	}
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return out, fmt.Errorf("amount %s does not fit in 32 bytes", amount)
	}
	amount.FillBytes(out[:])
	return out, nil
}
