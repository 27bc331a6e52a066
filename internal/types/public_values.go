package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("failed to create ABI type %s: %v", t, err))
	}
	return typ
}

// commitmentPublicArgs mirrors the commitment program's public output:
// (bytes32 commitment, address owner, uint256 totalAmount, bytes32 depositId, uint32 coinType, string tokenKey)
var commitmentPublicArgs = abi.Arguments{
	{Name: "commitment", Type: mustNewType("bytes32")},
	{Name: "owner", Type: mustNewType("address")},
	{Name: "totalAmount", Type: mustNewType("uint256")},
	{Name: "depositId", Type: mustNewType("bytes32")},
	{Name: "coinType", Type: mustNewType("uint32")},
	{Name: "tokenKey", Type: mustNewType("string")},
}

// withdrawPublicArgs mirrors the withdraw program's public output.
var withdrawPublicArgs = abi.Arguments{
	{Name: "commitmentRoot", Type: mustNewType("bytes32")},
	{Name: "nullifiers", Type: mustNewType("bytes32[]")},
	{Name: "amount", Type: mustNewType("uint256")},
	{Name: "intentType", Type: mustNewType("uint8")},
	{Name: "slip44chainID", Type: mustNewType("uint32")},
	{Name: "adapterId", Type: mustNewType("uint32")},
	{Name: "tokenKey", Type: mustNewType("string")},
	{Name: "beneficiaryData", Type: mustNewType("bytes32")},
	{Name: "minOutput", Type: mustNewType("bytes32")},
	{Name: "sourceChainId", Type: mustNewType("uint32")},
	{Name: "sourceTokenKey", Type: mustNewType("string")},
}

// CommitmentPublicValues is the decoded public output of a commitment proof.
// The backend returns it with the submit response; the SDK only reads it
// to cross-check the values it signed.
type CommitmentPublicValues struct {
	Commitment  common.Hash
	Owner       common.Address
	TotalAmount *big.Int
	DepositID   common.Hash
	CoinType    uint32 // SLIP-44
	TokenKey    string
}

// DepositIDUint64 returns the deposit id when it fits in 64 bits.
func (p *CommitmentPublicValues) DepositIDUint64() (uint64, bool) {
	v := new(big.Int).SetBytes(p.DepositID[:])
	return v.Uint64(), v.IsUint64()
}

// WithdrawPublicValues is the decoded public output of a withdraw proof.
type WithdrawPublicValues struct {
	CommitmentRoot  common.Hash
	Nullifiers      []common.Hash
	Amount          *big.Int
	IntentType      uint8
	SLIP44ChainID   uint32
	AdapterID       uint32
	TokenKey        string
	BeneficiaryData common.Hash
	MinOutput       *big.Int
	SourceChainID   uint32
	SourceTokenKey  string
}

// unpackTuple decodes an ABI-encoded struct: a 32-byte offset word followed by the tuple body.
func unpackTuple(args abi.Arguments, publicValuesHex string) ([]interface{}, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(publicValuesHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	if len(raw) < 32 {
		return nil, fmt.Errorf("public values too short, need at least 32 bytes for offset")
	}
	offset := new(big.Int).SetBytes(raw[:32])
	if !offset.IsUint64() || offset.Uint64() < 32 || offset.Uint64() >= uint64(len(raw)) {
		return nil, fmt.Errorf("invalid struct offset: %s (data length: %d)", offset, len(raw))
	}
	unpacked, err := args.Unpack(raw[offset.Uint64():])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack ABI data: %w", err)
	}
	if len(unpacked) != len(args) {
		return nil, fmt.Errorf("unexpected unpacked data length: expected %d fields, got %d", len(args), len(unpacked))
	}
	return unpacked, nil
}

// ParseCommitmentPublicValues decodes commitment proof public values.
func ParseCommitmentPublicValues(publicValuesHex string) (*CommitmentPublicValues, error) {
	v, err := unpackTuple(commitmentPublicArgs, publicValuesHex)
	if err != nil {
		return nil, err
	}
	return &CommitmentPublicValues{
		Commitment:  common.Hash(v[0].([32]byte)),
		Owner:       v[1].(common.Address),
		TotalAmount: v[2].(*big.Int),
		DepositID:   common.Hash(v[3].([32]byte)),
		CoinType:    v[4].(uint32),
		TokenKey:    v[5].(string),
	}, nil
}

// ParseWithdrawPublicValues decodes withdraw proof public values.
func ParseWithdrawPublicValues(publicValuesHex string) (*WithdrawPublicValues, error) {
	v, err := unpackTuple(withdrawPublicArgs, publicValuesHex)
	if err != nil {
		return nil, err
	}
	rawNullifiers := v[1].([][32]byte)
	nullifiers := make([]common.Hash, len(rawNullifiers))
	for i, n := range rawNullifiers {
		nullifiers[i] = common.Hash(n)
	}
	minOutput := v[8].([32]byte)
	return &WithdrawPublicValues{
		CommitmentRoot:  common.Hash(v[0].([32]byte)),
		Nullifiers:      nullifiers,
		Amount:          v[2].(*big.Int),
		IntentType:      v[3].(uint8),
		SLIP44ChainID:   v[4].(uint32),
		AdapterID:       v[5].(uint32),
		TokenKey:        v[6].(string),
		BeneficiaryData: common.Hash(v[7].([32]byte)),
		MinOutput:       new(big.Int).SetBytes(minOutput[:]),
		SourceChainID:   v[9].(uint32),
		SourceTokenKey:  v[10].(string),
	}, nil
}
