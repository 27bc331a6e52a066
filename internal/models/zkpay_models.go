// Package models holds the SDK's canonical domain types.
//
// Amounts are *big.Int in base units. Values stored in a snapshot are treated
// as immutable: code that needs a different amount allocates a new big.Int.
package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// ============ Universal Address ============

// UniversalAddress is a chain-agnostic 32-byte address.
// 20-byte chain addresses are right-aligned with 12 leading zero bytes.
type UniversalAddress struct {
	SLIP44ChainID  uint32   // SLIP-44 chain id (BSC=714, ETH=60, TRON=195)
	Data           [32]byte // right-aligned address bytes
	DisplayAddress string   // chain-native rendering, informational only
}

// Hex returns 0x-prefixed lower-case hex of Data.
func (u UniversalAddress) Hex() string {
	return "0x" + hex.EncodeToString(u.Data[:])
}

// HexNoPrefix returns the 64 hex chars of Data without 0x, as the submit endpoints expect.
func (u UniversalAddress) HexNoPrefix() string {
	return hex.EncodeToString(u.Data[:])
}

// IsZero reports whether no address has been set.
func (u UniversalAddress) IsZero() bool {
	return u.Data == [32]byte{}
}

// String renders "slip44:0x…", the format used by the auth token.
func (u UniversalAddress) String() string {
	return fmt.Sprintf("%d:%s", u.SLIP44ChainID, u.Hex())
}

type universalAddressJSON struct {
	ChainID        uint32 `json:"chain_id"`
	Data           string `json:"data"`
	DisplayAddress string `json:"display_address,omitempty"`
}

func (u UniversalAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(universalAddressJSON{
		ChainID:        u.SLIP44ChainID,
		Data:           u.Hex(),
		DisplayAddress: u.DisplayAddress,
	})
}

func (u *UniversalAddress) UnmarshalJSON(b []byte) error {
	var raw universalAddressJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(raw.Data), "0x"))
	if err != nil {
		return fmt.Errorf("invalid universal address data: %w", err)
	}
	if len(data) != 32 {
		return fmt.Errorf("invalid universal address length: expected 32 bytes, got %d", len(data))
	}
	u.SLIP44ChainID = raw.ChainID
	copy(u.Data[:], data)
	u.DisplayAddress = raw.DisplayAddress
	return nil
}

// ============ Intent ============

// IntentType is the on-wire discriminator of a withdrawal intent.
type IntentType uint8

const (
	IntentTypeRawToken   IntentType = 0 // direct token transfer
	IntentTypeAssetToken IntentType = 1 // derived asset token (adapter conversion)
)

func (t IntentType) String() string {
	switch t {
	case IntentTypeRawToken:
		return "RawToken"
	case IntentTypeAssetToken:
		return "AssetToken"
	default:
		return fmt.Sprintf("IntentType(%d)", uint8(t))
	}
}

// Intent is the declared destination of a withdrawal. It is either a
// RawTokenIntent or an AssetTokenIntent.
type Intent interface {
	Type() IntentType
	BeneficiaryAddress() UniversalAddress
	// TargetSymbol is the symbol the beneficiary receives.
	TargetSymbol() string
}

// RawTokenIntent pays the beneficiary in the named token.
type RawTokenIntent struct {
	Beneficiary UniversalAddress
	TokenSymbol string
}

func (RawTokenIntent) Type() IntentType                       { return IntentTypeRawToken }
func (i RawTokenIntent) BeneficiaryAddress() UniversalAddress { return i.Beneficiary }
func (i RawTokenIntent) TargetSymbol() string                 { return i.TokenSymbol }

// AssetTokenIntent pays the beneficiary in an adapter-issued asset.
// AssetID layout: chain id (4) || adapter id (4) || token id (2) || reserved (22).
type AssetTokenIntent struct {
	Beneficiary      UniversalAddress
	AssetID          [32]byte
	AssetTokenSymbol string
}

func (AssetTokenIntent) Type() IntentType                       { return IntentTypeAssetToken }
func (i AssetTokenIntent) BeneficiaryAddress() UniversalAddress { return i.Beneficiary }
func (i AssetTokenIntent) TargetSymbol() string                 { return i.AssetTokenSymbol }

// AssetIDHex returns the asset id as 0x-prefixed hex.
func (i AssetTokenIntent) AssetIDHex() string {
	return "0x" + hex.EncodeToString(i.AssetID[:])
}

// ============ Token ============

// Token describes the asset held by a checkbook.
type Token struct {
	Symbol   string
	Name     string
	Decimals uint8
	Address  string
}

// ============ Checkbook ============

// Checkbook is one on-chain deposit that can be split into allocations.
type Checkbook struct {
	ID            string
	SLIP44ChainID uint32
	// LocalDepositID is assigned by the backend and feeds every hash.
	// nil means the backend has not reported it yet.
	LocalDepositID         *uint64
	DepositTransactionHash string

	UserAddress UniversalAddress
	Token       Token

	Amount            *big.Int
	GrossAmount       *big.Int
	AllocatableAmount *big.Int
	FeeTotalLocked    *big.Int

	Status     CheckbookStatus
	Commitment string // empty until the commitment is created

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLocalDepositID reports whether the deposit id is known.
func (c Checkbook) HasLocalDepositID() bool { return c.LocalDepositID != nil }

// Clone returns a copy that shares no pointers with c.
func (c Checkbook) Clone() Checkbook {
	out := c
	if c.LocalDepositID != nil {
		id := *c.LocalDepositID
		out.LocalDepositID = &id
	}
	out.Amount = cloneInt(c.Amount)
	out.GrossAmount = cloneInt(c.GrossAmount)
	out.AllocatableAmount = cloneInt(c.AllocatableAmount)
	out.FeeTotalLocked = cloneInt(c.FeeTotalLocked)
	return out
}

// ============ Allocation ============

// Allocation is one spendable slice of a checkbook.
type Allocation struct {
	ID          string
	CheckbookID string
	Seq         uint8
	Amount      *big.Int
	// Commitment equals the owning checkbook's commitment.
	Commitment        string
	Nullifier         string
	Status            AllocationStatus
	WithdrawRequestID string

	// TokenKey is copied from the checkbook when known.
	TokenKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy whose amount is not shared with a.
func (a Allocation) Clone() Allocation {
	out := a
	out.Amount = cloneInt(a.Amount)
	return out
}

// ============ Withdraw Request ============

// WithdrawRequest is one withdrawal over one or more allocations, possibly
// drawn from several checkbooks.
type WithdrawRequest struct {
	ID                string
	WithdrawNullifier string
	OwnerAddress      UniversalAddress

	IntentType          IntentType
	TokenSymbol         string
	AssetID             string
	TargetSLIP44ChainID uint32
	Recipient           UniversalAddress
	Amount              *big.Int
	MinOutputAmount     *big.Int

	// AllocationIDs is sorted and deduplicated.
	AllocationIDs []string

	ProofStatus   ProofStatus
	ExecuteStatus ExecuteStatus
	PayoutStatus  PayoutStatus
	HookStatus    HookStatus
	Status        WithdrawRequestStatus

	FallbackTransferred bool

	ProofError    string
	ExecuteError  string
	PayoutError   string
	HookError     string
	ExecuteTxHash string
	PayoutTxHash  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy whose slices and amounts are not shared with w.
func (w WithdrawRequest) Clone() WithdrawRequest {
	out := w
	out.AllocationIDs = append([]string(nil), w.AllocationIDs...)
	out.Amount = cloneInt(w.Amount)
	out.MinOutputAmount = cloneInt(w.MinOutputAmount)
	return out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// ============ Price ============

// Price is one asset quote from the prices channel.
type Price struct {
	AssetID   string
	Symbol    string
	Price     string
	Change24h string
	UpdatedAt time.Time
}

// ============ Stats ============

// WithdrawStats is the aggregate returned for the authenticated user.
type WithdrawStats struct {
	TotalRequests        int64
	TotalAmountWithdrawn *big.Int
	StatusBreakdown      map[WithdrawRequestStatus]int64
}
