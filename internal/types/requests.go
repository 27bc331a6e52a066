// Package types holds the request bodies the SDK sends and the proof
// public values it reads back.
package types

// MultichainSignatureRequest is a signature tagged with the signing chain.
type MultichainSignatureRequest struct {
	ChainID       uint32  `json:"chain_id"` // SLIP-44
	SignatureData string  `json:"signature_data"`
	PublicKey     *string `json:"public_key,omitempty"`
}

// UniversalAddressRequest is an address on a specific chain.
type UniversalAddressRequest struct {
	ChainID uint32 `json:"chain_id"` // SLIP-44
	Address string `json:"address"`
}

// CommitmentAllocationRequest is one allocation of a commitment. The backend
// numbers allocations by their position, so the slice must be in seq order.
type CommitmentAllocationRequest struct {
	RecipientChainID uint32 `json:"recipient_chain_id"`
	RecipientAddress string `json:"recipient_address"` // 32-byte hex, no 0x
	Amount           string `json:"amount"`            // decimal base units
}

// CommitmentSubmitRequest is the body of POST /api/commitments/submit.
// It never carries a locally computed commitment.
type CommitmentSubmitRequest struct {
	Allocations   []CommitmentAllocationRequest `json:"allocations"`
	DepositID     string                        `json:"deposit_id"` // decimal
	Signature     MultichainSignatureRequest    `json:"signature"`
	OwnerAddress  UniversalAddressRequest       `json:"owner_address"`
	TokenSymbol   string                        `json:"token_symbol"`
	TokenDecimals uint8                         `json:"token_decimals"`
	Lang          uint8                         `json:"lang"`
}

// WithdrawIntentRequest is the intent of a withdrawal.
// Type is 0 for RawToken and 1 for AssetToken.
type WithdrawIntentRequest struct {
	Type               uint8  `json:"type"`
	BeneficiaryChainID uint32 `json:"beneficiaryChainId"`
	BeneficiaryAddress string `json:"beneficiaryAddress"` // 32-byte hex, no 0x
	TokenSymbol        string `json:"tokenSymbol"`
	AssetID            string `json:"assetId,omitempty"` // AssetToken only
}

// WithdrawSubmitRequest is the body of POST /api/withdraws/submit.
type WithdrawSubmitRequest struct {
	CheckbookID   string                `json:"checkbookId,omitempty"`
	AllocationIDs []string              `json:"allocations"` // sorted, deduplicated
	Intent        WithdrawIntentRequest `json:"intent"`
	Signature     string                `json:"signature"`
	ChainID       uint32                `json:"chainId"` // SLIP-44 chain of the signer
	Message       string                `json:"message,omitempty"`
	Nullifier     string                `json:"nullifier,omitempty"`
	Metadata      map[string]string     `json:"metadata,omitempty"`
}

// AuthLoginRequest is the body of POST /api/auth/login.
type AuthLoginRequest struct {
	UserAddress string `json:"user_address"`
	Message     string `json:"message"`
	Signature   string `json:"signature"`
	ChainID     int    `json:"chain_id"` // SLIP-44
}
