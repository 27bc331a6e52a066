// Package dto decodes backend responses and push payloads and maps them to
// the SDK's domain models. Every fallback for fields the backend may omit or
// spell differently lives here, so the rest of the SDK only sees models.
package dto

import (
	"strings"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/utils"
)

const (
	stepMapCheckbook  = "map_checkbook"
	stepMapAllocation = "map_allocation"
	stepMapWithdraw   = "map_withdraw_request"

	// DefaultTokenDecimals applies when neither the checkbook nor its token reports decimals.
	DefaultTokenDecimals uint8 = 18
)

// UniversalAddressWire is an address as the backend serializes it. Older
// payloads use chain_id (sometimes an EVM id) and address instead of
// slip44_chain_id and data.
type UniversalAddressWire struct {
	SLIP44ChainID *uint32 `json:"slip44_chain_id,omitempty"`
	ChainID       *uint32 `json:"chain_id,omitempty"`
	EVMChainID    *uint32 `json:"evm_chain_id,omitempty"`
	Data          string  `json:"data,omitempty"`
	Address       string  `json:"address,omitempty"`
}

// IsEmpty reports whether no address bytes were sent.
func (w *UniversalAddressWire) IsEmpty() bool {
	return w == nil || (strings.TrimSpace(w.Data) == "" && strings.TrimSpace(w.Address) == "")
}

// Chain returns the SLIP-44 chain id, falling back to chain_id (mapped from
// an EVM id when needed) and then to fallback.
func (w *UniversalAddressWire) Chain(fallback uint32) uint32 {
	if w == nil {
		return fallback
	}
	if w.SLIP44ChainID != nil && *w.SLIP44ChainID != 0 {
		return *w.SLIP44ChainID
	}
	if w.ChainID != nil && *w.ChainID != 0 {
		if slip, err := utils.GlobalChainIDMapping.SmartToSlip44(*w.ChainID); err == nil {
			return slip
		}
		return *w.ChainID
	}
	if w.EVMChainID != nil {
		if slip, err := utils.GlobalChainIDMapping.EVMToSLIP44(*w.EVMChainID); err == nil {
			return slip
		}
	}
	return fallback
}

// ToUniversal converts to a domain address.
func (w *UniversalAddressWire) ToUniversal(fallbackChain uint32) (models.UniversalAddress, error) {
	if w.IsEmpty() {
		return models.UniversalAddress{}, errMissingAddress
	}
	raw := strings.TrimSpace(w.Data)
	if raw == "" {
		raw = strings.TrimSpace(w.Address)
	}
	return utils.ToUniversalAddress(w.Chain(fallbackChain), raw)
}

// FromUniversal builds the wire form of a domain address.
func FromUniversal(ua models.UniversalAddress) *UniversalAddressWire {
	chain := ua.SLIP44ChainID
	return &UniversalAddressWire{SLIP44ChainID: &chain, Data: ua.Hex()}
}

// TokenWire is the token block nested in checkbooks and allocations.
type TokenWire struct {
	ID       FlexUint64 `json:"id"`
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name"`
	Decimals *uint8     `json:"decimals"`
	Address  string     `json:"address"`
	ChainID  *uint32    `json:"chain_id"`
}

// CheckbookWire is a checkbook as returned by /api/checkbooks and pushed on
// the checkbooks channel.
type CheckbookWire struct {
	ID                     string                `json:"id"`
	SLIP44ChainID          *uint32               `json:"slip44_chain_id,omitempty"`
	ChainID                *uint32               `json:"chain_id,omitempty"`
	EVMChainID             *uint32               `json:"evm_chain_id,omitempty"`
	LocalDepositID         FlexUint64            `json:"local_deposit_id"`
	DepositTransactionHash string                `json:"deposit_transaction_hash,omitempty"`
	UserAddress            *UniversalAddressWire `json:"user_address,omitempty"`
	TokenKey               string                `json:"token_key,omitempty"`
	TokenSymbol            string                `json:"token_symbol,omitempty"`
	TokenAddress           string                `json:"token_address,omitempty"`
	TokenDecimals          *uint8                `json:"token_decimals,omitempty"`
	Token                  *TokenWire            `json:"token,omitempty"`
	Amount                 FlexAmount            `json:"amount"`
	GrossAmount            FlexAmount            `json:"gross_amount"`
	AllocatableAmount      FlexAmount            `json:"allocatable_amount"`
	FeeTotalLocked         FlexAmount            `json:"fee_total_locked"`
	Status                 string                `json:"status"`
	Commitment             *string               `json:"commitment,omitempty"`
	Allocations            []AllocationWire      `json:"allocations,omitempty"`
	CreatedAt              FlexTime              `json:"created_at"`
	UpdatedAt              FlexTime              `json:"updated_at"`
}

func (w *CheckbookWire) chain() uint32 {
	if w.SLIP44ChainID != nil && *w.SLIP44ChainID != 0 {
		return *w.SLIP44ChainID
	}
	if w.ChainID != nil && *w.ChainID != 0 {
		if slip, err := utils.GlobalChainIDMapping.SmartToSlip44(*w.ChainID); err == nil {
			return slip
		}
		return *w.ChainID
	}
	if w.EVMChainID != nil {
		if slip, err := utils.GlobalChainIDMapping.EVMToSLIP44(*w.EVMChainID); err == nil {
			return slip
		}
	}
	return w.UserAddress.Chain(0)
}

func (w *CheckbookWire) token() models.Token {
	tok := models.Token{Symbol: w.TokenKey, Address: w.TokenAddress, Decimals: DefaultTokenDecimals}
	if tok.Symbol == "" {
		tok.Symbol = w.TokenSymbol
	}
	if w.TokenDecimals != nil {
		tok.Decimals = *w.TokenDecimals
	}
	if w.Token != nil {
		if w.Token.Symbol != "" {
			tok.Symbol = w.Token.Symbol
		}
		tok.Name = w.Token.Name
		if w.Token.Decimals != nil {
			tok.Decimals = *w.Token.Decimals
		}
		if tok.Address == "" {
			tok.Address = w.Token.Address
		}
	}
	return tok
}

func (w *CheckbookWire) commitment() string {
	if w.Commitment == nil {
		return ""
	}
	return strings.TrimSpace(*w.Commitment)
}

// ToCheckbook maps a checkbook and any allocations nested in it. Nested
// allocations inherit the checkbook's commitment and token key when they
// carry none of their own.
func ToCheckbook(w CheckbookWire) (models.Checkbook, []models.Allocation, error) {
	if strings.TrimSpace(w.ID) == "" {
		return models.Checkbook{}, nil, sdkerr.Validation(stepMapCheckbook, "checkbook without id")
	}
	status, ok := models.ParseCheckbookStatus(w.Status)
	if !ok {
		return models.Checkbook{}, nil, sdkerr.New(sdkerr.KindValidation, stepMapCheckbook,
			errUnknownStatus("checkbook", w.Status), w.ID)
	}

	cb := models.Checkbook{
		ID:                     w.ID,
		SLIP44ChainID:          w.chain(),
		LocalDepositID:         w.LocalDepositID.Ptr(),
		DepositTransactionHash: w.DepositTransactionHash,
		Token:                  w.token(),
		Amount:                 w.Amount.OrZero(),
		GrossAmount:            w.GrossAmount.OrZero(),
		AllocatableAmount:      w.AllocatableAmount.OrZero(),
		FeeTotalLocked:         w.FeeTotalLocked.OrZero(),
		Status:                 status,
		Commitment:             w.commitment(),
		CreatedAt:              w.CreatedAt.Time,
		UpdatedAt:              w.UpdatedAt.Time,
	}
	// allocatable_amount is absent on older rows; the full amount is then allocatable.
	if w.AllocatableAmount.Int == nil {
		cb.AllocatableAmount = cb.Amount
	}
	if !w.UserAddress.IsEmpty() {
		owner, err := w.UserAddress.ToUniversal(cb.SLIP44ChainID)
		if err != nil {
			return models.Checkbook{}, nil, sdkerr.New(sdkerr.KindValidation, stepMapCheckbook, err, w.ID)
		}
		cb.UserAddress = owner
	}

	allocs := make([]models.Allocation, 0, len(w.Allocations))
	for _, aw := range w.Allocations {
		a, err := ToAllocation(aw, &cb)
		if err != nil {
			return models.Checkbook{}, nil, err
		}
		allocs = append(allocs, a)
	}
	return cb, allocs, nil
}

// CheckbookRef is the partial checkbook nested in allocation list items.
// It is enough to render deposit lines but is never stored as a checkbook.
type CheckbookRef struct {
	ID             string
	LocalDepositID *uint64
	SLIP44ChainID  uint32
	TokenKey       string
	Commitment     string
	Owner          models.UniversalAddress
}

// Ref extracts the partial view of w.
func (w *CheckbookWire) Ref() CheckbookRef {
	ref := CheckbookRef{
		ID:             w.ID,
		LocalDepositID: w.LocalDepositID.Ptr(),
		SLIP44ChainID:  w.chain(),
		TokenKey:       w.token().Symbol,
		Commitment:     w.commitment(),
	}
	if owner, err := w.UserAddress.ToUniversal(ref.SLIP44ChainID); err == nil {
		ref.Owner = owner
	}
	return ref
}

// CheckbookDetailWire is the body of GET /api/checkbooks/id/:id. The
// allocations come back beside the checkbook as "checks".
type CheckbookDetailWire struct {
	Checkbook       CheckbookWire    `json:"checkbook"`
	Checks          []AllocationWire `json:"checks"`
	Token           *TokenWire       `json:"token,omitempty"`
	RemainingAmount FlexAmount       `json:"remaining_amount"`
}

// ToCheckbookDetail maps a detail response. Allocations nested in the
// checkbook and listed as checks are merged by id.
func ToCheckbookDetail(w CheckbookDetailWire) (models.Checkbook, []models.Allocation, error) {
	if w.Checkbook.Token == nil {
		w.Checkbook.Token = w.Token
	}
	cb, nested, err := ToCheckbook(w.Checkbook)
	if err != nil {
		return models.Checkbook{}, nil, err
	}
	seen := make(map[string]struct{}, len(nested))
	for _, a := range nested {
		seen[a.ID] = struct{}{}
	}
	for _, aw := range w.Checks {
		if _, dup := seen[aw.ID]; dup {
			continue
		}
		a, err := ToAllocation(aw, &cb)
		if err != nil {
			return models.Checkbook{}, nil, err
		}
		seen[a.ID] = struct{}{}
		nested = append(nested, a)
	}
	return cb, nested, nil
}
