// Package enclave is the public entry point of the SDK. It re-exports the
// types applications need from the internal packages and builds a wired
// client from a config file or an in-memory Config.
//
//	cfg, _ := enclave.LoadConfig("")
//	client, err := enclave.New(enclave.Options{Config: cfg})
//	...
//	defer client.Close()
//	err = client.Start(ctx, 50)
package enclave

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"enclave-sdk/internal/app"
	"enclave-sdk/internal/commitment"
	"enclave-sdk/internal/config"
	"enclave-sdk/internal/message"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/services"
	"enclave-sdk/internal/signer"
	"enclave-sdk/internal/store"
	"enclave-sdk/internal/utils"
)

// ==================== Client ====================

type (
	Client  = app.ServiceContainer
	Options = app.Options
	Config  = config.Config
)

// New builds a client. Nothing connects until Start or Authenticate.
func New(opts Options) (*Client, error) {
	return app.NewServiceContainer(opts)
}

// LoadConfig reads path (or config.local.yaml / config.yaml when empty)
// and applies ENCLAVE_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// ==================== Signers ====================

type (
	Signer           = signer.Signer
	Wallet           = signer.Wallet
	SignFunc         = signer.SignFunc
	PrivateKeySigner = signer.PrivateKeySigner
	CallbackSigner   = signer.CallbackSigner
	ExternalSigner   = signer.ExternalSigner
)

func NewPrivateKeySigner(hexKey string, slip44ChainID uint32) (*PrivateKeySigner, error) {
	return signer.NewPrivateKeySigner(hexKey, slip44ChainID)
}

func NewPrivateKeySignerFromKey(key *ecdsa.PrivateKey, slip44ChainID uint32) *PrivateKeySigner {
	return signer.NewPrivateKeySignerFromKey(key, slip44ChainID)
}

func NewCallbackSigner(address string, slip44ChainID uint32, fn SignFunc) (*CallbackSigner, error) {
	return signer.NewCallbackSigner(address, slip44ChainID, fn)
}

func NewExternalSigner(w Wallet, slip44ChainID uint32) (*ExternalSigner, error) {
	return signer.NewExternalSigner(w, slip44ChainID)
}

// ==================== Errors ====================

type (
	Error     = sdkerr.Error
	ErrorKind = sdkerr.Kind
)

const (
	KindUnknown          = sdkerr.KindUnknown
	KindValidation       = sdkerr.KindValidation
	KindPrecondition     = sdkerr.KindPrecondition
	KindSigner           = sdkerr.KindSigner
	KindUserRejected     = sdkerr.KindUserRejected
	KindTransport        = sdkerr.KindTransport
	KindProtocolTerminal = sdkerr.KindProtocolTerminal
)

// KindOf classifies err; errors not raised by the SDK are KindUnknown.
func KindOf(err error) ErrorKind { return sdkerr.KindOf(err) }

// ==================== Actions ====================

type (
	PrepareCommitmentParams = services.PrepareCommitmentParams
	CommitmentAllocation    = services.CommitmentAllocation
	PreparedCommitment      = services.PreparedCommitment
	SignedCommitment        = services.SignedCommitment
	PrepareWithdrawParams   = services.PrepareWithdrawParams
	PreparedWithdraw        = services.PreparedWithdraw
	SignedWithdraw          = services.SignedWithdraw
)

// ==================== Entities ====================

type (
	UniversalAddress      = models.UniversalAddress
	Token                 = models.Token
	Checkbook             = models.Checkbook
	CheckbookStatus       = models.CheckbookStatus
	Allocation            = models.Allocation
	AllocationStatus      = models.AllocationStatus
	WithdrawRequest       = models.WithdrawRequest
	WithdrawRequestStatus = models.WithdrawRequestStatus
	WithdrawStats         = models.WithdrawStats
	Intent                = models.Intent
	RawTokenIntent        = models.RawTokenIntent
	AssetTokenIntent      = models.AssetTokenIntent
	Price                 = models.Price
	Snapshot              = store.Snapshot
)

// ToUniversalAddress converts an EVM, TRON or 32-byte hex address.
func ToUniversalAddress(slip44ChainID uint32, address string) (UniversalAddress, error) {
	return utils.ToUniversalAddress(slip44ChainID, address)
}

// ==================== Realtime ====================

type (
	ConnectionState = realtime.State
	Event           = realtime.Event
	EventType       = realtime.EventType
	Channel         = realtime.Channel
	Subscription    = realtime.Subscription
)

const (
	StateDisconnected = realtime.StateDisconnected
	StateConnecting   = realtime.StateConnecting
	StateConnected    = realtime.StateConnected
	StateReconnecting = realtime.StateReconnecting
	StateError        = realtime.StateError
)

// ==================== Messages & hashing ====================

type Language = message.Language

// ParseLanguage accepts a BCP-47 style tag such as "en" or "zh-TW".
func ParseLanguage(tag string) (Language, error) { return message.ParseLanguage(tag) }

// ComputeCommitment hashes a checkbook's allocations into its commitment.
func ComputeCommitment(p commitment.Params) (common.Hash, error) { return commitment.Compute(p) }

type (
	CommitmentParams = commitment.Params
	CommitmentLeaf   = commitment.Leaf
)

// Nullifier derives the nullifier of allocation seq under commitment.
func Nullifier(commitmentHash common.Hash, seq uint8, amount *big.Int) (common.Hash, error) {
	return commitment.Nullifier(commitmentHash, seq, amount)
}
