package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"enclave-sdk/internal/utils"
)

const tronMessagePrefix = "\x19TRON Signed Message:\n"

// PrivateKeySigner signs with an in-process secp256k1 key.
// EVM chains use EIP-191 personal_sign, TRON uses its TIP-191 prefix.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID uint32
}

// NewPrivateKeySigner parses a hex private key (with or without 0x).
func NewPrivateKeySigner(hexKey string, slip44ChainID uint32) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewPrivateKeySignerFromKey(key, slip44ChainID), nil
}

// NewPrivateKeySignerFromKey wraps an existing key.
func NewPrivateKeySignerFromKey(key *ecdsa.PrivateKey, slip44ChainID uint32) *PrivateKeySigner {
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: slip44ChainID,
	}
}

func (s *PrivateKeySigner) ChainID() uint32 { return s.chainID }

// EVMAddress is the 20-byte address behind the key, whatever the chain.
func (s *PrivateKeySigner) EVMAddress() common.Address { return s.address }

func (s *PrivateKeySigner) Address(ctx context.Context) (string, error) {
	if s.chainID == utils.SLIP44TRON {
		addr, err := utils.EvmToTronAddress(s.address.Hex())
		if err != nil {
			return "", &Error{Kind: KindFailed, Op: "address", Err: err}
		}
		return addr, nil
	}
	return s.address.Hex(), nil
}

func (s *PrivateKeySigner) SignMessage(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("sign", err)
	}
	sig, err := crypto.Sign(MessageDigest(s.chainID, message), s.key)
	if err != nil {
		return "", &Error{Kind: KindFailed, Op: "sign", Err: err}
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// MessageDigest is the hash a wallet signs for message on the given chain.
func MessageDigest(slip44ChainID uint32, message string) []byte {
	if slip44ChainID == utils.SLIP44TRON {
		return crypto.Keccak256([]byte(fmt.Sprintf("%s%d%s", tronMessagePrefix, len(message), message)))
	}
	return accounts.TextHash([]byte(message))
}

// RecoverAddress returns the address that produced signature over message.
func RecoverAddress(slip44ChainID uint32, message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(MessageDigest(slip44ChainID, message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
