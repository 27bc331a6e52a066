package signer

import (
	"context"
	"fmt"
)

// SignFunc signs a raw message. Return ErrUserRejected, an *Error or an
// error with an EIP-1193 Code() to report a rejection.
type SignFunc func(ctx context.Context, message string) (string, error)

// CallbackSigner adapts a function and a fixed address.
type CallbackSigner struct {
	sign    SignFunc
	address string
	chainID uint32
}

// NewCallbackSigner builds a signer around fn.
func NewCallbackSigner(address string, slip44ChainID uint32, fn SignFunc) (*CallbackSigner, error) {
	if fn == nil {
		return nil, fmt.Errorf("sign callback is required")
	}
	if address == "" {
		return nil, fmt.Errorf("signer address is required")
	}
	return &CallbackSigner{sign: fn, address: address, chainID: slip44ChainID}, nil
}

func (s *CallbackSigner) ChainID() uint32 { return s.chainID }

func (s *CallbackSigner) Address(ctx context.Context) (string, error) { return s.address, nil }

func (s *CallbackSigner) SignMessage(ctx context.Context, message string) (string, error) {
	sig, err := s.sign(ctx, message)
	if err != nil {
		return "", classify("sign", err)
	}
	return normalizeSignature("sign", sig)
}

// Wallet is the shape of an external wallet bridge (browser extension relay,
// hardware wallet daemon, remote signing service).
type Wallet interface {
	SignMessage(ctx context.Context, message string) (string, error)
	GetAddress(ctx context.Context) (string, error)
}

// ExternalSigner adapts a Wallet.
type ExternalSigner struct {
	wallet  Wallet
	chainID uint32
}

// NewExternalSigner wraps w for the given SLIP-44 chain.
func NewExternalSigner(w Wallet, slip44ChainID uint32) (*ExternalSigner, error) {
	if w == nil {
		return nil, fmt.Errorf("wallet is required")
	}
	return &ExternalSigner{wallet: w, chainID: slip44ChainID}, nil
}

func (s *ExternalSigner) ChainID() uint32 { return s.chainID }

func (s *ExternalSigner) Address(ctx context.Context) (string, error) {
	addr, err := s.wallet.GetAddress(ctx)
	if err != nil {
		return "", classify("address", err)
	}
	if addr == "" {
		return "", &Error{Kind: KindUnavailable, Op: "address", Err: fmt.Errorf("wallet returned no address")}
	}
	return addr, nil
}

func (s *ExternalSigner) SignMessage(ctx context.Context, message string) (string, error) {
	sig, err := s.wallet.SignMessage(ctx, message)
	if err != nil {
		return "", classify("sign", err)
	}
	return normalizeSignature("sign", sig)
}
