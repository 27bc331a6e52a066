// Package signer adapts private keys, callbacks and external wallets to one
// signing capability. Signers receive the raw message text and apply their own
// chain-specific prefix and hashing.
package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signer signs raw messages and reports the signing address.
type Signer interface {
	// SignMessage returns a 0x-prefixed 65-byte signature over message.
	SignMessage(ctx context.Context, message string) (string, error)
	// Address returns the chain-native address of the signer.
	Address(ctx context.Context) (string, error)
	// ChainID is the SLIP-44 chain the signer signs for.
	ChainID() uint32
}

// Kind tags why a signing request failed.
type Kind uint8

const (
	KindFailed Kind = iota
	// KindUserRejected is the user declining in the wallet. Not a fault, not retryable.
	KindUserRejected
	// KindUnavailable means the signer could not be reached or is not authorised.
	KindUnavailable
	// KindInvalidSignature means the signer returned something that is not a signature.
	KindInvalidSignature
)

func (k Kind) String() string {
	switch k {
	case KindUserRejected:
		return "user_rejected"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidSignature:
		return "invalid_signature"
	default:
		return "failed"
	}
}

// Error is returned by every Signer in this package.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("signer %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("signer %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrUserRejected lets callback signers report a rejection without a wallet error code.
var ErrUserRejected = errors.New("user rejected the request")

// KindOf extracts the kind from err. Errors not produced by this package are KindFailed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}

// IsUserRejected reports whether err is a user rejection.
func IsUserRejected(err error) bool {
	return err != nil && KindOf(err) == KindUserRejected
}

// EIP-1193 provider error codes.
const (
	codeUserRejected = 4001
	codeUnauthorized = 4100
	codeUnsupported  = 4200
	codeDisconnected = 4900
	codeChainDisconn = 4901
)

type coder interface{ Code() int }

// classify maps an arbitrary signer error to a Kind using sentinels, context
// errors and wallet error codes.
func classify(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind := KindFailed
	var c coder
	switch {
	case errors.Is(err, ErrUserRejected):
		kind = KindUserRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindUnavailable
	case errors.As(err, &c):
		switch c.Code() {
		case codeUserRejected:
			kind = KindUserRejected
		case codeUnauthorized, codeUnsupported, codeDisconnected, codeChainDisconn:
			kind = KindUnavailable
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// RPCError is a wallet provider error carrying an EIP-1193 / JSON-RPC code.
type RPCError struct {
	ErrCode int
	Message string
}

func (e *RPCError) Error() string { return fmt.Sprintf("wallet error %d: %s", e.ErrCode, e.Message) }
func (e *RPCError) Code() int     { return e.ErrCode }

// normalizeSignature checks for 65 bytes and returns lower-case 0x hex.
func normalizeSignature(op, sig string) (string, error) {
	s := strings.TrimSpace(sig)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(strings.ToLower(s))
	if err != nil {
		return "", &Error{Kind: KindInvalidSignature, Op: op, Err: err}
	}
	if len(raw) != 65 {
		return "", &Error{Kind: KindInvalidSignature, Op: op, Err: fmt.Errorf("expected 65 bytes, got %d", len(raw))}
	}
	return hexutil.Encode(raw), nil
}
