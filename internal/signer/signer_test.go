package signer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/utils"
)

// Well-known hardhat account #0.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestPrivateKeySigner_EVM(t *testing.T) {
	s, err := NewPrivateKeySigner("0x"+testKey, utils.SLIP44BSC)
	require.NoError(t, err)

	addr, err := s.Address(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAddr, addr)

	msg := "Enclave Authentication\nNonce: abc\nTimestamp: 1"
	sig, err := s.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, sig, 132)

	recovered, err := RecoverAddress(utils.SLIP44BSC, msg, sig)
	require.NoError(t, err)
	assert.Equal(t, testAddr, recovered.Hex())

	// a different message must not recover to the same key
	other, err := RecoverAddress(utils.SLIP44BSC, msg+" ", sig)
	require.NoError(t, err)
	assert.NotEqual(t, testAddr, other.Hex())
}

func TestPrivateKeySigner_TRON(t *testing.T) {
	s, err := NewPrivateKeySigner(testKey, utils.SLIP44TRON)
	require.NoError(t, err)

	addr, err := s.Address(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "T"))
	assert.True(t, utils.IsTronAddress(addr))

	sig, err := s.SignMessage(context.Background(), "hello")
	require.NoError(t, err)
	recovered, err := RecoverAddress(utils.SLIP44TRON, "hello", sig)
	require.NoError(t, err)
	assert.Equal(t, testAddr, recovered.Hex())

	// EVM digest differs from TRON digest
	evm, err := RecoverAddress(utils.SLIP44BSC, "hello", sig)
	require.NoError(t, err)
	assert.NotEqual(t, testAddr, evm.Hex())
}

func TestPrivateKeySigner_CancelledContext(t *testing.T) {
	s, err := NewPrivateKeySigner(testKey, utils.SLIP44BSC)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SignMessage(ctx, "x")
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestNewPrivateKeySigner_Invalid(t *testing.T) {
	_, err := NewPrivateKeySigner("zz", utils.SLIP44BSC)
	assert.Error(t, err)
}

func TestCallbackSigner_ErrorKinds(t *testing.T) {
	validSig := "0x" + strings.Repeat("11", 65)
	tests := []struct {
		name    string
		ret     string
		err     error
		want    Kind
		wantErr bool
	}{
		{name: "ok", ret: validSig},
		{name: "ok without prefix", ret: strings.Repeat("AB", 65)},
		{name: "sentinel rejection", err: ErrUserRejected, want: KindUserRejected, wantErr: true},
		{name: "wrapped rejection", err: errors.Join(errors.New("modal closed"), ErrUserRejected), want: KindUserRejected, wantErr: true},
		{name: "eip1193 4001", err: &RPCError{ErrCode: 4001, Message: "whatever text"}, want: KindUserRejected, wantErr: true},
		{name: "eip1193 4900", err: &RPCError{ErrCode: 4900, Message: "disconnected"}, want: KindUnavailable, wantErr: true},
		{name: "message text is not inspected", err: errors.New("User rejected the request."), want: KindFailed, wantErr: true},
		{name: "deadline", err: context.DeadlineExceeded, want: KindUnavailable, wantErr: true},
		{name: "short signature", ret: "0x1234", want: KindInvalidSignature, wantErr: true},
		{name: "not hex", ret: "0xzz", want: KindInvalidSignature, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCallbackSigner(testAddr, utils.SLIP44BSC, func(ctx context.Context, message string) (string, error) {
				return tt.ret, tt.err
			})
			require.NoError(t, err)

			sig, err := s.SignMessage(context.Background(), "m")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, strings.ToLower("0x"+strings.TrimPrefix(tt.ret, "0x")), sig)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, tt.want == KindUserRejected, IsUserRejected(err))
		})
	}
}

type fakeWallet struct {
	addr string
	sig  string
	err  error
}

func (w *fakeWallet) SignMessage(ctx context.Context, message string) (string, error) {
	return w.sig, w.err
}

func (w *fakeWallet) GetAddress(ctx context.Context) (string, error) { return w.addr, nil }

func TestExternalSigner(t *testing.T) {
	w := &fakeWallet{addr: testAddr, sig: "0x" + strings.Repeat("22", 65)}
	s, err := NewExternalSigner(w, utils.SLIP44Ethereum)
	require.NoError(t, err)
	assert.Equal(t, utils.SLIP44Ethereum, s.ChainID())

	addr, err := s.Address(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAddr, addr)

	_, err = s.SignMessage(context.Background(), "m")
	require.NoError(t, err)

	w.err = &RPCError{ErrCode: 4001, Message: "denied"}
	_, err = s.SignMessage(context.Background(), "m")
	assert.True(t, IsUserRejected(err))

	w.addr = ""
	_, err = s.Address(context.Background())
	assert.Equal(t, KindUnavailable, KindOf(err))
}
