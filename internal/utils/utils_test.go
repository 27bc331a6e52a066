package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUniversalAddress_EVM(t *testing.T) {
	for _, in := range []string{
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"f39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		"0XF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266",
	} {
		ua, err := ToUniversalAddress(SLIP44BSC, in)
		require.NoError(t, err, in)
		assert.Equal(t, "0x000000000000000000000000f39fd6e51aad88f6f4ce6ab8827279cfffb92266", ua.Hex())
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", ua.DisplayAddress)
		assert.Equal(t, SLIP44BSC, ua.SLIP44ChainID)
	}
}

func TestToUniversalAddress_TRON(t *testing.T) {
	ua, err := ToUniversalAddress(SLIP44TRON, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t")
	require.NoError(t, err)
	assert.Equal(t, "0x000000000000000000000000a614f803b6fd780986a42c78ec9c7f77e6ded13c", ua.Hex())

	native, err := UniversalToNative(ua)
	require.NoError(t, err)
	assert.Equal(t, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", native)

	tron, err := EvmToTronAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, "TYBNgWfhGuNzdLtjKtxXTfskAhTbMcqbaG", tron)
}

func TestToUniversalAddress_TRONChecksum(t *testing.T) {
	// last character altered
	_, err := ToUniversalAddress(SLIP44TRON, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u")
	assert.Error(t, err)
}

func TestToUniversalAddress_Universal(t *testing.T) {
	ua, err := ToUniversalAddress(SLIP44TRON, "0x000000000000000000000000a614f803b6fd780986a42c78ec9c7f77e6ded13c")
	require.NoError(t, err)
	assert.Equal(t, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", ua.DisplayAddress)

	full := "0x1111111111111111111111111111111111111111111111111111111111111111"
	ua, err = ToUniversalAddress(12345, full)
	require.NoError(t, err)
	assert.Equal(t, full, ua.Hex())
	assert.Equal(t, full, ua.DisplayAddress)
}

func TestToUniversalAddress_Invalid(t *testing.T) {
	for _, in := range []string{"", "0x1234", "not-an-address", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"} {
		// TRON base58 is only accepted on the TRON chain
		_, err := ToUniversalAddress(SLIP44BSC, in)
		assert.Error(t, err, in)
	}
}

func TestParseUniversalAddressString(t *testing.T) {
	ua, err := ParseUniversalAddressString("714:0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, SLIP44BSC, ua.SLIP44ChainID)
	assert.Equal(t, "714:0x000000000000000000000000f39fd6e51aad88f6f4ce6ab8827279cfffb92266", ua.String())

	_, err = ParseUniversalAddressString("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	assert.Error(t, err)
	_, err = ParseUniversalAddressString("bsc:0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	assert.Error(t, err)
}

func TestExtractEvmAddressFromUniversal(t *testing.T) {
	got, err := ExtractEvmAddressFromUniversal("0x000000000000000000000000F39FD6E51AAD88F6F4CE6AB8827279CFFFB92266")
	require.NoError(t, err)
	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", got)
}

func TestAssetID(t *testing.T) {
	id := EncodeAssetID(SLIP44BSC, 1, 1)
	assert.Equal(t, "0x000002ca00000001000100000000000000000000000000000000000000000000", id)

	chain, err := GetChainIDFromAssetID(id)
	require.NoError(t, err)
	assert.Equal(t, SLIP44BSC, chain)
	adapter, err := GetAdapterIDFromAssetID(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), adapter)
	token, err := GetTokenIDFromAssetID(id)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), token)

	assert.NoError(t, ValidateAssetID(id, SLIP44BSC, 1, 1))
	assert.Error(t, ValidateAssetID(id, SLIP44Ethereum, 1, 1))

	_, err = ParseAssetID("0x1234")
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1 USDT"},
		{"1234567890000000000", 18, "1.234568 USDT"},
		{"1234567490000000000", 18, "1.234567 USDT"},
		{"400000000000000000", 18, "0.4 USDT"},
		{"999999500000000000", 18, "1 USDT"},
		{"1", 18, "0 USDT"},
		{"500000000000", 18, "0.000001 USDT"},
		{"0", 18, "0 USDT"},
		{"1500000", 6, "1.5 USDT"},
		{"123", 0, "123 USDT"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			v, ok := new(big.Int).SetString(tt.amount, 10)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatAmount(v, tt.decimals, "USDT"))
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 400000000000000000 ")
	require.NoError(t, err)
	assert.Equal(t, "400000000000000000", v.String())

	for _, in := range []string{"", "1.5", "-1", "0x10", "115792089237316195423570985008687907853269984665640564039457584007913129639936"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestParseTokenAmount(t *testing.T) {
	v, err := ParseTokenAmount("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	v, err = ParseTokenAmount("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	_, err = ParseTokenAmount("0.0000001", 6)
	assert.Error(t, err)
	_, err = ParseTokenAmount("-1", 6)
	assert.Error(t, err)
	_, err = ParseTokenAmount("abc", 6)
	assert.Error(t, err)
}

func TestAmountToHex32(t *testing.T) {
	h, err := AmountToHex32(big.NewInt(255))
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000000000000000000000000000000000000000000ff", h)

	_, err = AmountToHex32(big.NewInt(-1))
	assert.Error(t, err)
	_, err = AmountToHex32(nil)
	assert.Error(t, err)

	back, err := ParseHexAmount("0x" + h)
	require.NoError(t, err)
	assert.Equal(t, int64(255), back.Int64())
}

func TestChainIDMapping(t *testing.T) {
	m := GlobalChainIDMapping

	evm, err := m.SLIP44ToEVM(SLIP44BSC)
	require.NoError(t, err)
	assert.Equal(t, uint32(56), evm)

	slip, err := m.EVMToSLIP44(137)
	require.NoError(t, err)
	assert.Equal(t, SLIP44Polygon, slip)

	_, err = m.SLIP44ToEVM(SLIP44TRON)
	assert.Error(t, err)
	assert.False(t, m.IsEVMCompatible(SLIP44TRON))
	assert.True(t, m.IsEVMCompatible(SLIP44Ethereum))

	assert.Equal(t, "BSC", m.GetChainName(SLIP44BSC))
	assert.Equal(t, "Unknown(1)", m.GetChainName(1))
	_, ok := m.LookupChainName(1)
	assert.False(t, ok)

	got, err := m.SmartToSlip44(56)
	require.NoError(t, err)
	assert.Equal(t, SLIP44BSC, got)

	got, ok = m.Slip44FromName("TRON")
	assert.True(t, ok)
	assert.Equal(t, SLIP44TRON, got)
}
